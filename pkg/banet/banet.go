// Package banet implements frame handling for the building-automation
// bus protocol. The frame structure lives in the embedded
// specification document banet.json: a fixed 6-byte header whose
// service identifier steers the body, and a tunnelled sub-frame (the
// cemi item of a configuration request) whose own structure is
// resolved through a second code table.
//
// The embedded sub-frame never needs special handling: its message
// code is resolved from defaults when building
// (frame.WithDefaults(map[string]any{"message_code": ...})) or from
// the already-parsed bytes when receiving.
package banet

import (
	"context"
	_ "embed"
	"sync"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/frame"
	"github.com/trameio/trame/pkg/protospec"
)

//go:embed banet.json
var rawDocument []byte

var loadDocument = sync.OnceValues(func() (*protospec.Document, error) {
	return protospec.Parse(rawDocument)
})

// Document returns the protocol's specification document, parsed once
// and shared read-only.
func Document() (*protospec.Document, error) {
	return loadDocument()
}

// Profile describes the frame composition: big-endian throughout, the
// service identifier selects the body, total_length carries the whole
// frame length, and every built frame starts with the constant header
// length and protocol version bytes.
var Profile = frame.Profile{
	Name:        "banet",
	Header:      protospec.ItemTemplate{Name: "header", Type: "HEADER"},
	Body:        protospec.ItemTemplate{Name: "body", Type: "depends:service_identifier"},
	TypeField:   "service_identifier",
	LengthField: "total_length",
	Order:       bytecodec.BigEndian,
	Defaults: map[string]any{
		"header_length":    6,
		"protocol_version": 0x10,
	},
}

// NewFrame builds or parses a protocol frame. See frame.New for the
// available options.
func NewFrame(ctx context.Context, opts ...frame.Option) (*frame.Frame, error) {
	doc, err := Document()
	if err != nil {
		return nil, err
	}
	return frame.New(ctx, doc, Profile, opts...)
}

// SetIPv4 writes a dotted-decimal address into a 4-byte field, e.g.
// the ip_address of an HPAI endpoint.
func SetIPv4(f *frame.Field, addr string) error {
	b, err := bytecodec.IPv4ToBytes(addr)
	if err != nil {
		return err
	}
	f.SetValue(b)
	return nil
}

// SetStation writes a textual station address ("X.Y.Z" individual,
// "X/Y/Z" group) into a 2-byte address field of a tunnelled data
// frame.
func SetStation(f *frame.Field, addr string, group bool) error {
	b, err := bytecodec.StationToBytes(addr, group)
	if err != nil {
		return err
	}
	f.SetValue(b)
	return nil
}

// Station reads a 2-byte address field back into textual form. An
// empty field reports ok=false.
func Station(f *frame.Field, group bool) (addr string, ok bool) {
	return bytecodec.BytesToStation(f.Bytes(), group)
}
