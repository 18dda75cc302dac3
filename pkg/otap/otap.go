// Package otap implements frame handling for the OTA/SCADA transport
// protocol. The frame structure is not hardcoded here: it lives in the
// embedded specification document otap.json, which describes the
// header, the per-message-type bodies and the message type code table.
//
// Building a hello frame:
//
//	f, err := otap.NewFrame(ctx, frame.WithType("HEL_BODY"), frame.WithDefaults(map[string]any{
//		"protocol_version": uint64(0),
//	}))
//
// Parsing a received buffer:
//
//	f, err := otap.NewFrame(ctx, frame.WithBytes(raw))
package otap

import (
	"context"
	_ "embed"
	"sync"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/frame"
	"github.com/trameio/trame/pkg/protospec"
)

//go:embed otap.json
var rawDocument []byte

var loadDocument = sync.OnceValues(func() (*protospec.Document, error) {
	return protospec.Parse(rawDocument)
})

// Document returns the protocol's specification document, parsed once
// and shared read-only.
func Document() (*protospec.Document, error) {
	return loadDocument()
}

// Profile describes how the protocol composes frames: an 8-byte header
// whose message_type field steers the body, a little-endian
// message_size holding the total frame length, and the final-chunk
// marker defaulting to "F".
var Profile = frame.Profile{
	Name:        "otap",
	Header:      protospec.ItemTemplate{Name: "header", Type: "HEADER"},
	Body:        protospec.ItemTemplate{Name: "body", Type: "depends:message_type"},
	TypeField:   "message_type",
	LengthField: "message_size",
	Order:       bytecodec.LittleEndian,
	Defaults: map[string]any{
		"is_final": []byte("F"),
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
