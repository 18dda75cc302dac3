package frame

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/protospec"
)

// Profile describes how one protocol composes its frames: the header
// and body templates, the header field that selects the message type,
// and an optional header field holding the total frame length.
// Protocol packages declare one Profile next to their embedded
// specification document.
type Profile struct {
	// Name of the protocol, used as the root block name.
	Name string
	// Header is the item template of the header block, e.g.
	// {Name: "header", Type: "HEADER"}.
	Header protospec.ItemTemplate
	// Body is the item template of the body block, usually a
	// dependency placeholder steered by a header field.
	Body protospec.ItemTemplate
	// TypeField names the code table (and header field) that selects
	// the frame type. Required for WithType and TypeName.
	TypeField string
	// LengthField names the header field refreshed by Update with the
	// total frame length. Empty disables length refresh.
	LengthField string
	// Order used for integer conversions throughout the frame.
	Order bytecodec.Order
	// Defaults are protocol constants filled into every frame built by
	// type (not parsed), e.g. a fixed protocol version field. Caller
	// defaults override them.
	Defaults map[string]any
}

// Frame is one complete protocol message: a header block and a body
// block under a shared root, so body dependencies can resolve against
// header fields. Construction either fully succeeds or fails without
// exposing a partial frame.
type Frame struct {
	doc     *protospec.Document
	profile Profile
	order   bytecodec.Order
	root    *Block
	header  *Block
	body    *Block
}

// New builds a frame from a profile. Pass WithType to build a named
// frame type (the header type field is filled from the code table),
// WithDefaults to fill fields, or WithBytes to parse a received
// buffer. When a length field is declared and the frame is not parsed
// from bytes, the length is refreshed before returning.
func New(ctx context.Context, doc *protospec.Document, p Profile, opts ...Option) (*Frame, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	defaults := make(map[string]any, len(p.Defaults)+len(c.defaults))
	if !c.parsing {
		for k, v := range p.Defaults {
			defaults[k] = v
		}
	}
	for k, v := range c.defaults {
		defaults[k] = v
	}
	if c.typeName != "" {
		if p.TypeField == "" {
			return nil, fmt.Errorf("%w: profile %q declares no type field", ErrFrameType, p.Name)
		}
		key, ok := doc.CodeID(p.TypeField, c.typeName)
		if !ok {
			return nil, fmt.Errorf("%w: no %q entry named %q", ErrFrameType, p.TypeField, c.typeName)
		}
		if _, exists := defaults[p.TypeField]; !exists {
			defaults[p.TypeField] = protospec.CodeKeyBytes(key)
		}
	}

	b := NewBuilder(doc, WithOrder(p.Order), WithLogger(c.logger))
	root := NewBlock(p.Name)

	header, err := b.build(ctx, config{
		tmpl:     &p.Header,
		defaults: defaults,
		raw:      c.raw,
		parsing:  c.parsing,
		parent:   root,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s header: %w", p.Name, err)
	}
	root.Append(header)

	rem := c.raw
	if n := header.Len(); n >= len(rem) {
		rem = nil
	} else {
		rem = rem[n:]
	}
	body, err := b.build(ctx, config{
		tmpl:     &p.Body,
		defaults: defaults,
		raw:      rem,
		parsing:  c.parsing,
		parent:   root,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s body: %w", p.Name, err)
	}
	root.Append(body)

	f := &Frame{
		doc:     doc,
		profile: p,
		order:   p.Order,
		root:    root,
		header:  header,
		body:    body,
	}
	if p.LengthField != "" && !c.parsing {
		if err := f.Update(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Header returns the header block.
func (f *Frame) Header() *Block { return f.header }

// Body returns the body block.
func (f *Frame) Body() *Block { return f.body }

// Append adds a node at the end of the body, for manual construction.
func (f *Frame) Append(n Node) {
	f.body.Append(n)
}

// Len is the total frame length in bytes.
func (f *Frame) Len() int { return f.root.Len() }

// Bytes serializes the frame: header bytes followed by body bytes,
// with no gaps. Bytes never adjusts field values; call Update first
// after manual edits when the profile declares a length field.
func (f *Frame) Bytes() []byte { return f.root.Bytes() }

// Item finds a descendant by name anywhere in the frame.
func (f *Frame) Item(name string) (Node, bool) {
	return f.root.Item(name)
}

// Update writes the current total length into the profile's length
// field.
func (f *Frame) Update() error {
	if f.profile.LengthField == "" {
		return nil
	}
	fld, ok := f.header.Field(f.profile.LengthField)
	if !ok {
		return fmt.Errorf("%w: header has no length field %q", ErrUnknownBlockType, f.profile.LengthField)
	}
	fld.SetUint(uint64(f.root.Len()), f.order)
	return nil
}

// TypeName resolves the frame's type field through its code table,
// e.g. "CONNECT_REQUEST" for a parsed connect request.
func (f *Frame) TypeName() (string, bool) {
	if f.profile.TypeField == "" {
		return "", false
	}
	fld, ok := f.header.Field(f.profile.TypeField)
	if !ok {
		return "", false
	}
	return f.doc.ResolveCodeBytes(f.profile.TypeField, fld.Bytes())
}
