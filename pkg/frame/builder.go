package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/expr-lang/expr"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/protospec"
)

var (
	// ErrUnknownBlockType reports a block type absent from the
	// specification document.
	ErrUnknownBlockType = errors.New("frame: unknown block type")
	// ErrDependency reports a dependency placeholder that could not be
	// resolved to a concrete block type.
	ErrDependency = errors.New("frame: unresolved dependency")
	// ErrFrameType reports a frame type name with no code table entry.
	ErrFrameType = errors.New("frame: unknown frame type")
)

// Builder constructs block trees from the templates of one
// specification document. A Builder is cheap and stateless between
// calls; the document it reads is shared and never mutated.
type Builder struct {
	doc    *protospec.Document
	logger *slog.Logger
	order  bytecodec.Order
}

type config struct {
	tmpl     *protospec.ItemTemplate
	defaults map[string]any
	raw      []byte
	parsing  bool
	parent   *Block
	typeName string
	logger   *slog.Logger
	order    bytecodec.Order
}

// Option configures builders, Build calls and frame construction.
type Option func(*config)

// WithTemplate supplies the item template carrying the block type,
// used when no explicit type name is passed.
func WithTemplate(t protospec.ItemTemplate) Option {
	return func(c *config) {
		c.tmpl = &t
	}
}

// WithDefaults supplies the name-to-value map used to fill fields and
// resolve dependencies. Values may be []byte, string, or unsigned
// integers.
func WithDefaults(defaults map[string]any) Option {
	return func(c *config) {
		c.defaults = defaults
	}
}

// WithBytes supplies a raw buffer to parse from, consumed left to
// right as children are built. In this mode fields left without bytes
// by an exhausted buffer stay zero-length instead of being zero-filled
// to their declared size.
func WithBytes(raw []byte) Option {
	return func(c *config) {
		c.raw = raw
		c.parsing = true
	}
}

// WithParent sets the block used for upward dependency lookups.
func WithParent(p *Block) Option {
	return func(c *config) {
		c.parent = p
	}
}

// WithType selects the frame type when constructing a Frame by name;
// Build ignores it.
func WithType(name string) Option {
	return func(c *config) {
		c.typeName = name
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithOrder sets the byte order used for integer defaults, size
// expressions and length refreshes. Big endian when omitted.
func WithOrder(o bytecodec.Order) Option {
	return func(c *config) {
		c.order = o
	}
}

// NewBuilder creates a block builder over a loaded specification
// document.
func NewBuilder(doc *protospec.Document, opts ...Option) *Builder {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return &Builder{
		doc:    doc,
		logger: c.logger,
		order:  c.order,
	}
}

// Build constructs a block of the given type, or of the type carried
// by WithTemplate when blockType is empty. Construction is atomic: on
// any failure no partial block is returned.
func (b *Builder) Build(ctx context.Context, blockType string, opts ...Option) (*Block, error) {
	c := config{typeName: blockType}
	for _, opt := range opts {
		opt(&c)
	}
	return b.build(ctx, c, nil)
}

// build runs the resolution algorithm: determine the block type,
// resolve a dependency placeholder if present, fetch the template and
// construct each child in declared order against the remaining buffer.
func (b *Builder) build(ctx context.Context, c config, depStack []string) (*Block, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	typ := c.typeName
	if typ == "" && c.tmpl != nil {
		typ = c.tmpl.Type
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: no type given", ErrUnknownBlockType)
	}

	if dep, ok := protospec.Dependency(typ); ok {
		if slices.Contains(depStack, dep) {
			return nil, fmt.Errorf("%w: cycle through %q", ErrDependency, dep)
		}
		depStack = append(depStack, dep)
		resolved, err := b.resolveDependency(dep, c.defaults, c.parent)
		if err != nil {
			return nil, err
		}
		b.logger.DebugContext(ctx, "resolved dependent block type",
			"dependency", dep, "type", resolved)
		typ = resolved
	}

	template, ok := b.doc.BlockTemplate(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, typ)
	}
	b.logger.DebugContext(ctx, "building block",
		"type", typ, "items", len(template), "raw_len", len(c.raw))

	// The block's name is the resolved type, overriding any
	// template-carried item name.
	blk := &Block{name: typ, parent: c.parent}
	rem := c.raw
	for _, item := range template {
		child, err := b.buildItem(ctx, item, c.defaults, rem, c.parsing, blk, depStack)
		if err != nil {
			return nil, fmt.Errorf("building item %q of block %q: %w", item.Name, typ, err)
		}
		blk.Append(child)
		if n := child.Len(); n >= len(rem) {
			rem = nil
		} else {
			rem = rem[n:]
		}
	}
	return blk, nil
}

// buildItem dispatches on the template kind: fields are leaves, any
// other kind recurses into build.
func (b *Builder) buildItem(ctx context.Context, item protospec.ItemTemplate, defaults map[string]any, raw []byte, parsing bool, parent *Block, depStack []string) (Node, error) {
	if item.Kind() != protospec.KindField {
		return b.build(ctx, config{
			tmpl:     &item,
			defaults: defaults,
			raw:      raw,
			parsing:  parsing,
			parent:   parent,
		}, depStack)
	}

	size, err := b.itemSize(item, parent)
	if err != nil {
		return nil, err
	}
	var value []byte
	if v, ok := defaults[item.Name]; ok {
		value, err = coerceBytes(v, size, b.order)
		if err != nil {
			return nil, err
		}
	} else if len(raw) > 0 {
		if size <= 0 || size > len(raw) {
			value = raw
		} else {
			value = raw[:size]
		}
	}
	// Outside parse mode a field always assumes its declared size, so
	// an empty build yields a zero-filled, correctly sized tree.
	if !parsing && size > 0 && len(value) != size {
		value = bytecodec.Resize(value, size, b.order)
	}
	return NewField(item.Name, size, value), nil
}

// resolveDependency maps a dependency field to a concrete block type:
// first through the defaults map, otherwise by walking the parent
// chain for an already-built field of that name.
func (b *Builder) resolveDependency(dep string, defaults map[string]any, parent *Block) (string, error) {
	if v, ok := defaults[dep]; ok {
		var name string
		var found bool
		switch v := v.(type) {
		case string:
			name, found = b.doc.ResolveCode(dep, v)
		case []byte:
			name, found = b.doc.ResolveCodeBytes(dep, v)
		default:
			return "", fmt.Errorf("%w: default for %q must be string or bytes, got %T", ErrDependency, dep, v)
		}
		if !found {
			return "", fmt.Errorf("%w: no association for %q with %v", ErrDependency, dep, v)
		}
		return name, nil
	}
	for p := parent; p != nil; p = p.parent {
		if f, ok := p.Field(dep); ok {
			name, found := b.doc.ResolveCodeBytes(dep, f.Bytes())
			if !found {
				return "", fmt.Errorf("%w: no association for %q with value %#x", ErrDependency, dep, f.Bytes())
			}
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no default or ancestor field %q", ErrDependency, dep)
}

// itemSize resolves a template size: a plain number, an expression
// over already-built sibling and ancestor fields, or 0 (unbounded)
// when absent.
func (b *Builder) itemSize(item protospec.ItemTemplate, parent *Block) (int, error) {
	if n, ok := item.FixedSize(); ok {
		return n, nil
	}
	src, ok := item.SizeExpr()
	if !ok {
		return 0, nil
	}
	out, err := expr.Eval(src, fieldEnv(parent, b.order))
	if err != nil {
		return 0, fmt.Errorf("evaluating size expression %q: %w", src, err)
	}
	switch n := out.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("size expression %q evaluated to %T, want integer", src, out)
}

// fieldEnv flattens the already-built field values visible from a
// block (its own children and every ancestor's) into an expression
// environment. Inner scopes shadow outer ones.
func fieldEnv(parent *Block, o bytecodec.Order) map[string]any {
	var chain []*Block
	for p := parent; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	env := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		collectFields(chain[i], env, o)
	}
	return env
}

func collectFields(b *Block, env map[string]any, o bytecodec.Order) {
	for _, item := range b.items {
		switch item := item.(type) {
		case *Field:
			if v, err := item.Uint(o); err == nil {
				env[item.Name()] = int(v)
			}
		case *Block:
			collectFields(item, env, o)
		}
	}
}

// coerceBytes turns a defaults map value into field bytes.
func coerceBytes(v any, size int, o bytecodec.Order) ([]byte, error) {
	switch v := v.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case int:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative field value %d", bytecodec.ErrKind, v)
		}
		return bytecodec.IntToBytes(uint64(v), size, o), nil
	case uint64:
		return bytecodec.IntToBytes(v, size, o), nil
	case uint:
		return bytecodec.IntToBytes(uint64(v), size, o), nil
	}
	return nil, fmt.Errorf("%w: field value %T (want bytes, string or unsigned integer)", bytecodec.ErrKind, v)
}
