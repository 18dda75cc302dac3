package frame

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trameio/trame/pkg/bytecodec"
	"github.com/trameio/trame/pkg/protospec"
)

func newTestBuilder(t *testing.T, doc *protospec.Document, opts ...Option) *Builder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(doc, append([]Option{WithLogger(logger)}, opts...)...)
}

func testDocument() *protospec.Document {
	return &protospec.Document{
		Blocks: map[string][]protospec.ItemTemplate{
			"PAIR": {
				{Name: "first", Type: "field", Size: 1},
				{Name: "second", Type: "field", Size: 1},
			},
			"HEADER": {
				{Name: "message_type", Type: "field", Size: 3},
			},
			"HEL_BODY": {
				{Name: "protocol_version", Type: "field", Size: 4},
			},
			"ACK_BODY": {
				{Name: "status", Type: "field", Size: 1},
			},
			"ENVELOPE": {
				{Name: "header", Type: "HEADER"},
				{Name: "body", Type: "depends:message_type"},
			},
			"STRING": {
				{Name: "string_length", Type: "field", Size: 1},
				{Name: "string_value", Type: "field", Size: "string_length"},
			},
			"WIDE": {
				{Name: "a", Type: "field", Size: 2},
				{Name: "b", Type: "field", Size: 2},
				{Name: "c", Type: "field", Size: 2},
			},
		},
		Codes: map[string]map[string]string{
			"message_type": {
				"HEL": "HEL_BODY",
				"ACK": "ACK_BODY",
			},
		},
	}
}

func TestBuild_TwoFieldsFromBuffer(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	blk, err := b.Build(context.Background(), "PAIR", WithBytes([]byte{0xAA, 0xBB}))
	require.NoError(t, err)

	items := blk.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Name())
	assert.Equal(t, []byte{0xAA}, items[0].Bytes())
	assert.Equal(t, "second", items[1].Name())
	assert.Equal(t, []byte{0xBB}, items[1].Bytes())
	assert.Equal(t, 2, blk.Len())
}

func TestBuild_FieldPriority(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	// A defaults entry wins over the raw buffer, which still advances.
	blk, err := b.Build(context.Background(), "PAIR",
		WithDefaults(map[string]any{"first": []byte{0x7F}}),
		WithBytes([]byte{0xAA, 0xBB}))
	require.NoError(t, err)

	first, ok := blk.Field("first")
	require.True(t, ok)
	assert.Equal(t, []byte{0x7F}, first.Bytes())
	second, ok := blk.Field("second")
	require.True(t, ok)
	assert.Equal(t, []byte{0xBB}, second.Bytes())
}

func TestBuild_EmptyBuildZeroFills(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	blk, err := b.Build(context.Background(), "WIDE")
	require.NoError(t, err)
	assert.Equal(t, 6, blk.Len())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, blk.Bytes())
}

func TestBuild_DependencyFromDefaults(t *testing.T) {
	doc := testDocument()
	b := newTestBuilder(t, doc)

	blk, err := b.Build(context.Background(), "depends:message_type",
		WithDefaults(map[string]any{"message_type": "HEL"}))
	require.NoError(t, err)

	// Resolving through defaults selects the same concrete type as a
	// direct code table lookup.
	direct, ok := doc.ResolveCode("message_type", "HEL")
	require.True(t, ok)
	assert.Equal(t, direct, blk.Name())
	assert.Equal(t, "HEL_BODY", blk.Name())
}

func TestBuild_DependencyFromParent(t *testing.T) {
	b := newTestBuilder(t, testDocument())
	ctx := context.Background()

	root := NewBlock("")
	header, err := b.Build(ctx, "HEADER", WithBytes([]byte("ACK")), WithParent(root))
	require.NoError(t, err)
	root.Append(header)

	body, err := b.Build(ctx, "depends:message_type",
		WithBytes([]byte{0x01}), WithParent(root))
	require.NoError(t, err)
	root.Append(body)

	assert.Equal(t, "ACK_BODY", body.Name())
	status, ok := body.Field("status")
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, status.Bytes())
}

func TestBuild_NestedDependencyThroughTemplate(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	blk, err := b.Build(context.Background(), "ENVELOPE",
		WithBytes([]byte{'H', 'E', 'L', 0x00, 0x00, 0x00, 0x02}))
	require.NoError(t, err)

	body, ok := blk.Item("HEL_BODY")
	require.True(t, ok)
	assert.Equal(t, 4, body.Len())
	version, ok := blk.Field("protocol_version")
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x02}, version.Bytes())
}

func TestBuild_UnknownBlockType(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	_, err := b.Build(context.Background(), "NO_SUCH_TYPE")
	assert.ErrorIs(t, err, ErrUnknownBlockType)
}

func TestBuild_UnresolvedDependency(t *testing.T) {
	b := newTestBuilder(t, testDocument())
	ctx := context.Background()

	// No defaults entry and no ancestor field.
	_, err := b.Build(ctx, "depends:message_type")
	assert.ErrorIs(t, err, ErrDependency)

	// A defaults entry with no code table association.
	_, err = b.Build(ctx, "depends:message_type",
		WithDefaults(map[string]any{"message_type": "NOPE"}))
	assert.ErrorIs(t, err, ErrDependency)

	// An ancestor field whose value has no association.
	root := NewBlock("")
	header, err := b.Build(ctx, "HEADER", WithBytes([]byte("XXX")), WithParent(root))
	require.NoError(t, err)
	root.Append(header)
	_, err = b.Build(ctx, "depends:message_type", WithParent(root))
	assert.ErrorIs(t, err, ErrDependency)
}

func TestBuild_DependencyCycle(t *testing.T) {
	doc := &protospec.Document{
		Blocks: map[string][]protospec.ItemTemplate{
			"LOOPER": {
				{Name: "again", Type: "depends:loop"},
			},
		},
		Codes: map[string]map[string]string{
			"loop": {"on": "LOOPER"},
		},
	}
	b := newTestBuilder(t, doc)

	_, err := b.Build(context.Background(), "depends:loop",
		WithDefaults(map[string]any{"loop": "on"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependency)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuild_BufferExhaustion(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	// Three 2-byte fields against a 3-byte buffer: later items still
	// get built, shorter or empty, instead of aborting.
	blk, err := b.Build(context.Background(), "WIDE",
		WithBytes([]byte{0x01, 0x02, 0x03}))
	require.NoError(t, err)

	items := blk.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []byte{0x01, 0x02}, items[0].Bytes())
	assert.Equal(t, []byte{0x03}, items[1].Bytes())
	assert.Equal(t, 0, items[2].Len())
	assert.Equal(t, 3, blk.Len())
}

func TestBuild_SizeExpression(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	blk, err := b.Build(context.Background(), "STRING",
		WithBytes([]byte{0x03, 'a', 'b', 'c', 'x', 'y'}))
	require.NoError(t, err)

	value, ok := blk.Field("string_value")
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), value.Bytes())
	assert.Equal(t, 4, blk.Len())
}

func TestBuild_SizeExpressionArithmetic(t *testing.T) {
	doc := &protospec.Document{
		Blocks: map[string][]protospec.ItemTemplate{
			"CHUNK": {
				{Name: "total", Type: "field", Size: 1},
				{Name: "payload", Type: "field", Size: "total - 1"},
			},
		},
	}
	b := newTestBuilder(t, doc)

	blk, err := b.Build(context.Background(), "CHUNK",
		WithBytes([]byte{0x04, 0xDE, 0xAD, 0xBE, 0xEF}))
	require.NoError(t, err)

	payload, ok := blk.Field("payload")
	require.True(t, ok)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, payload.Bytes())
}

func TestBuild_RoundTrip(t *testing.T) {
	b := newTestBuilder(t, testDocument())

	raw := []byte{'H', 'E', 'L', 0x00, 0x00, 0x00, 0x07}
	blk, err := b.Build(context.Background(), "ENVELOPE", WithBytes(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, blk.Bytes())
}

func TestBuild_CancelledContext(t *testing.T) {
	b := newTestBuilder(t, testDocument())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, "PAIR")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlock_ItemFirstMatch(t *testing.T) {
	outer := NewBlock("outer")
	inner := NewBlock("inner")
	inner.Append(NewField("dup", 1, []byte{0x02}))
	outer.Append(NewField("dup", 1, []byte{0x01}))
	outer.Append(inner)

	// First match in declared order, depth-first.
	n, ok := outer.Item("dup")
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, n.Bytes())

	nested, ok := inner.Item("dup")
	require.True(t, ok)
	assert.Equal(t, []byte{0x02}, nested.Bytes())
}

func TestBlock_ManualAppend(t *testing.T) {
	root := NewBlock("root")
	child := NewBlock("child")
	root.Append(child)
	assert.Same(t, root, child.Parent())

	child.Append(NewField("f", 1, []byte{0x2A}))
	assert.Equal(t, 1, root.Len())
	assert.Equal(t, []byte{0x2A}, root.Bytes())
}

func TestBuilder_OrderAppliesToIntegerDefaults(t *testing.T) {
	doc := &protospec.Document{
		Blocks: map[string][]protospec.ItemTemplate{
			"ONE": {{Name: "v", Type: "field", Size: 2}},
		},
	}
	big := newTestBuilder(t, doc)
	little := newTestBuilder(t, doc, WithOrder(bytecodec.LittleEndian))

	blk, err := big.Build(context.Background(), "ONE",
		WithDefaults(map[string]any{"v": uint64(0x0102)}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, blk.Bytes())

	blk, err = little.Build(context.Background(), "ONE",
		WithDefaults(map[string]any{"v": uint64(0x0102)}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01}, blk.Bytes())
}
