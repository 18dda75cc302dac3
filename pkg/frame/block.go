package frame

// Block is an ordered composite of fields and nested blocks built from
// a block template. Child order matches template order exactly, which
// also fixes serialization order. The parent link exists only for
// upward dependency lookups; ownership runs strictly top-down.
type Block struct {
	name   string
	items  []Node
	parent *Block
}

// NewBlock creates an empty block, the starting point for manual
// construction via Append.
func NewBlock(name string) *Block {
	return &Block{name: name}
}

func (b *Block) Name() string { return b.name }

// Parent returns the enclosing block, nil at the root.
func (b *Block) Parent() *Block { return b.parent }

// Len is the total byte length, the sum of all children.
func (b *Block) Len() int {
	var n int
	for _, item := range b.items {
		n += item.Len()
	}
	return n
}

// Bytes serializes the block by concatenating its children in declared
// order.
func (b *Block) Bytes() []byte {
	out := make([]byte, 0, b.Len())
	for _, item := range b.items {
		out = append(out, item.Bytes()...)
	}
	return out
}

// Items returns the children in declared order.
func (b *Block) Items() []Node {
	return append([]Node(nil), b.items...)
}

// Append adds a child at the end of the block. Appended blocks get
// their parent link pointed here so dependency lookups can walk up.
func (b *Block) Append(n Node) {
	if child, ok := n.(*Block); ok {
		child.parent = b
	}
	b.items = append(b.items, n)
}

// Item finds a descendant by name anywhere in the subtree. When
// several descendants share a name the first match in declared order,
// depth-first, wins.
func (b *Block) Item(name string) (Node, bool) {
	for _, item := range b.items {
		if item.Name() == name {
			return item, true
		}
		if child, ok := item.(*Block); ok {
			if found, ok := child.Item(name); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Field is Item restricted to field leaves, skipping same-named
// blocks.
func (b *Block) Field(name string) (*Field, bool) {
	for _, item := range b.items {
		switch item := item.(type) {
		case *Field:
			if item.Name() == name {
				return item, true
			}
		case *Block:
			if found, ok := item.Field(name); ok {
				return found, true
			}
		}
	}
	return nil, false
}
