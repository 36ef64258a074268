package bfs

import "fmt"

// huffmanLeafFlag marks a serialized node as a leaf
const huffmanLeafFlag = 0x80

// huffmanNode is one node of the decoding tree. Children are indices into the tree's
// node arena; a node is a leaf iff both are zero (the root is never a child)
type huffmanNode struct {
	child [2]int32
	leaf  byte
}

// huffmanTree decodes symbols from a bitReader. It is read-only after construction
// and may be shared by any number of decodes
type huffmanTree struct {
	nodes []huffmanNode
}

// newHuffmanTree deserializes a tree. Each node is stored as its leaf byte followed
// by a flag byte; internal nodes are followed by their bit-1 subtree, then their
// bit-0 subtree
func newHuffmanTree(data []byte) (*huffmanTree, error) {
	t := &huffmanTree{nodes: make([]huffmanNode, 0, len(data)/2)}

	if _, err := t.deserialize(data); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *huffmanTree) deserialize(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: huffman tree truncated", ErrCorrupt)
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, huffmanNode{leaf: data[0]})
	flags := data[1]
	data = data[2:]
	if flags&huffmanLeafFlag != 0 {
		return data, nil
	}

	var err error
	t.nodes[idx].child[1] = int32(len(t.nodes))
	if data, err = t.deserialize(data); err != nil {
		return nil, err
	}

	t.nodes[idx].child[0] = int32(len(t.nodes))
	if data, err = t.deserialize(data); err != nil {
		return nil, err
	}

	return data, nil
}

// decode walks from the root until a leaf is reached. ok is false if the bit stream
// runs out first
func (t *huffmanTree) decode(br *bitReader) (sym byte, ok bool) {
	n := &t.nodes[0]
	for n.child[0] != 0 {
		bit, ok := br.readBit()
		if !ok {
			return 0, false
		}
		n = &t.nodes[n.child[bit]]
	}

	return n.leaf, true
}
