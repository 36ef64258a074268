// Package bfstest builds synthetic BFS archives in memory for tests
package bfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/klauspost/compress/zlib"
)

// Compression types understood by the reader
const (
	Stored  uint32 = 4
	Deflate uint32 = 5
)

const (
	hashSize         = 0x3e5
	headerRegionSize = 0x14 + hashSize*8
	poolHeaderSize   = 20
	recordSize       = 24
	leafFlag         = 0x80
)

// Node is a Huffman tree node. Bit 0 selects Zero, bit 1 selects One
type Node struct {
	Sym       byte
	Leaf      bool
	Zero, One *Node

	weight int
	first  byte
}

// BuildTree builds a Huffman tree over the bytes of strs. Ties are broken by the
// smallest contained symbol, so equal input gives an equal tree. A tree for input
// without any bytes is a single '?' leaf
func BuildTree(strs []string) *Node {
	freq := map[byte]int{}
	for _, s := range strs {
		for i := 0; i < len(s); i++ {
			freq[s[i]]++
		}
	}
	if len(freq) == 0 {
		freq['?'] = 1
	}

	nodes := make([]*Node, 0, len(freq))
	for sym, w := range freq {
		nodes = append(nodes, &Node{Sym: sym, Leaf: true, weight: w, first: sym})
	}

	byWeight := func(a, b *Node) int {
		if a.weight != b.weight {
			return a.weight - b.weight
		}
		return int(a.first) - int(b.first)
	}
	for len(nodes) > 1 {
		slices.SortFunc(nodes, byWeight)
		a, b := nodes[0], nodes[1]
		merged := &Node{
			Zero:   a,
			One:    b,
			weight: a.weight + b.weight,
			first:  min(a.first, b.first),
		}
		nodes = append([]*Node{merged}, nodes[2:]...)
	}

	return nodes[0]
}

// Serialize encodes the tree as the archive stores it: leaf byte, flag byte, then for
// internal nodes the One subtree followed by the Zero subtree
func (n *Node) Serialize() []byte {
	if n.Leaf {
		return []byte{n.Sym, leafFlag}
	}

	out := []byte{0, 0}
	out = append(out, n.One.Serialize()...)
	return append(out, n.Zero.Serialize()...)
}

// Codes maps every leaf symbol to its bit path from the root
func (n *Node) Codes() map[byte][]uint8 {
	codes := map[byte][]uint8{}
	n.collect(nil, codes)
	return codes
}

func (n *Node) collect(prefix []uint8, codes map[byte][]uint8) {
	if n.Leaf {
		codes[n.Sym] = slices.Clone(prefix)
		return
	}

	n.Zero.collect(append(prefix, 0), codes)
	n.One.collect(append(prefix, 1), codes)
}

// bitWriter packs bits least significant bit first
type bitWriter struct {
	out   []byte
	nbits uint8
}

func (w *bitWriter) writeBit(b uint8) {
	if w.nbits == 0 {
		w.out = append(w.out, 0)
	}
	w.out[len(w.out)-1] |= b << w.nbits
	w.nbits = (w.nbits + 1) % 8
}

func (w *bitWriter) align() {
	w.nbits = 0
}

// Pool is an encoded string pool split into its sub-sections
type Pool struct {
	Tree    []byte
	Sizes   []byte
	Offsets []byte
	Blob    []byte
}

// EncodeStrings Huffman-codes strs. Every string starts on a byte boundary of Blob
func EncodeStrings(strs []string) Pool {
	root := BuildTree(strs)
	codes := root.Codes()

	p := Pool{Tree: root.Serialize()}
	var w bitWriter
	for _, s := range strs {
		w.align()
		p.Offsets = binary.LittleEndian.AppendUint32(p.Offsets, uint32(len(w.out)))
		p.Sizes = binary.LittleEndian.AppendUint16(p.Sizes, uint16(len(s)))
		for i := 0; i < len(s); i++ {
			for _, b := range codes[s[i]] {
				w.writeBit(b)
			}
		}
	}
	p.Blob = w.out

	return p
}

// Bytes lays the pool out as header, tree, sizes, offsets, packed strings
func (p Pool) Bytes() []byte {
	treeOff := uint32(poolHeaderSize)
	sizesOff := treeOff + uint32(len(p.Tree))
	offsetsOff := sizesOff + uint32(len(p.Sizes))
	blobOff := offsetsOff + uint32(len(p.Offsets))
	end := blobOff + uint32(len(p.Blob))

	var out []byte
	for _, v := range []uint32{end, offsetsOff, sizesOff, treeOff, blobOff} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	out = append(out, p.Tree...)
	out = append(out, p.Sizes...)
	out = append(out, p.Offsets...)
	return append(out, p.Blob...)
}

// Entry is one file of a synthetic archive. Data is zlib-compressed when Compression
// is Deflate and stored verbatim otherwise
type Entry struct {
	Dir, Name   string
	Data        []byte
	Compression uint32
}

// Archive describes a synthetic archive. Zero values of HashSize, FileCount and Magic
// produce a valid archive
type Archive struct {
	Entries   []Entry
	HashSize  uint32
	FileCount *uint32
	Magic     string
}

// Bytes encodes the archive: header region, string pool, file table, payloads
func (a Archive) Bytes() ([]byte, error) {
	var strs []string
	index := map[string]uint16{}
	intern := func(s string) uint16 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = uint16(len(strs))
		strs = append(strs, s)
		return index[s]
	}

	type record struct {
		dir, name    uint16
		payload      []byte
		uncompressed int
		compression  uint32
	}
	records := make([]record, 0, len(a.Entries))
	for _, e := range a.Entries {
		payload := e.Data
		if e.Compression == Deflate {
			var err error
			if payload, err = Compress(e.Data); err != nil {
				return nil, err
			}
		}
		records = append(records, record{
			dir:          intern(e.Dir),
			name:         intern(e.Name),
			payload:      payload,
			uncompressed: len(e.Data),
			compression:  e.Compression,
		})
	}

	magic := a.Magic
	if magic == "" {
		magic = "bfs1"
	}
	hs := a.HashSize
	if hs == 0 {
		hs = hashSize
	}
	count := uint32(len(records))
	if a.FileCount != nil {
		count = *a.FileCount
	}

	out := make([]byte, headerRegionSize)
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[8:12], 1<<31|headerRegionSize)
	binary.LittleEndian.PutUint32(out[12:16], count)
	binary.LittleEndian.PutUint32(out[16:20], hs)
	out = append(out, EncodeStrings(strs).Bytes()...)

	payloadStart := len(out) + len(records)*recordSize
	var payloads []byte
	for _, r := range records {
		var b [recordSize]byte
		binary.LittleEndian.PutUint32(b[0:4], r.compression)
		binary.LittleEndian.PutUint32(b[4:8], uint32(payloadStart+len(payloads)))
		binary.LittleEndian.PutUint32(b[8:12], uint32(r.uncompressed))
		binary.LittleEndian.PutUint32(b[12:16], uint32(len(r.payload)))
		binary.LittleEndian.PutUint16(b[20:22], r.dir)
		binary.LittleEndian.PutUint16(b[22:24], r.name)
		out = append(out, b[:]...)
		payloads = append(payloads, r.payload...)
	}

	return append(out, payloads...), nil
}

// Compress returns data as a zlib stream
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}

	return buf.Bytes(), nil
}

// Payload returns n bytes of deterministic, moderately compressible data
func Payload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte((i*7)%251) ^ byte(i>>9)
	}
	return out
}
