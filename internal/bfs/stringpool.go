package bfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strings"
)

// stringPool holds the decoded directory and file names of an archive
type stringPool struct {
	strs []string
}

// loadStringPool parses the string pool section starting at start and returns the
// pool and the offset immediately past the section. limit is the stream size and
// bounds every sub-section. Any decode failure invalidates the whole pool
func loadStringPool(s io.ReadSeeker, start, limit int64) (*stringPool, int64, error) {
	var raw [poolHeaderSize]byte
	if err := readFullAt(s, raw[:], start); err != nil {
		return nil, 0, fmt.Errorf("%w: read string pool header: %w", ErrCorrupt, err)
	}

	var ph poolHeader
	if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &ph); err != nil {
		return nil, 0, fmt.Errorf("%w: decode string pool header: %w", ErrCorrupt, err)
	}

	end := start + int64(ph.End)
	treeOff := start + int64(ph.HuffmanTree)
	sizesOff := start + int64(ph.UncompressedSizes)
	offsetsOff := start + int64(ph.Offsets)
	blobOff := start + int64(ph.CompressedStrings)

	// Section sizes are the gaps between distinct offsets in ascending order; the end
	// of the section has to be the largest of them
	bounds := []int64{end, treeOff, sizesOff, offsetsOff, blobOff}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)
	if bounds[len(bounds)-1] != end {
		return nil, 0, fmt.Errorf("%w: string pool section end 0x%x is not its largest offset", ErrCorrupt, ph.End)
	}
	if end > limit {
		return nil, 0, fmt.Errorf("%w: string pool ends at %d past stream size %d", ErrCorrupt, end, limit)
	}

	sizeOf := func(off int64) int64 {
		i, _ := slices.BinarySearch(bounds, off)
		if i+1 >= len(bounds) {
			return 0
		}
		return bounds[i+1] - off
	}

	treeData := make([]byte, sizeOf(treeOff))
	if err := readFullAt(s, treeData, treeOff); err != nil {
		return nil, 0, fmt.Errorf("%w: read huffman tree: %w", ErrCorrupt, err)
	}
	tree, err := newHuffmanTree(treeData)
	if err != nil {
		return nil, 0, err
	}

	sizesData := make([]byte, sizeOf(sizesOff))
	if err := readFullAt(s, sizesData, sizesOff); err != nil {
		return nil, 0, fmt.Errorf("%w: read string sizes: %w", ErrCorrupt, err)
	}

	offsetsData := make([]byte, sizeOf(offsetsOff))
	if err := readFullAt(s, offsetsData, offsetsOff); err != nil {
		return nil, 0, fmt.Errorf("%w: read string offsets: %w", ErrCorrupt, err)
	}

	blob := make([]byte, sizeOf(blobOff))
	if err := readFullAt(s, blob, blobOff); err != nil {
		return nil, 0, fmt.Errorf("%w: read packed strings: %w", ErrCorrupt, err)
	}

	count := min(len(sizesData)/2, len(offsetsData)/4)
	pool := &stringPool{strs: make([]string, 0, count)}

	var sb strings.Builder
	for i := 0; i < count; i++ {
		length := int(binary.LittleEndian.Uint16(sizesData[i*2:]))
		off := binary.LittleEndian.Uint32(offsetsData[i*4:])
		if int64(off) > int64(len(blob)) {
			return nil, 0, fmt.Errorf("%w: string %d starts at %d past packed data size %d", ErrCorrupt, i, off, len(blob))
		}

		br := newBitReader(blob[off:])
		sb.Reset()
		sb.Grow(length)
		for j := 0; j < length; j++ {
			c, ok := tree.decode(br)
			if !ok {
				return nil, 0, fmt.Errorf("%w: string %d ends after %d of %d bytes", ErrCorrupt, i, j, length)
			}
			sb.WriteByte(c)
		}

		pool.strs = append(pool.strs, sb.String())
	}

	return pool, end, nil
}

func (p *stringPool) len() int {
	return len(p.strs)
}

// at returns the string at index i
func (p *stringPool) at(i int) (string, error) {
	if i < 0 || i >= len(p.strs) {
		return "", fmt.Errorf("%w: string index %d out of range [0, %d)", ErrCorrupt, i, len(p.strs))
	}

	return p.strs[i], nil
}
