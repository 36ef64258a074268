package bfs

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/jchantrell/bfstool/internal/bfs/bfstest"
)

func TestBitReader_LSBFirst(t *testing.T) {
	br := newBitReader([]byte{0b1000_0101, 0x01})

	want := []uint8{1, 0, 1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	for i, w := range want {
		got, ok := br.readBit()
		if !ok {
			t.Fatalf("bit %d: unexpected end of data", i)
		}
		if got != w {
			t.Fatalf("bit %d = %d, want %d", i, got, w)
		}
	}

	if !br.exhausted() {
		t.Fatal("reader not exhausted after 16 bits")
	}
	if _, ok := br.readBit(); ok {
		t.Fatal("readBit succeeded past end of data")
	}
}

func TestHuffmanTree_Deserialize(t *testing.T) {
	// Root with child-1 = 'a' and child-0 = internal(child-1 = 'b', child-0 = 'c')
	data := []byte{
		0, 0,
		'a', huffmanLeafFlag,
		0, 0,
		'b', huffmanLeafFlag,
		'c', huffmanLeafFlag,
	}
	tree, err := newHuffmanTree(data)
	if err != nil {
		t.Fatalf("newHuffmanTree: %v", err)
	}

	// bits: 1 -> a; 0,1 -> b; 0,0 -> c. Packed LSB first: 1,0,1,0,0 = 0b00101
	br := newBitReader([]byte{0b0000_0101})
	var got []byte
	for range 3 {
		c, ok := tree.decode(br)
		if !ok {
			t.Fatal("decode ran out of bits")
		}
		got = append(got, c)
	}
	if string(got) != "abc" {
		t.Fatalf("decoded %q, want abc", got)
	}
}

func TestHuffmanTree_Truncated(t *testing.T) {
	cases := map[string][]byte{
		"empty":           nil,
		"missing flag":    {'a'},
		"missing child 0": {0, 0, 'a', huffmanLeafFlag},
		"half child":      {0, 0, 'a', huffmanLeafFlag, 'b'},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := newHuffmanTree(data); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestHuffmanTree_SingleLeafReadsNoBits(t *testing.T) {
	tree, err := newHuffmanTree([]byte{'z', huffmanLeafFlag})
	if err != nil {
		t.Fatalf("newHuffmanTree: %v", err)
	}

	br := newBitReader(nil)
	for range 4 {
		c, ok := tree.decode(br)
		if !ok || c != 'z' {
			t.Fatalf("decode = %q, %v; want 'z', true", c, ok)
		}
	}
}

func TestHuffmanTree_ExhaustedMidSymbol(t *testing.T) {
	tree, err := newHuffmanTree(bfstest.BuildTree([]string{"abcdefgh"}).Serialize())
	if err != nil {
		t.Fatalf("newHuffmanTree: %v", err)
	}

	// Eight equally weighted symbols need three bits each; one byte holds two and a part
	br := newBitReader([]byte{0xff})
	decoded := 0
	for {
		if _, ok := tree.decode(br); !ok {
			break
		}
		decoded++
	}
	if decoded != 2 {
		t.Fatalf("decoded %d symbols from 8 bits, want 2", decoded)
	}
}

func TestHuffman_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		strs []string
	}{
		{name: "two symbols", strs: []string{"ab", "ba", "aaaa", ""}},
		{name: "skewed", strs: []string{"aaaaaaaaaaaaaaabbbbbbbcccdde", "edcba"}},
		{name: "paths", strs: []string{"data/cars/car_1", "textures", "menu.bed", "a", ""}},
		{name: "all bytes", strs: []string{allBytes()}},
		{name: "single symbol", strs: []string{"xxxx", "x", ""}},
		{name: "long", strs: []string{strings.Repeat("the quick brown fox ", 200)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := bfstest.EncodeStrings(tc.strs)
			tree, err := newHuffmanTree(p.Tree)
			if err != nil {
				t.Fatalf("newHuffmanTree: %v", err)
			}

			for i, want := range tc.strs {
				off := binary.LittleEndian.Uint32(p.Offsets[i*4:])
				br := newBitReader(p.Blob[off:])
				got := make([]byte, 0, len(want))
				for range len(want) {
					c, ok := tree.decode(br)
					if !ok {
						t.Fatalf("string %d: ran out of bits after %d bytes", i, len(got))
					}
					got = append(got, c)
				}
				if string(got) != want {
					t.Fatalf("string %d = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func allBytes() string {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return string(b)
}
