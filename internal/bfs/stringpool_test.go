package bfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jchantrell/bfstool/internal/bfs/bfstest"
)

func loadTestPool(t *testing.T, pool []byte) (*stringPool, int64, error) {
	t.Helper()

	// Put the pool behind some leading bytes so relative offsets matter
	const start = 7
	data := append(make([]byte, start), pool...)
	return loadStringPool(bytes.NewReader(data), start, int64(len(data)))
}

func TestLoadStringPool(t *testing.T) {
	strs := []string{"data/menu", "bg.tga", "", "data/cars/car_1", "body.bgm"}
	pool := bfstest.EncodeStrings(strs).Bytes()

	p, end, err := loadTestPool(t, pool)
	if err != nil {
		t.Fatalf("loadStringPool: %v", err)
	}
	if end != int64(7+len(pool)) {
		t.Fatalf("end = %d, want %d", end, 7+len(pool))
	}
	if p.len() != len(strs) {
		t.Fatalf("len = %d, want %d", p.len(), len(strs))
	}
	for i, want := range strs {
		got, err := p.at(i)
		if err != nil {
			t.Fatalf("at(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("at(%d) = %q, want %q", i, got, want)
		}
	}

	if _, err := p.at(len(strs)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("at(out of range): expected ErrCorrupt, got %v", err)
	}
}

func TestLoadStringPool_SubsectionsInAnyOrder(t *testing.T) {
	strs := []string{"alpha", "beta", "gamma"}
	p := bfstest.EncodeStrings(strs)

	// Layout: header, packed strings, offsets, tree, sizes
	blobOff := uint32(poolHeaderSize)
	offsetsOff := blobOff + uint32(len(p.Blob))
	treeOff := offsetsOff + uint32(len(p.Offsets))
	sizesOff := treeOff + uint32(len(p.Tree))
	end := sizesOff + uint32(len(p.Sizes))

	var pool []byte
	for _, v := range []uint32{end, offsetsOff, sizesOff, treeOff, blobOff} {
		pool = binary.LittleEndian.AppendUint32(pool, v)
	}
	pool = append(pool, p.Blob...)
	pool = append(pool, p.Offsets...)
	pool = append(pool, p.Tree...)
	pool = append(pool, p.Sizes...)

	sp, _, err := loadTestPool(t, pool)
	if err != nil {
		t.Fatalf("loadStringPool: %v", err)
	}
	for i, want := range strs {
		if got, _ := sp.at(i); got != want {
			t.Errorf("at(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestLoadStringPool_CountIsShorterArray(t *testing.T) {
	p := bfstest.EncodeStrings([]string{"one", "two", "three"})
	p.Sizes = p.Sizes[:4]

	sp, _, err := loadTestPool(t, p.Bytes())
	if err != nil {
		t.Fatalf("loadStringPool: %v", err)
	}
	if sp.len() != 2 {
		t.Fatalf("len = %d, want 2", sp.len())
	}
}

func TestLoadStringPool_EndNotLargest(t *testing.T) {
	pool := bfstest.EncodeStrings([]string{"abc", "def"}).Bytes()

	for field := 1; field < 5; field++ {
		bad := bytes.Clone(pool)
		end := binary.LittleEndian.Uint32(bad[0:4])
		binary.LittleEndian.PutUint32(bad[field*4:], end+4)

		if _, _, err := loadTestPool(t, append(bad, 0, 0, 0, 0)); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("offset field %d past end: expected ErrCorrupt, got %v", field, err)
		}
	}
}

func TestLoadStringPool_Truncated(t *testing.T) {
	pool := bfstest.EncodeStrings([]string{"abc", "def"}).Bytes()

	if _, _, err := loadTestPool(t, pool[:10]); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("short header: expected ErrCorrupt, got %v", err)
	}
	if _, _, err := loadTestPool(t, pool[:len(pool)-1]); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("short section: expected ErrCorrupt, got %v", err)
	}
}

func TestLoadStringPool_StringRunsOutOfBits(t *testing.T) {
	p := bfstest.EncodeStrings([]string{"abcdefgh", "hgfedcba"})
	// Claim the last string is longer than its packed bits
	binary.LittleEndian.PutUint16(p.Sizes[2:], 200)

	if _, _, err := loadTestPool(t, p.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestLoadStringPool_OffsetPastPackedData(t *testing.T) {
	p := bfstest.EncodeStrings([]string{"abc"})
	binary.LittleEndian.PutUint32(p.Offsets[0:], uint32(len(p.Blob)+1))

	if _, _, err := loadTestPool(t, p.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}
