package bfs

import (
	"bytes"
	"testing"

	"github.com/jchantrell/bfstool/internal/bfs/bfstest"
)

// testEntry is one file of a synthetic archive
type testEntry struct {
	dir, name   string
	data        []byte
	compression Compression
}

// testArchive describes a synthetic archive; zero values produce a valid one
type testArchive struct {
	entries   []testEntry
	hashSize  uint32
	fileCount *uint32
	magic     string
}

func (ta testArchive) build(t testing.TB) []byte {
	t.Helper()

	a := bfstest.Archive{
		HashSize:  ta.hashSize,
		FileCount: ta.fileCount,
		Magic:     ta.magic,
	}
	for _, e := range ta.entries {
		a.Entries = append(a.Entries, bfstest.Entry{
			Dir:         e.dir,
			Name:        e.name,
			Data:        e.data,
			Compression: uint32(e.compression),
		})
	}

	data, err := a.Bytes()
	if err != nil {
		t.Fatalf("build archive: %v", err)
	}
	return data
}

// open parses the built archive from memory
func (ta testArchive) open(t testing.TB) *Archive {
	t.Helper()

	return ta.openWith(t, Options{})
}

func (ta testArchive) openWith(t testing.TB, opts Options) *Archive {
	t.Helper()

	data := ta.build(t)
	a, err := NewArchive(NewReaderAtStream(bytes.NewReader(data), int64(len(data))), opts)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func zlibCompress(t testing.TB, data []byte) []byte {
	t.Helper()

	z, err := bfstest.Compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	return z
}

func testPayload(n int) []byte {
	return bfstest.Payload(n)
}
