package bfs

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"testing"
)

func fsArchive(t *testing.T) fs.FS {
	t.Helper()

	return testArchive{entries: []testEntry{
		{dir: "dir", name: "a.txt", data: []byte("hello"), compression: CompressionStored},
		{dir: "dir", name: "b.txt", data: []byte("hello world"), compression: CompressionDeflate},
		{dir: "dir/sub", name: "c.txt", data: []byte("nested"), compression: CompressionDeflate},
		{dir: "", name: "root.txt", data: []byte("top"), compression: CompressionStored},
	}}.open(t).FS()
}

func TestFS_WalkDir(t *testing.T) {
	t.Parallel()

	fsys := fsArchive(t)

	var got []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			p += "/"
		}
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}

	want := []string{"./", "dir/", "dir/a.txt", "dir/b.txt", "dir/sub/", "dir/sub/c.txt", "root.txt"}
	if !slices.Equal(got, want) {
		t.Fatalf("WalkDir = %v, want %v", got, want)
	}
}

func TestFS_ReadFile(t *testing.T) {
	t.Parallel()

	fsys := fsArchive(t)

	for name, want := range map[string]string{
		"dir/a.txt":     "hello",
		"dir/b.txt":     "hello world",
		"dir/sub/c.txt": "nested",
		"root.txt":      "top",
	} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		}
		if string(data) != want {
			t.Errorf("ReadFile(%q) = %q, want %q", name, data, want)
		}
	}

	if _, err := fs.ReadFile(fsys, "dir/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadFile(missing): expected fs.ErrNotExist, got %v", err)
	}
	if _, err := fs.ReadFile(fsys, "/dir/a.txt"); !errors.Is(err, fs.ErrInvalid) {
		t.Fatalf("ReadFile(rooted path): expected fs.ErrInvalid, got %v", err)
	}
}

func TestFS_Stat(t *testing.T) {
	t.Parallel()

	fsys := fsArchive(t)

	fi, err := fs.Stat(fsys, "dir/b.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Name() != "b.txt" || fi.Size() != 11 || fi.IsDir() || fi.Mode() != 0o444 {
		t.Fatalf("Stat(dir/b.txt) = %s %d %v %v", fi.Name(), fi.Size(), fi.IsDir(), fi.Mode())
	}
	if info, ok := fi.Sys().(*FileInfo); !ok || !info.Compressed() {
		t.Fatalf("Sys() = %#v", fi.Sys())
	}

	di, err := fs.Stat(fsys, "dir/sub")
	if err != nil {
		t.Fatalf("Stat dir: %v", err)
	}
	if di.Name() != "sub" || !di.IsDir() || !di.Mode().IsDir() {
		t.Fatalf("Stat(dir/sub) = %s %v %v", di.Name(), di.IsDir(), di.Mode())
	}

	if _, err := fs.Stat(fsys, "nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat(missing): expected fs.ErrNotExist, got %v", err)
	}
}

func TestFS_OpenFile(t *testing.T) {
	t.Parallel()

	fsys := fsArchive(t)

	f, err := fsys.Open("dir/b.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.Name() != "b.txt" {
		t.Fatalf("Stat = %v, %v", fi, err)
	}

	seeker, ok := f.(io.Seeker)
	if !ok {
		t.Fatal("archive files should implement io.Seeker")
	}
	if _, err := seeker.Seek(6, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	rest, err := io.ReadAll(f)
	if err != nil || string(rest) != "world" {
		t.Fatalf("read after seek = %q, %v", rest, err)
	}
}

func TestFS_ReadDir(t *testing.T) {
	t.Parallel()

	fsys := fsArchive(t)

	entries, err := fs.ReadDir(fsys, "dir")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if !slices.Equal(names, []string{"a.txt", "b.txt", "sub"}) {
		t.Fatalf("ReadDir(dir) = %v", names)
	}
	if entries[0].IsDir() || !entries[2].IsDir() {
		t.Fatal("directory flags are wrong")
	}

	// Paged reads through an open directory
	f, err := fsys.Open("dir")
	if err != nil {
		t.Fatalf("Open(dir): %v", err)
	}
	defer f.Close()

	dir, ok := f.(fs.ReadDirFile)
	if !ok {
		t.Fatal("directories should implement fs.ReadDirFile")
	}
	if _, err := f.Read(make([]byte, 1)); err == nil {
		t.Fatal("Read on a directory should fail")
	}

	page, err := dir.ReadDir(2)
	if err != nil || len(page) != 2 {
		t.Fatalf("ReadDir(2) = %d entries, %v", len(page), err)
	}
	page, err = dir.ReadDir(2)
	if err != nil || len(page) != 1 || page[0].Name() != "sub" {
		t.Fatalf("second ReadDir(2) = %d entries, %v", len(page), err)
	}
	if _, err := dir.ReadDir(2); err != io.EOF {
		t.Fatalf("exhausted ReadDir(2): expected io.EOF, got %v", err)
	}
	if rest, err := dir.ReadDir(-1); err != nil || len(rest) != 0 {
		t.Fatalf("ReadDir(-1) after exhaustion = %d entries, %v", len(rest), err)
	}

	if _, err := fs.ReadDir(fsys, "dir/a.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadDir(file): expected fs.ErrNotExist, got %v", err)
	}
}
