package bfs

import (
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// archiveFS implements fs.FS over an archive index
type archiveFS struct {
	a *Archive
}

// FS returns a read-only fs.FS view of the archive. It also implements fs.StatFS,
// fs.ReadDirFS and fs.ReadFileFS; ReadFile goes through the archive content cache
func (a *Archive) FS() fs.FS {
	return &archiveFS{a: a}
}

func (afs *archiveFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	d, fi := afs.a.lookup(fsName(name))
	switch {
	case d != nil:
		return &fsDir{name: name, node: d}, nil
	case fi != nil:
		f, err := afs.a.OpenFile(fsName(name))
		if err != nil {
			return nil, err
		}
		return &fsFile{File: f, name: name}, nil
	default:
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
}

func (afs *archiveFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	d, fi := afs.a.lookup(fsName(name))
	switch {
	case d != nil:
		return fsDirInfo{name: name}, nil
	case fi != nil:
		return fsFileInfo{name: name, info: fi}, nil
	default:
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
}

func (afs *archiveFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	d, _ := afs.a.lookup(fsName(name))
	if d == nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	return dirEntries(d), nil
}

func (afs *archiveFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	return afs.a.ReadFile(fsName(name))
}

// fsName maps an fs.FS path to an archive lookup path
func fsName(name string) string {
	if name == "." {
		return ""
	}
	return name
}

// dirEntries lists d sorted by name, as fs.ReadDirFS requires
func dirEntries(d *dirNode) []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, len(d.dirs)+len(d.files))
	for _, name := range d.sortedDirs() {
		entries = append(entries, fs.FileInfoToDirEntry(fsDirInfo{name: name}))
	}
	for _, name := range d.sortedFiles() {
		entries = append(entries, fs.FileInfoToDirEntry(fsFileInfo{name: name, info: d.files[name]}))
	}
	slices.SortStableFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries
}

// fsFile adapts File to fs.File
type fsFile struct {
	*File
	name string
}

func (f *fsFile) Stat() (fs.FileInfo, error) {
	return fsFileInfo{name: f.name, info: f.info}, nil
}

// fsDir is an open directory
type fsDir struct {
	name    string
	node    *dirNode
	entries []fs.DirEntry
	offset  int
}

func (d *fsDir) Read(p []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *fsDir) Close() error {
	return nil
}

func (d *fsDir) Stat() (fs.FileInfo, error) {
	return fsDirInfo{name: d.name}, nil
}

func (d *fsDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		d.entries = dirEntries(d.node)
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}

	if len(rest) == 0 {
		return nil, io.EOF
	}

	n = min(n, len(rest))
	d.offset += n
	return rest[:n], nil
}

// fsFileInfo implements fs.FileInfo for archived files
type fsFileInfo struct {
	name string
	info *FileInfo
}

func (fi fsFileInfo) Name() string       { return baseName(fi.name) }
func (fi fsFileInfo) Size() int64        { return fi.info.UncompressedSize }
func (fi fsFileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fsFileInfo) ModTime() time.Time { return time.Unix(0, 0) }
func (fi fsFileInfo) IsDir() bool        { return false }
func (fi fsFileInfo) Sys() any           { return fi.info }

// fsDirInfo implements fs.FileInfo for archive directories
type fsDirInfo struct {
	name string
}

func (di fsDirInfo) Name() string       { return baseName(di.name) }
func (di fsDirInfo) Size() int64        { return 0 }
func (di fsDirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di fsDirInfo) ModTime() time.Time { return time.Unix(0, 0) }
func (di fsDirInfo) IsDir() bool        { return true }
func (di fsDirInfo) Sys() any           { return nil }
