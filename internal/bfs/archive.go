package bfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jchantrell/bfstool/internal/cache"
)

// Options configures archive loading
type Options struct {
	// Logger receives warnings about skipped records. Defaults to slog.Default()
	Logger *slog.Logger
	// CacheEntries is the number of whole files ReadFile keeps in memory. Zero disables caching
	CacheEntries int
	// CacheMaxFileSize is the largest file ReadFile will cache. Defaults to cache.DefaultMaxEntrySize
	CacheMaxFileSize int64
}

// Archive is a parsed BFS archive. The index is immutable after construction and safe
// for concurrent use; every opened File owns its own clone of the archive stream
type Archive struct {
	stream Stream
	header Header
	root   *dirNode
	count  int
	cache  *cache.Cache
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Stat describes an archive path
type Stat struct {
	// Name is the last path element
	Name string
	// IsDir reports whether the path is a directory
	IsDir bool
	// Size is the uncompressed size for files and -1 for directories
	Size int64
	// Compressed reports whether a file payload is deflate-compressed
	Compressed bool
}

// Open opens and parses the archive at path
func Open(path string, opts Options) (*Archive, error) {
	s, err := OpenFileStream(path)
	if err != nil {
		return nil, err
	}

	a, err := NewArchive(s, opts)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	return a, nil
}

// NewArchive parses an archive from s. On success the archive owns s and closes it in
// Close; on failure s is left open for the caller. Loading is all-or-nothing: any
// structural corruption fails the whole archive, while records with an unsupported
// compression type are logged and skipped
func NewArchive(s Stream, opts Options) (*Archive, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c, err := cache.New(opts.CacheEntries, opts.CacheMaxFileSize)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		stream: s,
		root:   newDirNode(),
		cache:  c,
		logger: logger,
	}
	if err := a.parse(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Archive) parse() error {
	size, err := a.stream.Size()
	if err != nil {
		return fmt.Errorf("archive size: %w", err)
	}

	header, err := readHeader(a.stream)
	if err != nil {
		return err
	}
	a.header = header

	pool, poolEnd, err := loadStringPool(a.stream, headerRegionSize, size)
	if err != nil {
		return fmt.Errorf("read string pool: %w", err)
	}

	count := min(int(header.FileCount), pool.len())
	tableSize := int64(count) * fileInfoRecordSize
	if poolEnd+tableSize > size {
		return fmt.Errorf("%w: file info table of %d records ends past stream size %d", ErrCorrupt, count, size)
	}

	table := make([]byte, tableSize)
	if err := readFullAt(a.stream, table, poolEnd); err != nil {
		return fmt.Errorf("%w: read file info table: %w", ErrCorrupt, err)
	}

	records := make([]fileInfoRecord, count)
	if err := binary.Read(bytes.NewReader(table), binary.LittleEndian, records); err != nil {
		return fmt.Errorf("%w: decode file info table: %w", ErrCorrupt, err)
	}

	for i := range records {
		rec := &records[i]
		dir, err := pool.at(int(rec.DirStringIndex))
		if err != nil {
			return fmt.Errorf("file record %d directory: %w", i, err)
		}
		name, err := pool.at(int(rec.FileStringIndex))
		if err != nil {
			return fmt.Errorf("file record %d name: %w", i, err)
		}
		filePath := dir + "/" + name

		compression := Compression(rec.CompressionType)
		switch compression {
		case CompressionStored:
			a.logger.Debug("File is uncompressed", "path", filePath)
		case CompressionDeflate:
		default:
			a.logger.Warn("Ignoring file with unsupported compression type",
				"path", filePath,
				"compression", rec.CompressionType)
			continue
		}

		added := a.root.insert(filePath, &FileInfo{
			Path:             filePath,
			Offset:           int64(rec.Offset),
			CompressedSize:   int64(rec.CompressedSize),
			UncompressedSize: int64(rec.UncompressedSize),
			Compression:      compression,
		})
		if !added {
			a.logger.Debug("File record did not add a new file", "path", filePath)
			continue
		}
		a.count++
	}

	a.logger.Debug("Archive index loaded",
		"declared_files", header.FileCount,
		"strings", pool.len(),
		"files", a.count)

	return nil
}

// readHeader reads and validates the fixed archive header
func readHeader(s io.ReadSeeker) (Header, error) {
	var raw [headerRecordSize]byte
	if err := readFullAt(s, raw[:], 0); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &h); err != nil {
		return Header{}, fmt.Errorf("%w: decode header: %w", ErrCorrupt, err)
	}

	if string(h.Magic[:]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, h.Magic[:])
	}
	if h.HashSize != hashSize {
		return Header{}, fmt.Errorf("%w: invalid hash size 0x%x", ErrCorrupt, h.HashSize)
	}

	return h, nil
}

// Header returns the parsed archive header
func (a *Archive) Header() Header {
	return a.header
}

// Len returns the number of indexed files
func (a *Archive) Len() int {
	return a.count
}

// Close releases the archive stream. Files opened earlier stay usable until closed
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	a.cache.Purge()
	return a.stream.Close()
}

// lookup resolves name against the directory tree. A leading slash is ignored
func (a *Archive) lookup(name string) (*dirNode, *FileInfo) {
	return a.root.lookup(name)
}

// Enumerate calls fn for every entry of directory dir: subdirectories first, then
// files, each in ascending name order. A non-nil error from fn stops enumeration and
// is returned
func (a *Archive) Enumerate(dir string, fn func(name string, isDir bool) error) error {
	d, _ := a.lookup(dir)
	if d == nil {
		return notFound("enumerate", dir)
	}

	for _, name := range d.sortedDirs() {
		if err := fn(name, true); err != nil {
			return err
		}
	}
	for _, name := range d.sortedFiles() {
		if err := fn(name, false); err != nil {
			return err
		}
	}

	return nil
}

// Stat describes name. Directories take precedence over files of the same name
func (a *Archive) Stat(name string) (Stat, error) {
	d, fi := a.lookup(name)
	switch {
	case d != nil:
		return Stat{Name: baseName(name), IsDir: true, Size: -1}, nil
	case fi != nil:
		return Stat{
			Name:       baseName(name),
			Size:       fi.UncompressedSize,
			Compressed: fi.Compressed(),
		}, nil
	default:
		return Stat{}, notFound("stat", name)
	}
}

// FileInfo returns the index record for the file at name
func (a *Archive) FileInfo(name string) (FileInfo, error) {
	_, fi := a.lookup(name)
	if fi == nil {
		return FileInfo{}, notFound("stat", name)
	}

	return *fi, nil
}

// OpenFile opens the file at name for reading
func (a *Archive) OpenFile(name string) (*File, error) {
	_, fi := a.lookup(name)
	if fi == nil {
		return nil, notFound("open", name)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrClosed}
	}
	s, err := a.stream.Clone()
	a.mu.Unlock()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("duplicate archive stream: %w", err)}
	}

	f, err := newFile(s, fi)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return f, nil
}

// ReadFile returns the full uncompressed contents of name, served from the content
// cache when possible
func (a *Archive) ReadFile(name string) ([]byte, error) {
	_, fi := a.lookup(name)
	if fi == nil {
		return nil, notFound("open", name)
	}

	if data, ok := a.cache.Get(fi.Path); ok {
		return bytes.Clone(data), nil
	}

	f, err := a.OpenFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, fi.UncompressedSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	if a.cache.Add(fi.Path, data) {
		return bytes.Clone(data), nil
	}

	return data, nil
}

// Walk calls fn for every file in the archive in depth-first order, visiting
// subdirectories before the files of a directory and names in ascending order
func (a *Archive) Walk(fn func(path string, fi FileInfo) error) error {
	return walkDir(a.root, "", fn)
}

func walkDir(d *dirNode, prefix string, fn func(path string, fi FileInfo) error) error {
	for _, name := range d.sortedDirs() {
		if err := walkDir(d.dirs[name], joinPath(prefix, name), fn); err != nil {
			return err
		}
	}
	for _, name := range d.sortedFiles() {
		if err := fn(joinPath(prefix, name), *d.files[name]); err != nil {
			return err
		}
	}

	return nil
}

// OpenWrite is not supported; archives are read-only
func (a *Archive) OpenWrite(name string) (*File, error) {
	return nil, &fs.PathError{Op: "openwrite", Path: name, Err: ErrUnsupported}
}

// OpenAppend is not supported; archives are read-only
func (a *Archive) OpenAppend(name string) (*File, error) {
	return nil, &fs.PathError{Op: "openappend", Path: name, Err: ErrUnsupported}
}

// Mkdir is not supported; archives are read-only
func (a *Archive) Mkdir(name string) error {
	return &fs.PathError{Op: "mkdir", Path: name, Err: ErrUnsupported}
}

// Remove is not supported; archives are read-only
func (a *Archive) Remove(name string) error {
	return &fs.PathError{Op: "remove", Path: name, Err: ErrUnsupported}
}

// joinPath appends name to dir without cleaning, so archive names survive verbatim
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// baseName returns the last non-empty element of name, or "." for the root
func baseName(name string) string {
	segments := splitPath(name)
	if len(segments) == 0 {
		return "."
	}

	return segments[len(segments)-1]
}
