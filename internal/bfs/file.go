package bfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// seekChunkSize is the size of the scratch buffer used to decode and discard data
// when seeking forward in a compressed file
const seekChunkSize = 512

type fileKind uint8

const (
	kindStored fileKind = iota
	kindCompressed
)

// File is an open archived file. A File is not safe for concurrent use; use Clone to
// get an independent handle for another goroutine
type File struct {
	stream Stream
	info   *FileInfo
	kind   fileKind
	// pos is the physical position relative to info.Offset
	pos int64
	// logical is the position in the uncompressed data of a compressed file
	logical int64
	// z decodes compressed payloads and is replaced on every rewind
	z      *inflater
	closed bool
}

// newFile opens fi over s, which must be a stream clone owned by the new File
func newFile(s Stream, fi *FileInfo) (*File, error) {
	f := &File{stream: s, info: fi}
	if fi.Compressed() {
		f.kind = kindCompressed
		f.z = newInflater(f.readPhysical)
	}

	if err := f.seekPhysical(0); err != nil {
		_ = s.Close()
		return nil, err
	}

	return f, nil
}

// Info returns the index record of the file
func (f *File) Info() FileInfo {
	return *f.info
}

// Size returns the uncompressed file size
func (f *File) Size() int64 {
	return f.info.UncompressedSize
}

// Tell returns the current position in the uncompressed data
func (f *File) Tell() int64 {
	if f.kind == kindCompressed {
		return f.logical
	}

	return f.pos
}

// Read reads up to len(p) bytes of uncompressed data
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}

	switch f.kind {
	case kindCompressed:
		return f.readCompressed(p)
	default:
		return f.readStored(p)
	}
}

// readStored reads stored data. A stream that ends before the declared size is
// reported as io.ErrUnexpectedEOF, matching truncated compressed payloads
func (f *File) readStored(p []byte) (int, error) {
	n, err := f.readRaw(p, f.info.UncompressedSize)
	if err == io.EOF && f.pos < f.info.UncompressedSize {
		err = fmt.Errorf("%w: stored data ends at %d of %d bytes", io.ErrUnexpectedEOF, f.pos, f.info.UncompressedSize)
	}
	return n, err
}

// readRaw reads payload bytes at the physical position, never past limit
func (f *File) readRaw(p []byte, limit int64) (int, error) {
	remaining := limit - f.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := f.stream.Read(p)
	f.pos += int64(n)
	return n, err
}

// readPhysical supplies compressed bytes to the inflater
func (f *File) readPhysical(p []byte) (int, error) {
	return f.readRaw(p, f.info.CompressedSize)
}

func (f *File) readCompressed(p []byte) (int, error) {
	remaining := f.info.UncompressedSize - f.logical
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := f.z.read(p)
	f.logical += int64(n)
	if err == io.EOF {
		if n > 0 {
			return n, nil
		}
		return 0, io.ErrUnexpectedEOF
	}

	return n, err
}

// Seek sets the position in the uncompressed data. The resolved target must lie in
// [0, Size()); anything else fails with ErrPastEOF or fs.ErrInvalid. After a failed
// seek Tell reports wherever the underlying stream ended up
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.Tell() + offset
	case io.SeekEnd:
		target = f.Size() + offset
	default:
		return f.Tell(), fmt.Errorf("%w: whence %d", fs.ErrInvalid, whence)
	}

	if target < 0 {
		return f.Tell(), fmt.Errorf("%w: negative position %d", fs.ErrInvalid, target)
	}

	var err error
	switch f.kind {
	case kindCompressed:
		err = f.seekCompressed(target)
	default:
		err = f.seekStored(target)
	}
	if err != nil {
		return f.Tell(), err
	}

	return target, nil
}

func (f *File) seekStored(pos int64) error {
	if pos >= f.info.CompressedSize {
		return fmt.Errorf("%w: seek to %d in %d byte file", ErrPastEOF, pos, f.info.CompressedSize)
	}

	return f.seekPhysical(pos)
}

// seekPhysical moves the stream to pos bytes past the payload start. On failure pos
// tracks whatever position the stream reports
func (f *File) seekPhysical(pos int64) error {
	if _, err := f.stream.Seek(f.info.Offset+pos, io.SeekStart); err != nil {
		if cur, terr := tell(f.stream); terr == nil {
			f.pos = cur - f.info.Offset
		}
		return fmt.Errorf("seek archive stream: %w", err)
	}

	f.pos = pos
	return nil
}

func (f *File) seekCompressed(pos int64) error {
	if pos >= f.info.UncompressedSize {
		return fmt.Errorf("%w: seek to %d in %d byte file", ErrPastEOF, pos, f.info.UncompressedSize)
	}

	if pos < f.logical {
		if err := f.rewind(); err != nil {
			return err
		}
	}

	return f.skipTo(pos)
}

// rewind restarts decompression from the beginning of the payload. Inflate has no
// backward step, so the cost of a later skip grows with the target position
func (f *File) rewind() error {
	_ = f.z.close()
	f.z = newInflater(f.readPhysical)
	f.logical = 0

	return f.seekPhysical(0)
}

// skipTo decodes and discards data until the logical position reaches pos
func (f *File) skipTo(pos int64) error {
	var scratch [seekChunkSize]byte
	for f.logical < pos {
		n, err := f.z.read(scratch[:min(int64(len(scratch)), pos-f.logical)])
		f.logical += int64(n)
		if n > 0 {
			continue
		}

		if err == nil || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: compressed data ends at %d before %d", ErrCorrupt, f.logical, pos)
		}
		return err
	}

	return nil
}

// Clone returns an independent handle at the same position, with its own duplicate of
// the archive stream and its own decompressor state. Decompressor state is not copied:
// a compressed clone inflates again from the start of the payload up to Tell, so the
// cost grows with the position
func (f *File) Clone() (*File, error) {
	if f.closed {
		return nil, ErrClosed
	}

	s, err := f.stream.Clone()
	if err != nil {
		return nil, fmt.Errorf("duplicate archive stream: %w", err)
	}

	c, err := newFile(s, f.info)
	if err != nil {
		return nil, err
	}

	switch c.kind {
	case kindCompressed:
		err = c.skipTo(f.logical)
	default:
		err = c.seekPhysical(f.pos)
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close releases the file's stream
func (f *File) Close() error {
	if f.closed {
		return nil
	}

	f.closed = true
	_ = f.z.close()
	return f.stream.Close()
}
