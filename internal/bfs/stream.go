package bfs

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// Stream is a randomly seekable byte source that can be duplicated. Every clone has
// its own position, so clones may be used from different goroutines, one each
type Stream interface {
	io.ReadSeekCloser
	// Size returns the total stream length in bytes
	Size() (int64, error)
	// Clone returns an independent stream positioned at offset zero
	Clone() (Stream, error)
}

// sharedFile closes the underlying file once the last referencing stream is closed
type sharedFile struct {
	f    *os.File
	refs atomic.Int32
}

func (sf *sharedFile) release() error {
	if sf.refs.Add(-1) == 0 {
		return sf.f.Close()
	}

	return nil
}

// readerAtStream is a Stream over an io.ReaderAt. Positions live in a per-instance
// SectionReader, the ReaderAt itself is shared
type readerAtStream struct {
	ra     io.ReaderAt
	sr     *io.SectionReader
	file   *sharedFile
	closed bool
}

// NewReaderAtStream returns a Stream reading size bytes from ra. ra must be safe for
// concurrent ReadAt calls if clones are used concurrently
func NewReaderAtStream(ra io.ReaderAt, size int64) Stream {
	return &readerAtStream{
		ra: ra,
		sr: io.NewSectionReader(ra, 0, size),
	}
}

// OpenFileStream opens the file at path as a Stream. Clones share the file descriptor
// and read through ReadAt, the file is closed with the last clone
func OpenFileStream(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	sf := &sharedFile{f: f}
	sf.refs.Store(1)

	return &readerAtStream{
		ra:   f,
		sr:   io.NewSectionReader(f, 0, fi.Size()),
		file: sf,
	}, nil
}

func (s *readerAtStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	return s.sr.Read(p)
}

func (s *readerAtStream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	return s.sr.Seek(offset, whence)
}

func (s *readerAtStream) Size() (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	return s.sr.Size(), nil
}

func (s *readerAtStream) Clone() (Stream, error) {
	if s.closed {
		return nil, ErrClosed
	}

	if s.file != nil {
		s.file.refs.Add(1)
	}

	return &readerAtStream{
		ra:   s.ra,
		sr:   io.NewSectionReader(s.ra, 0, s.sr.Size()),
		file: s.file,
	}, nil
}

func (s *readerAtStream) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	if s.file != nil {
		return s.file.release()
	}

	return nil
}

// tell reports the current position of s
func tell(s io.Seeker) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

// readFullAt reads exactly len(p) bytes from s starting at the absolute offset pos
func readFullAt(s io.ReadSeeker, p []byte, pos int64) error {
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return err
	}

	if _, err := io.ReadFull(s, p); err != nil {
		return err
	}

	return nil
}
