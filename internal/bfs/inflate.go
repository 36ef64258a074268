package bfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// inflateBufferSize is the size of the compressed input buffer
const inflateBufferSize = 16 * 1024

// pullFunc supplies compressed bytes. Returning 0 bytes with a nil error or io.EOF
// means no more compressed data is available
type pullFunc func(p []byte) (int, error)

// inputBuffer feeds the decompressor from a fixed buffer that is refilled on demand.
// It implements flate.Reader so the decompressor never reads ahead of what it needs
type inputBuffer struct {
	pull pullFunc
	buf  []byte
	r, w int
	// dry is set once pull reported that no more data is available
	dry bool
}

func (in *inputBuffer) fill() error {
	if in.dry {
		return io.EOF
	}

	n, err := in.pull(in.buf)
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		in.dry = true
		return io.EOF
	}

	in.r, in.w = 0, n
	return nil
}

func (in *inputBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if in.r == in.w {
		if err := in.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, in.buf[in.r:in.w])
	in.r += n
	return n, nil
}

func (in *inputBuffer) ReadByte() (byte, error) {
	if in.r == in.w {
		if err := in.fill(); err != nil {
			return 0, err
		}
	}

	c := in.buf[in.r]
	in.r++
	return c, nil
}

// inflater decompresses a zlib stream incrementally. It only moves forward; rewinding
// means constructing a fresh inflater over the start of the compressed data
type inflater struct {
	in *inputBuffer
	zr io.ReadCloser
	// done is set at the logical end of the compressed stream
	done bool
}

func newInflater(pull pullFunc) *inflater {
	return &inflater{
		in: &inputBuffer{pull: pull, buf: make([]byte, inflateBufferSize)},
	}
}

// read decompresses into p until it is full, the stream ends, or the supplier runs
// dry. It returns io.EOF together with the final bytes when no more output can be
// produced
func (z *inflater) read(p []byte) (int, error) {
	if z.done {
		return 0, io.EOF
	}

	if z.zr == nil {
		zr, err := zlib.NewReader(z.in)
		if err != nil {
			return 0, z.mapError(err)
		}
		z.zr = zr
	}

	n := 0
	for n < len(p) {
		m, err := z.zr.Read(p[n:])
		n += m
		if err == nil {
			continue
		}

		if err == io.EOF {
			z.done = true
			return n, io.EOF
		}

		return n, z.mapError(err)
	}

	return n, nil
}

// mapError classifies decompressor failures. Running out of supplied input before the
// stream ends is reported as io.EOF rather than corruption
func (z *inflater) mapError(err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case z.in.dry && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)):
		return io.EOF
	case errors.As(err, &corrupt),
		errors.Is(err, zlib.ErrHeader),
		errors.Is(err, zlib.ErrChecksum),
		errors.Is(err, zlib.ErrDictionary):
		return fmt.Errorf("%w: inflate: %w", ErrCorrupt, err)
	default:
		return fmt.Errorf("inflate: %w", err)
	}
}

func (z *inflater) close() error {
	if z == nil || z.zr == nil {
		return nil
	}

	return z.zr.Close()
}
