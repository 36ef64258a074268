package bfs

// bitReader yields the bits of a byte slice, least significant bit of each byte first
type bitReader struct {
	data []byte
	bit  uint8
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBit returns the next bit. ok is false once the data is exhausted, in which case
// the reader does not advance
func (br *bitReader) readBit() (bit uint8, ok bool) {
	if br.exhausted() {
		return 0, false
	}

	bit = br.data[0] >> br.bit & 1
	br.bit++
	if br.bit == 8 {
		br.bit = 0
		br.data = br.data[1:]
	}

	return bit, true
}

func (br *bitReader) exhausted() bool {
	return len(br.data) == 0
}
