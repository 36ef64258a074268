package bfs

// On-disk layout constants. All integers are little-endian
const (
	magic = "bfs1"

	// hashSize is the only hash table size this reader understands
	hashSize = 0x3e5
	// headerRegionSize covers the fixed header and its hash table; the string pool follows
	headerRegionSize = 0x14 + hashSize*8

	headerRecordSize   = 20
	poolHeaderSize     = 20
	fileInfoRecordSize = 24
)

// Compression identifies how a file payload is stored
type Compression uint32

// Recognized compression types
const (
	CompressionStored  Compression = 4
	CompressionDeflate Compression = 5
)

func (c Compression) String() string {
	switch c {
	case CompressionStored:
		return "stored"
	case CompressionDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// Header is the fixed archive header
type Header struct {
	Magic             [4]byte
	_                 [4]byte
	FlagAndHeaderSize uint32
	FileCount         uint32
	HashSize          uint32
}

// Flag reports the top bit of FlagAndHeaderSize
func (h Header) Flag() bool {
	return h.FlagAndHeaderSize>>31&1 == 1
}

// HeaderSize returns the low 31 bits of FlagAndHeaderSize
func (h Header) HeaderSize() uint32 {
	return h.FlagAndHeaderSize &^ (1 << 31)
}

// poolHeader holds the string pool section offsets, relative to the section start
type poolHeader struct {
	End               uint32
	Offsets           uint32
	UncompressedSizes uint32
	HuffmanTree       uint32
	CompressedStrings uint32
}

// fileInfoRecord is one raw entry of the file-info table
type fileInfoRecord struct {
	CompressionType  uint32
	Offset           uint32
	UncompressedSize uint32
	CompressedSize   uint32
	_                [4]byte
	DirStringIndex   uint16
	FileStringIndex  uint16
}

// FileInfo describes one archived file. It is immutable once the archive is parsed
type FileInfo struct {
	// Path is the slash-joined directory and file name
	Path string
	// Offset is the absolute archive offset of the payload
	Offset int64
	// CompressedSize is the payload size in the archive
	CompressedSize int64
	// UncompressedSize is the logical file size
	UncompressedSize int64
	// Compression is either CompressionStored or CompressionDeflate
	Compression Compression
}

// Compressed reports whether the payload is deflate-compressed
func (fi *FileInfo) Compressed() bool {
	return fi.Compression == CompressionDeflate
}
