package geotiff

import (
	"encoding/binary"
	"fmt"
	"io"
)

// TIFF tag IDs for the georeferencing subset this reader consumes.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGeoDoubleParams     = 34736
	tagGeoAsciiParams      = 34737
)

// TIFF data types.
const (
	dtByte   = 1
	dtASCII  = 2
	dtShort  = 3
	dtLong   = 4
	dtDouble = 12
	dtLong8  = 16
)

// IFD holds the georeferencing tags of one TIFF image file directory.
// Double-typed geo payloads stay as raw little-endian bytes; interpreting
// them belongs to the projection core, not the container parser.
type IFD struct {
	Width  uint32
	Height uint32

	GeoKeys         []uint16
	GeoDoubleParams []byte
	PixelScale      []byte
	Tiepoints       []byte
	TransMatrix     []byte
	GeoAsciiParams  string
}

// tiffEntry is a raw TIFF directory entry.
type tiffEntry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte // raw value bytes or inline value
}

// parseTIFF reads the first IFD of a TIFF or BigTIFF stream.
func parseTIFF(r io.ReadSeeker) (*IFD, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading TIFF header: %w", err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid TIFF byte order: %x", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	isBigTIFF := magic == 43
	if magic != 42 && magic != 43 {
		return nil, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var firstIFDOffset uint64
	if isBigTIFF {
		var bigHeader [8]byte
		if _, err := io.ReadFull(r, bigHeader[:]); err != nil {
			return nil, fmt.Errorf("reading BigTIFF header: %w", err)
		}
		firstIFDOffset = bo.Uint64(bigHeader[:])
	} else {
		firstIFDOffset = uint64(bo.Uint32(header[4:8]))
	}

	entries, err := parseOneIFD(r, bo, firstIFDOffset, isBigTIFF)
	if err != nil {
		return nil, fmt.Errorf("parsing IFD at offset %d: %w", firstIFDOffset, err)
	}

	return buildIFD(entries, bo), nil
}

func parseOneIFD(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) ([]tiffEntry, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	var numEntries uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		numEntries = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		numEntries = uint64(bo.Uint16(buf[:]))
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}

	entries := make([]tiffEntry, numEntries)
	for i := uint64(0); i < numEntries; i++ {
		buf := make([]byte, entrySize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		entries[i] = parseTiffEntry(buf, bo, bigTIFF)
	}

	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF); err != nil {
			return nil, fmt.Errorf("resolving entry tag %d: %w", entries[i].Tag, err)
		}
	}

	return entries, nil
}

func parseTiffEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) tiffEntry {
	tag := bo.Uint16(buf[0:2])
	dt := bo.Uint16(buf[2:4])

	var count uint64
	var valueBytes []byte

	if bigTIFF {
		count = bo.Uint64(buf[4:12])
		valueBytes = make([]byte, 8)
		copy(valueBytes, buf[12:20])
	} else {
		count = uint64(bo.Uint32(buf[4:8]))
		valueBytes = make([]byte, 4)
		copy(valueBytes, buf[8:12])
	}

	return tiffEntry{
		Tag:      tag,
		DataType: dt,
		Count:    count,
		Value:    valueBytes,
	}
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII:
		return 1
	case dtShort:
		return 2
	case dtLong:
		return 4
	case dtDouble, dtLong8:
		return 8
	default:
		return 1
	}
}

// resolveEntry reads the actual data for an entry if it doesn't fit inline.
func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *tiffEntry, bigTIFF bool) error {
	totalSize := int(e.Count) * dataTypeSize(e.DataType)

	inlineSize := 4
	if bigTIFF {
		inlineSize = 8
	}

	if totalSize <= inlineSize {
		return nil
	}

	var dataOffset uint64
	if bigTIFF {
		dataOffset = bo.Uint64(e.Value)
	} else {
		dataOffset = uint64(bo.Uint32(e.Value))
	}

	if _, err := r.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return err
	}

	data := make([]byte, totalSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func buildIFD(entries []tiffEntry, bo binary.ByteOrder) *IFD {
	var ifd IFD

	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			ifd.Width = getUint32(e, bo)
		case tagImageLength:
			ifd.Height = getUint32(e, bo)
		case tagGeoKeyDirectory:
			ifd.GeoKeys = getUint16Slice(e, bo)
		case tagGeoDoubleParams:
			ifd.GeoDoubleParams = doubleBytes(e, bo)
		case tagModelPixelScale:
			ifd.PixelScale = doubleBytes(e, bo)
		case tagModelTiepoint:
			ifd.Tiepoints = doubleBytes(e, bo)
		case tagModelTransformation:
			ifd.TransMatrix = doubleBytes(e, bo)
		case tagGeoAsciiParams:
			ifd.GeoAsciiParams = string(e.Value[:e.Count])
		}
	}

	return &ifd
}

func getUint32(e tiffEntry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong:
		return bo.Uint32(e.Value)
	case dtLong8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func getUint16Slice(e tiffEntry, bo binary.ByteOrder) []uint16 {
	n := int(e.Count)
	result := make([]uint16, n)
	for i := 0; i < n; i++ {
		result[i] = bo.Uint16(e.Value[i*2 : i*2+2])
	}
	return result
}

// doubleBytes returns a double-typed payload normalized to little-endian
// byte order, truncated to whole values.
func doubleBytes(e tiffEntry, bo binary.ByteOrder) []byte {
	n := int(e.Count) * 8
	if n > len(e.Value) {
		n = len(e.Value) / 8 * 8
	}
	out := make([]byte, n)
	if bo == binary.LittleEndian {
		copy(out, e.Value[:n])
		return out
	}
	for i := 0; i < n; i += 8 {
		binary.LittleEndian.PutUint64(out[i:], bo.Uint64(e.Value[i:i+8]))
	}
	return out
}
