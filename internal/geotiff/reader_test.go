package geotiff

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/cdurand/chartproj/internal/coord"
)

type entrySpec struct {
	tag   uint16
	dt    uint16
	count uint32
	data  []byte // payload in file byte order, inline when <= 4 bytes
}

// synthTIFF assembles a single-IFD TIFF in the given byte order, either
// classic (magic 42, 12-byte entries, 4-byte inline values) or BigTIFF
// (magic 43, 16-byte header, 20-byte entries, 8-byte inline values).
func synthTIFF(bo binary.ByteOrder, bigTIFF bool, entries []entrySpec) []byte {
	var buf bytes.Buffer
	if bo == binary.BigEndian {
		buf.WriteString("MM")
	} else {
		buf.WriteString("II")
	}
	w2 := func(v uint16) {
		var b [2]byte
		bo.PutUint16(b[:], v)
		buf.Write(b[:])
	}
	w4 := func(v uint32) {
		var b [4]byte
		bo.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	w8 := func(v uint64) {
		var b [8]byte
		bo.PutUint64(b[:], v)
		buf.Write(b[:])
	}

	var dataStart uint64
	if bigTIFF {
		w2(43)
		w2(8) // offset size
		w2(0)
		w8(16) // first IFD offset
		w8(uint64(len(entries)))
		dataStart = uint64(16 + 8 + len(entries)*20 + 8)
	} else {
		w2(42)
		w4(8) // first IFD offset
		w2(uint16(len(entries)))
		dataStart = uint64(8 + 2 + len(entries)*12 + 4)
	}

	inlineSize := 4
	if bigTIFF {
		inlineSize = 8
	}

	var ext bytes.Buffer
	for _, e := range entries {
		w2(e.tag)
		w2(e.dt)
		if bigTIFF {
			w8(uint64(e.count))
		} else {
			w4(e.count)
		}
		if len(e.data) <= inlineSize {
			pad := make([]byte, inlineSize)
			copy(pad, e.data)
			buf.Write(pad)
		} else if bigTIFF {
			w8(dataStart + uint64(ext.Len()))
			ext.Write(e.data)
		} else {
			w4(uint32(dataStart) + uint32(ext.Len()))
			ext.Write(e.data)
		}
	}
	if bigTIFF {
		w8(0) // no further IFDs
	} else {
		w4(0)
	}
	buf.Write(ext.Bytes())
	return buf.Bytes()
}

func doublesPayload(bo binary.ByteOrder, vals ...float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		bo.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func shortsPayload(bo binary.ByteOrder, vals ...uint16) []byte {
	buf := make([]byte, len(vals)*2)
	for i, v := range vals {
		bo.PutUint16(buf[i*2:], v)
	}
	return buf
}

var refGeoKeys = []uint16{
	1, 1, 0, 4,
	3085, 34736, 1, 0,
	3084, 34736, 1, 1,
	3078, 34736, 1, 2,
	3079, 34736, 1, 3,
}

func refEntries(bo binary.ByteOrder) []entrySpec {
	return []entrySpec{
		{tagImageWidth, dtShort, 1, shortsPayload(bo, 11547)},
		{tagImageLength, dtShort, 1, shortsPayload(bo, 8848)},
		{tagModelPixelScale, dtDouble, 3, doublesPayload(bo, 21.16791992, 21.16852966, 0)},
		{tagModelTiepoint, dtDouble, 6, doublesPayload(bo, 0, 0, 0, -110334.52652, 85146.60133, 0)},
		{tagGeoKeyDirectory, dtShort, uint32(len(refGeoKeys)), shortsPayload(bo, refGeoKeys...)},
		{tagGeoDoubleParams, dtDouble, 4, doublesPayload(bo, 39.36666666666667, -95, 45, 33)},
	}
}

func TestParseTIFF(t *testing.T) {
	for _, tt := range []struct {
		name    string
		bo      binary.ByteOrder
		bigTIFF bool
	}{
		{"little endian", binary.LittleEndian, false},
		{"big endian", binary.BigEndian, false},
		{"bigtiff little endian", binary.LittleEndian, true},
		{"bigtiff big endian", binary.BigEndian, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ifd, err := parseTIFF(bytes.NewReader(synthTIFF(tt.bo, tt.bigTIFF, refEntries(tt.bo))))
			assert.NoError(t, err)

			assert.Equal(t, uint32(11547), ifd.Width)
			assert.Equal(t, uint32(8848), ifd.Height)
			assert.Equal(t, refGeoKeys, ifd.GeoKeys)

			// Double payloads are normalized to little-endian regardless of
			// the file byte order.
			params, err := coord.BuildParameters(ifd.geoTags())
			assert.NoError(t, err)
			assert.Equal(t, -21.16852966, params.XRes)
			assert.Equal(t, 21.16791992, params.YRes)
			assert.Equal(t, 110334.52652, params.Easting)
			assert.Equal(t, -85146.60133, params.Northing)

			col, row := params.ToPixel(-95, 39)
			assert.Equal(t, 5212, col)
			assert.Equal(t, 5934, row)
		})
	}
}

func TestParseTIFF_InvalidHeader(t *testing.T) {
	_, err := parseTIFF(bytes.NewReader([]byte("XXXXXXXX")))
	assert.Error(t, err)

	_, err = parseTIFF(bytes.NewReader([]byte{'I', 'I', 99, 0, 8, 0, 0, 0}))
	assert.Error(t, err)
}

func TestReaderOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.tif")
	assert.NoError(t, os.WriteFile(path, synthTIFF(binary.LittleEndian, false, refEntries(binary.LittleEndian)), 0o644))

	r, err := Open(path)
	assert.NoError(t, err)

	assert.Equal(t, 11547, r.Width())
	assert.Equal(t, 8848, r.Height())

	b := r.BoundsWGS84()
	assert.True(t, b.MinLon < b.MaxLon)
	assert.True(t, b.MinLat < b.MaxLat)
	assert.True(t, b.Contains(-95, 39))

	// The false origin projects inside the raster.
	col, row := r.Params().ToPixel(-95, 39)
	assert.True(t, col >= 0 && col < r.Width())
	assert.True(t, row >= 0 && row < r.Height())
}

// A Reader copies everything it needs out of the file during Open; the
// source file can disappear afterwards without affecting conversions.
func TestReaderHoldsNoFileResources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.tif")
	assert.NoError(t, os.WriteFile(path, synthTIFF(binary.LittleEndian, false, refEntries(binary.LittleEndian)), 0o644))

	r, err := Open(path)
	assert.NoError(t, err)
	assert.NoError(t, os.Remove(path))

	assert.Equal(t, 11547, r.Width())
	col, row := r.Params().ToPixel(-95, 39)
	assert.Equal(t, 5212, col)
	assert.Equal(t, 5934, row)
}

func TestReaderOpen_NoGeoreferencing(t *testing.T) {
	// Geokeys but no placement tags and no sidecar: extraction must fail.
	entries := refEntries(binary.LittleEndian)[:2]
	entries = append(entries,
		entrySpec{tagGeoKeyDirectory, dtShort, uint32(len(refGeoKeys)), shortsPayload(binary.LittleEndian, refGeoKeys...)},
		entrySpec{tagGeoDoubleParams, dtDouble, 4, doublesPayload(binary.LittleEndian, 39.36666666666667, -95, 45, 33)},
	)
	path := filepath.Join(t.TempDir(), "chart.tif")
	assert.NoError(t, os.WriteFile(path, synthTIFF(binary.LittleEndian, false, entries), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestReaderOpen_TFWSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.tif")

	// Same chart, placement delivered via world file instead of tags.
	entries := refEntries(binary.LittleEndian)[:2]
	entries = append(entries,
		entrySpec{tagGeoKeyDirectory, dtShort, uint32(len(refGeoKeys)), shortsPayload(binary.LittleEndian, refGeoKeys...)},
		entrySpec{tagGeoDoubleParams, dtDouble, 4, doublesPayload(binary.LittleEndian, 39.36666666666667, -95, 45, 33)},
	)
	assert.NoError(t, os.WriteFile(path, synthTIFF(binary.LittleEndian, false, entries), 0o644))

	// World file origin is the center of the upper-left pixel.
	tfw := "21.16852966\n0.0\n0.0\n-21.16791992\n-110323.94225517\n85136.01737004\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "chart.tfw"), []byte(tfw), 0o644))

	r, err := Open(path)
	assert.NoError(t, err)

	p := r.Params()
	assert.Equal(t, -21.16852966, p.XRes)
	assert.Equal(t, 21.16791992, p.YRes)
	assert.True(t, math.Abs(p.Easting-110334.52652) < 1e-6)
	assert.True(t, math.Abs(p.Northing+85146.60133) < 1e-6)

	col, row := p.ToPixel(-95, 39)
	assert.Equal(t, 5212, col)
	assert.Equal(t, 5934, row)
}

func TestParseTFW_Rejected(t *testing.T) {
	dir := t.TempDir()

	rotated := filepath.Join(dir, "rot.tfw")
	assert.NoError(t, os.WriteFile(rotated, []byte("21.0\n0.1\n0.0\n-21.0\n100.0\n200.0\n"), 0o644))
	_, err := parseTFW(rotated)
	assert.Error(t, err)

	short := filepath.Join(dir, "short.tfw")
	assert.NoError(t, os.WriteFile(short, []byte("21.0\n0.0\n"), 0o644))
	_, err = parseTFW(short)
	assert.Error(t, err)
}
