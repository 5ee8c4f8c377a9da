package coord

import (
	"encoding/binary"
	"math"
)

// Geokey IDs for the projection parameters consumed by BuildParameters,
// per the GeoTIFF key register.
const (
	keyFalseOriginLat    = 3085
	keyFalseOriginLon    = 3084
	keyStandardParallel1 = 3078
	keyStandardParallel2 = 3079
)

// GeoTags is the subset of decoded container tags the extractor consumes.
// The double-typed payloads are kept as raw little-endian bytes; decoding
// them is this package's responsibility, not the tag reader's.
type GeoTags struct {
	DoubleParams []byte   // GeoDoubleParams payload
	KeyDirectory []uint16 // GeoKeyDirectory values
	PixelScale   []byte   // ModelPixelScale payload, optional
	Tiepoints    []byte   // ModelTiepoint payload, required with PixelScale
	TransMatrix  []byte   // ModelTransformation payload, required without PixelScale
	Width        uint32   // raster width in pixels
	Height       uint32   // raster height in pixels
}

// decodeDoubles interprets buf as consecutive little-endian IEEE-754
// doubles. A trailing remainder shorter than 8 bytes is ignored rather
// than rejected; some encoders pad or mis-size these blocks by a few
// bytes. No numeric validation is performed.
func decodeDoubles(buf []byte) []float64 {
	n := len(buf) / 8
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
		vals[i] = math.Float64frombits(bits)
	}
	return vals
}

// parseKeyDirectory groups the geokey directory into 4-value records
// (keyID, tagLocation, count, valueOrOffset) and maps each keyID to its
// fourth value. Duplicate keys overwrite: last record wins.
func parseKeyDirectory(dir []uint16) (map[uint16]uint16, error) {
	if len(dir)%4 != 0 {
		return nil, &ErrMalformedKeyDirectory{Length: len(dir)}
	}
	keys := make(map[uint16]uint16, len(dir)/4)
	for i := 0; i < len(dir); i += 4 {
		keys[dir[i]] = dir[i+3]
	}
	return keys, nil
}

// resolveKey looks up a geokey's stored index and reads the referenced
// double-params value.
func resolveKey(keys map[uint16]uint16, doubles []float64, key uint16) (float64, error) {
	idx, ok := keys[key]
	if !ok {
		return 0, &ErrMissingProjectionKey{Key: key, Index: -1}
	}
	if int(idx) >= len(doubles) {
		return 0, &ErrMissingProjectionKey{Key: key, Index: int(idx)}
	}
	return doubles[idx], nil
}

// BuildParameters extracts the Lambert conformal conic model from decoded
// container tags. It is the only constructor for Parameters; the returned
// value is complete and immutable.
func BuildParameters(tags GeoTags) (Parameters, error) {
	doubles := decodeDoubles(tags.DoubleParams)
	keys, err := parseKeyDirectory(tags.KeyDirectory)
	if err != nil {
		return Parameters{}, err
	}

	var lat0, lon0, lat1, lat2 float64
	for _, k := range []struct {
		key uint16
		dst *float64
	}{
		{keyFalseOriginLat, &lat0},
		{keyFalseOriginLon, &lon0},
		{keyStandardParallel1, &lat1},
		{keyStandardParallel2, &lat2},
	} {
		deg, err := resolveKey(keys, doubles, k.key)
		if err != nil {
			return Parameters{}, err
		}
		*k.dst = toRad(deg)
	}

	if lat1 == lat2 {
		return Parameters{}, &ErrDegenerateProjection{Reason: "standard parallels are equal"}
	}
	if math.Abs(lat1) >= math.Pi/2 || math.Abs(lat2) >= math.Pi/2 {
		return Parameters{}, &ErrDegenerateProjection{Reason: "standard parallel at a pole"}
	}

	n, f, rho0 := deriveConeConstants(lat0, lat1, lat2)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) || math.IsNaN(f) || math.IsInf(f, 0) {
		return Parameters{}, &ErrDegenerateProjection{Reason: "cone constant undefined for these parallels"}
	}

	p := Parameters{
		Lat0: lat0, Lon0: lon0,
		Lat1: lat1, Lat2: lat2,
		N: n, F: f, Rho0: rho0,
	}

	switch {
	case len(tags.PixelScale) > 0:
		scale := decodeDoubles(tags.PixelScale)
		tie := decodeDoubles(tags.Tiepoints)
		if len(scale) < 2 || len(tie) < 6 {
			return Parameters{}, &ErrUnsupportedGeoreferencing{Reason: "truncated pixel scale or tiepoint block"}
		}
		// Scale block carries (y, x); the x resolution is negated so the
		// forward arithmetic divides by a uniform -XRes in both paths.
		p.YRes = scale[0]
		p.XRes = -scale[1]
		p.Easting = -tie[3]
		p.Northing = -tie[4]
	case len(tags.TransMatrix) > 0:
		// Fixed positional layout: resolutions on the diagonal, origin
		// offsets in the translation column. The matrix already encodes
		// axis direction, so the resolutions are taken as-is.
		m := decodeDoubles(tags.TransMatrix)
		if len(m) < 8 {
			return Parameters{}, &ErrUnsupportedGeoreferencing{Reason: "truncated transformation matrix"}
		}
		p.YRes = m[0]
		p.XRes = m[5]
		p.Easting = -m[3]
		p.Northing = -m[7]
	default:
		return Parameters{}, &ErrUnsupportedGeoreferencing{Reason: "no pixel scale or transformation matrix tag"}
	}

	if p.XRes == 0 || p.YRes == 0 {
		return Parameters{}, &ErrDegenerateProjection{Reason: "zero pixel resolution"}
	}
	return p, nil
}
