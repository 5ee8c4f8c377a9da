package geotiff

import (
	"bytes"
	"fmt"
	"os"
	"syscall"

	"github.com/cdurand/chartproj/internal/coord"
)

// Bounds is a geographic bounding box in WGS84 degrees.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Contains reports whether the point lies within the box.
func (b Bounds) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Reader provides georeferencing access to a GeoTIFF chart. All tag
// payloads are copied out of the file during Open, so a Reader holds no
// resources and is safe for concurrent use.
type Reader struct {
	path   string
	ifd    *IFD
	tags   coord.GeoTags
	params coord.Parameters
}

// Open memory-maps a GeoTIFF chart, parses its directory structure and
// extracts the Lambert conformal conic projection model. The mapping is
// released before Open returns. When the file carries geokeys but no
// placement tags, a world-file sidecar next to it supplies the pixel
// scale and origin.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	// The fd can be closed after mmap, and the mapping released once the
	// tag payloads are copied out.
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer syscall.Munmap(data)

	ifd, err := parseTIFF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	tags := ifd.geoTags()
	if len(tags.PixelScale) == 0 && len(tags.TransMatrix) == 0 {
		if sidecar := findTFW(path); sidecar != "" {
			tfw, err := parseTFW(sidecar)
			if err != nil {
				return nil, err
			}
			tags.TransMatrix = tfw.transMatrix()
		}
	}

	params, err := coord.BuildParameters(tags)
	if err != nil {
		return nil, fmt.Errorf("extracting projection from %s: %w", path, err)
	}

	return &Reader{
		path:   path,
		ifd:    ifd,
		tags:   tags,
		params: params,
	}, nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// Width returns the raster width in pixels.
func (r *Reader) Width() int {
	return int(r.ifd.Width)
}

// Height returns the raster height in pixels.
func (r *Reader) Height() int {
	return int(r.ifd.Height)
}

// GeoTags returns the raw georeferencing tag payloads.
func (r *Reader) GeoTags() coord.GeoTags {
	return r.tags
}

// Params returns the extracted projection model.
func (r *Reader) Params() coord.Parameters {
	return r.params
}

// Citation returns the GeoTIFF ASCII citation, if present.
func (r *Reader) Citation() string {
	return r.ifd.GeoAsciiParams
}

// BoundsWGS84 returns the bounding box of the four raster corners in
// WGS84. The raster edges bow slightly under the conic projection, so
// this is the corner hull, not an exact coverage polygon.
func (r *Reader) BoundsWGS84() Bounds {
	return ComputeBounds(r.params, r.Width(), r.Height())
}

// ComputeBounds returns the WGS84 corner hull of a raster extent under
// the given projection model.
func ComputeBounds(p coord.Parameters, width, height int) Bounds {
	corners := [4][2]int{
		{0, 0},
		{width, 0},
		{0, height},
		{width, height},
	}

	b := Bounds{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90}
	for _, c := range corners {
		lon, lat := p.ToLonLat(c[0], c[1])
		if lon < b.MinLon {
			b.MinLon = lon
		}
		if lon > b.MaxLon {
			b.MaxLon = lon
		}
		if lat < b.MinLat {
			b.MinLat = lat
		}
		if lat > b.MaxLat {
			b.MaxLat = lat
		}
	}
	return b
}

// geoTags assembles the raw tag payloads consumed by the projection core.
func (ifd *IFD) geoTags() coord.GeoTags {
	return coord.GeoTags{
		DoubleParams: ifd.GeoDoubleParams,
		KeyDirectory: ifd.GeoKeys,
		PixelScale:   ifd.PixelScale,
		Tiepoints:    ifd.Tiepoints,
		TransMatrix:  ifd.TransMatrix,
		Width:        ifd.Width,
		Height:       ifd.Height,
	}
}

// OpenAll opens multiple charts, failing on the first unreadable one.
func OpenAll(paths []string) ([]*Reader, error) {
	readers := make([]*Reader, 0, len(paths))
	for _, p := range paths {
		r, err := Open(p)
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}
	return readers, nil
}
