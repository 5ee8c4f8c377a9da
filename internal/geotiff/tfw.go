package geotiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TFW holds the six parameters from a TIFF World File (.tfw).
//
// Line 1: pixel width (x-component of pixel size)
// Line 2: rotation about y-axis (typically 0)
// Line 3: rotation about x-axis (typically 0)
// Line 4: pixel height (y-component, typically negative for north-up)
// Line 5: x-coordinate of the center of the upper-left pixel
// Line 6: y-coordinate of the center of the upper-left pixel
type TFW struct {
	PixelSizeX float64
	RotationY  float64
	RotationX  float64
	PixelSizeY float64
	OriginX    float64
	OriginY    float64
}

// parseTFW reads a TFW (TIFF World File) from the given path.
func parseTFW(path string) (*TFW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading TFW %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 6 {
		return nil, fmt.Errorf("TFW %s: expected 6 lines, got %d", path, len(lines))
	}

	vals := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("TFW %s line %d: %w", path, i+1, err)
		}
		vals[i] = v
	}

	tfw := &TFW{
		PixelSizeX: vals[0],
		RotationY:  vals[1],
		RotationX:  vals[2],
		PixelSizeY: vals[3],
		OriginX:    vals[4],
		OriginY:    vals[5],
	}

	if tfw.RotationX != 0 || tfw.RotationY != 0 {
		return nil, fmt.Errorf("TFW %s: rotated world files are not supported (rotation: %f, %f)",
			path, tfw.RotationX, tfw.RotationY)
	}

	return tfw, nil
}

// findTFW looks for a TFW sidecar file alongside the given TIFF path.
// Checks extensions: .tfw, .TFW, .tifw, .TIFW
func findTFW(tiffPath string) string {
	ext := filepath.Ext(tiffPath)
	base := tiffPath[:len(tiffPath)-len(ext)]

	candidates := []string{".tfw", ".TFW", ".tifw", ".TIFW"}
	for _, c := range candidates {
		p := base + c
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// transMatrix encodes the world-file placement as the transformation
// matrix block the projection core expects. The TFW origin is the center
// of the upper-left pixel; the matrix origin is its corner. Resolutions
// carry the same axis-direction signs the matrix convention uses.
func (tfw *TFW) transMatrix() []byte {
	vals := [8]float64{
		-tfw.PixelSizeY, 0, 0, tfw.OriginX - math.Abs(tfw.PixelSizeX)/2,
		0, -tfw.PixelSizeX, 0, tfw.OriginY + math.Abs(tfw.PixelSizeY)/2,
	}
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}
