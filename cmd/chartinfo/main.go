package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/cdurand/chartproj/internal/geotiff"
)

func main() {
	if len(os.Args) != 2 && len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: chartinfo <chart.tif> [lon lat]\n")
		os.Exit(1)
	}

	r, err := geotiff.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := r.Params()

	fmt.Printf("File: %s\n", os.Args[1])
	if c := r.Citation(); c != "" {
		fmt.Printf("Citation: %s\n", c)
	}
	fmt.Printf("Size: %d x %d\n", r.Width(), r.Height())
	fmt.Printf("Pixel size (map units): x=%f, y=%f\n", p.XRes, p.YRes)
	fmt.Printf("Origin offset (map units): easting=%f, northing=%f\n", p.Easting, p.Northing)
	fmt.Printf("False origin: %.6f°N %.6f°E\n", deg(p.Lat0), deg(p.Lon0))
	fmt.Printf("Standard parallels: %.6f°, %.6f°\n", deg(p.Lat1), deg(p.Lat2))
	fmt.Printf("Cone constants: n=%.10f, f=%.10f, rho0=%.4f\n", p.N, p.F, p.Rho0)

	b := r.BoundsWGS84()
	fmt.Printf("Bounds (WGS84): lon=[%f, %f], lat=[%f, %f]\n", b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)

	if len(os.Args) == 4 {
		lon := parseFloat(os.Args[2])
		lat := parseFloat(os.Args[3])

		col, row := p.ToPixel(lon, lat)
		fmt.Printf("\n(%f, %f) -> pixel (%d, %d)", lon, lat, col, row)
		if col < 0 || col >= r.Width() || row < 0 || row >= r.Height() {
			fmt.Printf(" [outside raster]")
		}
		fmt.Println()

		backLon, backLat := p.ToLonLat(col, row)
		fmt.Printf("pixel (%d, %d) -> (%f, %f)\n", col, row, backLon, backLat)
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid coordinate %q: %v\n", s, err)
		os.Exit(1)
	}
	return v
}

func deg(rad float64) float64 {
	return rad * 180 / math.Pi
}
