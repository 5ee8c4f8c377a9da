package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cdurand/chartproj/internal/catalog"
	"github.com/cdurand/chartproj/internal/geotiff"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: chartfind <lon> <lat> <chart.tif> [chart.tif...]\n")
		os.Exit(1)
	}

	lon, err := strconv.ParseFloat(os.Args[1], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid longitude %q\n", os.Args[1])
		os.Exit(1)
	}
	lat, err := strconv.ParseFloat(os.Args[2], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid latitude %q\n", os.Args[2])
		os.Exit(1)
	}

	readers, err := geotiff.OpenAll(os.Args[3:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	idx := catalog.NewIndex()
	for _, r := range readers {
		idx.AddReader(r)
	}

	hits := idx.FindAt(lon, lat)
	if len(hits) == 0 {
		fmt.Printf("No chart covers (%f, %f)\n", lon, lat)
		os.Exit(2)
	}

	fmt.Printf("(%f, %f) is covered by %d of %d charts:\n", lon, lat, len(hits), idx.Len())
	for _, c := range hits {
		col, row := c.Params.ToPixel(lon, lat)
		fmt.Printf("  %s: pixel (%d, %d) of %dx%d\n", c.Path, col, row, c.Width, c.Height)
	}
}
