package coord

import "math"

// GRS80 reference ellipsoid. Chart agencies publish LCC rasters against
// GRS80/WGS84-class datums; the constants are fixed, not configurable.
const (
	// SemiMajorAxis is the equatorial radius in meters.
	SemiMajorAxis = 6378137.0
	// Flattening is the GRS80 ellipsoidal flattening.
	Flattening = 1.0 / 298.257222101
)

// eccentricity is the first eccentricity derived from the flattening.
var eccentricity = math.Sqrt(2*Flattening - Flattening*Flattening)

// Parameters describes a Lambert conformal conic georeferencing model for
// one raster. It is built once per chart by BuildParameters and never
// mutated afterwards, so a value may be shared freely across goroutines.
//
// XRes/YRes are signed ground distances per pixel (map units). Easting and
// Northing are the projection-origin offsets already negated relative to
// the raw tag values, so the conversion arithmetic treats both
// georeferencing encodings uniformly.
type Parameters struct {
	XRes     float64 // signed map units per pixel column, never zero
	YRes     float64 // signed map units per pixel row, never zero
	Easting  float64 // negated false-origin easting, map units
	Northing float64 // negated false-origin northing, map units

	Lat0 float64 // false-origin latitude, radians
	Lon0 float64 // false-origin longitude, radians
	Lat1 float64 // first standard parallel, radians
	Lat2 float64 // second standard parallel, radians

	// Derived once at construction from (Lat0, Lat1, Lat2). Stored rather
	// than recomputed so two conversions on the same record are
	// bit-identical.
	N    float64 // cone constant
	F    float64 // map scale factor
	Rho0 float64 // radius from cone apex to the false-origin parallel, map units
}

// parallelRadius is the radius of the circle of latitude phi, in units of
// the semi-major axis.
func parallelRadius(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-eccentricity*eccentricity*s*s)
}

// isoColatitude maps geodetic latitude to the conformal parameter used by
// the LCC formulas. Diverges as phi approaches the poles.
func isoColatitude(phi float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) /
		math.Pow((1-eccentricity*s)/(1+eccentricity*s), eccentricity/2)
}

// deriveConeConstants computes (n, f, rho0) from the false-origin latitude
// and the two standard parallels, all in radians. The caller guards the
// degenerate inputs (equal parallels, parallels at a pole).
func deriveConeConstants(lat0, lat1, lat2 float64) (n, f, rho0 float64) {
	t1 := isoColatitude(lat1)
	t2 := isoColatitude(lat2)
	n = (math.Log(parallelRadius(lat1)) - math.Log(parallelRadius(lat2))) /
		(math.Log(t1) - math.Log(t2))
	f = parallelRadius(lat1) / (n * math.Pow(t1, n))
	rho0 = SemiMajorAxis * f * math.Pow(isoColatitude(lat0), n)
	return
}

// ToPixel converts a WGS84 longitude/latitude (degrees) to the raster
// pixel containing it. The real-valued position is truncated toward zero,
// not rounded. No bounds check is performed against the raster extent:
// out-of-raster coordinates yield out-of-range pixels.
func (p Parameters) ToPixel(lon, lat float64) (col, row int) {
	gamma := p.N * (toRad(lon) - p.Lon0)
	rho := SemiMajorAxis * p.F * math.Pow(isoColatitude(toRad(lat)), p.N)

	e := p.Easting + rho*math.Sin(gamma)
	n := p.Northing + p.Rho0 - rho*math.Cos(gamma)

	col = int(e / -p.XRes)
	row = int(n / -p.YRes)
	return
}

// ToLonLat converts a raster pixel to WGS84 longitude/latitude (degrees).
//
// The ellipsoidal latitude is recovered with the spherical inverse
// followed by a single eccentricity correction step. One step is within a
// few meters of the converged value for earth-like eccentricities and
// matches the reference outputs this model was calibrated against; it is
// deliberately not iterated further.
func (p Parameters) ToLonLat(col, row int) (lon, lat float64) {
	e := float64(col)*(-p.XRes) - p.Easting
	n := float64(row)*(-p.YRes) - p.Northing

	rhoN := p.Rho0 - n
	rho := math.Sqrt(e*e + rhoN*rhoN)
	tVal := math.Pow(rho/(SemiMajorAxis*p.F), 1/p.N)
	theta := math.Atan(e / rhoN)

	phi := math.Pi/2 - 2*math.Atan(tVal)
	s := math.Sin(phi)
	phi = math.Pi/2 - 2*math.Atan(tVal*math.Pow((1-eccentricity*s)/(1+eccentricity*s), eccentricity/2))

	lon = toDeg(theta/p.N + p.Lon0)
	lat = toDeg(phi)
	return
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
