package fixedgeo

import "math"

// LonLatToFixed projects WGS84 degrees into the zoom-20 Web-Mercator fixed
// plane. The conversion is lossy (floating point projection, rounded to the
// nearest integer) but deterministic.
func LonLatToFixed(lon, lat float64) Point {
	x := (lon + 180.0) / 360.0 * float64(WorldSize)

	latRad := lat * math.Pi / 180.0
	sinLat := math.Sin(latRad)
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * float64(WorldSize)

	return Point{X: roundCoord(x), Y: roundCoord(y)}
}

// FixedToLonLat inverts LonLatToFixed.
func FixedToLonLat(p Point) (lon, lat float64) {
	size := float64(WorldSize)
	lon = float64(p.X)/size*360.0 - 180.0

	n := math.Pi - 2*math.Pi*float64(p.Y)/size
	lat = 180.0 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
	return lon, lat
}

// NodeCoordOffset folds a raw OSM node coordinate (already in
// 1e7-precision integer degrees) into the [0, 2^32) space the hybrid node
// index stores, per spec section 4.1: "x_offset = 180*precision,
// y_offset = 90*precision".
func NodeCoordOffset(raw int64, isY bool) int64 {
	const precision = 10_000_000
	if isY {
		return raw + 90*precision
	}
	return raw + 180*precision
}
