// Package transform converts planar coordinates between coordinate reference systems.
// It carries no PROJ dependency. Only a small built-in set of transformations is
// supported, enough to serve tile matrix sets based on WGS84 and Web Mercator.
// Other CRSs can still be used for tiling, just not for geographic conversions.
package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/pdok/tegel/mathhelp"
)

// EarthRadius is the radius in meters of the sphere used by the web mercator projection.
const EarthRadius = 6378137.0

// CRS identifies a coordinate reference system by authority and code, e.g. EPSG 3857.
// tms20.CRS satisfies this interface.
type CRS interface {
	AuthorityName() string
	AuthorityCode() string
}

// Transformer converts planar coordinates from one CRS to another.
type Transformer interface {
	Transform(x, y float64) (float64, float64, error)
	// TransformBounds transforms the corners of extent and returns a new extent.
	TransformBounds(extent *geom.Extent) (*geom.Extent, error)
}

type UnsupportedError struct {
	From string
	To   string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported transformation from `%v` to `%v`", e.From, e.To)
}

// FromCRS returns a Transformer from one CRS to another.
// Equal or equivalent CRSs get a Passthrough,
// the pair WGS84 and Web Mercator gets a WebMercator in the right direction,
// any other pair returns an UnsupportedError.
func FromCRS(from, to CRS) (Transformer, error) {
	if from.AuthorityName() == to.AuthorityName() && from.AuthorityCode() == to.AuthorityCode() {
		return Passthrough{}, nil
	}
	fromSRID, fromKnown := KnownSRID(from)
	toSRID, toKnown := KnownSRID(to)
	switch {
	case fromKnown && toKnown && fromSRID == toSRID:
		return Passthrough{}, nil
	case fromSRID == 4326 && toSRID == 3857:
		return &WebMercator{}, nil
	case fromSRID == 3857 && toSRID == 4326:
		return &WebMercator{Inverse: true}, nil
	}
	return nil, &UnsupportedError{From: Format(from), To: Format(to)}
}

// KnownSRID returns the numeric EPSG id for crs.
// OGC CRS84 is mapped to 4326, its EPSG equivalent with axes in longitude, latitude order.
func KnownSRID(crs CRS) (srid int, ok bool) {
	if strings.EqualFold(crs.AuthorityName(), "OGC") && strings.EqualFold(crs.AuthorityCode(), "CRS84") {
		return 4326, true
	}
	code, err := strconv.Atoi(crs.AuthorityCode())
	if err != nil {
		return 0, false
	}
	return code, true
}

// Format renders a CRS as "authority:code", for display and error messages.
func Format(crs CRS) string {
	return crs.AuthorityName() + ":" + crs.AuthorityCode()
}

// Passthrough returns coordinates unchanged. It serves pairs of CRSs that
// share the same coordinate system, like EPSG 4326 and OGC CRS84.
type Passthrough struct{}

func (Passthrough) Transform(x, y float64) (float64, float64, error) {
	return x, y, nil
}

func (Passthrough) TransformBounds(extent *geom.Extent) (*geom.Extent, error) {
	return extent, nil
}

// WebMercator converts WGS84 longitude and latitude in degrees (EPSG 4326)
// to spherical web mercator meters (EPSG 3857), or the other way around
// when Inverse is set.
type WebMercator struct {
	Inverse bool
}

func (t *WebMercator) Transform(x, y float64) (float64, float64, error) {
	if t.Inverse {
		lng, lat := MercToLngLat(x, y)
		return lng, lat, nil
	}
	mercX, mercY := LngLatToMerc(x, y)
	return mercX, mercY, nil
}

func (t *WebMercator) TransformBounds(extent *geom.Extent) (*geom.Extent, error) {
	minX, minY, err := t.Transform(extent.MinX(), extent.MinY())
	if err != nil {
		return nil, err
	}
	maxX, maxY, err := t.Transform(extent.MaxX(), extent.MaxY())
	if err != nil {
		return nil, err
	}
	return &geom.Extent{minX, minY, maxX, maxY}, nil
}

// LngLatToMerc projects a WGS84 coordinate in degrees to web mercator meters.
// Latitudes at or beyond the poles project to infinities.
func LngLatToMerc(lng, lat float64) (float64, float64) {
	x := EarthRadius * mathhelp.Radians(lng)
	y := EarthRadius * math.Log(math.Tan(math.Pi/4+mathhelp.Radians(lat)/2))
	return x, y
}

// MercToLngLat is the inverse of LngLatToMerc.
func MercToLngLat(x, y float64) (float64, float64) {
	lng := mathhelp.Degrees(x / EarthRadius)
	lat := mathhelp.Degrees(2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2)
	return lng, lat
}

// MercTileUpperLeft returns the geographic upper left corner of web mercator
// tile (x, y) at zoom z, using the closed form instead of a Transformer roundtrip.
func MercTileUpperLeft(x, y, z int) (lng, lat float64) {
	z2 := math.Exp2(float64(z))
	lng = float64(x)/z2*360 - 180
	lat = mathhelp.Degrees(math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/z2))))
	return lng, lat
}
