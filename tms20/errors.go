package tms20

import (
	"errors"
	"fmt"

	"github.com/go-spatial/geom"
)

var (
	// ErrNoQuadkeySupport is returned for tile matrix sets that are not
	// a quadtree, i.e. don't split every tile into 2 x 2 tiles on the next level.
	ErrNoQuadkeySupport = errors.New(`tile matrix set doesn't support quadkeys`)
	// ErrZeroDimensions is returned when a tile matrix would get zero rows or columns.
	ErrZeroDimensions = errors.New(`zero matrix width or height`)
)

// InvalidZoomIDError is returned when a tile matrix identifier is not integer-like.
type InvalidZoomIDError struct {
	ID string
}

func (e *InvalidZoomIDError) Error() string {
	return fmt.Sprintf(`invalid tile zoom identifier "%v"`, e.ID)
}

// InvalidZoomError is returned when a zoom level conflicts with the requested operation.
type InvalidZoomError struct {
	Zoom TMID
}

func (e *InvalidZoomError) Error() string {
	return fmt.Sprintf(`invalid zoom level "%v"`, e.Zoom)
}

// InvalidZoomLevelStrategyError is returned for an unknown ZoomLevelStrategy.
type InvalidZoomLevelStrategyError struct {
	Strategy string
}

func (e *InvalidZoomLevelStrategyError) Error() string {
	return fmt.Sprintf(`invalid strategy "%v", should be one of lower|upper|auto`, e.Strategy)
}

// PointOutsideBoundsError is returned when a point does not lie within the
// bounds a tile matrix set covers.
type PointOutsideBoundsError struct {
	X      float64
	Y      float64
	Bounds *geom.Extent
}

func (e *PointOutsideBoundsError) Error() string {
	return fmt.Sprintf(`point (%v, %v) is outside bounds %v`, e.X, e.Y, e.Bounds)
}

// QuadkeyError is returned when a quadkey contains an unexpected digit.
type QuadkeyError struct {
	Digit byte
}

func (e *QuadkeyError) Error() string {
	return fmt.Sprintf(`unexpected quadkey digit "%c"`, e.Digit)
}

// AlreadyRegisteredError is returned when registering a tile matrix set
// under an identifier that is already taken.
type AlreadyRegisteredError struct {
	ID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf(`tile matrix set "%v" is already registered`, e.ID)
}

// NotRegisteredError is returned when no tile matrix set is registered
// under the requested identifier.
type NotRegisteredError struct {
	ID string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf(`tile matrix set "%v" is not registered`, e.ID)
}
