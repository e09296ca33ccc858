package tms20

import (
	"fmt"
	"math"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-spatial/geom"

	"github.com/pdok/tegel/transform"
)

// CustomOptions holds the optional arguments for Custom and CustomResolutions.
// The zero value is a valid set of options, the defaults are applied on use.
type CustomOptions struct {
	// TileWidth and TileHeight are the tile dimensions in pixels.
	TileWidth  uint `default:"256"`
	TileHeight uint `default:"256"`
	// MatrixScale is the tiling schema coalescence coefficient
	// per axis. E.g. use [2, 1] for a CRS with two level 0 tiles
	// side by side, like EPSG:4326. Only used by Custom.
	MatrixScale []uint `default:"[1,1]"`
	// ExtentCRS is the CRS the extent is given in when it differs from
	// the tile matrix set's CRS.
	ExtentCRS CRS
	Title     string `default:"Custom TileMatrixSet"`
	ID        string `default:"Custom"`
	// OrderedAxes also determines the axis order of the extent.
	OrderedAxes []string
	// GeographicCRS overrides DefaultGeographicCRSURI.
	GeographicCRS CRS
}

// Custom creates a tile matrix set from an extent (left, bottom, right, top)
// and a zoom range. Each zoom level halves the resolution of the previous one,
// starting from the resolution that fits the extent in a single tile (times
// the matrix scale) at level 0.
func Custom(extent geom.Extent, crs CRS, minZoom, maxZoom TMID, options CustomOptions) (*Tms, error) {
	if err := defaults.Set(&options); err != nil {
		return nil, err
	}
	if len(options.MatrixScale) != 2 {
		return nil, fmt.Errorf(`matrix scale needs two coefficients, got %v`, options.MatrixScale)
	}
	if minZoom < 0 {
		return nil, &InvalidZoomError{Zoom: minZoom}
	}
	bbox, err := transformedExtent(extent, crs, options.ExtentCRS)
	if err != nil {
		return nil, err
	}
	width := math.Abs(bbox.MaxX() - bbox.MinX())
	height := math.Abs(bbox.MaxY() - bbox.MinY())
	var resolutions []float64
	for zoom := minZoom; zoom <= maxZoom; zoom++ {
		resolutions = append(resolutions, math.Max(
			width/float64(options.TileWidth)/float64(options.MatrixScale[0]),
			height/float64(options.TileHeight)/float64(options.MatrixScale[1]),
		)/math.Exp2(float64(zoom)))
	}
	return CustomResolutions(extent, crs, resolutions, options)
}

// CustomResolutions creates a tile matrix set from an extent
// (left, bottom, right, top) and explicit resolutions in CRS units per pixel,
// one tile matrix per resolution. The tile matrix identifiers number the
// resolutions from "0" in the given order.
func CustomResolutions(extent geom.Extent, crs CRS, resolutions []float64, options CustomOptions) (*Tms, error) {
	if err := defaults.Set(&options); err != nil {
		return nil, err
	}
	inverted := orderedAxesInverted(options.OrderedAxes)
	boundingBoxCRS := options.ExtentCRS
	if boundingBoxCRS == nil {
		boundingBoxCRS = crs
	}
	tileMatrixSet := TileMatrixSet{
		ID:          options.ID,
		Title:       options.Title,
		CRS:         crs,
		OrderedAxes: options.OrderedAxes,
		BoundingBox: &TwoDBoundingBox{
			LowerLeft:   TwoDPoint{extent.MinX(), extent.MinY()},
			UpperRight:  TwoDPoint{extent.MaxX(), extent.MaxY()},
			CRS:         boundingBoxCRS,
			OrderedAxes: options.OrderedAxes,
		},
		TileMatrices: make(map[int]TileMatrix, len(resolutions)),
	}
	if inverted {
		tileMatrixSet.BoundingBox.LowerLeft = TwoDPoint{extent.MinY(), extent.MinX()}
		tileMatrixSet.BoundingBox.UpperRight = TwoDPoint{extent.MaxY(), extent.MaxX()}
	}

	bbox, err := transformedExtent(extent, crs, options.ExtentCRS)
	if err != nil {
		return nil, err
	}
	origin := TwoDPoint{bbox.MinX(), bbox.MaxY()}
	cornerOfOrigin := TopLeft
	if inverted {
		origin = TwoDPoint{bbox.MaxY(), bbox.MinX()}
		cornerOfOrigin = BottomLeft
	}

	metersPerUnit := metersPerUnit(crs)
	for i, resolution := range resolutions {
		if resolution <= 0 {
			return nil, ErrZeroDimensions
		}
		unitWidth := float64(options.TileWidth) * resolution
		unitHeight := float64(options.TileHeight) * resolution
		matrixWidth := math.Ceil((bbox.MaxX() - bbox.MinX() - 0.01*unitWidth) / unitWidth)
		matrixHeight := math.Ceil((bbox.MaxY() - bbox.MinY() - 0.01*unitHeight) / unitHeight)
		if matrixWidth < 1 || matrixHeight < 1 {
			return nil, ErrZeroDimensions
		}
		tileMatrixSet.TileMatrices[i] = TileMatrix{
			ID:               strconv.Itoa(i),
			ScaleDenominator: resolution * metersPerUnit / standardizedRenderingPixelSize,
			CellSize:         resolution,
			CornerOfOrigin:   cornerOfOrigin,
			PointOfOrigin:    origin,
			TileWidth:        options.TileWidth,
			TileHeight:       options.TileHeight,
			MatrixWidth:      uint(matrixWidth),
			MatrixHeight:     uint(matrixHeight),
		}
	}

	geographicCRS := options.GeographicCRS
	if geographicCRS == nil {
		geographicCRS = MustParseCRS(DefaultGeographicCRSURI)
	}
	return newTms(tileMatrixSet, geographicCRS)
}

// transformedExtent reprojects the extent into the tile matrix set's CRS
// when it is given in another one.
func transformedExtent(extent geom.Extent, crs, extentCRS CRS) (geom.Extent, error) {
	if extentCRS == nil || transform.Format(extentCRS) == transform.Format(crs) {
		return extent, nil
	}
	transformer, err := transform.FromCRS(extentCRS, crs)
	if err != nil {
		return extent, err
	}
	transformed, err := transformer.TransformBounds(&extent)
	if err != nil {
		return extent, err
	}
	return *transformed, nil
}
