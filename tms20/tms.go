package tms20

import (
	"fmt"
	"log"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/tegel/hilbert"
	"github.com/pdok/tegel/mapslicehelp"
	"github.com/pdok/tegel/mathhelp"
	"github.com/pdok/tegel/transform"
)

// DefaultBBoxPrecision is the number of decimals coordinates are rounded to
// before checking them against bounds.
const DefaultBBoxPrecision = 5

// DefaultGeographicCRSURI identifies the CRS geographic coordinates are
// expressed in unless another one is given.
const DefaultGeographicCRSURI = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

// standardizedRenderingPixelSize is the assumed size of a pixel in meters,
// 0.28 mm, which relates scale denominators to resolutions.
const standardizedRenderingPixelSize = 0.28e-3

// Tms couples a TileMatrixSet to the calculations the set supports:
// mapping between coordinates and tiles, walking the tile hierarchy
// and enumerating tiles. Use NewTms to obtain a working instance.
type Tms struct {
	TileMatrixSet
	// IsQuadtree tells whether every tile splits into 2 x 2 tiles on the next level.
	IsQuadtree bool

	geographicCRS  CRS
	toGeographic   transform.Transformer
	fromGeographic transform.Transformer
	geographicErr  error
	bboxTransform  transform.Transformer
	matrices       *orderedmap.OrderedMap[TMID, TileMatrix]
}

// NewTms prepares transformations for a tile matrix set and checks whether it
// supports quadkeys. Geographic coordinates will be interpreted as
// DefaultGeographicCRSURI coordinates.
func NewTms(tileMatrixSet TileMatrixSet) (*Tms, error) {
	return newTms(tileMatrixSet, MustParseCRS(DefaultGeographicCRSURI))
}

func newTms(tileMatrixSet TileMatrixSet, geographicCRS CRS) (*Tms, error) {
	tileMatrixSet.TileMatrices = maps.Clone(tileMatrixSet.TileMatrices)
	matrices, err := sortTileMatrices(tileMatrixSet.TileMatrices)
	if err != nil {
		return nil, err
	}

	tms := &Tms{
		TileMatrixSet: tileMatrixSet,
		IsQuadtree:    checkQuadkeySupport(matrices),
		geographicCRS: geographicCRS,
		matrices:      matrices,
	}
	tms.toGeographic, err = transform.FromCRS(tileMatrixSet.CRS, geographicCRS)
	if err != nil {
		tms.geographicErr = err
	} else {
		tms.fromGeographic, err = transform.FromCRS(geographicCRS, tileMatrixSet.CRS)
		if err != nil {
			tms.toGeographic = nil
			tms.geographicErr = err
		}
	}

	if bb := tileMatrixSet.BoundingBox; bb != nil && bb.CRS != nil &&
		transform.Format(bb.CRS) != transform.Format(tileMatrixSet.CRS) {
		tms.bboxTransform, err = transform.FromCRS(bb.CRS, tileMatrixSet.CRS)
		if err != nil {
			return nil, err
		}
	}
	return tms, nil
}

// sortTileMatrices checks the zoom identifier format and orders the matrices by it.
func sortTileMatrices(tileMatrices map[int]TileMatrix) (*orderedmap.OrderedMap[TMID, TileMatrix], error) {
	if len(tileMatrices) == 0 {
		return nil, fmt.Errorf(`a tile matrix set needs at least one tile matrix`)
	}
	matrices := orderedmap.New[TMID, TileMatrix]()
	for _, id := range mapslicehelp.SortedKeys(tileMatrices) {
		tileMatrix := tileMatrices[id]
		parsedID, err := strconv.Atoi(tileMatrix.ID)
		if err != nil || parsedID != id {
			return nil, &InvalidZoomIDError{ID: tileMatrix.ID}
		}
		matrices.Set(id, tileMatrix)
	}
	return matrices, nil
}

// Clone rebuilds the Tms from a copy of its tile matrix set,
// repeating the initialization.
func (tms *Tms) Clone() (*Tms, error) {
	return newTms(tms.TileMatrixSet, tms.geographicCRS)
}

// GeographicCRS is the CRS geographic coordinates are expressed in.
func (tms *Tms) GeographicCRS() CRS {
	return tms.geographicCRS
}

// MinZoom is the identifier of the first tile matrix.
func (tms *Tms) MinZoom() TMID {
	return tms.matrices.Oldest().Key
}

// MaxZoom is the identifier of the last tile matrix.
func (tms *Tms) MaxZoom() TMID {
	return tms.matrices.Newest().Key
}

// Matrices returns the tile matrices ordered by identifier.
func (tms *Tms) Matrices() []TileMatrix {
	matrices := make([]TileMatrix, 0, tms.matrices.Len())
	for pair := tms.matrices.Oldest(); pair != nil; pair = pair.Next() {
		matrices = append(matrices, pair.Value)
	}
	return matrices
}

// Matrix returns the tile matrix for the given zoom level. For zoom levels
// below the deepest defined tile matrix, a tile matrix is extrapolated by
// continuing the scale progression of the set.
func (tms *Tms) Matrix(zoom TMID) TileMatrix {
	if tileMatrix, ok := tms.matrices.Get(zoom); ok {
		return tileMatrix
	}

	log.Printf("tile matrix not found for level %v, extrapolating from the tile matrix set scale", zoom)
	newest := tms.matrices.Newest()
	factor := 2.0
	if prev := newest.Prev(); prev != nil {
		factor = math.Round(prev.Value.ScaleDenominator / newest.Value.ScaleDenominator)
	}

	tileMatrix := newest.Value
	for id := newest.Key; id < zoom; id++ {
		tileMatrix = TileMatrix{
			ID:               strconv.Itoa(id + 1),
			ScaleDenominator: tileMatrix.ScaleDenominator / factor,
			CellSize:         tileMatrix.CellSize / factor,
			CornerOfOrigin:   tileMatrix.CornerOfOrigin,
			PointOfOrigin:    tileMatrix.PointOfOrigin,
			TileWidth:        tileMatrix.TileWidth,
			TileHeight:       tileMatrix.TileHeight,
			MatrixWidth:      uint(math.Round(float64(tileMatrix.MatrixWidth) * factor)),
			MatrixHeight:     uint(math.Round(float64(tileMatrix.MatrixHeight) * factor)),
		}
	}
	return tileMatrix
}

// Resolution returns the size in CRS units that one cell (pixel)
// of the given tile matrix covers.
func (tms *Tms) Resolution(matrix TileMatrix) float64 {
	return matrix.ScaleDenominator * standardizedRenderingPixelSize / metersPerUnit(tms.CRS)
}

// metersPerUnitByUnit converts CRS units to meters. From note g in table 2 of
// the Tile Matrix Set standard: if the CRS uses meters as units of measure for
// the horizontal dimensions, then metersPerUnit=1; if it has degrees, then
// metersPerUnit=2*pi*a/360 (a is the Earth maximum radius of the ellipsoid).
var metersPerUnitByUnit = map[string]float64{
	"metre":          1.0,
	"degree":         2 * math.Pi * transform.EarthRadius / 360,
	"foot":           0.3048,
	"US survey foot": 0.30480060960121924,
}

func metersPerUnit(crs CRS) float64 {
	// without a full CRS database the unit has to be derived from the authority code
	unit := "metre"
	if srid, ok := transform.KnownSRID(crs); ok && srid == 4326 {
		unit = "degree"
	}
	return metersPerUnitByUnit[unit]
}

// ZoomLevelStrategy steers ZoomForRes when a resolution falls
// between the resolutions of two tile matrices.
type ZoomLevelStrategy string

const (
	// Lower picks the tile matrix with the next lower resolution.
	Lower ZoomLevelStrategy = "lower"
	// Upper picks the tile matrix with the next higher resolution.
	Upper ZoomLevelStrategy = "upper"
	// Auto picks the tile matrix with the nearest resolution.
	Auto ZoomLevelStrategy = "auto"
)

// ZoomForRes returns the zoom level of the tile matrix whose resolution
// matches the given resolution, within the given zoom level range.
func (tms *Tms) ZoomForRes(res float64, strategy ZoomLevelStrategy, minZoom, maxZoom TMID) (TMID, error) {
	zoom := minZoom
	matrixRes := tms.Resolution(tms.Matrix(zoom))
	for ; zoom <= maxZoom; zoom++ {
		matrixRes = tms.Resolution(tms.Matrix(zoom))
		if res > matrixRes || math.Abs(res-matrixRes)/matrixRes <= 1e-8 {
			break
		}
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	if zoom > minZoom && math.Abs(res-matrixRes)/matrixRes > 1e-8 {
		switch ZoomLevelStrategy(strings.ToLower(string(strategy))) {
		case Lower:
			zoom = max(zoom-1, minZoom)
		case Upper:
			zoom = min(zoom, maxZoom)
		case Auto:
			if tms.Resolution(tms.Matrix(max(zoom-1, minZoom)))/res < res/matrixRes {
				zoom = max(zoom-1, minZoom)
			}
		default:
			return 0, &InvalidZoomLevelStrategyError{Strategy: string(strategy)}
		}
	}
	return zoom, nil
}

// invertAxis checks if the CRS has inverted axes (lat,lon) instead of (lon,lat).
func (tms *Tms) invertAxis() bool {
	return orderedAxesInverted(tms.OrderedAxes)
}

func orderedAxesInverted(orderedAxes []string) bool {
	if len(orderedAxes) == 0 {
		return false
	}
	switch strings.ToUpper(orderedAxes[0]) {
	case "Y", "LAT", "N":
		return true
	}
	return false
}

func origin(matrix TileMatrix, invertAxis bool) (x, y float64) {
	if invertAxis {
		return matrix.PointOfOrigin[1], matrix.PointOfOrigin[0]
	}
	return matrix.PointOfOrigin[0], matrix.PointOfOrigin[1]
}

// XYBBox returns the bounding box of the tile matrix set, in its own CRS.
func (tms *Tms) XYBBox() *geom.Extent {
	if bb := tms.BoundingBox; bb != nil {
		left, bottom := bb.LowerLeft[0], bb.LowerLeft[1]
		right, top := bb.UpperRight[0], bb.UpperRight[1]
		if tms.invertAxis() {
			left, bottom = bottom, left
			right, top = top, right
		}
		extent := &geom.Extent{left, bottom, right, top}
		if tms.bboxTransform == nil {
			return extent
		}
		transformed, err := tms.bboxTransform.TransformBounds(extent)
		if err != nil {
			// verified transformable during initialization
			panic(err)
		}
		return transformed
	}

	zoom := tms.MinZoom()
	matrix := tms.Matrix(zoom)
	topLeft := tms.XYUL(Tile{X: 0, Y: 0, Z: zoom})
	bottomRight := tms.XYUL(Tile{X: int(matrix.MatrixWidth), Y: int(matrix.MatrixHeight), Z: zoom})
	return &geom.Extent{topLeft[0], bottomRight[1], bottomRight[0], topLeft[1]}
}

// BBox returns the bounding box of the tile matrix set, in its geographic CRS.
func (tms *Tms) BBox() (*geom.Extent, error) {
	if tms.toGeographic == nil {
		return nil, tms.geographicErr
	}
	return tms.toGeographic.TransformBounds(tms.XYBBox())
}

// IntersectTMS checks if the bbox intersects the bounding box
// of the tile matrix set, in its own CRS.
func (tms *Tms) IntersectTMS(bbox *geom.Extent) bool {
	tmsBounds := tms.XYBBox()
	return bbox.MinX() < tmsBounds.MaxX() &&
		bbox.MaxX() > tmsBounds.MinX() &&
		bbox.MaxY() > tmsBounds.MinY() &&
		bbox.MinY() < tmsBounds.MaxY()
}

func pointInBBox(x, y float64, bbox *geom.Extent, precision int) bool {
	return mathhelp.RoundToPrec(x, precision) >= mathhelp.RoundToPrec(bbox.MinX(), precision) &&
		mathhelp.RoundToPrec(x, precision) <= mathhelp.RoundToPrec(bbox.MaxX(), precision) &&
		mathhelp.RoundToPrec(y, precision) >= mathhelp.RoundToPrec(bbox.MinY(), precision) &&
		mathhelp.RoundToPrec(y, precision) <= mathhelp.RoundToPrec(bbox.MaxY(), precision)
}

// MinMax returns the range of tiles in the tile matrix for the given zoom level.
func (tms *Tms) MinMax(zoom TMID) MinMax {
	matrix := tms.Matrix(zoom)
	return MinMax{
		XMin: 0,
		XMax: int(matrix.MatrixWidth) - 1,
		YMin: 0,
		YMax: int(matrix.MatrixHeight) - 1,
	}
}

// IsValid checks if a tile is inside the tile matrix for its zoom level.
func (tms *Tms) IsValid(tile Tile) bool {
	if tile.Z < tms.MinZoom() {
		return false
	}
	extrema := tms.MinMax(tile.Z)
	return tile.X >= extrema.XMin && tile.X <= extrema.XMax &&
		tile.Y >= extrema.YMin && tile.Y <= extrema.YMax
}

// HilbertID returns the position of the tile on a Hilbert curve threaded
// through all the tile matrices of the set. Only defined for quadtree sets
// and for tiles that are valid in both the tile matrix and the curve's grid.
func (tms *Tms) HilbertID(tile Tile) (hilbert.ID, bool) {
	if !tms.IsQuadtree || tile.X < 0 || tile.Y < 0 ||
		tile.Z < tms.MinZoom() || tile.Z > tms.MaxZoom() || !tms.IsValid(tile) {
		return 0, false
	}
	return hilbert.ToID(uint(tile.X), uint(tile.Y), uint(tile.Z))
}

// HilbertToTile returns the tile at the given position on the Hilbert curve
// threaded through all the tile matrices of the set.
func (tms *Tms) HilbertToTile(id hilbert.ID) (Tile, bool) {
	if !tms.IsQuadtree {
		return Tile{}, false
	}
	x, y, z, ok := hilbert.FromIDMax(id, uint(tms.MaxZoom()))
	if !ok || TMID(z) < tms.MinZoom() {
		return Tile{}, false
	}
	tile := Tile{X: int(x), Y: int(y), Z: TMID(z)}
	if !tms.IsValid(tile) {
		return Tile{}, false
	}
	return tile, true
}
