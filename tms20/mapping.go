package tms20

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/tegel/transform"
)

// XY transforms geographic longitude and latitude to coordinates
// in the CRS of the tile matrix set.
func (tms *Tms) XY(lng, lat float64) (geom.Point, error) {
	var point geom.Point
	if bbox := tms.XYBBox(); !pointInBBox(lng, lat, bbox, DefaultBBoxPrecision) {
		return point, &PointOutsideBoundsError{X: lng, Y: lat, Bounds: bbox}
	}
	if tms.fromGeographic == nil {
		return point, tms.geographicErr
	}
	x, y, err := tms.fromGeographic.Transform(lng, lat)
	if err != nil {
		return point, err
	}
	return geom.Point{x, y}, nil
}

// XYTruncated is XY with the geographic coordinates first truncated
// to the geographic bounding box of the tile matrix set.
func (tms *Tms) XYTruncated(lng, lat float64) (geom.Point, error) {
	lng, lat, err := tms.TruncateLngLat(lng, lat)
	if err != nil {
		return geom.Point{}, err
	}
	return tms.XY(lng, lat)
}

// TruncateLngLat clamps geographic coordinates to the geographic
// bounding box of the tile matrix set.
func (tms *Tms) TruncateLngLat(lng, lat float64) (float64, float64, error) {
	bbox, err := tms.BBox()
	if err != nil {
		return 0, 0, err
	}
	if lng > bbox.MaxX() {
		lng = bbox.MaxX()
	} else if lng < bbox.MinX() {
		lng = bbox.MinX()
	}
	if lat > bbox.MaxY() {
		lat = bbox.MaxY()
	} else if lat < bbox.MinY() {
		lat = bbox.MinY()
	}
	return lng, lat, nil
}

// LngLat transforms coordinates in the CRS of the tile matrix set to
// geographic longitude and latitude, optionally truncated to the
// geographic bounding box.
func (tms *Tms) LngLat(x, y float64, truncate bool) (lng, lat float64, err error) {
	if bbox := tms.XYBBox(); !pointInBBox(x, y, bbox, DefaultBBoxPrecision) {
		return 0, 0, &PointOutsideBoundsError{X: x, Y: y, Bounds: bbox}
	}
	if tms.toGeographic == nil {
		return 0, 0, tms.geographicErr
	}
	lng, lat, err = tms.toGeographic.Transform(x, y)
	if err != nil {
		return 0, 0, err
	}
	if truncate {
		return tms.TruncateLngLat(lng, lat)
	}
	return lng, lat, nil
}

// Tile returns the tile containing the given geographic coordinates.
func (tms *Tms) Tile(lng, lat float64, zoom TMID) (Tile, error) {
	xy, err := tms.XY(lng, lat)
	if err != nil {
		return Tile{}, err
	}
	return tms.XYTile(xy.X(), xy.Y(), zoom), nil
}

// TileTruncated is Tile with the geographic coordinates first truncated
// to the geographic bounding box of the tile matrix set.
func (tms *Tms) TileTruncated(lng, lat float64, zoom TMID) (Tile, error) {
	xy, err := tms.XYTruncated(lng, lat)
	if err != nil {
		return Tile{}, err
	}
	return tms.XYTile(xy.X(), xy.Y(), zoom), nil
}

// XYTile returns the tile containing the given coordinates in the CRS of the
// tile matrix set. Out-of-range coordinates are clamped to the edges of the
// tile matrix.
func (tms *Tms) XYTile(x, y float64, zoom TMID) Tile {
	matrix := tms.Matrix(zoom)
	res := tms.Resolution(matrix)
	originX, originY := origin(matrix, tms.invertAxis())

	xTile := 0.0
	if !math.IsInf(x, 0) && !math.IsNaN(x) {
		xTile = math.Floor((x - originX) / (res * float64(matrix.TileWidth)))
	}
	yTile := 0.0
	if !math.IsInf(y, 0) && !math.IsNaN(y) {
		yTile = math.Floor((originY - y) / (res * float64(matrix.TileHeight)))
	}

	return Tile{
		X: clampTileIndex(xTile, matrix.MatrixWidth),
		Y: clampTileIndex(yTile, matrix.MatrixHeight),
		Z: zoom,
	}
}

// clampTileIndex avoids out-of-range tiles. An index one beyond the matrix is
// allowed, it addresses the closing edge of the last tile.
func clampTileIndex(index float64, matrixSize uint) int {
	if index < 0 {
		return 0
	}
	if index > float64(matrixSize) {
		return int(matrixSize)
	}
	return int(index)
}

// XYUL returns the upper left coordinate of the tile
// in the CRS of the tile matrix set.
func (tms *Tms) XYUL(tile Tile) geom.Point {
	matrix := tms.Matrix(tile.Z)
	res := tms.Resolution(matrix)
	originX, originY := origin(matrix, tms.invertAxis())
	return geom.Point{
		originX + float64(tile.X)*res*float64(matrix.TileWidth),
		originY - float64(tile.Y)*res*float64(matrix.TileHeight),
	}
}

// XYBounds returns the bounding box of the tile
// in the CRS of the tile matrix set.
func (tms *Tms) XYBounds(tile Tile) *geom.Extent {
	topLeft := tms.XYUL(tile)
	bottomRight := tms.XYUL(Tile{X: tile.X + 1, Y: tile.Y + 1, Z: tile.Z})
	return &geom.Extent{topLeft.X(), bottomRight.Y(), bottomRight.X(), topLeft.Y()}
}

// UL returns the upper left coordinate of the tile in the geographic CRS.
func (tms *Tms) UL(tile Tile) (lng, lat float64, err error) {
	dataSRID, dataKnown := transform.KnownSRID(tms.CRS)
	geographicSRID, geographicKnown := transform.KnownSRID(tms.geographicCRS)
	if dataKnown && geographicKnown && dataSRID == 3857 && geographicSRID == 4326 {
		lng, lat = transform.MercTileUpperLeft(tile.X, tile.Y, tile.Z)
		return lng, lat, nil
	}
	xy := tms.XYUL(tile)
	return tms.LngLat(xy.X(), xy.Y(), false)
}

// Bounds returns the bounding box of the tile in the geographic CRS.
func (tms *Tms) Bounds(tile Tile) (*geom.Extent, error) {
	left, top, err := tms.UL(tile)
	if err != nil {
		return nil, err
	}
	right, bottom, err := tms.UL(Tile{X: tile.X + 1, Y: tile.Y + 1, Z: tile.Z})
	if err != nil {
		return nil, err
	}
	return &geom.Extent{left, bottom, right, top}, nil
}
