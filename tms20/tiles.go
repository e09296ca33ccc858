package tms20

import (
	"math"

	"github.com/go-spatial/geom"
)

// llEpsilon nudges bounds inward so that enumerating the bounds of a tile
// yields exactly that one tile.
const llEpsilon = 1e-11

// Tiles returns the tiles overlapped by a geographic bounding box, for each
// of the given zoom levels. A bounding box with west > east is interpreted as
// crossing the antimeridian and is split into two parts.
func (tms *Tms) Tiles(west, south, east, north float64, zooms []TMID, truncate bool) ([]Tile, error) {
	bbox, err := tms.BBox()
	if err != nil {
		return nil, err
	}
	var bboxes [][4]float64
	if west > east {
		bboxes = [][4]float64{
			{bbox.MinX(), south, east, north},
			{west, south, bbox.MaxX(), north},
		}
	} else {
		bboxes = [][4]float64{{west, south, east, north}}
	}
	getTile := tms.Tile
	if truncate {
		getTile = tms.TileTruncated
	}
	var tiles []Tile
	for _, bb := range bboxes {
		w := math.Max(bb[0], bbox.MinX())
		s := math.Max(bb[1], bbox.MinY())
		e := math.Min(bb[2], bbox.MaxX())
		n := math.Min(bb[3], bbox.MaxY())
		for _, z := range zooms {
			ulTile, err := getTile(w+llEpsilon, n-llEpsilon, z)
			if err != nil {
				return nil, err
			}
			lrTile, err := getTile(e-llEpsilon, s+llEpsilon, z)
			if err != nil {
				return nil, err
			}
			for x := ulTile.X; x <= lrTile.X; x++ {
				for y := ulTile.Y; y <= lrTile.Y; y++ {
					tiles = append(tiles, Tile{X: x, Y: y, Z: z})
				}
			}
		}
	}
	return tiles, nil
}

// extentLimits returns per zoom level the range of tiles overlapped by a
// geographic bounding box.
func (tms *Tms) extentLimits(extent *geom.Extent, minZoom, maxZoom TMID, truncate bool) ([]MinMax, error) {
	if extent.MinX() > extent.MaxX() || minZoom > maxZoom {
		return nil, nil
	}
	bbox, err := tms.BBox()
	if err != nil {
		return nil, err
	}
	getTile := tms.Tile
	if truncate {
		getTile = tms.TileTruncated
	}
	w := math.Max(extent.MinX(), bbox.MinX())
	s := math.Max(extent.MinY(), bbox.MinY())
	e := math.Min(extent.MaxX(), bbox.MaxX())
	n := math.Min(extent.MaxY(), bbox.MaxY())
	limits := make([]MinMax, 0, maxZoom-minZoom+1)
	for z := minZoom; z <= maxZoom; z++ {
		ulTile, err := getTile(w+llEpsilon, n-llEpsilon, z)
		if err != nil {
			return nil, err
		}
		lrTile, err := getTile(e-llEpsilon, s+llEpsilon, z)
		if err != nil {
			return nil, err
		}
		limits = append(limits, MinMax{XMin: ulTile.X, XMax: lrTile.X, YMin: ulTile.Y, YMax: lrTile.Y})
	}
	return limits, nil
}

// extentLimitsXY returns per zoom level the range of tiles overlapped by a
// bounding box in the CRS of the tile matrix set.
func (tms *Tms) extentLimitsXY(extent *geom.Extent, minZoom, maxZoom TMID) []MinMax {
	if extent.MinX() > extent.MaxX() || minZoom > maxZoom {
		return nil
	}
	bbox := tms.XYBBox()
	w := math.Max(extent.MinX(), bbox.MinX())
	s := math.Max(extent.MinY(), bbox.MinY())
	e := math.Min(extent.MaxX(), bbox.MaxX())
	n := math.Min(extent.MaxY(), bbox.MaxY())
	limits := make([]MinMax, 0, maxZoom-minZoom+1)
	for z := minZoom; z <= maxZoom; z++ {
		res := tms.Resolution(tms.Matrix(z)) / 10
		ulTile := tms.XYTile(w+res, n-res, z)
		lrTile := tms.XYTile(e-res, s+res, z)
		limits = append(limits, MinMax{XMin: ulTile.X, XMax: lrTile.X, YMin: ulTile.Y, YMax: lrTile.Y})
	}
	return limits
}

// XyzIterator walks all tiles overlapped by a bounding box in the CRS of the
// tile matrix set, from minZoom through maxZoom.
func (tms *Tms) XyzIterator(extent *geom.Extent, minZoom, maxZoom TMID) *XyzIterator {
	return newXyzIterator(minZoom, maxZoom, tms.extentLimitsXY(extent, minZoom, maxZoom))
}

// XyzIteratorGeographic walks all tiles overlapped by a geographic bounding
// box, from minZoom through maxZoom.
func (tms *Tms) XyzIteratorGeographic(extent *geom.Extent, minZoom, maxZoom TMID) (*XyzIterator, error) {
	limits, err := tms.extentLimits(extent, minZoom, maxZoom, false)
	if err != nil {
		return nil, err
	}
	return newXyzIterator(minZoom, maxZoom, limits), nil
}

// Neighbors returns the tiles sharing an edge or corner with the given tile,
// in the same tile matrix.
func (tms *Tms) Neighbors(tile Tile) []Tile {
	extrema := tms.MinMax(tile.Z)
	var tiles []Tile
	for x := tile.X - 1; x <= tile.X+1; x++ {
		for y := tile.Y - 1; y <= tile.Y+1; y++ {
			if x == tile.X && y == tile.Y {
				continue
			}
			if x < extrema.XMin || x > extrema.XMax || y < extrema.YMin || y > extrema.YMax {
				continue
			}
			tiles = append(tiles, Tile{X: x, Y: y, Z: tile.Z})
		}
	}
	return tiles
}

// Parent returns the tiles at the given zoom level above the tile that
// together cover it. Without an explicit zoom, that is one level up.
func (tms *Tms) Parent(tile Tile, zoom ...TMID) ([]Tile, error) {
	if tile.Z == tms.MinZoom() {
		return nil, nil
	}
	target := tile.Z - 1
	if len(zoom) > 0 {
		if tile.Z <= zoom[0] {
			return nil, &InvalidZoomError{Zoom: zoom[0]}
		}
		target = zoom[0]
	} else if tile.Z == 0 {
		return nil, &InvalidZoomError{Zoom: 0}
	}
	return tms.rezoom(tile, target), nil
}

// Children returns the tiles at the given zoom level below the tile that it
// covers. Without an explicit zoom, that is one level down.
func (tms *Tms) Children(tile Tile, zoom ...TMID) ([]Tile, error) {
	target := tile.Z + 1
	if len(zoom) > 0 {
		if tile.Z > zoom[0] {
			return nil, &InvalidZoomError{Zoom: zoom[0]}
		}
		target = zoom[0]
	}
	return tms.rezoom(tile, target), nil
}

// rezoom finds the tiles at the target zoom level covering the same area as
// the given tile. The area is shrunk by a tenth of a cell to keep tiles that
// merely touch the edges out.
func (tms *Tms) rezoom(tile Tile, zoom TMID) []Tile {
	res := tms.Resolution(tms.Matrix(tile.Z)) / 10
	bbox := tms.XYBounds(tile)
	ulTile := tms.XYTile(bbox.MinX()+res, bbox.MaxY()-res, zoom)
	lrTile := tms.XYTile(bbox.MaxX()-res, bbox.MinY()+res, zoom)
	var tiles []Tile
	for x := ulTile.X; x <= lrTile.X; x++ {
		for y := ulTile.Y; y <= lrTile.Y; y++ {
			tiles = append(tiles, Tile{X: x, Y: y, Z: zoom})
		}
	}
	return tiles
}
