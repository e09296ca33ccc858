package tms20

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/tegel/mathhelp"
)

// checkQuadkeySupport checks that every tile matrix is square with a power of
// two size and that every next tile matrix doubles it.
func checkQuadkeySupport(matrices *orderedmap.OrderedMap[TMID, TileMatrix]) bool {
	for pair := matrices.Oldest(); pair != nil && pair.Next() != nil; pair = pair.Next() {
		tileMatrix, next := pair.Value, pair.Next().Value
		if tileMatrix.MatrixWidth != tileMatrix.MatrixHeight ||
			!mathhelp.IsPow2(tileMatrix.MatrixWidth) ||
			tileMatrix.MatrixWidth*2 != next.MatrixWidth {
			return false
		}
	}
	return true
}

// Quadkey returns the quadkey of the tile: one digit per zoom level above the
// minimum, each the 0..3 index of the quadrant within the tile above it.
func (tms *Tms) Quadkey(tile Tile) (string, error) {
	if !tms.IsQuadtree {
		return "", ErrNoQuadkeySupport
	}
	var qk strings.Builder
	for z := tile.Z; z > tms.MinZoom(); z-- {
		mask := 1 << (z - 1)
		digit := mathhelp.Bool2int(tile.X&mask != 0) + 2*mathhelp.Bool2int(tile.Y&mask != 0)
		qk.WriteByte(byte('0' + digit))
	}
	return qk.String(), nil
}

// QuadkeyToTile returns the tile with the given quadkey.
func (tms *Tms) QuadkeyToTile(qk string) (Tile, error) {
	if !tms.IsQuadtree {
		return Tile{}, ErrNoQuadkeySupport
	}
	var x, y int
	for i := 0; i < len(qk); i++ {
		digit := qk[len(qk)-1-i]
		mask := 1 << i
		switch digit {
		case '0':
		case '1':
			x |= mask
		case '2':
			y |= mask
		case '3':
			x |= mask
			y |= mask
		default:
			return Tile{}, &QuadkeyError{Digit: digit}
		}
	}
	return Tile{X: x, Y: y, Z: len(qk)}, nil
}
