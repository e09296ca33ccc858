// Package hilbert maps tiles to positions on a Hilbert curve that is
// threaded through the whole tile pyramid: level 0 first, then level 1,
// and so on. Within a level, ids follow the Hilbert curve for that
// level's grid, so tiles with nearby ids are near each other on the map.
package hilbert

import (
	"fmt"
)

// ID is a position in the pyramid-wide Hilbert ordering. Level z starts
// at BaseID(z) and spans 4^z cells.
type ID = uint64

// MaxZoom is the deepest level whose ids still fit in an ID.
const MaxZoom = 31

// BaseID returns the id of the first tile of the given level, which
// equals the number of tiles in all levels above it: (4^zoom - 1) / 3.
func BaseID(zoom uint) ID {
	return (ID(1)<<(2*zoom) - 1) / 3
}

// ToID returns the id of the given tile. ok is false when zoom exceeds
// MaxZoom or the tile lies outside the level's grid.
func ToID(x, y, z uint) (id ID, ok bool) {
	if z > MaxZoom || x>>z > 0 || y>>z > 0 {
		return 0, false
	}
	id = BaseID(z)
	for s := uint(1) << z >> 1; s > 0; s >>= 1 {
		var rx, ry uint
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		id += ID(s) * ID(s) * ID((3*rx)^ry)
		rotate(s, &x, &y, rx, ry)
	}
	return id, true
}

func MustToID(x, y, z uint) ID {
	id, ok := ToID(x, y, z)
	if !ok {
		panic(fmt.Errorf(`cannot make a hilbert ID out of x %v, y %v and zoom %v`, x, y, z))
	}
	return id
}

// FromID returns the tile with the given id, searching levels up to
// MaxZoom.
func FromID(id ID) (x, y, z uint, ok bool) {
	return FromIDMax(id, MaxZoom)
}

// FromIDMax returns the tile with the given id. ok is false when the id
// belongs to a level deeper than maxZoom. A maxZoom above MaxZoom is
// capped.
func FromIDMax(id ID, maxZoom uint) (x, y, z uint, ok bool) {
	if maxZoom > MaxZoom {
		maxZoom = MaxZoom
	}
	for id >= BaseID(z+1) {
		z++
		if z > maxZoom {
			return 0, 0, 0, false
		}
	}
	x, y = fromOffset(id-BaseID(z), z)
	return x, y, z, true
}

// fromOffset decodes a position relative to the start of level z.
func fromOffset(t ID, z uint) (x, y uint) {
	for s := uint(1); s < uint(1)<<z; s <<= 1 {
		rx := 1 & uint(t/2)
		ry := 1 & uint(t^ID(rx))
		rotate(s, &x, &y, rx, ry)
		x += s * rx
		y += s * ry
		t /= 4
	}
	return x, y
}

// rotate flips and mirrors the s x s subquadrant so the curve keeps
// connecting head to tail. Encode feeds it coordinates wider than s;
// the flip then wraps around, which is harmless because only the bits
// below s are read afterwards.
func rotate(s uint, x, y *uint, rx, ry uint) {
	if ry == 0 {
		if rx == 1 {
			*x = s - 1 - *x
			*y = s - 1 - *y
		}
		*x, *y = *y, *x
	}
}

// Iterator yields every tile from minZoom through maxZoom in id order.
type Iterator struct {
	id         ID
	nextBaseID ID
	z          uint
	maxZoom    uint
	done       bool
}

func NewIterator(minZoom, maxZoom uint) *Iterator {
	if maxZoom > MaxZoom {
		maxZoom = MaxZoom
	}
	it := &Iterator{
		id:         BaseID(minZoom),
		nextBaseID: BaseID(minZoom + 1),
		z:          minZoom,
		maxZoom:    maxZoom,
	}
	if minZoom > maxZoom {
		it.done = true
	}
	return it
}

// Next returns the next tile. ok is false once all levels are exhausted.
func (it *Iterator) Next() (x, y, z uint, ok bool) {
	if it.done {
		return 0, 0, 0, false
	}
	x, y = fromOffset(it.id-BaseID(it.z), it.z)
	z = it.z
	it.id++
	if it.id >= it.nextBaseID {
		it.z++
		if it.z > it.maxZoom {
			it.done = true
		} else {
			it.nextBaseID = BaseID(it.z + 1)
		}
	}
	return x, y, z, true
}
