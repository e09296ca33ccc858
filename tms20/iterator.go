package tms20

// XyzIterator yields tiles within per-level limits, one zoom level after the
// other, columns before rows. Construct one with Tms.XyzIterator or
// Tms.XyzIteratorGeographic.
type XyzIterator struct {
	z        TMID
	x        int
	y        int
	minZoom  TMID
	maxZoom  TMID
	limits   []MinMax
	finished bool
}

func newXyzIterator(minZoom, maxZoom TMID, limits []MinMax) *XyzIterator {
	it := &XyzIterator{minZoom: minZoom, maxZoom: maxZoom, limits: limits}
	if minZoom > maxZoom || len(limits) == 0 {
		it.finished = true
		return it
	}
	if maxZoom > minZoom+len(limits)-1 {
		it.maxZoom = minZoom + len(limits) - 1
	}
	it.z = minZoom
	it.x = limits[0].XMin
	it.y = limits[0].YMin
	return it
}

// Next returns the next tile. ok is false once all levels are exhausted.
func (it *XyzIterator) Next() (Tile, bool) {
	if it.finished {
		return Tile{}, false
	}
	tile := Tile{X: it.x, Y: it.y, Z: it.z}
	limit := it.limits[it.z-it.minZoom]
	switch {
	case it.y < limit.YMax:
		it.y++
	case it.x < limit.XMax:
		it.x++
		it.y = limit.YMin
	case it.z < it.maxZoom:
		it.z++
		next := it.limits[it.z-it.minZoom]
		it.x = next.XMin
		it.y = next.YMin
	default:
		it.finished = true
	}
	return tile, true
}
