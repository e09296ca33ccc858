package tms20

import "fmt"

// TMID is a tile matrix identifier (AKA zoom level) parsed as an int.
// The Tile Matrix Set standard allows any string, but requiring integer-like
// identifiers keeps ordering and parent/child arithmetic simple.
type TMID = int

// Tile addresses a single tile: column X and row Y in the tile matrix with identifier Z.
type Tile struct {
	X int
	Y int
	Z TMID
}

func (t Tile) String() string {
	return fmt.Sprintf("%v/%v/%v", t.Z, t.X, t.Y)
}

// MinMax is an inclusive range of tile columns and rows within one tile matrix.
type MinMax struct {
	XMin int
	XMax int
	YMin int
	YMax int
}
