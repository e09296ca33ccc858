package tms20

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTms_Tiles(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	t.Run("world at level 0", func(t *testing.T) {
		tiles, err := tms.Tiles(-180, -85, 180, 85, []TMID{0}, false)
		require.NoError(t, err)
		require.Equal(t, []Tile{{X: 0, Y: 0, Z: 0}}, tiles)
	})

	t.Run("poles are clipped to the bounds", func(t *testing.T) {
		tiles, err := tms.Tiles(-180, -90, 180, 90, []TMID{0}, false)
		require.NoError(t, err)
		require.Contains(t, tiles, Tile{X: 0, Y: 0, Z: 0})
	})

	t.Run("small bbox", func(t *testing.T) {
		tiles, err := tms.Tiles(-105, 39.99, -104.99, 40, []TMID{14}, false)
		require.NoError(t, err)
		require.Equal(t, []Tile{
			{X: 3413, Y: 6202, Z: 14},
			{X: 3413, Y: 6203, Z: 14},
		}, tiles)
	})

	t.Run("multiple levels", func(t *testing.T) {
		tiles, err := tms.Tiles(-180, -85, 180, 85, []TMID{0, 1}, false)
		require.NoError(t, err)
		require.Equal(t, []Tile{
			{X: 0, Y: 0, Z: 0},
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 1, Z: 1},
			{X: 1, Y: 0, Z: 1},
			{X: 1, Y: 1, Z: 1},
		}, tiles)
	})

	t.Run("crossing the antimeridian", func(t *testing.T) {
		tiles, err := tms.Tiles(175, 5, -175, 10, []TMID{2}, false)
		require.NoError(t, err)
		require.Equal(t, []Tile{
			{X: 0, Y: 1, Z: 2},
			{X: 3, Y: 1, Z: 2},
		}, tiles)
	})

	t.Run("truncated oversized bbox", func(t *testing.T) {
		tiles, err := tms.Tiles(-200, -95, 200, 95, []TMID{1}, true)
		require.NoError(t, err)
		require.Equal(t, []Tile{
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 1, Z: 1},
			{X: 1, Y: 0, Z: 1},
			{X: 1, Y: 1, Z: 1},
		}, tiles)
	})

	t.Run("no geographic transformation", func(t *testing.T) {
		rd := mustLoadTms(t, "NetherlandsRDNewQuad")
		_, err := rd.Tiles(5.5, 51.5, 6, 52, []TMID{5}, false)
		require.Error(t, err)
	})
}

func TestTms_Neighbors(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	t.Run("all around", func(t *testing.T) {
		require.Equal(t, []Tile{
			{X: 242, Y: 165, Z: 9},
			{X: 242, Y: 166, Z: 9},
			{X: 242, Y: 167, Z: 9},
			{X: 243, Y: 165, Z: 9},
			{X: 243, Y: 167, Z: 9},
			{X: 244, Y: 165, Z: 9},
			{X: 244, Y: 166, Z: 9},
			{X: 244, Y: 167, Z: 9},
		}, tms.Neighbors(Tile{X: 243, Y: 166, Z: 9}))
	})

	t.Run("corner", func(t *testing.T) {
		require.Equal(t, []Tile{
			{X: 0, Y: 1, Z: 2},
			{X: 1, Y: 0, Z: 2},
			{X: 1, Y: 1, Z: 2},
		}, tms.Neighbors(Tile{X: 0, Y: 0, Z: 2}))
	})

	t.Run("level 0 has none", func(t *testing.T) {
		require.Empty(t, tms.Neighbors(Tile{X: 0, Y: 0, Z: 0}))
	})
}

func TestTms_Parent(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	t.Run("one level up", func(t *testing.T) {
		parents, err := tms.Parent(Tile{X: 486, Y: 332, Z: 10})
		require.NoError(t, err)
		require.Equal(t, []Tile{{X: 243, Y: 166, Z: 9}}, parents)
	})

	t.Run("explicit level", func(t *testing.T) {
		parents, err := tms.Parent(Tile{X: 486, Y: 332, Z: 10}, 8)
		require.NoError(t, err)
		require.Equal(t, []Tile{{X: 121, Y: 83, Z: 8}}, parents)
	})

	t.Run("root has no parent", func(t *testing.T) {
		parents, err := tms.Parent(Tile{X: 0, Y: 0, Z: 0})
		require.NoError(t, err)
		require.Nil(t, parents)
	})

	t.Run("level below the tile", func(t *testing.T) {
		_, err := tms.Parent(Tile{X: 486, Y: 332, Z: 10}, 10)
		var zoomErr *InvalidZoomError
		require.ErrorAs(t, err, &zoomErr)
		require.Equal(t, TMID(10), zoomErr.Zoom)
	})
}

func TestTms_Children(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	t.Run("one level down", func(t *testing.T) {
		children, err := tms.Children(Tile{X: 243, Y: 166, Z: 9})
		require.NoError(t, err)
		require.Equal(t, []Tile{
			{X: 486, Y: 332, Z: 10},
			{X: 486, Y: 333, Z: 10},
			{X: 487, Y: 332, Z: 10},
			{X: 487, Y: 333, Z: 10},
		}, children)
	})

	t.Run("explicit level", func(t *testing.T) {
		children, err := tms.Children(Tile{X: 243, Y: 166, Z: 9}, 11)
		require.NoError(t, err)
		require.Len(t, children, 16)
		require.Equal(t, Tile{X: 972, Y: 664, Z: 11}, children[0])
		require.Equal(t, Tile{X: 975, Y: 667, Z: 11}, children[15])
	})

	t.Run("level above the tile", func(t *testing.T) {
		_, err := tms.Children(Tile{X: 243, Y: 166, Z: 9}, 8)
		var zoomErr *InvalidZoomError
		require.ErrorAs(t, err, &zoomErr)
	})
}
