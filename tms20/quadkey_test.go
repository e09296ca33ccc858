package tms20

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTms_Quadkey(t *testing.T) {
	tests := []struct {
		id   string
		tile Tile
		want string
	}{
		{id: "WebMercatorQuad", tile: Tile{X: 0, Y: 0, Z: 0}, want: ""},
		{id: "WebMercatorQuad", tile: Tile{X: 1, Y: 1, Z: 1}, want: "3"},
		{id: "WebMercatorQuad", tile: Tile{X: 11, Y: 3, Z: 8}, want: "00001033"},
		{id: "WebMercatorQuad", tile: Tile{X: 486, Y: 332, Z: 10}, want: "0313102310"},
		{id: "NetherlandsRDNewQuad", tile: Tile{X: 1, Y: 1, Z: 1}, want: "3"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v %v", tt.id, tt.tile), func(t *testing.T) {
			tms := mustLoadTms(t, tt.id)
			qk, err := tms.Quadkey(tt.tile)
			require.NoError(t, err)
			require.Equal(t, tt.want, qk)
		})
	}

	t.Run("no quadtree", func(t *testing.T) {
		tms := mustLoadTms(t, "WGS1984Quad")
		_, err := tms.Quadkey(Tile{X: 0, Y: 0, Z: 1})
		require.ErrorIs(t, err, ErrNoQuadkeySupport)
	})
}

func TestTms_QuadkeyToTile(t *testing.T) {
	tests := []struct {
		qk   string
		want Tile
	}{
		{qk: "", want: Tile{X: 0, Y: 0, Z: 0}},
		{qk: "3", want: Tile{X: 1, Y: 1, Z: 1}},
		{qk: "00001033", want: Tile{X: 11, Y: 3, Z: 8}},
		{qk: "0313102310", want: Tile{X: 486, Y: 332, Z: 10}},
	}
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.qk), func(t *testing.T) {
			tile, err := tms.QuadkeyToTile(tt.qk)
			require.NoError(t, err)
			require.Equal(t, tt.want, tile)
		})
	}

	t.Run("unexpected digit", func(t *testing.T) {
		_, err := tms.QuadkeyToTile("0341")
		var quadkeyErr *QuadkeyError
		require.ErrorAs(t, err, &quadkeyErr)
		require.Equal(t, byte('4'), quadkeyErr.Digit)
	})

	t.Run("no quadtree", func(t *testing.T) {
		wq := mustLoadTms(t, "WGS1984Quad")
		_, err := wq.QuadkeyToTile("03")
		require.ErrorIs(t, err, ErrNoQuadkeySupport)
	})
}

func TestTms_QuadkeyRoundTrip(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tile := range []Tile{{0, 0, 0}, {1, 0, 1}, {5, 9, 4}, {486, 332, 10}, {16383, 0, 14}} {
		qk, err := tms.Quadkey(tile)
		require.NoError(t, err)
		back, err := tms.QuadkeyToTile(qk)
		require.NoError(t, err)
		require.Equal(t, tile, back)
	}
}
