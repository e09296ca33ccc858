package tms20

import (
	"fmt"
	"testing"

	"github.com/go-spatial/geom"

	"github.com/stretchr/testify/require"

	"github.com/pdok/tegel/hilbert"
	"github.com/pdok/tegel/mapslicehelp"
	"github.com/pdok/tegel/transform"
)

func mustLoadTms(t *testing.T, id string) *Tms {
	t.Helper()
	tileMatrixSet, err := LoadEmbeddedTileMatrixSet(id)
	require.NoError(t, err)
	tms, err := tileMatrixSet.Engine()
	require.NoError(t, err)
	return tms
}

func TestNewTms_IsQuadtree(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "CanadianNAD83_LCC", want: false},
		{id: "CDB1GlobalGrid", want: false},
		{id: "EuropeanETRS89_LAEAQuad", want: true},
		{id: "GNOSISGlobalGrid", want: false},
		{id: "LINZAntarticaMapTilegrid", want: false},
		{id: "NetherlandsRDNewQuad", want: true},
		{id: "NZTM2000Quad", want: true},
		{id: "UPSAntarcticWGS84Quad", want: true},
		{id: "UPSArcticWGS84Quad", want: true},
		{id: "UTM31WGS84Quad", want: false},
		{id: "WebMercatorQuad", want: true},
		{id: "WGS1984Quad", want: false},
		{id: "WorldCRS84Quad", want: false},
		{id: "WorldMercatorWGS84Quad", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tms := mustLoadTms(t, tt.id)
			require.Equal(t, tt.want, tms.IsQuadtree)
		})
	}
}

func TestTms_MinMaxZoom(t *testing.T) {
	tests := []struct {
		id      string
		minZoom TMID
		maxZoom TMID
	}{
		{id: "WebMercatorQuad", minZoom: 0, maxZoom: 24},
		{id: "WGS1984Quad", minZoom: 0, maxZoom: 24},
		{id: "NetherlandsRDNewQuad", minZoom: 0, maxZoom: 14},
		{id: "EuropeanETRS89_LAEAQuad", minZoom: 0, maxZoom: 16},
		{id: "CDB1GlobalGrid", minZoom: 0, maxZoom: 10},
		{id: "WorldMercatorWGS84Quad", minZoom: 0, maxZoom: 18},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tms := mustLoadTms(t, tt.id)
			require.Equal(t, tt.minZoom, tms.MinZoom())
			require.Equal(t, tt.maxZoom, tms.MaxZoom())
		})
	}
}

func TestTms_Matrices(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	matrices := tms.Matrices()
	require.Len(t, matrices, 25)
	require.Equal(t, "0", matrices[0].ID)
	require.Equal(t, "24", matrices[24].ID)
	require.Equal(t, uint(1), matrices[0].MatrixWidth)
	require.Equal(t, uint(1<<24), matrices[24].MatrixWidth)
	require.IsIncreasing(t, mapslicehelp.OrderedMapKeys(tms.matrices))
}

func TestTms_Matrix(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	stored := tms.Matrix(10)
	require.Equal(t, "10", stored.ID)
	require.Equal(t, 545978.7734655447, stored.ScaleDenominator)
	require.Equal(t, uint(1024), stored.MatrixWidth)
	require.Equal(t, uint(1024), stored.MatrixHeight)
}

func TestTms_Matrix_Extrapolated(t *testing.T) {
	type want struct {
		id    string
		scale float64
		cell  float64
		size  uint
	}
	tests := []struct {
		zoom TMID
		want
	}{
		{zoom: 25, want: want{id: "25", scale: 16.661949873826437, cell: 0.004665345964671402, size: 33554432}},
		{zoom: 26, want: want{id: "26", scale: 8.330974936913218, cell: 0.002332672982335701, size: 67108864}},
		{zoom: 27, want: want{id: "27", scale: 4.165487468456609, cell: 0.0011663364911678506, size: 134217728}},
		{zoom: 30, want: want{id: "30", scale: 0.5206859335570762, cell: 0.00014579206139598132, size: 1073741824}},
	}
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tt := range tests {
		t.Run(fmt.Sprintf("zoom %v", tt.zoom), func(t *testing.T) {
			matrix := tms.Matrix(tt.zoom)
			require.Equal(t, tt.id, matrix.ID)
			require.Equal(t, tt.scale, matrix.ScaleDenominator)
			require.Equal(t, tt.cell, matrix.CellSize)
			require.Equal(t, tt.size, matrix.MatrixWidth)
			require.Equal(t, tt.size, matrix.MatrixHeight)
			require.Equal(t, tms.Matrix(0).PointOfOrigin, matrix.PointOfOrigin)
		})
	}
}

func TestTms_Resolution(t *testing.T) {
	tests := []struct {
		id   string
		zoom TMID
		want float64
	}{
		{id: "WebMercatorQuad", zoom: 0, want: 156543.03392804097},
		{id: "WebMercatorQuad", zoom: 10, want: 152.8740565703525},
		{id: "WebMercatorQuad", zoom: 24, want: 0.009330691929342804},
		{id: "WGS1984Quad", zoom: 0, want: 0.703125},
		{id: "WGS1984Quad", zoom: 5, want: 0.02197265625},
		{id: "NetherlandsRDNewQuad", zoom: 0, want: 3440.64},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v zoom %v", tt.id, tt.zoom), func(t *testing.T) {
			tms := mustLoadTms(t, tt.id)
			require.Equal(t, tt.want, tms.Resolution(tms.Matrix(tt.zoom)))
		})
	}
}

func TestTms_ZoomForRes(t *testing.T) {
	res10 := 152.8740565703525
	type args struct {
		res      float64
		strategy ZoomLevelStrategy
		minZoom  TMID
		maxZoom  TMID
	}
	tests := []struct {
		name string
		args
		want    TMID
		wantErr bool
	}{
		{name: "exact lower", args: args{res10, Lower, 0, 24}, want: 10},
		{name: "exact upper", args: args{res10, Upper, 0, 24}, want: 10},
		{name: "exact auto", args: args{res10, Auto, 0, 24}, want: 10},
		{name: "between lower", args: args{7000, Lower, 0, 24}, want: 4},
		{name: "between upper", args: args{7000, Upper, 0, 24}, want: 5},
		{name: "between auto", args: args{7000, Auto, 0, 24}, want: 4},
		{name: "coarser than matrix 0", args: args{200000, Lower, 0, 24}, want: 0},
		{name: "coarser than matrix 0 upper", args: args{200000, Upper, 0, 24}, want: 0},
		{name: "finer than deepest lower", args: args{0.001, Lower, 0, 24}, want: 23},
		{name: "finer than deepest upper", args: args{0.001, Upper, 0, 24}, want: 24},
		{name: "finer than deepest auto", args: args{0.001, Auto, 0, 24}, want: 24},
		{name: "window floor", args: args{7000, Lower, 6, 24}, want: 6},
		{name: "unknown strategy", args: args{7000, "nearest", 0, 24}, wantErr: true},
	}
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zoom, err := tms.ZoomForRes(tt.res, tt.strategy, tt.minZoom, tt.maxZoom)
			if tt.wantErr {
				var strategyErr *InvalidZoomLevelStrategyError
				require.ErrorAs(t, err, &strategyErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, zoom)
		})
	}
}

func TestTms_Clone(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	clone, err := tms.Clone()
	require.NoError(t, err)
	require.NotSame(t, tms, clone)
	require.Equal(t, tms.Matrices(), clone.Matrices())
	require.Equal(t, tms.IsQuadtree, clone.IsQuadtree)
	require.Equal(t, tms.GeographicCRS(), clone.GeographicCRS())

	// the clone holds its own tile matrices
	delete(clone.TileMatrices, 24)
	require.Len(t, tms.TileMatrices, 25)
}

func TestTms_GeographicCRS(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	require.Equal(t, MustParseCRS(DefaultGeographicCRSURI), tms.GeographicCRS())
	srid, ok := transform.KnownSRID(tms.GeographicCRS())
	require.True(t, ok)
	require.Equal(t, 4326, srid)
}

func TestTms_XYBBox(t *testing.T) {
	tests := []struct {
		id   string
		want *geom.Extent
	}{
		{id: "WebMercatorQuad",
			want: &geom.Extent{-20037508.342789244, -20037508.342789244, 20037508.342789244, 20037508.342789244}},
		{id: "WGS1984Quad",
			want: &geom.Extent{-180, -90, 180, 90}},
		// stored with inverted axes, unswapped here
		{id: "EuropeanETRS89_LAEAQuad",
			want: &geom.Extent{2000000, 1000000, 6500000, 5500000}},
		{id: "NetherlandsRDNewQuad",
			want: &geom.Extent{-285401.92, 22598.08, 595401.92, 903401.92}},
		// has no bounding box, falls back to the extent of tile matrix 0
		{id: "LINZAntarticaMapTilegrid",
			want: &geom.Extent{-5817600, -7944960, 7944960, 5817600}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tms := mustLoadTms(t, tt.id)
			require.Equal(t, tt.want, tms.XYBBox())
		})
	}
}

func TestTms_BBox(t *testing.T) {
	t.Run("WebMercatorQuad", func(t *testing.T) {
		tms := mustLoadTms(t, "WebMercatorQuad")
		bbox, err := tms.BBox()
		require.NoError(t, err)
		require.InDelta(t, -180, bbox.MinX(), 1e-7)
		require.InDelta(t, -85.05112877980659, bbox.MinY(), 1e-7)
		require.InDelta(t, 180, bbox.MaxX(), 1e-7)
		require.InDelta(t, 85.05112877980659, bbox.MaxY(), 1e-7)
	})
	t.Run("WGS1984Quad", func(t *testing.T) {
		tms := mustLoadTms(t, "WGS1984Quad")
		bbox, err := tms.BBox()
		require.NoError(t, err)
		require.Equal(t, &geom.Extent{-180, -90, 180, 90}, bbox)
	})
	t.Run("NetherlandsRDNewQuad", func(t *testing.T) {
		tms := mustLoadTms(t, "NetherlandsRDNewQuad")
		_, err := tms.BBox()
		var unsupportedErr *transform.UnsupportedError
		require.ErrorAs(t, err, &unsupportedErr)
		require.Equal(t, "EPSG:28992", unsupportedErr.From)
		require.Equal(t, "OGC:CRS84", unsupportedErr.To)
	})
}

func TestTms_IntersectTMS(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	require.True(t, tms.IntersectTMS(&geom.Extent{0, 0, 1000, 1000}))
	require.True(t, tms.IntersectTMS(&geom.Extent{-30000000, -1000, 30000000, 1000}))
	require.False(t, tms.IntersectTMS(&geom.Extent{20137508, 0, 20200000, 1000}))
	// bounds that merely touch do not intersect
	require.False(t, tms.IntersectTMS(&geom.Extent{20037508.342789244, 0, 20200000, 1000}))
}

func TestTms_MinMax(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")
	require.Equal(t, MinMax{XMin: 0, XMax: 0, YMin: 0, YMax: 0}, tms.MinMax(0))
	require.Equal(t, MinMax{XMin: 0, XMax: 1023, YMin: 0, YMax: 1023}, tms.MinMax(10))

	gnosis := mustLoadTms(t, "GNOSISGlobalGrid")
	require.Equal(t, MinMax{XMin: 0, XMax: 3, YMin: 0, YMax: 1}, gnosis.MinMax(0))
}

func TestTms_IsValid(t *testing.T) {
	tests := []struct {
		tile Tile
		want bool
	}{
		{tile: Tile{X: 0, Y: 0, Z: 0}, want: true},
		{tile: Tile{X: 1, Y: 0, Z: 0}, want: false},
		{tile: Tile{X: 486, Y: 332, Z: 10}, want: true},
		{tile: Tile{X: -1, Y: 332, Z: 10}, want: false},
		{tile: Tile{X: 486, Y: 1024, Z: 10}, want: false},
		// beyond the deepest tile matrix an extrapolated one is used
		{tile: Tile{X: 0, Y: 0, Z: 25}, want: true},
	}
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tt := range tests {
		t.Run(tt.tile.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tms.IsValid(tt.tile))
		})
	}
}

func TestTms_HilbertID(t *testing.T) {
	tests := []struct {
		tile Tile
		id   hilbert.ID
		ok   bool
	}{
		{tile: Tile{X: 0, Y: 0, Z: 0}, id: 0, ok: true},
		{tile: Tile{X: 0, Y: 0, Z: 1}, id: 1, ok: true},
		{tile: Tile{X: 0, Y: 1, Z: 1}, id: 2, ok: true},
		{tile: Tile{X: 1, Y: 1, Z: 1}, id: 3, ok: true},
		{tile: Tile{X: 1, Y: 0, Z: 1}, id: 4, ok: true},
		{tile: Tile{X: 486, Y: 332, Z: 10}, id: 506307, ok: true},
		{tile: Tile{X: 3413, Y: 6202, Z: 14}, id: 143034930, ok: true},
		{tile: Tile{X: -1, Y: 0, Z: 1}, ok: false},
		{tile: Tile{X: 2, Y: 0, Z: 1}, ok: false},
		// curve stops at the deepest tile matrix
		{tile: Tile{X: 0, Y: 0, Z: 25}, ok: false},
	}
	tms := mustLoadTms(t, "WebMercatorQuad")
	for _, tt := range tests {
		t.Run(tt.tile.String(), func(t *testing.T) {
			id, ok := tms.HilbertID(tt.tile)
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.id, id)
			}
		})
	}

	t.Run("no quadtree", func(t *testing.T) {
		tms := mustLoadTms(t, "WGS1984Quad")
		_, ok := tms.HilbertID(Tile{X: 0, Y: 0, Z: 1})
		require.False(t, ok)
	})
}

func TestTms_HilbertToTile(t *testing.T) {
	tms := mustLoadTms(t, "WebMercatorQuad")

	tile, ok := tms.HilbertToTile(0)
	require.True(t, ok)
	require.Equal(t, Tile{X: 0, Y: 0, Z: 0}, tile)

	tile, ok = tms.HilbertToTile(97)
	require.True(t, ok)
	require.Equal(t, Tile{X: 3, Y: 1, Z: 4}, tile)

	tile, ok = tms.HilbertToTile(506307)
	require.True(t, ok)
	require.Equal(t, Tile{X: 486, Y: 332, Z: 10}, tile)

	// first id of level 25, beyond the deepest tile matrix
	_, ok = tms.HilbertToTile(375299968947541)
	require.False(t, ok)

	t.Run("no quadtree", func(t *testing.T) {
		tms := mustLoadTms(t, "WGS1984Quad")
		_, ok := tms.HilbertToTile(1)
		require.False(t, ok)
	})
}

func TestTms_HilbertRoundTrip(t *testing.T) {
	tms := mustLoadTms(t, "NetherlandsRDNewQuad")
	for _, tile := range []Tile{{0, 0, 0}, {1, 1, 1}, {3, 2, 2}, {100, 200, 8}} {
		id, ok := tms.HilbertID(tile)
		require.True(t, ok)
		back, ok := tms.HilbertToTile(id)
		require.True(t, ok)
		require.Equal(t, tile, back)
	}
}
