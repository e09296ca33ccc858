package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"

	"github.com/pdok/tegel/geomhelp"
	"github.com/pdok/tegel/tms20"
	"github.com/pdok/tegel/transform"

	"github.com/iancoleman/strcase"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const CONFIG string = `config`
const TILEMATRIXSET string = `tilematrixset`
const POSITION string = `position`
const ZOOM string = `zoom`
const RESOLUTION string = `resolution`
const QUADKEY string = `quadkey`
const HILBERT string = `hilbert`
const BBOX string = `bbox`
const TILEMATRICES string = `tilematrices`
const TRUNCATE string = `truncate`
const WKT string = `wkt`
const JSON string = `json`
const TARGET string = `targetGpkg`
const TABLE string = `table`
const OVERWRITE string = `overwrite`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "tegel"
	app.Usage = "A Golang OGC Tile Matrix Set toolbox"
	app.Version = versioninfo.Short()
	app.Description = wordwrap.String(
		`Tegel works with tile matrix sets following the OGC Tile Matrix Set standard: `+
			`listing and describing the built-in and custom sets, mapping between coordinates and tiles, `+
			`enumerating the tiles covering a bounding box and exporting the structure of a set to a GeoPackage.`, 80)

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     CONFIG,
			Aliases:  []string{"c"},
			Usage:    "TOML config file with the default tile matrix set, extra tile matrix set definitions and logging options",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(CONFIG)},
		},
	}
	app.Before = func(c *cli.Context) error {
		return initConfig(c.String(CONFIG))
	}

	app.Commands = []*cli.Command{
		{
			Name:   "list",
			Usage:  "List the registered tile matrix sets",
			Action: listAction,
		},
		{
			Name:  "describe",
			Usage: "Describe a tile matrix set and its tile matrices",
			Flags: []cli.Flag{
				tileMatrixSetFlag(),
				&cli.BoolFlag{
					Name:    JSON,
					Usage:   "Output the tile matrix set definition as JSON",
					EnvVars: []string{strcase.ToScreamingSnake(JSON)},
				},
			},
			Action: describeAction,
		},
		{
			Name:  "tile",
			Usage: "Show the tile for a position, quadkey or hilbert id",
			Flags: []cli.Flag{
				tileMatrixSetFlag(),
				&cli.StringFlag{
					Name:    POSITION,
					Aliases: []string{"p"},
					Usage:   `Geographic position. E.g.: 5.9,51.9`,
					EnvVars: []string{strcase.ToScreamingSnake(POSITION)},
				},
				&cli.IntFlag{
					Name:    ZOOM,
					Aliases: []string{"z"},
					Usage:   "ID (usually the same as the zoom level) of the tile matrix to map the position to",
					EnvVars: []string{strcase.ToScreamingSnake(ZOOM)},
				},
				&cli.Float64Flag{
					Name:    RESOLUTION,
					Aliases: []string{"r"},
					Usage:   "Pick the tile matrix by resolution instead of by zoom level, using the configured zoom level strategy",
					EnvVars: []string{strcase.ToScreamingSnake(RESOLUTION)},
				},
				&cli.StringFlag{
					Name:    QUADKEY,
					Aliases: []string{"q"},
					Usage:   `Quadkey of the tile. E.g.: 0313102310`,
					EnvVars: []string{strcase.ToScreamingSnake(QUADKEY)},
				},
				&cli.Uint64Flag{
					Name:    HILBERT,
					Usage:   "Hilbert id of the tile",
					EnvVars: []string{strcase.ToScreamingSnake(HILBERT)},
				},
				truncateFlag(),
				wktFlag(),
			},
			Action: tileAction,
		},
		{
			Name:  "tiles",
			Usage: "List the tiles covering a bounding box",
			Flags: []cli.Flag{
				tileMatrixSetFlag(),
				&cli.StringFlag{
					Name:     BBOX,
					Aliases:  []string{"b"},
					Usage:    `Geographic bounding box: west,south,east,north. E.g.: 5.0,52.0,6.0,53.0`,
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(BBOX)},
				},
				tileMatricesFlag(true),
				truncateFlag(),
				wktFlag(),
			},
			Action: tilesAction,
		},
		{
			Name:  "export-gpkg",
			Usage: "Export the structure of a tile matrix set to a GeoPackage with an (empty) tile pyramid",
			Flags: []cli.Flag{
				tileMatrixSetFlag(),
				&cli.StringFlag{
					Name:     TARGET,
					Aliases:  []string{"t"},
					Usage:    "Target GPKG",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(TARGET)},
				},
				&cli.StringFlag{
					Name:    TABLE,
					Usage:   "Name of the tile pyramid table in the target GPKG",
					Value:   "tiles",
					EnvVars: []string{strcase.ToScreamingSnake(TABLE)},
				},
				tileMatricesFlag(false),
				&cli.BoolFlag{
					Name:    OVERWRITE,
					Aliases: []string{"o"},
					Usage:   "Overwrite the target GPKG if it exists",
					EnvVars: []string{strcase.ToScreamingSnake(OVERWRITE)},
				},
			},
			Action: exportGpkgAction,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func tileMatrixSetFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    TILEMATRIXSET,
		Aliases: []string{"tms"},
		Usage:   `ID of a (built-in) tile matrix set. E.g.: NetherlandsRDNewQuad`,
		EnvVars: []string{strcase.ToScreamingSnake(TILEMATRIXSET)},
	}
}

func tileMatricesFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     TILEMATRICES,
		Aliases:  []string{"z"},
		Usage:    `IDs (usually the same as the zoom levels) of the tile matrices to use. JSON array of integers. E.g.: [4,5,6,7,8]`,
		Required: required,
		EnvVars:  []string{strcase.ToScreamingSnake(TILEMATRICES)},
	}
}

func truncateFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    TRUNCATE,
		Usage:   "Move positions outside the bounds of the tile matrix set onto the nearest edge first",
		EnvVars: []string{strcase.ToScreamingSnake(TRUNCATE)},
	}
}

func wktFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    WKT,
		Usage:   "Output tile bounds as WKT",
		EnvVars: []string{strcase.ToScreamingSnake(WKT)},
	}
}

func listAction(c *cli.Context) error {
	for _, id := range registry.List() {
		tms, ok := registry.Lookup(id)
		if !ok {
			continue
		}
		fmt.Printf("%v\t%v\n", id, truncate.StringWithTail(tms.Title, 60, "..."))
	}
	return nil
}

func describeAction(c *cli.Context) error {
	tms, err := loadTileMatrixSet(c)
	if err != nil {
		return err
	}
	if c.Bool(JSON) {
		definition, err := json.MarshalIndent(&tms.TileMatrixSet, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(definition))
		return nil
	}

	fmt.Printf("id:\t%v\n", tms.ID)
	if tms.Title != "" {
		fmt.Printf("title:\t%v\n", tms.Title)
	}
	fmt.Printf("crs:\t%v\n", transform.Format(tms.CRS))
	fmt.Printf("zoom levels:\t%v-%v\n", tms.MinZoom(), tms.MaxZoom())
	fmt.Printf("quadtree:\t%v\n", tms.IsQuadtree)
	bounds := tms.XYBBox()
	fmt.Printf("bounds:\t%v %v %v %v\n", bounds.MinX(), bounds.MinY(), bounds.MaxX(), bounds.MaxY())
	if geographicBounds, err := tms.BBox(); err == nil {
		fmt.Printf("bounds (geographic):\t%v %v %v %v\n",
			geographicBounds.MinX(), geographicBounds.MinY(), geographicBounds.MaxX(), geographicBounds.MaxY())
	}
	fmt.Println()
	fmt.Println("zoom\tscale denominator\tresolution\tmatrix\ttile")
	for _, matrix := range tms.Matrices() {
		fmt.Printf("%v\t%v\t%v\t%vx%v\t%vx%v\n",
			matrix.ID, matrix.ScaleDenominator, tms.Resolution(matrix),
			matrix.MatrixWidth, matrix.MatrixHeight, matrix.TileWidth, matrix.TileHeight)
	}
	return nil
}

func tileAction(c *cli.Context) error {
	tms, err := loadTileMatrixSet(c)
	if err != nil {
		return err
	}
	var tile tms20.Tile
	switch {
	case c.IsSet(QUADKEY):
		tile, err = tms.QuadkeyToTile(c.String(QUADKEY))
		if err != nil {
			return err
		}
	case c.IsSet(HILBERT):
		var ok bool
		tile, ok = tms.HilbertToTile(c.Uint64(HILBERT))
		if !ok {
			return fmt.Errorf(`no tile in %v has hilbert id %v`, tms.ID, c.Uint64(HILBERT))
		}
	case c.IsSet(POSITION):
		lng, lat, err := parsePosition(c.String(POSITION))
		if err != nil {
			return err
		}
		zoom := tms20.TMID(c.Int(ZOOM))
		if c.IsSet(RESOLUTION) {
			zoom, err = tms.ZoomForRes(c.Float64(RESOLUTION), zoomLevelStrategy(), tms.MinZoom(), tms.MaxZoom())
			if err != nil {
				return err
			}
		}
		if c.Bool(TRUNCATE) {
			tile, err = tms.TileTruncated(lng, lat, zoom)
		} else {
			tile, err = tms.Tile(lng, lat, zoom)
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf(`a position, quadkey or hilbert id is required`)
	}
	printTile(tms, tile, c.Bool(WKT))
	return nil
}

func printTile(tms *tms20.Tms, tile tms20.Tile, asWkt bool) {
	fmt.Printf("tile:\t%v\n", tile)
	bounds := tms.XYBounds(tile)
	if asWkt {
		fmt.Printf("bounds:\t%v\n", geomhelp.WktMustEncode(*bounds, 0))
	} else {
		fmt.Printf("bounds:\t%v %v %v %v\n", bounds.MinX(), bounds.MinY(), bounds.MaxX(), bounds.MaxY())
	}
	if geographicBounds, err := tms.Bounds(tile); err == nil {
		fmt.Printf("bounds (geographic):\t%v %v %v %v\n",
			geographicBounds.MinX(), geographicBounds.MinY(), geographicBounds.MaxX(), geographicBounds.MaxY())
	}
	if quadkey, err := tms.Quadkey(tile); err == nil {
		fmt.Printf("quadkey:\t%v\n", quadkey)
	}
	if hilbertID, ok := tms.HilbertID(tile); ok {
		fmt.Printf("hilbert id:\t%v\n", hilbertID)
	}
}

func tilesAction(c *cli.Context) error {
	tms, err := loadTileMatrixSet(c)
	if err != nil {
		return err
	}
	bbox, err := parseBBox(c.String(BBOX))
	if err != nil {
		return err
	}
	tileMatrixIDs, err := parseTileMatrixIDs(c.String(TILEMATRICES))
	if err != nil {
		return err
	}
	tiles, err := tms.Tiles(bbox[0], bbox[1], bbox[2], bbox[3], tileMatrixIDs, c.Bool(TRUNCATE))
	if err != nil {
		return err
	}
	for _, tile := range tiles {
		if c.Bool(WKT) {
			fmt.Printf("%v\t%v\n", tile, geomhelp.WktMustEncode(*tms.XYBounds(tile), 0))
		} else {
			fmt.Println(tile)
		}
	}
	return nil
}

func exportGpkgAction(c *cli.Context) error {
	tms, err := loadTileMatrixSet(c)
	if err != nil {
		return err
	}
	tileMatrixIDs := make([]tms20.TMID, 0, tms.MaxZoom()-tms.MinZoom()+1)
	for tmID := tms.MinZoom(); tmID <= tms.MaxZoom(); tmID++ {
		tileMatrixIDs = append(tileMatrixIDs, tmID)
	}
	if c.IsSet(TILEMATRICES) {
		tileMatrixIDs, err = parseTileMatrixIDs(c.String(TILEMATRICES))
		if err != nil {
			return err
		}
	}
	targetPath := c.String(TARGET)
	if c.Bool(OVERWRITE) {
		err = os.Remove(targetPath)
		var pathError *os.PathError
		if err != nil && !(errors.As(err, &pathError) && errors.Is(pathError.Err, syscall.ENOENT)) {
			return fmt.Errorf("could not remove target file: %w", err)
		}
	}
	return exportGeopackage(tms, c.String(TABLE), tileMatrixIDs, targetPath)
}

// loadTileMatrixSet takes the tile matrix set from the registry, falling back
// to the configured default when the flag was not given.
func loadTileMatrixSet(c *cli.Context) (*tms20.Tms, error) {
	id := c.String(TILEMATRIXSET)
	if id == "" {
		id = defaultTileMatrixSet()
	}
	return registry.Get(id)
}

func parsePosition(position string) (lng, lat float64, err error) {
	parts := strings.Split(position, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf(`invalid position %v, expected lng,lat`, position)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lng, lat, nil
}

func parseBBox(bbox string) ([4]float64, error) {
	var parsed [4]float64
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return parsed, fmt.Errorf(`invalid bounding box %v, expected west,south,east,north`, bbox)
	}
	for i := range parts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return parsed, err
		}
		parsed[i] = coord
	}
	return parsed, nil
}

func parseTileMatrixIDs(tileMatrices string) ([]tms20.TMID, error) {
	var tileMatrixIDs []tms20.TMID
	err := json.Unmarshal([]byte(tileMatrices), &tileMatrixIDs)
	if err != nil {
		return nil, fmt.Errorf(`invalid tile matrices %v, expected a JSON array of integers: %w`, tileMatrices, err)
	}
	return tileMatrixIDs, nil
}
