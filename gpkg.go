package main

import (
	"fmt"
	"time"

	"github.com/go-spatial/geom/encoding/gpkg"
	log "github.com/sirupsen/logrus"

	"github.com/pdok/tegel/tms20"
	"github.com/pdok/tegel/transform"
)

const createTilesTableSQL = `
CREATE TABLE IF NOT EXISTS "%v"
(id          INTEGER PRIMARY KEY AUTOINCREMENT,
 zoom_level  INTEGER NOT NULL,
 tile_column INTEGER NOT NULL,
 tile_row    INTEGER NOT NULL,
 tile_data   BLOB    NOT NULL,
 UNIQUE (zoom_level, tile_column, tile_row));`

const createTileMatrixSetTableSQL = `
CREATE TABLE IF NOT EXISTS gpkg_tile_matrix_set
(table_name TEXT    NOT NULL PRIMARY KEY,
 srs_id     INTEGER NOT NULL,
 min_x      DOUBLE  NOT NULL,
 min_y      DOUBLE  NOT NULL,
 max_x      DOUBLE  NOT NULL,
 max_y      DOUBLE  NOT NULL,
 CONSTRAINT fk_gtms_table_name FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
 CONSTRAINT fk_gtms_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id));`

const createTileMatrixTableSQL = `
CREATE TABLE IF NOT EXISTS gpkg_tile_matrix
(table_name    TEXT    NOT NULL,
 zoom_level    INTEGER NOT NULL,
 matrix_width  INTEGER NOT NULL,
 matrix_height INTEGER NOT NULL,
 tile_width    INTEGER NOT NULL,
 tile_height   INTEGER NOT NULL,
 pixel_x_size  DOUBLE  NOT NULL,
 pixel_y_size  DOUBLE  NOT NULL,
 CONSTRAINT pk_ttm PRIMARY KEY (table_name, zoom_level),
 CONSTRAINT fk_tmm_table_name FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name));`

const insertContentsSQL = `
INSERT INTO gpkg_contents(table_name, data_type, identifier, description, last_change, min_x, min_y, max_x, max_y, srs_id)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(table_name) DO NOTHING;`

const insertTileMatrixSetSQL = `
INSERT INTO gpkg_tile_matrix_set(table_name, srs_id, min_x, min_y, max_x, max_y)
VALUES (?,?,?,?,?,?)
ON CONFLICT(table_name) DO NOTHING;`

const insertTileMatrixSQL = `
INSERT INTO gpkg_tile_matrix(table_name, zoom_level, matrix_width, matrix_height, tile_width, tile_height, pixel_x_size, pixel_y_size)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(table_name, zoom_level) DO NOTHING;`

// exportGeopackage writes the structure of the tile matrix set to a
// GeoPackage: the spatial reference system, an empty tile pyramid table and
// a tile matrix row for every given tile matrix ID.
func exportGeopackage(tms *tms20.Tms, table string, tileMatrixIDs []tms20.TMID, path string) error {
	handle, err := gpkg.Open(path)
	if err != nil {
		return fmt.Errorf("error opening target GeoPackage: %w", err)
	}
	defer handle.Close()

	srs, err := spatialReferenceSystem(tms)
	if err != nil {
		return err
	}
	if err = handle.UpdateSRS(srs); err != nil {
		return fmt.Errorf("error writing the spatial reference system: %w", err)
	}
	for _, ddl := range []string{
		createTileMatrixSetTableSQL,
		createTileMatrixTableSQL,
		fmt.Sprintf(createTilesTableSQL, table),
	} {
		if _, err = handle.Exec(ddl); err != nil {
			return fmt.Errorf("error building table in target GeoPackage: %w", err)
		}
	}

	bounds := tms.XYBBox()
	tx, err := handle.Begin()
	if err != nil {
		return fmt.Errorf("could not start a transaction: %w", err)
	}
	_, err = tx.Exec(insertContentsSQL, table, "tiles", tms.ID, tms.Title, time.Now(),
		bounds.MinX(), bounds.MinY(), bounds.MaxX(), bounds.MaxY(), srs.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	_, err = tx.Exec(insertTileMatrixSetSQL, table, srs.ID,
		bounds.MinX(), bounds.MinY(), bounds.MaxX(), bounds.MaxY())
	if err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(insertTileMatrixSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("could not prepare a statement: %w", err)
	}
	for _, tmID := range tileMatrixIDs {
		matrix := tms.Matrix(tmID)
		resolution := tms.Resolution(matrix)
		_, err = stmt.Exec(table, tmID, int64(matrix.MatrixWidth), int64(matrix.MatrixHeight),
			int64(matrix.TileWidth), int64(matrix.TileHeight), resolution, resolution)
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("could not write the tile matrix with ID %v: %w", tmID, err)
		}
	}
	stmt.Close()
	if err = tx.Commit(); err != nil {
		return err
	}

	log.Infof("exported %v tile matrices of %v to %v", len(tileMatrixIDs), tms.ID, path)
	return nil
}

// spatialReferenceSystem builds the gpkg_spatial_ref_sys row for the CRS of
// the tile matrix set, with a well-known WKT definition where available.
func spatialReferenceSystem(tms *tms20.Tms) (gpkg.SpatialReferenceSystem, error) {
	srid, ok := transform.KnownSRID(tms.CRS)
	if !ok {
		return gpkg.SpatialReferenceSystem{}, fmt.Errorf(
			`cannot export %v, the CRS %v has no numeric srid`, tms.ID, transform.Format(tms.CRS))
	}
	if srs, ok := wellKnownSpatialReferenceSystems[srid]; ok {
		return srs, nil
	}
	return gpkg.SpatialReferenceSystem{
		Name:                   transform.Format(tms.CRS),
		ID:                     srid,
		Organization:           tms.CRS.AuthorityName(),
		OrganizationCoordsysID: srid,
		Definition:             "undefined",
		Description:            tms.CRS.Description(),
	}, nil
}

var wellKnownSpatialReferenceSystems = map[int]gpkg.SpatialReferenceSystem{
	3857: {Name: "WGS 84 / Pseudo-Mercator", ID: 3857, Organization: "EPSG", OrganizationCoordsysID: 3857, Definition: `
	PROJCS["WGS 84 / Pseudo-Mercator",
    GEOGCS["WGS 84",
        DATUM["WGS_1984",
            SPHEROID["WGS 84",6378137,298.257223563,
                AUTHORITY["EPSG","7030"]],
            AUTHORITY["EPSG","6326"]],
        PRIMEM["Greenwich",0,
            AUTHORITY["EPSG","8901"]],
        UNIT["degree",0.0174532925199433,
            AUTHORITY["EPSG","9122"]],
        AUTHORITY["EPSG","4326"]],
    PROJECTION["Mercator_1SP"],
    PARAMETER["central_meridian",0],
    PARAMETER["scale_factor",1],
    PARAMETER["false_easting",0],
    PARAMETER["false_northing",0],
    UNIT["metre",1,
        AUTHORITY["EPSG","9001"]],
    AXIS["X",EAST],
    AXIS["Y",NORTH],
    AUTHORITY["EPSG","3857"]]
	`},
	4326: {Name: "WGS 84", ID: 4326, Organization: "EPSG", OrganizationCoordsysID: 4326, Definition: `
	GEOGCS["WGS 84",
    DATUM["WGS_1984",
        SPHEROID["WGS 84",6378137,298.257223563,
            AUTHORITY["EPSG","7030"]],
        AUTHORITY["EPSG","6326"]],
    PRIMEM["Greenwich",0,
        AUTHORITY["EPSG","8901"]],
    UNIT["degree",0.0174532925199433,
        AUTHORITY["EPSG","9122"]],
    AUTHORITY["EPSG","4326"]]
	`},
	28992: {Name: "Amersfoort / RD New", ID: 28992, Organization: "EPSG", OrganizationCoordsysID: 28992, Definition: `
	PROJCS["Amersfoort / RD New",
    GEOGCS["Amersfoort",
        DATUM["Amersfoort",
            SPHEROID["Bessel 1841",6377397.155,299.1528128,
                AUTHORITY["EPSG","7004"]],
            AUTHORITY["EPSG","6289"]],
        PRIMEM["Greenwich",0,
            AUTHORITY["EPSG","8901"]],
        UNIT["degree",0.0174532925199433,
            AUTHORITY["EPSG","9122"]],
        AUTHORITY["EPSG","4289"]],
    PROJECTION["Oblique_Stereographic"],
    PARAMETER["latitude_of_origin",52.15616055555555],
    PARAMETER["central_meridian",5.38763888888889],
    PARAMETER["scale_factor",0.9999079],
    PARAMETER["false_easting",155000],
    PARAMETER["false_northing",463000],
    UNIT["metre",1,
        AUTHORITY["EPSG","9001"]],
    AXIS["X",EAST],
    AXIS["Y",NORTH],
    AUTHORITY["EPSG","28992"]]
	`},
}
