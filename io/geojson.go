package io

import (
	"io"
	"os"
	"time"

	"sdb/streets"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
)

// WriteDatabaseAsGeoJsonFile writes the whole database (streets, POIs and
// features) to the given GeoJSON file.
func WriteDatabaseAsGeoJsonFile(db *streets.Database, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for GeoJSON file %s", filename))
	}()

	return WriteDatabaseAsGeoJson(db, file)
}

// WriteDatabaseAsGeoJson writes each street as a MultiLineString of its
// member segments, each POI as a point and each feature as a line string
// of its boundary, with names and kinds as properties.
func WriteDatabaseAsGeoJson(db *streets.Database, writer io.Writer) error {
	sigolo.Info("Write database to GeoJSON")
	writeStartTime := time.Now()

	featureCollection := geojson.NewFeatureCollection()

	streetCount, err := db.StreetCount()
	if err != nil {
		return err
	}
	for i := 0; i < streetCount; i++ {
		geometry, err := streetGeometry(db, i)
		if err != nil {
			return err
		}

		name, err := db.StreetName(i)
		if err != nil {
			return err
		}

		f := geojson.NewFeature(geometry)
		f.Properties["street"] = i
		f.Properties["name"] = name
		featureCollection.Features = append(featureCollection.Features, f)
	}

	poiCount, err := db.PoiCount()
	if err != nil {
		return err
	}
	for i := 0; i < poiCount; i++ {
		position, err := db.PoiPosition(i)
		if err != nil {
			return err
		}
		name, err := db.PoiName(i)
		if err != nil {
			return err
		}
		kind, err := db.PoiKind(i)
		if err != nil {
			return err
		}

		f := geojson.NewFeature(position)
		f.Properties["poi"] = i
		f.Properties["name"] = name
		f.Properties["kind"] = kind
		featureCollection.Features = append(featureCollection.Features, f)
	}

	featureCount, err := db.FeatureCount()
	if err != nil {
		return err
	}
	for i := 0; i < featureCount; i++ {
		geometry, err := featureGeometry(db, i)
		if err != nil {
			return err
		}
		name, err := db.FeatureName(i)
		if err != nil {
			return err
		}
		kind, err := db.FeatureKind(i)
		if err != nil {
			return err
		}
		osmID, err := db.FeatureOsmID(i)
		if err != nil {
			return err
		}

		f := geojson.NewFeature(geometry)
		f.Properties["feature"] = i
		f.Properties["name"] = name
		f.Properties["kind"] = kind.String()
		f.Properties["osm_type"] = string(osmID.Type())
		f.Properties["osm_id"] = osmID.Ref()
		featureCollection.Features = append(featureCollection.Features, f)
	}

	geojsonBytes, err := featureCollection.MarshalJSON()
	if err != nil {
		return err
	}

	_, err = writer.Write(geojsonBytes)
	if err != nil {
		return err
	}

	sigolo.Infof("Finished writing in %s", time.Since(writeStartTime))

	return nil
}

// streetGeometry assembles one line string per member segment: from
// intersection, curve points, to intersection.
func streetGeometry(db *streets.Database, street int) (orb.MultiLineString, error) {
	memberCount, err := db.StreetSegmentCountOfStreet(street)
	if err != nil {
		return nil, err
	}

	geometry := make(orb.MultiLineString, 0, memberCount)
	for i := 0; i < memberCount; i++ {
		segment, err := db.StreetSegmentOfStreet(street, i)
		if err != nil {
			return nil, err
		}
		line, err := SegmentPolyline(db, segment)
		if err != nil {
			return nil, err
		}
		geometry = append(geometry, line)
	}
	return geometry, nil
}

// SegmentPolyline returns the full shape of a segment: from-intersection
// position, interior curve points, to-intersection position.
func SegmentPolyline(db *streets.Database, segment int) (orb.LineString, error) {
	info, err := db.StreetSegmentInfo(segment)
	if err != nil {
		return nil, err
	}

	line := make(orb.LineString, 0, info.CurvePointCount+2)

	from, err := db.IntersectionPosition(info.From)
	if err != nil {
		return nil, err
	}
	line = append(line, from)

	for i := 0; i < info.CurvePointCount; i++ {
		point, err := db.StreetSegmentCurvePoint(segment, i)
		if err != nil {
			return nil, err
		}
		line = append(line, point)
	}

	to, err := db.IntersectionPosition(info.To)
	if err != nil {
		return nil, err
	}
	line = append(line, to)

	return line, nil
}

// featureGeometry returns a ring for closed boundaries and a line string
// for open ones.
func featureGeometry(db *streets.Database, feature int) (orb.Geometry, error) {
	pointCount, err := db.FeaturePointCount(feature)
	if err != nil {
		return nil, err
	}

	line := make(orb.LineString, 0, pointCount)
	for i := 0; i < pointCount; i++ {
		point, err := db.FeaturePoint(feature, i)
		if err != nil {
			return nil, err
		}
		line = append(line, point)
	}

	if len(line) >= 4 && line[0] == line[len(line)-1] {
		return orb.Polygon{orb.Ring(line)}, nil
	}
	return line, nil
}
