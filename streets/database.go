// Package streets provides read access to a city's street network loaded
// from a ".streets.bin" map file: intersections, street segments, streets,
// points of interest and polygonal features, all addressed by dense
// zero-based indices local to one loaded database.
package streets

import (
	"time"

	"sdb/bin"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// StreetSegmentInfo describes one street segment. Indices refer to the
// database the info was read from.
type StreetSegmentInfo struct {
	OsmWayID osm.WayID // Multiple segments may share one way ID.

	From int // Intersection index the segment runs from.
	To   int // Intersection index the segment runs to.

	// Traversal is only allowed From->To when set.
	OneWay bool

	CurvePointCount int
	SpeedLimit      float32 // km/h
	Street          int     // Index of the street this segment belongs to.
}

// Database is one loaded map. It is immutable after Load and therefore
// safe for any number of concurrent readers. Indices are only meaningful
// for the database they came from and become invalid on Close.
type Database struct {
	data              *bin.MapData
	xref              *crossReferences
	intersectionNames []string
	bounds            orb.Bound
	closed            bool
}

// Load reads the map file at the given path and builds all derived data:
// intersection and street adjacency and the synthesized intersection
// names. On any failure no partial database is returned.
func Load(path string) (*Database, error) {
	loadStartTime := time.Now()

	data, err := bin.ReadFile(path)
	if err != nil {
		return nil, err
	}

	xref, err := buildCrossReferences(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to build cross-references for map file %s", path)
	}

	names := synthesizeNames(data, xref)

	db := &Database{
		data:              data,
		xref:              xref,
		intersectionNames: names,
		bounds:            dataBounds(data),
	}

	sigolo.Infof("Loaded map %s (%d intersections, %d segments, %d streets, %d POIs, %d features) in %s",
		path, len(data.Intersections), len(data.Segments), len(data.Streets), len(data.Pois), len(data.Features), time.Since(loadStartTime))

	return db, nil
}

func dataBounds(data *bin.MapData) orb.Bound {
	var bound orb.Bound
	initialized := false
	extend := func(p orb.Point) {
		if !initialized {
			bound = orb.Bound{Min: p, Max: p}
			initialized = true
			return
		}
		bound = bound.Extend(p)
	}

	for _, in := range data.Intersections {
		extend(in.Position)
	}
	for _, p := range data.Pois {
		extend(p.Position)
	}
	for _, p := range data.CurvePoints {
		extend(p)
	}
	for _, p := range data.BoundaryPoints {
		extend(p)
	}
	return bound
}

// Close unloads the database. All indices handed out before become
// invalid and every later query returns an ErrDatabaseClosed error.
func (db *Database) Close() {
	db.closed = true
	db.data = nil
	db.xref = nil
	db.intersectionNames = nil
}

func (db *Database) use() error {
	if db.closed {
		return errors.Wrap(ErrDatabaseClosed, "query on closed database")
	}
	return nil
}

func (db *Database) checkIndex(kind string, index int, count int) error {
	if index < 0 || index >= count {
		return errors.Wrapf(ErrIndexOutOfRange, "%s index %d outside valid range [0, %d)", kind, index, count)
	}
	return nil
}

// Bounds returns the bounding box of all positions in the database.
func (db *Database) Bounds() (orb.Bound, error) {
	if err := db.use(); err != nil {
		return orb.Bound{}, err
	}
	return db.bounds, nil
}

// IntersectionCount returns the number of intersections. Valid
// intersection indices are [0, count).
func (db *Database) IntersectionCount() (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	return len(db.data.Intersections), nil
}

// StreetSegmentCount returns the number of street segments.
func (db *Database) StreetSegmentCount() (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	return len(db.data.Segments), nil
}

// StreetCount returns the number of streets.
func (db *Database) StreetCount() (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	return len(db.data.Streets), nil
}

// PoiCount returns the number of points of interest.
func (db *Database) PoiCount() (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	return len(db.data.Pois), nil
}

// FeatureCount returns the number of features.
func (db *Database) FeatureCount() (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	return len(db.data.Features), nil
}

// IntersectionName returns the synthesized display name, e.g.
// "Yonge Street & Bloor Street". Names are unique across the database.
func (db *Database) IntersectionName(intersection int) (string, error) {
	if err := db.use(); err != nil {
		return "", err
	}
	if err := db.checkIndex("intersection", intersection, len(db.data.Intersections)); err != nil {
		return "", err
	}
	return db.intersectionNames[intersection], nil
}

// IntersectionPosition returns the intersection's lon/lat position.
func (db *Database) IntersectionPosition(intersection int) (orb.Point, error) {
	if err := db.use(); err != nil {
		return orb.Point{}, err
	}
	if err := db.checkIndex("intersection", intersection, len(db.data.Intersections)); err != nil {
		return orb.Point{}, err
	}
	return db.data.Intersections[intersection].Position, nil
}

// IntersectionOsmNodeID returns the ID of the OSM node the intersection
// was produced from.
func (db *Database) IntersectionOsmNodeID(intersection int) (osm.NodeID, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("intersection", intersection, len(db.data.Intersections)); err != nil {
		return 0, err
	}
	return db.data.Intersections[intersection].OsmNodeID, nil
}

// IntersectionSegmentCount returns the number of segments incident on the
// intersection. Every intersection has at least one.
func (db *Database) IntersectionSegmentCount(intersection int) (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("intersection", intersection, len(db.data.Intersections)); err != nil {
		return 0, err
	}
	return len(db.xref.intersectionSegments[intersection]), nil
}

// IntersectionSegment returns the i-th segment incident on the
// intersection, in the order segments appear in the map file.
func (db *Database) IntersectionSegment(intersection int, i int) (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("intersection", intersection, len(db.data.Intersections)); err != nil {
		return 0, err
	}
	incident := db.xref.intersectionSegments[intersection]
	if err := db.checkIndex("incident segment", i, len(incident)); err != nil {
		return 0, err
	}
	return incident[i], nil
}

// StreetSegmentInfo returns the attributes of the given street segment.
func (db *Database) StreetSegmentInfo(segment int) (StreetSegmentInfo, error) {
	if err := db.use(); err != nil {
		return StreetSegmentInfo{}, err
	}
	if err := db.checkIndex("street segment", segment, len(db.data.Segments)); err != nil {
		return StreetSegmentInfo{}, err
	}
	s := &db.data.Segments[segment]
	return StreetSegmentInfo{
		OsmWayID:        s.OsmWayID,
		From:            int(s.From),
		To:              int(s.To),
		OneWay:          s.OneWay,
		CurvePointCount: int(s.CurveCount),
		SpeedLimit:      s.SpeedLimit,
		Street:          int(s.Street),
	}, nil
}

// StreetSegmentCurvePoint returns the i-th interior curve point of the
// segment's polyline shape.
func (db *Database) StreetSegmentCurvePoint(segment int, i int) (orb.Point, error) {
	if err := db.use(); err != nil {
		return orb.Point{}, err
	}
	if err := db.checkIndex("street segment", segment, len(db.data.Segments)); err != nil {
		return orb.Point{}, err
	}
	curve := db.data.SegmentCurve(segment)
	if err := db.checkIndex("curve point", i, len(curve)); err != nil {
		return orb.Point{}, err
	}
	return curve[i], nil
}

// StreetName returns the street's name.
func (db *Database) StreetName(street int) (string, error) {
	if err := db.use(); err != nil {
		return "", err
	}
	if err := db.checkIndex("street", street, len(db.data.Streets)); err != nil {
		return "", err
	}
	return db.data.Streets[street].Name, nil
}

// StreetSegmentCountOfStreet returns the number of member segments of the
// street.
func (db *Database) StreetSegmentCountOfStreet(street int) (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("street", street, len(db.data.Streets)); err != nil {
		return 0, err
	}
	return len(db.xref.streetSegments[street]), nil
}

// StreetSegmentOfStreet returns the i-th member segment of the street, in
// the order segments appear in the map file. That order is not guaranteed
// to be geographically contiguous.
func (db *Database) StreetSegmentOfStreet(street int, i int) (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("street", street, len(db.data.Streets)); err != nil {
		return 0, err
	}
	members := db.xref.streetSegments[street]
	if err := db.checkIndex("member segment", i, len(members)); err != nil {
		return 0, err
	}
	return members[i], nil
}

// PoiName returns the point of interest's name.
func (db *Database) PoiName(poi int) (string, error) {
	if err := db.use(); err != nil {
		return "", err
	}
	if err := db.checkIndex("POI", poi, len(db.data.Pois)); err != nil {
		return "", err
	}
	return db.data.Pois[poi].Name, nil
}

// PoiKind returns the point of interest's category, e.g. "cafe".
func (db *Database) PoiKind(poi int) (string, error) {
	if err := db.use(); err != nil {
		return "", err
	}
	if err := db.checkIndex("POI", poi, len(db.data.Pois)); err != nil {
		return "", err
	}
	return db.data.Pois[poi].Kind, nil
}

// PoiPosition returns the point of interest's lon/lat position.
func (db *Database) PoiPosition(poi int) (orb.Point, error) {
	if err := db.use(); err != nil {
		return orb.Point{}, err
	}
	if err := db.checkIndex("POI", poi, len(db.data.Pois)); err != nil {
		return orb.Point{}, err
	}
	return db.data.Pois[poi].Position, nil
}

// PoiOsmNodeID returns the ID of the OSM node the POI was produced from.
func (db *Database) PoiOsmNodeID(poi int) (osm.NodeID, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("POI", poi, len(db.data.Pois)); err != nil {
		return 0, err
	}
	return db.data.Pois[poi].OsmNodeID, nil
}

// FeatureName returns the feature's name, which may be empty.
func (db *Database) FeatureName(feature int) (string, error) {
	if err := db.use(); err != nil {
		return "", err
	}
	if err := db.checkIndex("feature", feature, len(db.data.Features)); err != nil {
		return "", err
	}
	return db.data.Features[feature].Name, nil
}

// FeatureKind returns the feature's classification.
func (db *Database) FeatureKind(feature int) (bin.FeatureKind, error) {
	if err := db.use(); err != nil {
		return bin.FeatureUnknown, err
	}
	if err := db.checkIndex("feature", feature, len(db.data.Features)); err != nil {
		return bin.FeatureUnknown, err
	}
	return db.data.Features[feature].Kind, nil
}

// FeatureOsmID returns the typed ID of the OSM node, way or relation the
// feature was produced from.
func (db *Database) FeatureOsmID(feature int) (osm.ObjectID, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("feature", feature, len(db.data.Features)); err != nil {
		return 0, err
	}
	return db.data.Features[feature].OsmID, nil
}

// FeaturePointCount returns the number of boundary points of the feature.
// For closed polygons the first and last point are equal and both counted.
func (db *Database) FeaturePointCount(feature int) (int, error) {
	if err := db.use(); err != nil {
		return 0, err
	}
	if err := db.checkIndex("feature", feature, len(db.data.Features)); err != nil {
		return 0, err
	}
	return int(db.data.Features[feature].PointCount), nil
}

// FeaturePoint returns the i-th boundary point of the feature, exactly as
// stored in the map file.
func (db *Database) FeaturePoint(feature int, i int) (orb.Point, error) {
	if err := db.use(); err != nil {
		return orb.Point{}, err
	}
	if err := db.checkIndex("feature", feature, len(db.data.Features)); err != nil {
		return orb.Point{}, err
	}
	boundary := db.data.FeatureBoundary(feature)
	if err := db.checkIndex("boundary point", i, len(boundary)); err != nil {
		return orb.Point{}, err
	}
	return boundary[i], nil
}
