// Package bin implements the ".streets.bin" map file format: a header with
// magic bytes and a format version, five fixed-layout record tables
// (intersections, street segments, streets, POIs, features) and three
// variable-length arenas (curve points, boundary points, name bytes) the
// records point into via offset/count pairs. All numbers are little-endian.
package bin

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Magic are the first four bytes of every map file.
var Magic = [4]byte{'S', 'T', 'R', 'B'}

// FormatVersion is the current file format version. Files with a different
// version are rejected on read.
const FormatVersion uint16 = 1

// Byte sizes of the fixed parts of the format.
const (
	headerSize           = 4 + 2 + 5*4 + 3*4
	intersectionRecSize  = 8 + 8 + 8
	segmentRecSize       = 8 + 4 + 4 + 4 + 4 + 4 + 4 + 1
	streetRecSize        = 4 + 4
	poiRecSize           = 8 + 8 + 8 + 4*4
	featureRecSize       = 8 + 1 + 1 + 4*4
	pointSize            = 8 + 8
)

// Raw-entity kind bytes stored for features. They map to the paulmach/osm
// object types on read.
const (
	osmKindNode     = 0
	osmKindWay      = 1
	osmKindRelation = 2
)

// FeatureKind classifies a map feature. The zero value is FeatureUnknown.
type FeatureKind uint8

const (
	FeatureUnknown FeatureKind = iota
	FeaturePark
	FeatureBeach
	FeatureLake
	FeatureRiver
	FeatureIsland
	FeatureShoreline
	FeatureBuilding
	FeatureGreenspace
	FeatureGolfcourse
	FeatureStream
)

func (k FeatureKind) String() string {
	switch k {
	case FeaturePark:
		return "park"
	case FeatureBeach:
		return "beach"
	case FeatureLake:
		return "lake"
	case FeatureRiver:
		return "river"
	case FeatureIsland:
		return "island"
	case FeatureShoreline:
		return "shoreline"
	case FeatureBuilding:
		return "building"
	case FeatureGreenspace:
		return "greenspace"
	case FeatureGolfcourse:
		return "golfcourse"
	case FeatureStream:
		return "stream"
	}
	return "unknown"
}

// Intersection is a point where street segments meet. Its display name is
// not stored in the file, it gets synthesized after loading.
type Intersection struct {
	Position  orb.Point
	OsmNodeID osm.NodeID
}

// Segment connects two intersections and belongs to exactly one street. The
// interior shape points live in the shared curve-point arena.
type Segment struct {
	OsmWayID    osm.WayID // Multiple segments may share one way ID.
	From        uint32
	To          uint32
	Street      uint32
	CurveOffset uint32
	CurveCount  uint32
	SpeedLimit  float32 // km/h
	OneWay      bool    // Traversal only From->To when set.
}

// Street is a named grouping of segments. Membership is not stored in the
// file, it gets derived from the segment table after loading.
type Street struct {
	Name string
}

// Poi is a point of interest, unrelated to the street graph.
type Poi struct {
	Position  orb.Point
	OsmNodeID osm.NodeID
	Name      string
	Kind      string
}

// Feature is a polygonal or polyline area. For closed polygons the first
// and last boundary point are equal; the format stores the sequence
// verbatim either way.
type Feature struct {
	OsmID       osm.ObjectID // Tagged with the producing node/way/relation.
	Kind        FeatureKind
	Name        string // May be empty.
	PointOffset uint32
	PointCount  uint32
}

// MapData is the decoded content of one map file. The record tables are
// dense and zero-indexed, the point slices are shared arenas the segment
// and feature records point into.
type MapData struct {
	Intersections []Intersection
	Segments      []Segment
	Streets       []Street
	Pois          []Poi
	Features      []Feature

	CurvePoints    []orb.Point
	BoundaryPoints []orb.Point
}

// SegmentCurve returns the interior curve points of the given segment as a
// slice into the shared arena. The offsets have been validated on read.
func (d *MapData) SegmentCurve(segment int) []orb.Point {
	s := &d.Segments[segment]
	return d.CurvePoints[s.CurveOffset : s.CurveOffset+s.CurveCount]
}

// FeatureBoundary returns the boundary points of the given feature as a
// slice into the shared arena.
func (d *MapData) FeatureBoundary(feature int) []orb.Point {
	f := &d.Features[feature]
	return d.BoundaryPoints[f.PointOffset : f.PointOffset+f.PointCount]
}

func osmTypeToKindByte(t osm.Type) (byte, bool) {
	switch t {
	case osm.TypeNode:
		return osmKindNode, true
	case osm.TypeWay:
		return osmKindWay, true
	case osm.TypeRelation:
		return osmKindRelation, true
	}
	return 0, false
}

func kindByteToObjectID(kind byte, ref int64) (osm.ObjectID, bool) {
	switch kind {
	case osmKindNode:
		return osm.NodeID(ref).ObjectID(0), true
	case osmKindWay:
		return osm.WayID(ref).ObjectID(0), true
	case osmKindRelation:
		return osm.RelationID(ref).ObjectID(0), true
	}
	return 0, false
}
