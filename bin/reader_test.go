package bin

import (
	"bytes"
	"sdb/util"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func sampleMapData() *MapData {
	return &MapData{
		Intersections: []Intersection{
			{Position: orb.Point{-79.39, 43.67}, OsmNodeID: 1001},
			{Position: orb.Point{-79.38, 43.67}, OsmNodeID: 1002},
			{Position: orb.Point{-79.38, 43.65}, OsmNodeID: 1003},
		},
		Segments: []Segment{
			{OsmWayID: 2001, From: 0, To: 1, Street: 0, CurveOffset: 0, CurveCount: 2, SpeedLimit: 50},
			{OsmWayID: 2002, From: 1, To: 2, Street: 1, CurveOffset: 2, CurveCount: 0, OneWay: true, SpeedLimit: 40},
		},
		Streets: []Street{
			{Name: "Bloor Street"},
			{Name: "Yonge Street"},
		},
		Pois: []Poi{
			{Position: orb.Point{-79.389, 43.668}, OsmNodeID: 3001, Name: "Corner Cafe", Kind: "cafe"},
		},
		Features: []Feature{
			{OsmID: osm.WayID(4001).ObjectID(0), Kind: FeaturePark, Name: "Queen's Park", PointOffset: 0, PointCount: 4},
		},
		CurvePoints: []orb.Point{
			{-79.387, 43.671},
			{-79.385, 43.672},
		},
		BoundaryPoints: []orb.Point{
			{-79.392, 43.662},
			{-79.390, 43.662},
			{-79.390, 43.660},
			{-79.392, 43.662},
		},
	}
}

func encode(t *testing.T, data *MapData) []byte {
	buffer := &bytes.Buffer{}
	err := data.Write(buffer)
	util.AssertNil(t, err)
	return buffer.Bytes()
}

func TestDecode_roundTrip(t *testing.T) {
	original := sampleMapData()

	decoded, err := decode(encode(t, original))
	util.AssertNil(t, err)

	util.AssertEqual(t, original.Intersections, decoded.Intersections)
	util.AssertEqual(t, original.Segments, decoded.Segments)
	util.AssertEqual(t, original.Streets, decoded.Streets)
	util.AssertEqual(t, original.Pois, decoded.Pois)
	util.AssertEqual(t, original.Features, decoded.Features)
	util.AssertEqual(t, original.CurvePoints, decoded.CurvePoints)
	util.AssertEqual(t, original.BoundaryPoints, decoded.BoundaryPoints)

	util.AssertEqual(t, []orb.Point{{-79.387, 43.671}, {-79.385, 43.672}}, decoded.SegmentCurve(0))
	util.AssertEqual(t, 4, len(decoded.FeatureBoundary(0)))
}

func TestDecode_featureOsmKind(t *testing.T) {
	data := sampleMapData()
	data.Features[0].OsmID = osm.RelationID(5001).ObjectID(0)

	decoded, err := decode(encode(t, data))
	util.AssertNil(t, err)
	util.AssertEqual(t, osm.TypeRelation, decoded.Features[0].OsmID.Type())
	util.AssertEqual(t, int64(5001), decoded.Features[0].OsmID.Ref())
}

func TestDecode_badMagic(t *testing.T) {
	encoded := encode(t, sampleMapData())
	encoded[0] = 'X'

	_, err := decode(encoded)
	util.AssertNotNil(t, err)
	util.AssertTrue(t, strings.Contains(err.Error(), "magic"))
}

func TestDecode_badVersion(t *testing.T) {
	encoded := encode(t, sampleMapData())
	encoded[4] = 99

	_, err := decode(encoded)
	util.AssertNotNil(t, err)
	util.AssertTrue(t, strings.Contains(err.Error(), "version 99"))
}

func TestDecode_truncated(t *testing.T) {
	encoded := encode(t, sampleMapData())

	// Cut the file at several points: inside the header, inside the record
	// tables and inside the trailing arenas. Every prefix must fail.
	for _, length := range []int{0, 3, 5, headerSize - 1, headerSize + 10, len(encoded) / 2, len(encoded) - 1} {
		_, err := decode(encoded[:length])
		util.AssertNotNil(t, err)
	}
}

func TestDecode_trailingBytes(t *testing.T) {
	encoded := encode(t, sampleMapData())
	encoded = append(encoded, 0)

	_, err := decode(encoded)
	util.AssertNotNil(t, err)
}

func TestDecode_curveOffsetOutsideArena(t *testing.T) {
	data := sampleMapData()
	data.Segments[0].CurveCount = 100

	_, err := decode(encode(t, data))
	util.AssertNotNil(t, err)
	util.AssertTrue(t, strings.Contains(err.Error(), "curve points"))
}

func TestDecode_boundaryOffsetOutsideArena(t *testing.T) {
	data := sampleMapData()
	data.Features[0].PointOffset = 2
	data.Features[0].PointCount = 3

	_, err := decode(encode(t, data))
	util.AssertNotNil(t, err)
	util.AssertTrue(t, strings.Contains(err.Error(), "boundary points"))
}

func TestReadFile_missingFile(t *testing.T) {
	_, err := ReadFile(t.TempDir() + "/does-not-exist.streets.bin")
	util.AssertNotNil(t, err)
}

func TestWriteFileReadFile(t *testing.T) {
	path := t.TempDir() + "/toronto.streets.bin"
	original := sampleMapData()

	err := original.WriteFile(path)
	util.AssertNil(t, err)

	decoded, err := ReadFile(path)
	util.AssertNil(t, err)
	util.AssertEqual(t, original.Streets, decoded.Streets)
	util.AssertEqual(t, len(original.Segments), len(decoded.Segments))
}
