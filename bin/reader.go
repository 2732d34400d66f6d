package bin

import (
	"encoding/binary"
	"math"
	"os"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// cursor decodes little-endian values from an in-memory buffer. The first
// decode error sticks, all later reads return zero values, so record loops
// only have to check the error once.
type cursor struct {
	data []byte
	pos  int
	err  error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.pos+n > len(c.data) {
		c.err = errors.Errorf("Unexpected end of file: need %d bytes at offset %d but only %d remain", n, c.pos, len(c.data)-c.pos)
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) byteVal() byte {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) uint16Val() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) uint32Val() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) int64Val() int64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (c *cursor) float32Val() float32 {
	return math.Float32frombits(c.uint32Val())
}

func (c *cursor) float64Val() float64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (c *cursor) point() orb.Point {
	lat := c.float64Val()
	lon := c.float64Val()
	return orb.Point{lon, lat}
}

func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

// ReadFile reads and decodes a whole map file. On any failure (missing
// file, wrong magic or version, truncation, inconsistent offsets) an error
// is returned and no partial data is kept.
func ReadFile(path string) (*MapData, error) {
	readStartTime := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to read map file %s", path)
	}

	data, err := decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to decode map file %s", path)
	}

	sigolo.Debugf("Read map file %s in %s", path, time.Since(readStartTime))
	return data, nil
}

func decode(raw []byte) (*MapData, error) {
	c := &cursor{data: raw}

	magic := c.take(4)
	if c.err != nil {
		return nil, c.err
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] || magic[3] != Magic[3] {
		return nil, errors.Errorf("Invalid magic bytes %v, not a map file", magic)
	}

	version := c.uint16Val()
	if c.err == nil && version != FormatVersion {
		return nil, errors.Errorf("Unsupported format version %d, expected %d", version, FormatVersion)
	}

	numIntersections := int(c.uint32Val())
	numSegments := int(c.uint32Val())
	numStreets := int(c.uint32Val())
	numPois := int(c.uint32Val())
	numFeatures := int(c.uint32Val())
	numCurvePoints := int(c.uint32Val())
	numBoundaryPoints := int(c.uint32Val())
	nameBlockLen := int(c.uint32Val())
	if c.err != nil {
		return nil, c.err
	}

	// The header counts determine the exact file size, which catches most
	// truncations before any table is decoded.
	expectedLen := headerSize +
		numIntersections*intersectionRecSize +
		numSegments*segmentRecSize +
		numStreets*streetRecSize +
		numPois*poiRecSize +
		numFeatures*featureRecSize +
		numCurvePoints*pointSize +
		numBoundaryPoints*pointSize +
		nameBlockLen
	if len(raw) != expectedLen {
		return nil, errors.Errorf("File is %d bytes but header describes %d bytes", len(raw), expectedLen)
	}

	data := &MapData{
		Intersections: make([]Intersection, numIntersections),
		Segments:      make([]Segment, numSegments),
		Streets:       make([]Street, numStreets),
		Pois:          make([]Poi, numPois),
		Features:      make([]Feature, numFeatures),
	}

	for i := 0; i < numIntersections; i++ {
		data.Intersections[i] = Intersection{
			Position:  c.point(),
			OsmNodeID: osm.NodeID(c.int64Val()),
		}
	}

	for i := 0; i < numSegments; i++ {
		data.Segments[i] = Segment{
			OsmWayID:    osm.WayID(c.int64Val()),
			From:        c.uint32Val(),
			To:          c.uint32Val(),
			Street:      c.uint32Val(),
			CurveOffset: c.uint32Val(),
			CurveCount:  c.uint32Val(),
			SpeedLimit:  c.float32Val(),
			OneWay:      c.byteVal() != 0,
		}
	}

	type nameRef struct {
		offset uint32
		length uint32
	}
	streetNames := make([]nameRef, numStreets)
	for i := 0; i < numStreets; i++ {
		streetNames[i] = nameRef{c.uint32Val(), c.uint32Val()}
	}

	poiNames := make([]nameRef, numPois)
	poiKinds := make([]nameRef, numPois)
	for i := 0; i < numPois; i++ {
		data.Pois[i] = Poi{
			Position:  c.point(),
			OsmNodeID: osm.NodeID(c.int64Val()),
		}
		poiNames[i] = nameRef{c.uint32Val(), c.uint32Val()}
		poiKinds[i] = nameRef{c.uint32Val(), c.uint32Val()}
	}

	featureNames := make([]nameRef, numFeatures)
	for i := 0; i < numFeatures; i++ {
		ref := c.int64Val()
		osmKind := c.byteVal()
		kind := FeatureKind(c.byteVal())
		featureNames[i] = nameRef{c.uint32Val(), c.uint32Val()}
		pointOffset := c.uint32Val()
		pointCount := c.uint32Val()
		if c.err != nil {
			return nil, c.err
		}

		osmID, ok := kindByteToObjectID(osmKind, ref)
		if !ok {
			return nil, errors.Errorf("Feature %d has invalid OSM entity kind %d", i, osmKind)
		}

		data.Features[i] = Feature{
			OsmID:       osmID,
			Kind:        kind,
			PointOffset: pointOffset,
			PointCount:  pointCount,
		}
	}

	data.CurvePoints = make([]orb.Point, numCurvePoints)
	for i := 0; i < numCurvePoints; i++ {
		data.CurvePoints[i] = c.point()
	}

	data.BoundaryPoints = make([]orb.Point, numBoundaryPoints)
	for i := 0; i < numBoundaryPoints; i++ {
		data.BoundaryPoints[i] = c.point()
	}

	nameBlock := c.take(nameBlockLen)
	if c.err != nil {
		return nil, c.err
	}
	if c.remaining() != 0 {
		return nil, errors.Errorf("File has %d trailing bytes after the name block", c.remaining())
	}

	resolveName := func(owner string, index int, ref nameRef) (string, error) {
		end := int(ref.offset) + int(ref.length)
		if end > len(nameBlock) {
			return "", errors.Errorf("%s %d references name bytes [%d, %d) outside the %d byte name block", owner, index, ref.offset, end, len(nameBlock))
		}
		return string(nameBlock[ref.offset:end]), nil
	}

	var resolveErr error
	for i := range data.Streets {
		data.Streets[i].Name, resolveErr = resolveName("Street", i, streetNames[i])
		if resolveErr != nil {
			return nil, resolveErr
		}
	}
	for i := range data.Pois {
		data.Pois[i].Name, resolveErr = resolveName("POI", i, poiNames[i])
		if resolveErr != nil {
			return nil, resolveErr
		}
		data.Pois[i].Kind, resolveErr = resolveName("POI", i, poiKinds[i])
		if resolveErr != nil {
			return nil, resolveErr
		}
	}
	for i := range data.Features {
		data.Features[i].Name, resolveErr = resolveName("Feature", i, featureNames[i])
		if resolveErr != nil {
			return nil, resolveErr
		}
	}

	// Segments and features index into the shared point arenas. Broken
	// offsets would make every later geometry access unsafe, so they are a
	// decode error here.
	for i, s := range data.Segments {
		if int(s.CurveOffset)+int(s.CurveCount) > numCurvePoints {
			return nil, errors.Errorf("Segment %d references curve points [%d, %d) outside the %d point arena", i, s.CurveOffset, int(s.CurveOffset)+int(s.CurveCount), numCurvePoints)
		}
	}
	for i, f := range data.Features {
		if int(f.PointOffset)+int(f.PointCount) > numBoundaryPoints {
			return nil, errors.Errorf("Feature %d references boundary points [%d, %d) outside the %d point arena", i, f.PointOffset, int(f.PointOffset)+int(f.PointCount), numBoundaryPoints)
		}
	}

	return data, nil
}
