package bin

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// writer serializes little-endian values. Like the read cursor, the first
// write error sticks so call sites stay free of per-value checks.
type writer struct {
	out io.Writer
	buf [8]byte
	err error
}

func (w *writer) bytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.out.Write(b)
}

func (w *writer) byteVal(v byte) {
	w.buf[0] = v
	w.bytes(w.buf[:1])
}

func (w *writer) uint16Val(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.bytes(w.buf[:2])
}

func (w *writer) uint32Val(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.bytes(w.buf[:4])
}

func (w *writer) int64Val(v int64) {
	binary.LittleEndian.PutUint64(w.buf[:8], uint64(v))
	w.bytes(w.buf[:8])
}

func (w *writer) float32Val(v float32) {
	w.uint32Val(math.Float32bits(v))
}

func (w *writer) float64Val(v float64) {
	binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	w.bytes(w.buf[:8])
}

func (w *writer) point(p orb.Point) {
	w.float64Val(p.Lat())
	w.float64Val(p.Lon())
}

// nameBlock collects all strings of a map file and deduplicates them, so a
// street name appearing in thousands of records is stored once.
type nameBlock struct {
	data    []byte
	offsets map[string]uint32
}

func newNameBlock() *nameBlock {
	return &nameBlock{offsets: map[string]uint32{}}
}

func (n *nameBlock) add(s string) (offset uint32, length uint32) {
	if existing, ok := n.offsets[s]; ok {
		return existing, uint32(len(s))
	}
	offset = uint32(len(n.data))
	n.offsets[s] = offset
	n.data = append(n.data, s...)
	return offset, uint32(len(s))
}

// WriteFile encodes the map data into a file at the given path.
func (d *MapData) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create map file %s", path)
	}

	err = d.Write(f)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "Unable to close map file %s", path)
	}

	sigolo.Debugf("Wrote map file %s", path)
	return nil
}

// Write encodes the map data in the format read by ReadFile.
func (d *MapData) Write(out io.Writer) error {
	names := newNameBlock()

	type nameRef struct {
		offset uint32
		length uint32
	}
	streetNames := make([]nameRef, len(d.Streets))
	for i, s := range d.Streets {
		off, length := names.add(s.Name)
		streetNames[i] = nameRef{off, length}
	}
	poiNames := make([]nameRef, len(d.Pois))
	poiKinds := make([]nameRef, len(d.Pois))
	for i, p := range d.Pois {
		off, length := names.add(p.Name)
		poiNames[i] = nameRef{off, length}
		off, length = names.add(p.Kind)
		poiKinds[i] = nameRef{off, length}
	}
	featureNames := make([]nameRef, len(d.Features))
	for i, f := range d.Features {
		off, length := names.add(f.Name)
		featureNames[i] = nameRef{off, length}
	}

	buffered := bufio.NewWriter(out)
	w := &writer{out: buffered}

	w.bytes(Magic[:])
	w.uint16Val(FormatVersion)
	w.uint32Val(uint32(len(d.Intersections)))
	w.uint32Val(uint32(len(d.Segments)))
	w.uint32Val(uint32(len(d.Streets)))
	w.uint32Val(uint32(len(d.Pois)))
	w.uint32Val(uint32(len(d.Features)))
	w.uint32Val(uint32(len(d.CurvePoints)))
	w.uint32Val(uint32(len(d.BoundaryPoints)))
	w.uint32Val(uint32(len(names.data)))

	for _, in := range d.Intersections {
		w.point(in.Position)
		w.int64Val(int64(in.OsmNodeID))
	}

	for _, s := range d.Segments {
		w.int64Val(int64(s.OsmWayID))
		w.uint32Val(s.From)
		w.uint32Val(s.To)
		w.uint32Val(s.Street)
		w.uint32Val(s.CurveOffset)
		w.uint32Val(s.CurveCount)
		w.float32Val(s.SpeedLimit)
		if s.OneWay {
			w.byteVal(1)
		} else {
			w.byteVal(0)
		}
	}

	for _, ref := range streetNames {
		w.uint32Val(ref.offset)
		w.uint32Val(ref.length)
	}

	for i, p := range d.Pois {
		w.point(p.Position)
		w.int64Val(int64(p.OsmNodeID))
		w.uint32Val(poiNames[i].offset)
		w.uint32Val(poiNames[i].length)
		w.uint32Val(poiKinds[i].offset)
		w.uint32Val(poiKinds[i].length)
	}

	for i, f := range d.Features {
		kindByte, ok := osmTypeToKindByte(f.OsmID.Type())
		if !ok {
			return errors.Errorf("Feature %d has unsupported OSM object type '%s'", i, f.OsmID.Type())
		}
		w.int64Val(f.OsmID.Ref())
		w.byteVal(kindByte)
		w.byteVal(byte(f.Kind))
		w.uint32Val(featureNames[i].offset)
		w.uint32Val(featureNames[i].length)
		w.uint32Val(f.PointOffset)
		w.uint32Val(f.PointCount)
	}

	for _, p := range d.CurvePoints {
		w.point(p)
	}
	for _, p := range d.BoundaryPoints {
		w.point(p)
	}

	w.bytes(names.data)

	if w.err != nil {
		return errors.Wrap(w.err, "Unable to write map data")
	}
	return errors.Wrap(buffered.Flush(), "Unable to flush map data")
}
