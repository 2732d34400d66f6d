// Package spatial provides R-tree based location queries over a loaded
// streets database. The index is built once after loading and returns the
// same dense indices the database hands out.
package spatial

import (
	"sort"
	"time"

	"sdb/streets"

	"github.com/dhconnelly/rtreego"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Degenerate rects are not allowed by the R-tree, so point entries and
// zero-area bounds get padded by this amount (far below coordinate
// precision in any map file).
const rectPadding = 1e-9

type entry struct {
	index int
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index holds one R-tree per point-like entity kind.
type Index struct {
	intersections *rtreego.Rtree
	pois          *rtreego.Rtree
	features      *rtreego.Rtree
}

// NewIndex builds the spatial index for the given database. Features
// without boundary points carry no location and are not indexed.
func NewIndex(db *streets.Database) (*Index, error) {
	buildStartTime := time.Now()

	idx := &Index{
		intersections: rtreego.NewTree(2, 25, 50),
		pois:          rtreego.NewTree(2, 25, 50),
		features:      rtreego.NewTree(2, 25, 50),
	}

	intersectionCount, err := db.IntersectionCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < intersectionCount; i++ {
		position, err := db.IntersectionPosition(i)
		if err != nil {
			return nil, err
		}
		idx.intersections.Insert(&entry{index: i, rect: pointRect(position)})
	}

	poiCount, err := db.PoiCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < poiCount; i++ {
		position, err := db.PoiPosition(i)
		if err != nil {
			return nil, err
		}
		idx.pois.Insert(&entry{index: i, rect: pointRect(position)})
	}

	featureCount, err := db.FeatureCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < featureCount; i++ {
		pointCount, err := db.FeaturePointCount(i)
		if err != nil {
			return nil, err
		}
		if pointCount == 0 {
			continue
		}

		var bound orb.Bound
		for n := 0; n < pointCount; n++ {
			point, err := db.FeaturePoint(i, n)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				bound = orb.Bound{Min: point, Max: point}
			} else {
				bound = bound.Extend(point)
			}
		}
		rect, err := boundRect(bound)
		if err != nil {
			return nil, err
		}
		idx.features.Insert(&entry{index: i, rect: rect})
	}

	sigolo.Debugf("Built spatial index (%d intersections, %d POIs, %d features) in %s",
		intersectionCount, poiCount, featureCount, time.Since(buildStartTime))

	return idx, nil
}

func pointRect(p orb.Point) rtreego.Rect {
	return rtreego.Point{p.Lon(), p.Lat()}.ToRect(rectPadding)
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	rect, err := rtreego.NewRect(
		rtreego.Point{b.Min.Lon() - rectPadding, b.Min.Lat() - rectPadding},
		[]float64{
			b.Max.Lon() - b.Min.Lon() + 2*rectPadding,
			b.Max.Lat() - b.Min.Lat() + 2*rectPadding,
		})
	if err != nil {
		return rtreego.Rect{}, errors.Wrapf(err, "Invalid bound %v", b)
	}
	return rect, nil
}

func search(tree *rtreego.Rtree, bound orb.Bound) ([]int, error) {
	rect, err := boundRect(bound)
	if err != nil {
		return nil, err
	}

	results := tree.SearchIntersect(rect)
	indices := make([]int, 0, len(results))
	for _, result := range results {
		indices = append(indices, result.(*entry).index)
	}
	// The tree returns matches in traversal order, sort for reproducible
	// results.
	sort.Ints(indices)
	return indices, nil
}

func nearest(tree *rtreego.Rtree, p orb.Point) (int, bool) {
	result := tree.NearestNeighbor(rtreego.Point{p.Lon(), p.Lat()})
	if result == nil {
		return 0, false
	}
	return result.(*entry).index, true
}

// IntersectionsInBound returns the indices of all intersections within the
// given bounding box, in ascending order. An inverted bound (min > max) is
// an error.
func (idx *Index) IntersectionsInBound(bound orb.Bound) ([]int, error) {
	return search(idx.intersections, bound)
}

// PoisInBound returns the indices of all POIs within the given bounding
// box, in ascending order.
func (idx *Index) PoisInBound(bound orb.Bound) ([]int, error) {
	return search(idx.pois, bound)
}

// FeaturesInBound returns the indices of all features whose bounding box
// intersects the given one, in ascending order.
func (idx *Index) FeaturesInBound(bound orb.Bound) ([]int, error) {
	return search(idx.features, bound)
}

// ClosestIntersection returns the intersection nearest to the given
// position. The boolean is false for a database without intersections.
func (idx *Index) ClosestIntersection(p orb.Point) (int, bool) {
	return nearest(idx.intersections, p)
}

// ClosestPoi returns the POI nearest to the given position. The boolean is
// false for a database without POIs.
func (idx *Index) ClosestPoi(p orb.Point) (int, bool) {
	return nearest(idx.pois, p)
}
