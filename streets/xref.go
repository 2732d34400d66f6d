package streets

import (
	"sdb/bin"

	"github.com/pkg/errors"
)

// crossReferences holds the adjacency derived from the segment table: for
// every intersection the incident segments and for every street its member
// segments, both in the order segments appear in the file.
type crossReferences struct {
	intersectionSegments [][]int
	streetSegments       [][]int
}

// buildCrossReferences scans the segment table twice: one pass to count
// entries per intersection and street, one pass to fill the exactly-sized
// buckets. This keeps the construction linear in the number of segments
// and allocation-friendly.
//
// A segment referencing an intersection or street outside the table ranges
// makes the whole load fail. So does an intersection no segment touches,
// since isolated points are not modeled as intersections.
func buildCrossReferences(data *bin.MapData) (*crossReferences, error) {
	numIntersections := len(data.Intersections)
	numStreets := len(data.Streets)

	intersectionCounts := make([]int, numIntersections)
	streetCounts := make([]int, numStreets)

	for i, s := range data.Segments {
		if int(s.From) >= numIntersections {
			return nil, errors.Errorf("Segment %d starts at intersection %d but only %d intersections exist", i, s.From, numIntersections)
		}
		if int(s.To) >= numIntersections {
			return nil, errors.Errorf("Segment %d ends at intersection %d but only %d intersections exist", i, s.To, numIntersections)
		}
		if int(s.Street) >= numStreets {
			return nil, errors.Errorf("Segment %d belongs to street %d but only %d streets exist", i, s.Street, numStreets)
		}

		intersectionCounts[s.From]++
		if s.To != s.From {
			// A self-loop is listed once in its intersection's bucket.
			intersectionCounts[s.To]++
		}
		streetCounts[s.Street]++
	}

	xref := &crossReferences{
		intersectionSegments: make([][]int, numIntersections),
		streetSegments:       make([][]int, numStreets),
	}
	for i, count := range intersectionCounts {
		if count == 0 {
			return nil, errors.Errorf("Intersection %d has no incident street segments", i)
		}
		xref.intersectionSegments[i] = make([]int, 0, count)
	}
	for i, count := range streetCounts {
		xref.streetSegments[i] = make([]int, 0, count)
	}

	for i, s := range data.Segments {
		xref.intersectionSegments[s.From] = append(xref.intersectionSegments[s.From], i)
		if s.To != s.From {
			xref.intersectionSegments[s.To] = append(xref.intersectionSegments[s.To], i)
		}
		xref.streetSegments[s.Street] = append(xref.streetSegments[s.Street], i)
	}

	return xref, nil
}
