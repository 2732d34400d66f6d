package streets

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"sdb/bin"

	"github.com/hauke96/sigolo/v2"
)

const unnamedIntersection = "(unnamed)"

// synthesizeNames computes the display name of every intersection: the
// distinct street names among its incident segments, joined with " & " in
// the order they first appear in the incident list. Duplicate names across
// the database get a counter appended, assigned in intersection-index
// order, so two loads of the same file always produce identical names.
func synthesizeNames(data *bin.MapData, xref *crossReferences) []string {
	names := make([]string, len(data.Intersections))

	// The base name of an intersection only depends on immutable table
	// data, so this part is spread over a few workers writing disjoint
	// chunks of the result slice.
	numWorkers := 4
	chunkSize := (len(names) + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		start := worker * chunkSize
		end := start + chunkSize
		if start >= len(names) {
			break
		}
		if end > len(names) {
			end = len(names)
		}

		wg.Add(1)
		go func(start int, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				names[i] = baseName(data, xref.intersectionSegments[i])
			}
		}(start, end)
	}
	wg.Wait()

	disambiguate(names)

	return names
}

func baseName(data *bin.MapData, incidentSegments []int) string {
	var streetNames []string
	for _, segment := range incidentSegments {
		name := data.Streets[data.Segments[segment].Street].Name
		if name == "" {
			continue
		}
		if slices.Contains(streetNames, name) {
			continue
		}
		streetNames = append(streetNames, name)
	}

	if len(streetNames) == 0 {
		return unnamedIntersection
	}
	return strings.Join(streetNames, " & ")
}

// disambiguate rewrites duplicated names in place by appending " (n)" with
// n starting at 1 for the first duplicate. This pass must stay serial and
// index-ordered, the counter assignment is global state.
func disambiguate(names []string) {
	taken := make(map[string]struct{}, len(names))
	counters := map[string]int{}
	numRenamed := 0

	for i, name := range names {
		if _, exists := taken[name]; !exists {
			taken[name] = struct{}{}
			continue
		}

		// The counter candidate can itself collide with a name that occurs
		// naturally in the data, so keep counting until a free one is found.
		counter := counters[name] + 1
		candidate := fmt.Sprintf("%s (%d)", name, counter)
		for {
			if _, exists := taken[candidate]; !exists {
				break
			}
			counter++
			candidate = fmt.Sprintf("%s (%d)", name, counter)
		}

		counters[name] = counter
		taken[candidate] = struct{}{}
		names[i] = candidate
		numRenamed++
	}

	if numRenamed > 0 {
		sigolo.Debugf("Disambiguated %d duplicate intersection names", numRenamed)
	}
}