package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sdb/bin"
	"sdb/spatial"
	"sdb/streets"
	"sdb/util"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func newTestRouter(t *testing.T) http.Handler {
	data := &bin.MapData{
		Streets: []bin.Street{{Name: "Harbour Street"}},
		Intersections: []bin.Intersection{
			{Position: orb.Point{4.5, 52.0}, OsmNodeID: 1},
			{Position: orb.Point{4.6, 52.1}, OsmNodeID: 2},
		},
		Segments: []bin.Segment{
			{OsmWayID: 10, From: 0, To: 1, Street: 0, SpeedLimit: 50, CurveOffset: 0, CurveCount: 1},
		},
		Pois: []bin.Poi{
			{Position: orb.Point{4.55, 52.05}, OsmNodeID: 20, Name: "Lighthouse", Kind: "lighthouse"},
		},
		Features: []bin.Feature{
			{OsmID: osm.WayID(30).ObjectID(0), Kind: bin.FeatureBeach, Name: "North Beach", PointOffset: 0, PointCount: 2},
		},
		CurvePoints: []orb.Point{
			{4.55, 52.04},
		},
		BoundaryPoints: []orb.Point{
			{4.4, 51.9},
			{4.41, 51.9},
		},
	}

	mapFile := path.Join(t.TempDir(), "test.streets.bin")
	err := data.WriteFile(mapFile)
	util.AssertNil(t, err)

	db, err := streets.Load(mapFile)
	util.AssertNil(t, err)

	index, err := spatial.NewIndex(db)
	util.AssertNil(t, err)

	return initRouter(db, index)
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, url, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestApi_stats(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/stats")
	util.AssertEqual(t, http.StatusOK, response.Code)

	stats := statsResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &stats)
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, stats.Intersections)
	util.AssertEqual(t, 1, stats.StreetSegments)
	util.AssertEqual(t, 1, stats.Streets)
	util.AssertEqual(t, 1, stats.Pois)
	util.AssertEqual(t, 1, stats.Features)
}

func TestApi_intersection(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/intersections/0")
	util.AssertEqual(t, http.StatusOK, response.Code)

	intersection := intersectionResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &intersection)
	util.AssertNil(t, err)
	util.AssertEqual(t, "Harbour Street", intersection.Name)
	util.AssertEqual(t, int64(1), intersection.OsmNodeID)
	util.AssertEqual(t, []int{0}, intersection.Segments)
}

func TestApi_intersectionsInBound(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/intersections?bbox=4.4,51.9,4.55,52.05")
	util.AssertEqual(t, http.StatusOK, response.Code)

	var indices []int
	err := json.Unmarshal(response.Body.Bytes(), &indices)
	util.AssertNil(t, err)
	util.AssertEqual(t, []int{0}, indices)
}

func TestApi_invalidBbox(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/intersections?bbox=1,2,3")
	util.AssertEqual(t, http.StatusBadRequest, response.Code)
}

// An inverted bbox (min > max) must be rejected, not crash the handler.
func TestApi_invertedBbox(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/intersections?bbox=5,5,1,1")
	util.AssertEqual(t, http.StatusBadRequest, response.Code)
}

func TestApi_segment(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/segments/0")
	util.AssertEqual(t, http.StatusOK, response.Code)

	segment := segmentResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &segment)
	util.AssertNil(t, err)
	util.AssertEqual(t, int64(10), segment.OsmWayID)
	util.AssertEqual(t, 0, segment.From)
	util.AssertEqual(t, 1, segment.To)
	util.AssertEqual(t, 1, segment.CurvePointCount)
}

func TestApi_segmentGeometry(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/segments/0/geometry")
	util.AssertEqual(t, http.StatusOK, response.Code)
	util.AssertEqual(t, "application/geo+json", response.Header().Get("Content-Type"))

	var feature map[string]any
	err := json.Unmarshal(response.Body.Bytes(), &feature)
	util.AssertNil(t, err)
	util.AssertEqual(t, "Feature", feature["type"])
}

func TestApi_street(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/streets/0")
	util.AssertEqual(t, http.StatusOK, response.Code)

	street := streetResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &street)
	util.AssertNil(t, err)
	util.AssertEqual(t, "Harbour Street", street.Name)
	util.AssertEqual(t, []int{0}, street.Segments)
}

func TestApi_poi(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/pois/0")
	util.AssertEqual(t, http.StatusOK, response.Code)

	poi := poiResponse{}
	err := json.Unmarshal(response.Body.Bytes(), &poi)
	util.AssertNil(t, err)
	util.AssertEqual(t, "Lighthouse", poi.Name)
	util.AssertEqual(t, "lighthouse", poi.Kind)
}

func TestApi_feature(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/features/0")
	util.AssertEqual(t, http.StatusOK, response.Code)

	var feature map[string]any
	err := json.Unmarshal(response.Body.Bytes(), &feature)
	util.AssertNil(t, err)

	properties := feature["properties"].(map[string]any)
	util.AssertEqual(t, "North Beach", properties["name"])
	util.AssertEqual(t, "beach", properties["kind"])
}

func TestApi_outOfRangeReturns404(t *testing.T) {
	router := newTestRouter(t)

	for _, url := range []string{
		"/intersections/2",
		"/segments/1",
		"/streets/1",
		"/pois/1",
		"/features/1",
	} {
		response := get(t, router, url)
		util.AssertEqual(t, http.StatusNotFound, response.Code)
	}
}

func TestApi_invalidIndexReturns400(t *testing.T) {
	router := newTestRouter(t)

	response := get(t, router, "/intersections/abc")
	util.AssertEqual(t, http.StatusBadRequest, response.Code)
}
