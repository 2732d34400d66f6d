package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sdb/spatial"
	"sdb/streets"

	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	ownIo "sdb/io"
)

func StartServer(port string, db *streets.Database, index *spatial.Index) {
	r := initRouter(db, index)
	sigolo.Infof("Start server on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func StartServerTls(port string, certFile string, keyFile string, db *streets.Database, index *spatial.Index) {
	r := initRouter(db, index)
	sigolo.Infof("Start server with TLS support on port %s", port)
	err := http.ListenAndServeTLS(":"+port, certFile, keyFile, r)
	sigolo.FatalCheck(err)
}

type intersectionResponse struct {
	Name      string    `json:"name"`
	Position  orb.Point `json:"position"`
	OsmNodeID int64     `json:"osm_node_id"`
	Segments  []int     `json:"segments"`
}

type segmentResponse struct {
	OsmWayID        int64   `json:"osm_way_id"`
	From            int     `json:"from"`
	To              int     `json:"to"`
	OneWay          bool    `json:"one_way"`
	SpeedLimit      float32 `json:"speed_limit"`
	Street          int     `json:"street"`
	CurvePointCount int     `json:"curve_point_count"`
}

type streetResponse struct {
	Name     string `json:"name"`
	Segments []int  `json:"segments"`
}

type poiResponse struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Position  orb.Point `json:"position"`
	OsmNodeID int64     `json:"osm_node_id"`
}

type statsResponse struct {
	Intersections  int       `json:"intersections"`
	StreetSegments int       `json:"street_segments"`
	Streets        int       `json:"streets"`
	Pois           int       `json:"pois"`
	Features       int       `json:"features"`
	Bounds         orb.Bound `json:"bounds"`
}

func initRouter(db *streets.Database, index *spatial.Index) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/stats", func(writer http.ResponseWriter, request *http.Request) {
		handleStats(writer, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/intersections", func(writer http.ResponseWriter, request *http.Request) {
		handleIntersectionsInBound(writer, request, index)
	}).Methods(http.MethodGet)

	r.HandleFunc("/intersections/{index}", func(writer http.ResponseWriter, request *http.Request) {
		handleIntersection(writer, request, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/segments/{index}", func(writer http.ResponseWriter, request *http.Request) {
		handleSegment(writer, request, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/segments/{index}/geometry", func(writer http.ResponseWriter, request *http.Request) {
		handleSegmentGeometry(writer, request, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/streets/{index}", func(writer http.ResponseWriter, request *http.Request) {
		handleStreet(writer, request, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/pois/{index}", func(writer http.ResponseWriter, request *http.Request) {
		handlePoi(writer, request, db)
	}).Methods(http.MethodGet)

	r.HandleFunc("/features/{index}", func(writer http.ResponseWriter, request *http.Request) {
		handleFeature(writer, request, db)
	}).Methods(http.MethodGet)

	return r
}

func handleStats(writer http.ResponseWriter, db *streets.Database) {
	stats := statsResponse{}
	var err error
	if stats.Intersections, err = db.IntersectionCount(); err != nil {
		writeError(writer, err)
		return
	}
	if stats.StreetSegments, err = db.StreetSegmentCount(); err != nil {
		writeError(writer, err)
		return
	}
	if stats.Streets, err = db.StreetCount(); err != nil {
		writeError(writer, err)
		return
	}
	if stats.Pois, err = db.PoiCount(); err != nil {
		writeError(writer, err)
		return
	}
	if stats.Features, err = db.FeatureCount(); err != nil {
		writeError(writer, err)
		return
	}
	if stats.Bounds, err = db.Bounds(); err != nil {
		writeError(writer, err)
		return
	}
	writeJson(writer, stats)
}

func handleIntersection(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	response := intersectionResponse{}
	name, err := db.IntersectionName(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	response.Name = name

	position, err := db.IntersectionPosition(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	response.Position = position

	nodeID, err := db.IntersectionOsmNodeID(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	response.OsmNodeID = int64(nodeID)

	segmentCount, err := db.IntersectionSegmentCount(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	response.Segments = make([]int, segmentCount)
	for i := 0; i < segmentCount; i++ {
		response.Segments[i], err = db.IntersectionSegment(index, i)
		if err != nil {
			writeError(writer, err)
			return
		}
	}

	writeJson(writer, response)
}

func handleIntersectionsInBound(writer http.ResponseWriter, request *http.Request, index *spatial.Index) {
	bound, ok := parseBbox(writer, request.URL.Query().Get("bbox"))
	if !ok {
		return
	}

	indices, err := index.IntersectionsInBound(bound)
	if err != nil {
		writeError(writer, err)
		return
	}
	writeJson(writer, indices)
}

func handleSegment(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	info, err := db.StreetSegmentInfo(index)
	if err != nil {
		writeError(writer, err)
		return
	}

	writeJson(writer, segmentResponse{
		OsmWayID:        int64(info.OsmWayID),
		From:            info.From,
		To:              info.To,
		OneWay:          info.OneWay,
		SpeedLimit:      info.SpeedLimit,
		Street:          info.Street,
		CurvePointCount: info.CurvePointCount,
	})
}

func handleSegmentGeometry(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	line, err := ownIo.SegmentPolyline(db, index)
	if err != nil {
		writeError(writer, err)
		return
	}

	geojsonBytes, err := geojson.NewFeature(line).MarshalJSON()
	if err != nil {
		writeError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "application/geo+json")
	_, err = writer.Write(geojsonBytes)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func handleStreet(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	name, err := db.StreetName(index)
	if err != nil {
		writeError(writer, err)
		return
	}

	segmentCount, err := db.StreetSegmentCountOfStreet(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	segments := make([]int, segmentCount)
	for i := 0; i < segmentCount; i++ {
		segments[i], err = db.StreetSegmentOfStreet(index, i)
		if err != nil {
			writeError(writer, err)
			return
		}
	}

	writeJson(writer, streetResponse{Name: name, Segments: segments})
}

func handlePoi(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	response := poiResponse{}
	var err error
	if response.Name, err = db.PoiName(index); err != nil {
		writeError(writer, err)
		return
	}
	if response.Kind, err = db.PoiKind(index); err != nil {
		writeError(writer, err)
		return
	}
	if response.Position, err = db.PoiPosition(index); err != nil {
		writeError(writer, err)
		return
	}
	nodeID, err := db.PoiOsmNodeID(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	response.OsmNodeID = int64(nodeID)

	writeJson(writer, response)
}

func handleFeature(writer http.ResponseWriter, request *http.Request, db *streets.Database) {
	index, ok := pathIndex(writer, request)
	if !ok {
		return
	}

	name, err := db.FeatureName(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	kind, err := db.FeatureKind(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	osmID, err := db.FeatureOsmID(index)
	if err != nil {
		writeError(writer, err)
		return
	}
	pointCount, err := db.FeaturePointCount(index)
	if err != nil {
		writeError(writer, err)
		return
	}

	line := make(orb.LineString, pointCount)
	for i := 0; i < pointCount; i++ {
		line[i], err = db.FeaturePoint(index, i)
		if err != nil {
			writeError(writer, err)
			return
		}
	}

	f := geojson.NewFeature(line)
	f.Properties["name"] = name
	f.Properties["kind"] = kind.String()
	f.Properties["osm_type"] = string(osmID.Type())
	f.Properties["osm_id"] = osmID.Ref()

	geojsonBytes, err := f.MarshalJSON()
	if err != nil {
		writeError(writer, err)
		return
	}
	writer.Header().Set("Content-Type", "application/geo+json")
	_, err = writer.Write(geojsonBytes)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func pathIndex(writer http.ResponseWriter, request *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(request)["index"])
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		_, err = writer.Write([]byte("Invalid index"))
		if err != nil {
			sigolo.Errorf("Error writing error response: %+v", err)
		}
		return 0, false
	}
	return index, true
}

// parseBbox parses "minLon,minLat,maxLon,maxLat".
func parseBbox(writer http.ResponseWriter, bbox string) (orb.Bound, bool) {
	parts := strings.Split(bbox, ",")
	values := make([]float64, 0, 4)
	if len(parts) == 4 {
		for _, part := range parts {
			value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				break
			}
			values = append(values, value)
		}
	}

	if len(values) != 4 || values[0] > values[2] || values[1] > values[3] {
		writer.WriteHeader(http.StatusBadRequest)
		_, err := writer.Write([]byte("Invalid bbox, expected 'minLon,minLat,maxLon,maxLat' with min <= max"))
		if err != nil {
			sigolo.Errorf("Error writing error response: %+v", err)
		}
		return orb.Bound{}, false
	}

	return orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}, true
}

// writeError maps out-of-range lookups to 404 and everything else to 500.
func writeError(writer http.ResponseWriter, err error) {
	if streets.IsIndexOutOfRange(err) {
		writer.WriteHeader(http.StatusNotFound)
	} else {
		sigolo.Errorf("Error handling request: %+v", err)
		writer.WriteHeader(http.StatusInternalServerError)
	}
	_, writeErr := writer.Write([]byte(err.Error()))
	if writeErr != nil {
		sigolo.Errorf("Error writing error response: %+v", writeErr)
	}
}

func writeJson(writer http.ResponseWriter, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(writer).Encode(payload)
	if err != nil {
		sigolo.Errorf("Error encoding response: %+v", err)
		writer.WriteHeader(http.StatusInternalServerError)
	}
}
