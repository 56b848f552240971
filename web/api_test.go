package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geoindex/util"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
)

func newTestServer() *Server {
	return NewServer(4)
}

func createSession(t *testing.T, server *Server) string {
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	var response map[string]string
	util.AssertNil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	util.AssertTrue(t, response["id"] != "")

	return response["id"]
}

func pointFeature(id string, lon, lat float64) string {
	return fmt.Sprintf(`{"type":"Feature","id":"%s","geometry":{"type":"Point","coordinates":[%f,%f]},"properties":{}}`, id, lon, lat)
}

func TestApi_insertAndQuery(t *testing.T) {
	// Arrange
	server := newTestServer()
	sessionId := createSession(t, server)

	// Act
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/features", strings.NewReader(pointFeature("f1", 9.99, 53.55)))
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/query?bbox=9,53,11,54", nil)
	server.Router().ServeHTTP(recorder, request)

	// Assert
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	collection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(collection.Features))
	util.AssertEqual(t, "f1", collection.Features[0].Properties["id"])

	// A window elsewhere finds nothing.
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/query?bbox=-10,0,-9,1", nil)
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	collection, err = geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(collection.Features))
}

func TestApi_removeFeature(t *testing.T) {
	server := newTestServer()
	sessionId := createSession(t, server)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/features", strings.NewReader(pointFeature("f1", 9.99, 53.55)))
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionId+"/features/f1?bbox=9,53,11,54", nil)
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/query?bbox=9,53,11,54", nil)
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	collection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(collection.Features))
}

func TestApi_loadFeatureCollection(t *testing.T) {
	server := newTestServer()
	sessionId := createSession(t, server)

	features := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		features = append(features, pointFeature(fmt.Sprintf("f%d", i), float64(i), float64(i)))
	}
	body := `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/load", strings.NewReader(body))
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/query?bbox=-1,-1,5,5", nil)
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	collection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 5, len(collection.Features))
}

func TestApi_treeDumpSkipsEntries(t *testing.T) {
	server := newTestServer()
	sessionId := createSession(t, server)

	for i := 0; i < 10; i++ {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/features", strings.NewReader(pointFeature(fmt.Sprintf("f%d", i), float64(i), float64(i))))
		server.Router().ServeHTTP(recorder, request)
		util.AssertEqual(t, http.StatusOK, recorder.Code)
	}

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/tree", nil)
	server.Router().ServeHTTP(recorder, request)
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	var nodes []TreeNode
	util.AssertNil(t, json.Unmarshal(recorder.Body.Bytes(), &nodes))

	// 10 entries with fan-out 4 need at least 3 leaves plus the root. Without
	// removals every non-root node holds at least 2 children, so the skeleton
	// has at most 8 nodes; a dump that listed the 10 entries would be longer.
	util.AssertTrue(t, len(nodes) >= 4)
	util.AssertTrue(t, len(nodes) < 10)

	ids := map[string]bool{}
	for _, node := range nodes {
		util.AssertTrue(t, node.Height >= 1)
		util.AssertFalse(t, ids[node.Id])
		ids[node.Id] = true
	}

	// The root comes first and covers all inserted coordinates.
	util.AssertTrue(t, nodes[0].Height >= 2)

	// Dumps are stable: a second dump reports the same ids.
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionId+"/tree", nil)
	server.Router().ServeHTTP(recorder, request)

	var again []TreeNode
	util.AssertNil(t, json.Unmarshal(recorder.Body.Bytes(), &again))
	util.AssertEqual(t, nodes, again)
}

func TestApi_unknownSessionIs404(t *testing.T) {
	server := newTestServer()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/sessions/nope/query?bbox=0,0,1,1", nil)
	server.Router().ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusNotFound, recorder.Code)
}

func TestApi_invalidGeometryIs400(t *testing.T) {
	server := newTestServer()
	sessionId := createSession(t, server)

	body := `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/features", strings.NewReader(body))
	server.Router().ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
}

func TestApi_watchPushesDumps(t *testing.T) {
	server := newTestServer()
	sessionId := createSession(t, server)

	httpServer := httptest.NewServer(server.Router())
	defer httpServer.Close()

	wsUrl := strings.Replace(httpServer.URL, "http", "ws", 1) + "/sessions/" + sessionId + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	util.AssertNil(t, err)
	defer conn.Close()

	// The initial dump arrives right away: just the empty root.
	util.AssertNil(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, initial, err := conn.ReadMessage()
	util.AssertNil(t, err)

	var nodes []TreeNode
	util.AssertNil(t, json.Unmarshal(initial, &nodes))
	util.AssertEqual(t, 1, len(nodes))

	// A mutation pushes a fresh dump.
	response, err := http.Post(httpServer.URL+"/sessions/"+sessionId+"/features", "application/geo+json", strings.NewReader(pointFeature("f1", 9.99, 53.55)))
	util.AssertNil(t, err)
	util.AssertEqual(t, http.StatusOK, response.StatusCode)

	_, update, err := conn.ReadMessage()
	util.AssertNil(t, err)
	util.AssertNil(t, json.Unmarshal(update, &nodes))
	util.AssertEqual(t, 1, len(nodes))
	util.AssertTrue(t, nodes[0].Bounds[0] != 0)
}
