package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"geoindex/geometry"
	"geoindex/index"
	"geoindex/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func StartServer(port string, maxEntries int) {
	r := NewServer(maxEntries).Router()
	sigolo.Infof("Start server without TLS support on port %s", port)
	err := http.ListenAndServe(":"+port, r)
	sigolo.FatalCheck(err)
}

func StartServerTls(port string, certFile string, keyFile string, maxEntries int) {
	r := NewServer(maxEntries).Router()
	sigolo.Infof("Start server with TLS support on port %s", port)
	err := http.ListenAndServeTLS(":"+port, certFile, keyFile, r)
	sigolo.FatalCheck(err)
}

// Server is the boundary adapter: it normalizes GeoJSON geometry into
// unit-square envelopes, drives the per-session trees and serializes tree
// structure back out to clients and observers.
type Server struct {
	manager *session.Manager
	ids     *nodeIDs
}

func NewServer(maxEntries int) *Server {
	return &Server{
		manager: session.NewManager(maxEntries),
		ids:     newNodeIDs(),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.dropSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/features", s.insertFeature).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/features/{fid}", s.removeFeature).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/load", s.loadFeatures).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/query", s.query).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/tree", s.tree).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/watch", s.watch).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) createSession(writer http.ResponseWriter, request *http.Request) {
	sess := s.manager.Create()
	sessionsActive.Set(float64(s.manager.Len()))
	sigolo.Infof("Created session %s", sess.ID)

	writeJson(writer, map[string]string{"id": sess.ID})
}

func (s *Server) dropSession(writer http.ResponseWriter, request *http.Request) {
	id := mux.Vars(request)["id"]

	err := s.manager.Drop(id)
	if err != nil {
		writeError(writer, http.StatusNotFound, "Error dropping session", err)
		return
	}

	s.ids.drop(id)
	sessionsActive.Set(float64(s.manager.Len()))
	sigolo.Infof("Dropped session %s", id)
}

func (s *Server) insertFeature(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	body, err := io.ReadAll(request.Body)
	if err != nil {
		writeError(writer, http.StatusInternalServerError, "Error reading HTTP body", err)
		return
	}

	feature, err := geojson.UnmarshalFeature(body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error parsing GeoJSON feature", err)
		return
	}

	env, err := featureEnvelope(feature)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error extracting feature bounds", err)
		return
	}

	payload := featureId(feature)

	var dump []byte
	err = sess.Update(func(tree *session.Tree) error {
		if err := tree.Insert(payload, env); err != nil {
			return err
		}
		dump = s.buildDump(sess.ID, tree)
		return nil
	})
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error inserting feature", err)
		return
	}

	operationsTotal.WithLabelValues("insert").Inc()
	sess.Broadcast(dump)

	writeJson(writer, map[string]string{"id": payload})
}

func (s *Server) removeFeature(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	payload := mux.Vars(request)["fid"]

	env, err := ParseBbox(request.URL.Query().Get("bbox"))
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error parsing bbox parameter", err)
		return
	}

	var dump []byte
	err = sess.Update(func(tree *session.Tree) error {
		if err := tree.Remove(payload, env); err != nil {
			return err
		}
		dump = s.buildDump(sess.ID, tree)
		return nil
	})
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error removing feature", err)
		return
	}

	operationsTotal.WithLabelValues("remove").Inc()
	sess.Broadcast(dump)
}

func (s *Server) loadFeatures(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	body, err := io.ReadAll(request.Body)
	if err != nil {
		writeError(writer, http.StatusInternalServerError, "Error reading HTTP body", err)
		return
	}

	collection, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error parsing GeoJSON feature collection", err)
		return
	}

	entries := make([]*index.Node[string], 0, len(collection.Features))
	for _, feature := range collection.Features {
		env, err := featureEnvelope(feature)
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Error extracting feature bounds", err)
			return
		}
		entries = append(entries, index.NewEntry(env, featureId(feature)))
	}

	var dump []byte
	err = sess.Update(func(tree *session.Tree) error {
		if err := tree.Load(entries); err != nil {
			return err
		}
		dump = s.buildDump(sess.ID, tree)
		return nil
	})
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error loading features", err)
		return
	}

	operationsTotal.WithLabelValues("load").Inc()
	sess.Broadcast(dump)

	writeJson(writer, map[string]int{"count": len(entries)})
}

func (s *Server) query(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	env, err := ParseBbox(request.URL.Query().Get("bbox"))
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error parsing bbox parameter", err)
		return
	}

	var matches []*index.Node[string]
	err = sess.View(func(tree *session.Tree) error {
		matches, err = tree.Search(env)
		return err
	})
	if err != nil {
		writeError(writer, http.StatusBadRequest, "Error searching", err)
		return
	}

	operationsTotal.WithLabelValues("query").Inc()
	sigolo.Debugf("Found %d entries in session %s", len(matches), sess.ID)

	collection := geojson.NewFeatureCollection()
	for _, entry := range matches {
		bound := geometry.Unproject(entry.Envelope())
		feature := geojson.NewFeature(bound.ToPolygon())
		feature.Properties["id"] = entry.Payload()
		collection.Features = append(collection.Features, feature)
	}

	collectionBytes, err := collection.MarshalJSON()
	if err != nil {
		writeError(writer, http.StatusInternalServerError, "Error writing query result", err)
		return
	}

	writer.Header().Set("Content-Type", "application/geo+json")
	_, err = writer.Write(collectionBytes)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func (s *Server) tree(writer http.ResponseWriter, request *http.Request) {
	sess, ok := s.session(writer, request)
	if !ok {
		return
	}

	var dump []byte
	err := sess.View(func(tree *session.Tree) error {
		dump = s.buildDump(sess.ID, tree)
		return nil
	})
	if err != nil {
		writeError(writer, http.StatusInternalServerError, "Error building tree dump", err)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	_, err = writer.Write(dump)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func (s *Server) session(writer http.ResponseWriter, request *http.Request) (*session.Session, bool) {
	id := mux.Vars(request)["id"]

	sess, err := s.manager.Get(id)
	if err != nil {
		writeError(writer, http.StatusNotFound, "Error resolving session", err)
		return nil, false
	}
	return sess, true
}

// featureEnvelope turns the geometry of a GeoJSON feature into a
// unit-square envelope.
func featureEnvelope(feature *geojson.Feature) (index.Envelope, error) {
	g, err := geometry.FromOrb(feature.Geometry)
	if err != nil {
		return index.Envelope{}, err
	}
	return geometry.Envelope(g)
}

// featureId returns the id the feature's payload is indexed under. A
// feature without id gets a fresh one.
func featureId(feature *geojson.Feature) string {
	if feature.ID != nil {
		return fmt.Sprintf("%v", feature.ID)
	}
	return uuid.NewString()
}

// ParseBbox parses a "minLon,minLat,maxLon,maxLat" query parameter and
// projects it.
func ParseBbox(bbox string) (index.Envelope, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return index.Envelope{}, errors.Errorf("bbox must be 'minLon,minLat,maxLon,maxLat' but was '%s'", bbox)
	}

	values := make([]float64, 4)
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return index.Envelope{}, errors.Wrapf(err, "Unable to parse bbox value '%s'", part)
		}
		values[i] = value
	}

	return geometry.Project(orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	})
}

func writeJson(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(writer).Encode(value)
	if err != nil {
		sigolo.Errorf("Error writing response: %+v", err)
	}
}

func writeError(writer http.ResponseWriter, status int, message string, err error) {
	sigolo.Errorf("%s: %+v", message, err)
	writer.WriteHeader(status)
	_, err = writer.Write([]byte(fmt.Sprintf("%s: %v", message, err)))
	if err != nil {
		sigolo.Errorf("Error writing error response: %+v", err)
	}
}
