// Package api serves the timeline over HTTP: read-only GET endpoints for
// entities, runs, and snapshot series, plus a websocket watch stream of
// live run progress. All mutation goes through the CLI; the API observes.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/halcyard/chronicle/internal/persistence"
	"github.com/halcyard/chronicle/internal/sim"
)

// Server serves timeline state over HTTP.
type Server struct {
	DB   *persistence.DB
	Hub  *Hub
	Port int

	upgrader websocket.Upgrader
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/entities", s.handleEntities)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/run/", s.handleRunDetail)
	mux.HandleFunc("/api/v1/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/watch", s.handleWatch)
	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	handler := s.Handler()
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entities, err := s.DB.ListEntities("")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	running, err := s.DB.ListRuns(sim.StatusRunning)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities":     len(entities),
		"running_runs": len(running),
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	kind := sim.EntityKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown kind")
		return
	}
	entities, err := s.DB.ListEntities(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	status := sim.RunStatus(r.URL.Query().Get("status"))
	runs, err := s.DB.ListRuns(status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/run/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}
	run, err := s.DB.GetRun(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleSnapshots returns a snapshot series:
// /api/v1/snapshots?entity=1&branch=main&from=0&to=36525
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityID, err := strconv.ParseInt(q.Get("entity"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid entity id")
		return
	}
	branch := q.Get("branch")
	if branch == "" {
		branch = sim.MainBranch
	}
	from := queryInt(q.Get("from"), 0)
	to := queryInt(q.Get("to"), 1<<62)

	snaps, err := s.DB.ListSnapshots(entityID, branch, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(r.URL.Query().Get("entity"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid entity id")
		return
	}
	events, err := s.DB.ListEvents(entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleWatch upgrades to a websocket and streams run-progress
// notifications published to the hub until the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "watch stream disabled")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("watch upgrade failed", "error", err)
		return
	}
	s.Hub.Register(conn)
	slog.Info("watcher connected", "remote", conn.RemoteAddr())

	// Drain (and discard) client messages to notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.Hub.Unregister(conn)
				return
			}
		}
	}()
}

func queryInt(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
