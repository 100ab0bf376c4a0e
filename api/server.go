// Package api gives the HTTP listing/detail/download/stats operations
// concrete handlers over the fetch coordinator and item store, using a
// plain http.ServeMux with one handler per route. Routing/verb choices
// here are illustrative, not normative: the HTTP layer's own design is
// deliberately left open.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sunerpy/indexproxy/fetch"
	"github.com/sunerpy/indexproxy/ledger"
	"github.com/sunerpy/indexproxy/mirror"
	"github.com/sunerpy/indexproxy/models"
	"github.com/sunerpy/indexproxy/store"
)

// Server wires a single-origin coordinator or (in mirror mode) a Facade
// onto net/http handlers. Exactly one of coordinator/facade is set.
type Server struct {
	coordinator *fetch.Coordinator
	itemStore   *store.ItemStore
	tracker     *ledger.Tracker
	facade      *mirror.Facade
	log         *zap.Logger
}

// NewIndexer builds a Server for the single-origin indexer variant.
func NewIndexer(coordinator *fetch.Coordinator, itemStore *store.ItemStore, tracker *ledger.Tracker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{coordinator: coordinator, itemStore: itemStore, tracker: tracker, log: log}
}

// NewMirror builds a Server for the mirror façade variant.
func NewMirror(f *mirror.Facade, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{facade: f, log: log}
}

// Mux builds the routed handler. Paths under /mirror/ only exist when the
// server was built with NewMirror.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	if s.facade != nil {
		mux.HandleFunc("/mirror/", s.mirrorRoute)
		mux.HandleFunc("/health", s.health)
		return mux
	}
	mux.HandleFunc("/list", s.list)
	mux.HandleFunc("/view/", s.view)
	mux.HandleFunc("/download/", s.download)
	mux.HandleFunc("/stats", s.stats)
	return mux
}

type listRequest struct {
	Term      string `json:"term"`
	Category  string `json:"category"`
	Filter    int    `json:"filter"`
	Sort      string `json:"sort"`
	SortOrder string `json:"sort_order"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

type listResponse struct {
	Torrents []models.ListItem `json:"torrents"`
	Offset   int               `json:"offset"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "list requires POST")
		return
	}
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, _, err := s.coordinator.List(r.Context(), fetch.ListQuery{
		Page:     req.Offset/max(req.Limit, 1) + 1,
		Term:     req.Term,
		Category: category,
		Filter:   fetch.Filter(req.Filter),
		Sort:     req.Sort,
		Order:    req.SortOrder,
	})
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Torrents: items, Offset: req.Offset, Count: len(items), Total: len(items)})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r.URL.Path, "/view/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, _, err := s.coordinator.View(r.Context(), id)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r.URL.Path, "/download/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, _, err := s.coordinator.Download(r.Context(), id)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%d"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

type statsResponse struct {
	TorrentsPerDay map[string]int64       `json:"torrents_per_day"`
	RecentEvents   []models.RequestRecord `json:"recent_events"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	events, err := s.tracker.Get("", 250)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load recent events")
		return
	}
	perDay := map[string]int64{}
	for _, e := range events {
		perDay[e.Time.Format("2006-01-02")]++
	}
	writeJSON(w, http.StatusOK, statsResponse{TorrentsPerDay: perDay, RecentEvents: events})
}

// mirrorRoute dispatches /mirror/<origin>/<op>[...] requests to the
// façade, fanning the same API out across upstreams.
func (s *Server) mirrorRoute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/mirror/")
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 {
		writeError(w, http.StatusBadRequest, "expected /mirror/<origin>/<op>")
		return
	}
	originID, op := parts[0], parts[1]

	switch op {
	case "list":
		s.mirrorList(w, r, originID)
	case "view":
		if len(parts) < 3 {
			writeError(w, http.StatusBadRequest, "expected /mirror/<origin>/view/<id>")
			return
		}
		s.mirrorView(w, r, originID, parts[2])
	case "download":
		if len(parts) < 3 {
			writeError(w, http.StatusBadRequest, "expected /mirror/<origin>/download/<id>")
			return
		}
		s.mirrorDownload(w, r, originID, parts[2])
	default:
		writeError(w, http.StatusBadRequest, "unknown mirror operation")
	}
}

func (s *Server) mirrorList(w http.ResponseWriter, r *http.Request, originID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusBadRequest, "list requires POST")
		return
	}
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, _, err := s.facade.List(r.Context(), originID, fetch.ListQuery{
		Term: req.Term, Category: category, Filter: fetch.Filter(req.Filter), Sort: req.Sort, Order: req.SortOrder,
	})
	if err != nil {
		s.writeMirrorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Torrents: items, Offset: req.Offset, Count: len(items), Total: len(items)})
}

func (s *Server) mirrorView(w http.ResponseWriter, r *http.Request, originID, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed id")
		return
	}
	view, _, err := s.facade.View(r.Context(), originID, id)
	if err != nil {
		s.writeMirrorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) mirrorDownload(w http.ResponseWriter, r *http.Request, originID, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed id")
		return
	}
	result, _, err := s.facade.Download(r.Context(), originID, id)
	if err != nil {
		s.writeMirrorError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%d"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.facade.Health(r.Context()))
}

func (s *Server) writeMirrorError(w http.ResponseWriter, err error) {
	if errors.Is(err, mirror.ErrUnknownOrigin) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeFetchError(w, err)
}

func writeFetchError(w http.ResponseWriter, err error) {
	var httpErr *models.HTTPStatusError
	if errors.As(err, &httpErr) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func idFromPath(path, prefix string) (int64, error) {
	idStr := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed id %q", idStr)
	}
	return id, nil
}

func parseCategory(s string) (models.Category, error) {
	if s == "" {
		return models.CategoryAll, nil
	}
	return models.ParseCategory(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
