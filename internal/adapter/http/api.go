package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/adapter/geojson"
	"github.com/couchcryptid/vegwatch-service/internal/dashboard"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxActionBody = 1 << 20

func (s *Server) routes(r chi.Router) {
	r.Get("/observations", s.handleObservations)
	r.Get("/map", s.handleMap)
	r.Get("/stats", s.handleStats)

	r.Get("/view", s.handleGetView)
	r.Put("/view", s.handleSetView)

	r.Get("/watchlist", s.handleWatchlist)
	r.Put("/watchlist/{id}", s.handleWatch)
	r.Delete("/watchlist/{id}", s.handleUnwatch)

	r.Get("/selection", s.handleSelection)
	r.Post("/selection/toggle/{id}", s.handleToggle)
	r.Post("/selection/all", s.handleSelectAll)
	r.Delete("/selection", s.handleClearSelection)

	r.Get("/actions", s.handleListActions)
	r.Post("/actions", s.handleLogAction)

	r.Get("/search", s.handleSearch)
}

type observationsResponse struct {
	Status       dashboard.Status               `json:"status"`
	Error        string                         `json:"error,omitempty"`
	Generation   uint64                         `json:"generation"`
	UpdatedAt    *time.Time                     `json:"updated_at,omitempty"`
	View         string                         `json:"view,omitempty"`
	Count        int                            `json:"count"`
	Observations []domain.ClassifiedObservation `json:"observations"`
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	snap := s.svc.Snapshot()

	obs := snap.Observations
	if view != "" {
		name, err := domain.ParseViewName(view)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if obs, err = s.svc.View(name); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view = string(name)
	}

	resp := observationsResponse{
		Status:       snap.Status,
		Error:        snap.Err,
		Generation:   snap.Generation,
		View:         view,
		Count:        len(obs),
		Observations: obs,
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	layer, err := s.svc.MapLayer(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := geojson.Encode(layer)
	if err != nil {
		s.logger.Error("encode map layer failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("could not render map layer"))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort response
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Stats(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type viewBody struct {
	View string `json:"view"`
}

func (s *Server) handleGetView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewBody{View: string(s.svc.ActiveView())})
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var body viewBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	v, err := s.svc.SetActiveView(body.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBody{View: string(v)})
}

type idsBody struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, idsBody{IDs: s.svc.Watchlist()})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ids, err := s.svc.AddToWatchlist(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idsBody{IDs: ids})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ids, err := s.svc.RemoveFromWatchlist(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idsBody{IDs: ids})
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, idsBody{IDs: s.svc.Selection()})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, idsBody{IDs: s.svc.ToggleSelection(id)})
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.SelectAllInView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, idsBody{IDs: ids})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.svc.ClearSelection()
	writeJSON(w, http.StatusOK, idsBody{IDs: s.svc.Selection()})
}

type actionRequest struct {
	Kind        string            `json:"kind"`
	PointID     string            `json:"pointId"`
	Description string            `json:"description"`
	Files       []domain.FileMeta `json:"files"`
}

func (s *Server) handleLogAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	kind, err := domain.ParseActionKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.svc.LogAction(r.Context(), kind, req.PointID, req.Description, req.Files)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListActions(r.Context())
	if err != nil {
		s.logger.Error("list actions failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("could not read the action log"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": recs})
}

type searchResponse struct {
	Query   string         `json:"query"`
	Enabled bool           `json:"enabled"`
	Places  []domain.Place `json:"places"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	places, err := s.search.Query(r.Context(), q)
	switch {
	case errors.Is(err, dashboard.ErrSuperseded):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		// The client went away.
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Enabled: s.search.Enabled(), Places: places})
}

// writeServiceError maps dashboard errors to status codes. Persistence
// failures carry a one-shot notice for the user.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrPersist):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:  err.Error(),
			Notice: "Your change could not be saved. Please try again.",
		})
	case errors.Is(err, dashboard.ErrUnknownObservation):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidActionKind), errors.Is(err, domain.ErrUnknownView):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// pathID reads the {id} route parameter. Observation ids contain commas and
// dots, so clients may percent-encode them.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, errors.New("invalid observation id"))
		return "", false
	}
	return id, true
}
