package status

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Handler is the HTTP handler for all /api/v1/* endpoints. It reads source
// state from the status store and returns JSON responses.
type Handler struct {
	store *Store
	mux   *http.ServeMux
}

// NewHandler creates a Handler wired to the given status store and registers
// all routes.
func NewHandler(st *Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sources", h.listSources)
	h.mux.HandleFunc("/api/v1/sources/", h.getSource) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall state and per-state counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{SourceCount: len(entries)}

	for _, e := range entries {
		resp.DocsPushed += e.DocsPushed
		switch h.store.State(e) {
		case StateOK:
			resp.OKCount++
		case StateStale:
			resp.StaleCount++
		case StateFailing:
			resp.FailingCount++
		default:
			resp.UnknownCount++
		}
	}

	switch {
	case resp.FailingCount > 0:
		resp.State = StateFailing
	case resp.StaleCount > 0:
		resp.State = StateStale
	case resp.OKCount > 0:
		resp.State = StateOK
	default:
		resp.State = StateUnknown
	}
	jsonResp(w, http.StatusOK, resp)
}

// listSources returns GET /api/v1/sources: all sources in configuration order.
func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]SourceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSourceResponse(h.store, e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getSource returns GET /api/v1/sources/{id}: a single source.
func (h *Handler) getSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sources/")
	if id == "" {
		// Redirect bare /api/v1/sources/ to the list handler.
		h.listSources(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "source not found")
		return
	}
	jsonResp(w, http.StatusOK, toSourceResponse(h.store, e))
}

// snapshot returns GET /api/v1/snapshot: full JSON dump of all sources.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, buildSnapshot(h.store))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// buildSnapshot assembles the full sources snapshot. Shared by the snapshot
// endpoint and the WebSocket hub.
func buildSnapshot(st *Store) SnapshotResponse {
	entries := st.List()
	sources := make([]SourceResponse, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, toSourceResponse(st, e))
	}
	return SnapshotResponse{
		Sources:     sources,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// toSourceResponse maps a store Entry to its JSON representation.
func toSourceResponse(st *Store, e Entry) SourceResponse {
	return SourceResponse{
		SourceID:            e.SourceID,
		State:               st.State(e),
		LastSuccess:         rfc3339OrEmpty(e.LastSuccess),
		LastError:           e.LastError,
		LastErrorAt:         rfc3339OrEmpty(e.LastErrorAt),
		ConsecutiveFailures: e.ConsecutiveFailures,
		DocsPushed:          e.DocsPushed,
		SamplesLastPoll:     e.SamplesLastPoll,
		SkippedLastPoll:     e.SkippedLastPoll,
	}
}

func rfc3339OrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
