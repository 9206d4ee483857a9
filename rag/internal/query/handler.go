package query

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler returns the engine's HTTP surface: GET /query?q=<question>.
// Success is a 200 with the Answer JSON; a missing question is a 400; a
// pipeline failure is a 500 carrying the error.
func (e *Engine) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		q := r.URL.Query().Get("q")
		if q == "" {
			jsonErr(w, http.StatusBadRequest, "missing query parameter q")
			return
		}

		ans, err := e.Answer(r.Context(), q)
		if err != nil {
			slog.Error("query failed", "err", err)
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		jsonResp(w, http.StatusOK, ans)
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, struct {
		Error string `json:"error"`
	}{Error: msg})
}
