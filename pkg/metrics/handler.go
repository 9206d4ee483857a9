package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/common/expfmt"
)

// Handler returns an http.Handler serving this registry's families in the
// plain text exposition format (version 0.0.4).
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fams, err := r.reg.Gather()
		if err != nil {
			http.Error(w, "gather failed", http.StatusInternalServerError)
			return
		}
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range fams {
			if err := enc.Encode(mf); err != nil {
				slog.Debug("metrics: encode family failed", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}
