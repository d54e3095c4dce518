package health

import (
	"net/http"

	"github.com/dmitrymomot/dispatch/pkg/jsoncodec"
)

// LivenessHandler always reports UP while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Report{Status: StatusUp, Checks: []Result{}})
	}
}

// ReadinessHandler runs checks on every request. It answers 200 when all
// pass, 503 otherwise, and 503 with NotReadyMessage while the gate is closed.
func ReadinessHandler(checks []Check, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.gate != nil && !cfg.gate() {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(NotReadyMessage))
			return
		}

		report := run(r.Context(), checks, cfg)
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = jsoncodec.Encode(w, v)
}
