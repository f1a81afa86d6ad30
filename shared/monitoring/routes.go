package monitoring

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts /health and /status on the router.
func RegisterRoutes(r *mux.Router, m *Monitor) {
	r.HandleFunc("/health", healthHandler(m)).Methods(http.MethodGet)
	r.HandleFunc("/status", statusHandler(m)).Methods(http.MethodGet)
}

func healthHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if m.IsHealthy() {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "OK - %s", m.GetStatusSummary())
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", m.GetStatusSummary())
	}
}

func statusHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, m.GetStatusSummary())
	}
}
