package handlers

import (
	"net/http"
)

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// HandleHealth handles /health endpoint. It reports "stale" with 503 while the
// reference source is down so load balancers can tell a frozen table apart.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	snap := currentSnapshot()
	switch {
	case snap.Stale:
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("stale\n"))
	case snap.Degraded():
		_, _ = w.Write([]byte("degraded\n"))
	default:
		_, _ = w.Write([]byte("ok\n"))
	}
}
