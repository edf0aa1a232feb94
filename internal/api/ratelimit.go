package api

import (
	"net"
	"net/http"

	"github.com/inkwellapp/inkwell-server/internal/http/response"
)

// Upload limits per client IP. Ingestion is CPU and disk heavy, so a
// single client gets a small burst and a slow refill.
const (
	uploadRPS   = 0.5
	uploadBurst = 5
)

// limitUploads rejects upload requests from clients that exceed the
// per-IP token bucket.
func (s *Server) limitUploads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.uploadLimiter.Allow(clientKey(r)) {
			response.Error(w, http.StatusTooManyRequests, "too many uploads, slow down", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey extracts the client address for rate limiting. RemoteAddr
// has already been rewritten by the RealIP middleware.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
