package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// authGate guards mutating endpoints. Loopback callers pass when the
// bypass is enabled; everyone else must present the configured key via
// X-API-Key or a bearer token, compared in constant time.
type authGate struct {
	key            string
	loopbackBypass bool
}

func (g authGate) allow(r *http.Request) bool {
	if g.loopbackBypass && isLoopback(r.RemoteAddr) {
		return true
	}
	if g.key == "" {
		return false
	}

	presented := r.Header.Get(apiKeyHeader)
	if presented == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			presented = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.key)) == 1
}

// middleware rejects the request with 401 before any mutation happens.
func (g authGate) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allow(r) {
			writeError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
