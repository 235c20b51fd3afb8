package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient reports whether err looks safe to retry: network timeouts,
// dropped connections, and the usual rate-limit or server-overload replies
// from HTTP upstreams.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNRESET,
		syscall.ECONNREFUSED,
		syscall.ECONNABORTED,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	// HTTP client errors usually arrive flattened into strings by the time
	// they reach a retry loop, so match on the common phrasings.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"too many requests",
		"rate limit",
		"overloaded",
		"bad gateway",
		"service unavailable",
		"gateway timeout",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
