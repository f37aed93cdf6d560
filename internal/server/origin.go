package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// newOriginChecker builds the CheckOrigin function for the WebSocket upgrader
// from the configured allow-list. A "*" entry allows every origin; invalid
// entries are logged and dropped. Requests without an Origin header (non
// browser clients) are always allowed.
func newOriginChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{})
	allowAll := false

	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(origin)
		if !ok {
			slog.Warn("Ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		allowed[normalized] = struct{}{}
	}

	return func(r *http.Request) bool {
		originHeader := r.Header.Get("Origin")
		if originHeader == "" {
			return true
		}
		if allowAll {
			return true
		}

		normalized, ok := normalizeOrigin(originHeader)
		if !ok {
			return false
		}
		if _, exists := allowed[normalized]; exists {
			return true
		}

		slog.Warn("Blocked WebSocket connection from disallowed origin", "origin", originHeader)
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
