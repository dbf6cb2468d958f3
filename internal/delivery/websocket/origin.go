package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// newOriginChecker builds the upgrader's CheckOrigin function from a
// configured allow-list. Requests without an Origin header (non-browser
// clients) are admitted; "*" or an empty list admits everything.
func newOriginChecker(origins []string, logger *slog.Logger) func(*http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		allowed[normalized] = struct{}{}
	}

	return func(r *http.Request) bool {
		header := r.Header.Get("Origin")
		if header == "" || allowAll {
			return true
		}
		normalized, ok := normalizeOrigin(header)
		if !ok {
			return false
		}
		if _, exists := allowed[normalized]; exists {
			return true
		}
		logger.Warn("blocked websocket connection from disallowed origin", "origin", header)
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
