package httpmetrics

import "strings"

const unmatchedPath = "/other"

// knownPaths are the only values the path label can take; anything else is
// reported as unmatchedPath so probes for random URLs cannot grow the series.
var knownPaths = map[string]struct{}{
	"/":                        {},
	"/health":                  {},
	"/metrics":                 {},
	"/api/auth/signup":         {},
	"/api/auth/login":          {},
	"/api/auth/logout":         {},
	"/api/auth/check-username": {},
	"/api/user":                {},
	"/api/dashboard":           {},
}

func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return unmatchedPath
}
