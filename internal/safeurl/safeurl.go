// Package safeurl guards URLs taken from config or from API responses.
package safeurl

import (
	"fmt"
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u parses with scheme http or https and a host.
// Rejects file://, ftp://, javascript: and scheme-less strings.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return false
	}
	s := strings.ToLower(parsed.Scheme)
	return (s == "http" || s == "https") && parsed.Host != ""
}

// Playable returns u trimmed when it is an http(s) URL, or an error naming
// field. Empty input is allowed and returns "".
func Playable(field, u string) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return "", nil
	}
	if !IsHTTPOrHTTPS(u) {
		return "", fmt.Errorf("%s: refusing non-http(s) url %q", field, u)
	}
	return u, nil
}
