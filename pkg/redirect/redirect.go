// Package redirect validates post-login navigation targets. A destination
// supplied by the client is only ever followed when it stays on the
// application's own origin; anything else is silently replaced with a
// configured fallback, never reported as an error.
package redirect

import (
	"net/url"
	"strings"
)

// Resolve returns candidate when it is a safe post-login destination, and
// fallback otherwise. Safe means a path-relative reference or an absolute URL
// whose scheme and host match origin (case-insensitive). Protocol-relative
// references ("//evil.example/x") and scheme or host mismatches are rejected
// even when the path looks innocuous.
func Resolve(candidate, origin, fallback string) string {
	if candidate == "" {
		return fallback
	}

	// Backslashes are treated as path separators by some browsers; refuse
	// rather than guess.
	if strings.Contains(candidate, "\\") {
		return fallback
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return fallback
	}

	// Relative reference. url.Parse gives "//evil.example" an empty scheme
	// but a host, so protocol-relative targets do not slip through here.
	if u.Scheme == "" && u.Host == "" {
		return candidate
	}

	o, err := url.Parse(origin)
	if err != nil {
		return fallback
	}

	if strings.EqualFold(u.Scheme, o.Scheme) && strings.EqualFold(u.Host, o.Host) {
		return candidate
	}

	return fallback
}
