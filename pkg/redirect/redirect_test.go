package redirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	origin   = "https://app.test"
	fallback = "/"
)

func TestResolve_AcceptsPathRelative(t *testing.T) {
	assert.Equal(t, "/testpage", Resolve("/testpage", origin, fallback))
	assert.Equal(t, "/a/b?c=d", Resolve("/a/b?c=d", origin, fallback))
	assert.Equal(t, "account/settings", Resolve("account/settings", origin, fallback))
}

func TestResolve_AcceptsSameOriginAbsolute(t *testing.T) {
	assert.Equal(t, "https://app.test/testpage", Resolve("https://app.test/testpage", origin, fallback))
	assert.Equal(t, "https://app.test/", Resolve("https://app.test/", origin, fallback))
}

func TestResolve_CaseInsensitiveSchemeAndHost(t *testing.T) {
	assert.Equal(t, "HTTPS://APP.TEST/page", Resolve("HTTPS://APP.TEST/page", origin, fallback))
	assert.Equal(t, "https://App.Test/page", Resolve("https://App.Test/page", origin, fallback))
}

func TestResolve_RejectsForeignHost(t *testing.T) {
	assert.Equal(t, fallback, Resolve("http://attacker.example/x", origin, fallback))
	assert.Equal(t, fallback, Resolve("https://attacker.example/", origin, fallback))
}

func TestResolve_RejectsSchemeMismatch(t *testing.T) {
	// Same host, downgraded scheme: still a different origin.
	assert.Equal(t, fallback, Resolve("http://app.test/page", origin, fallback))
}

func TestResolve_RejectsProtocolRelative(t *testing.T) {
	assert.Equal(t, fallback, Resolve("//attacker.example/x", origin, fallback))
	assert.Equal(t, fallback, Resolve("//app.test/x", origin, fallback))
}

func TestResolve_RejectsBackslashes(t *testing.T) {
	assert.Equal(t, fallback, Resolve("/\\attacker.example", origin, fallback))
	assert.Equal(t, fallback, Resolve("\\/attacker.example", origin, fallback))
}

func TestResolve_RejectsUnparseable(t *testing.T) {
	assert.Equal(t, fallback, Resolve("https://app.test/%zz\x7f", origin, fallback))
	assert.Equal(t, fallback, Resolve(":", origin, fallback))
}

func TestResolve_EmptyCandidateFallsBack(t *testing.T) {
	assert.Equal(t, fallback, Resolve("", origin, fallback))
}

func TestResolve_FallbackIsConfigurable(t *testing.T) {
	assert.Equal(t, "/home", Resolve("http://attacker.example", origin, "/home"))
}
