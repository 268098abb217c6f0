package urlbuilder

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestBuildNegotiatePreservesQuery(t *testing.T) {
	base := mustParse(t, "http://host/hub?a=b")
	got := BuildNegotiate(base)
	assert.Equal(t, "http://host/hub/negotiate?a=b", got.String())
}

func TestBuildNegotiateNoQuery(t *testing.T) {
	base := mustParse(t, "http://host/hub")
	got := BuildNegotiate(base)
	assert.Equal(t, "http://host/hub/negotiate", got.String())
}

func TestBuildConnectNoExistingQuery(t *testing.T) {
	base := mustParse(t, "http://host/hub")
	got := BuildConnect(base, "f7707523-307d-4cba-9abf-3eef701241e8")
	assert.Equal(t, "ws://host/hub?id=f7707523-307d-4cba-9abf-3eef701241e8", got.String())
}

func TestBuildConnectWithExistingQuery(t *testing.T) {
	base := mustParse(t, "http://host/hub?a=b")
	got := BuildConnect(base, "f7707523-307d-4cba-9abf-3eef701241e8")
	assert.Equal(t, "ws://host/hub?a=b&id=f7707523-307d-4cba-9abf-3eef701241e8", got.String())
}

func TestBuildConnectMapsHTTPSToWSS(t *testing.T) {
	base := mustParse(t, "https://host/hub")
	got := BuildConnect(base, "abc")
	assert.Equal(t, "wss", got.Scheme)
}

func TestBuildWithRedirectDropsOriginalQuery(t *testing.T) {
	redirect := mustParse(t, "http://redirected?customQuery=1")
	merged := BuildWithRedirect(redirect)
	connectURL := BuildConnect(merged, "f7707523-307d-4cba-9abf-3eef701241e8")
	assert.Equal(t, "ws://redirected?customQuery=1&id=f7707523-307d-4cba-9abf-3eef701241e8", connectURL.String())
}
