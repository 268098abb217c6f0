package negotiate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalrgo/client/internal/clientconfig"
	"github.com/signalrgo/client/internal/signalrerr"
)

func parseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNegotiateHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hub/negotiate", r.URL.Path)
		assert.Equal(t, "a=b", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"connectionId":"f7707523-307d-4cba-9abf-3eef701241e8","availableTransports":[{"transport":"WebSockets","transferFormats":["Text","Binary"]}]}`))
	}))
	defer srv.Close()

	base := parseURL(t, srv.URL+"/hub?a=b")
	result, err := Negotiate(context.Background(), srv.Client(), base, clientconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "f7707523-307d-4cba-9abf-3eef701241e8", result.ConnectionID)
	assert.Equal(t, "a=b", result.FinalURL.RawQuery)
}

func TestNegotiateRedirectCarriesToken(t *testing.T) {
	var second *httptest.Server
	var gotAuth string

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf(`{"url":%q,"accessToken":"secret"}`, second.URL)))
	}))
	defer first.Close()

	second = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"connectionId":"f7707523-307d-4cba-9abf-3eef701241e8","availableTransports":[{"transport":"WebSockets","transferFormats":["Text"]}]}`))
	}))
	defer second.Close()

	base := parseURL(t, first.URL)
	cfg := clientconfig.Config{HTTPHeaders: http.Header{"X-Original": []string{"1"}}}
	result, err := Negotiate(context.Background(), first.Client(), base, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "f7707523-307d-4cba-9abf-3eef701241e8", result.ConnectionID)

	// the caller's original config must not be mutated
	assert.Empty(t, cfg.HTTPHeaders.Get("Authorization"))
}

func TestNegotiateRedirectReplacesQuery(t *testing.T) {
	var second *httptest.Server

	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf(`{"url":"%s?customQuery=1"}`, second.URL)))
	}))
	defer first.Close()

	second = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "customQuery=1", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"connectionId":"abc","availableTransports":[{"transport":"WebSockets"}]}`))
	}))
	defer second.Close()

	base := parseURL(t, first.URL+"?a=b&c=d")
	result, err := Negotiate(context.Background(), first.Client(), base, clientconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "customQuery=1", result.FinalURL.RawQuery)
}

func TestNegotiateLegacyServerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ProtocolVersion":"","connectionId":"abc","availableTransports":[{"transport":"WebSockets"}]}`))
	}))
	defer srv.Close()

	_, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
	require.Error(t, err)
	var protoErr *signalrerr.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, protoErr.Message, "ASP.NET SignalR Server")
}

func TestNegotiateServerErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	_, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNegotiateMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
	require.Error(t, err)
	var protoErr *signalrerr.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, protoErr.Message, "Could not parse")
}

func TestNegotiateNoWebSocketsTransport(t *testing.T) {
	cases := []string{
		`{"connectionId":"abc","availableTransports":[]}`,
		`{"connectionId":"abc","availableTransports":[{"transport":"ServerSentEvents"}]}`,
	}

	for _, body := range cases {
		body := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not support WebSockets")
		srv.Close()
	}
}

func TestNegotiateRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf(`{"url":%q}`, srv.URL)))
	}))
	defer srv.Close()

	_, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Negotiate redirection limit exceeded.")
}

func TestNegotiateExactly100RedirectsSucceed(t *testing.T) {
	count := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		if count <= 100 {
			_, _ = w.Write([]byte(fmt.Sprintf(`{"url":%q}`, srv.URL)))
			return
		}
		_, _ = w.Write([]byte(`{"connectionId":"abc","availableTransports":[{"transport":"WebSockets"}]}`))
	}))
	defer srv.Close()

	result, err := Negotiate(context.Background(), srv.Client(), parseURL(t, srv.URL), clientconfig.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ConnectionID)
	assert.Equal(t, 101, count)
}
