// Package urlbuilder composes the negotiate and connect URLs used by the
// connection core, preserving query strings the way the ASP.NET Core
// SignalR negotiate protocol requires.
package urlbuilder

import "net/url"

// BuildNegotiate returns base + "/negotiate", preserving base's query string.
func BuildNegotiate(base *url.URL) *url.URL {
	u := *base
	u.Path = joinPath(u.Path, "negotiate")
	return &u
}

// BuildConnect appends "id=<connectionID>" to base's existing query string
// and maps the scheme from http(s) to ws(s) for the WebSocket transport.
func BuildConnect(base *url.URL, connectionID string) *url.URL {
	u := *base
	idParam := "id=" + url.QueryEscape(connectionID)
	if u.RawQuery == "" {
		u.RawQuery = idParam
	} else {
		u.RawQuery += "&" + idParam
	}
	u.Scheme = wsScheme(u.Scheme)
	return &u
}

// BuildWithRedirect returns the URL for the next negotiate hop: a copy of
// the redirect URL with its own query. The original caller-supplied query
// is not an input here, so it does not carry forward; only the redirect
// target's query does.
func BuildWithRedirect(redirectURL *url.URL) *url.URL {
	u := *redirectURL
	return &u
}

func wsScheme(scheme string) string {
	switch scheme {
	case "https":
		return "wss"
	case "http":
		return "ws"
	default:
		return scheme
	}
}

func joinPath(path, segment string) string {
	if path == "" {
		return "/" + segment
	}
	if path[len(path)-1] == '/' {
		return path + segment
	}
	return path + "/" + segment
}
