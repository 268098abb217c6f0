// Package negotiate drives the negotiate sub-protocol: posting to
// <base>/negotiate, following server-issued redirects with a bounded
// counter, and extracting the connection id and transport list.
package negotiate

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/signalrgo/client/internal/clientconfig"
	"github.com/signalrgo/client/internal/httpsender"
	"github.com/signalrgo/client/internal/metrics"
	"github.com/signalrgo/client/internal/signalrerr"
	"github.com/signalrgo/client/internal/urlbuilder"
)

// maxRedirects bounds the negotiate redirect chain per the protocol spec.
const maxRedirects = 100

// webSocketsTransport is the only transport name this client accepts.
const webSocketsTransport = "WebSockets"

// AvailableTransport is one entry of a negotiate response's
// availableTransports array.
type AvailableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

// response models the raw negotiate JSON body.
type response struct {
	ConnectionID        string               `json:"connectionId"`
	AvailableTransports []AvailableTransport `json:"availableTransports"`
	URL                 string               `json:"url"`
	AccessToken         string               `json:"accessToken"`
	Error               string               `json:"error"`
	ProtocolVersion     json.RawMessage      `json:"ProtocolVersion"`
}

// Result is the outcome of a successful negotiation.
type Result struct {
	FinalURL        *url.URL
	ConnectionID    string
	Transports      []AvailableTransport
	EffectiveConfig clientconfig.Config
}

// Negotiate drives the algorithm in full: it POSTs to baseURL/negotiate,
// follows any "url" redirect (quarantining an injected Authorization header
// to a per-iteration config clone), and returns the final negotiated
// result, or a typed error. m may be nil; every call against it is
// nil-safe.
func Negotiate(ctx context.Context, client httpsender.Doer, baseURL *url.URL, cfg clientconfig.Config, m *metrics.Metrics) (*Result, error) {
	currentURL := baseURL
	currentCfg := cfg.Clone()
	remaining := maxRedirects

	for {
		m.IncNegotiateAttempt()
		body, err := httpsender.Post(ctx, client, urlbuilder.BuildNegotiate(currentURL), currentCfg.HTTPHeaders)
		if err != nil {
			return nil, err
		}

		var resp response
		if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
			return nil, signalrerr.NewProtocol("Could not parse negotiate response.")
		}

		if len(resp.ProtocolVersion) > 0 {
			return nil, signalrerr.NewProtocol(
				"Detected a connection attempt to an ASP.NET SignalR Server. This client only supports connecting to an ASP.NET Core SignalR Server.",
			)
		}

		if resp.Error != "" {
			return nil, signalrerr.NewProtocol(resp.Error)
		}

		if resp.URL != "" {
			if remaining <= 0 {
				return nil, signalrerr.NewProtocol("Negotiate redirection limit exceeded.")
			}
			remaining--
			m.IncNegotiateRedirect()

			redirectURL, err := url.Parse(resp.URL)
			if err != nil {
				return nil, signalrerr.NewProtocol("Could not parse negotiate redirect URL.")
			}

			nextCfg := cfg.Clone()
			if resp.AccessToken != "" {
				nextCfg.HTTPHeaders.Set("Authorization", "Bearer "+resp.AccessToken)
			}

			currentURL = urlbuilder.BuildWithRedirect(redirectURL)
			currentCfg = nextCfg
			continue
		}

		if !hasWebSockets(resp.AvailableTransports) {
			return nil, signalrerr.NewProtocol(
				"The server does not support WebSockets which is currently the only transport supported by this client.",
			)
		}

		return &Result{
			FinalURL:        currentURL,
			ConnectionID:    resp.ConnectionID,
			Transports:      resp.AvailableTransports,
			EffectiveConfig: currentCfg,
		}, nil
	}
}

func hasWebSockets(transports []AvailableTransport) bool {
	for _, t := range transports {
		if t.Transport == webSocketsTransport {
			return true
		}
	}
	return false
}
