// Package httpsender issues the single POST request the negotiate protocol
// needs, applying caller-supplied headers verbatim. Post itself follows no
// HTTP-level redirects; whether the Doer does is the Doer's own policy, and
// the default Doer a Connection builds does not (redirects in this protocol
// are application-level, carried in the negotiate JSON body).
package httpsender

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/signalrgo/client/internal/signalrerr"
)

// Doer is the subset of *http.Client used here, grounded on the Doer
// abstraction from the wider SignalR Go ecosystem — lets tests inject a
// fake client without touching the network.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Post issues a POST to u with the given headers and returns the response
// body on any 2xx status, or a *signalrerr.WebError otherwise.
func Post(ctx context.Context, client Doer, u *url.URL, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &signalrerr.WebError{Status: resp.StatusCode, Reason: resp.Status}
	}

	return body, nil
}
