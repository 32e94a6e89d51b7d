package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotDone is returned by Pending.Result before the handle is terminal.
var ErrNotDone = errors.New("operation still pending")

// ErrClosed is the rejection for submissions after Close.
var ErrClosed = errors.New("coordinator closed")

// Params are request query or form parameters.
type Params map[string]string

// Reply is a decoded JSON response plus the raw HTTP response for
// diagnostics.
type Reply struct {
	Body map[string]any
	HTTP *http.Response
}

// Transport issues JSON API calls against the server.
type Transport interface {
	Do(ctx context.Context, method, path string, params Params) (*Reply, error)
}

// TransportError reports a failed HTTP exchange: a network error or a
// non-2xx status. It carries the raw response (when one exists) so
// rejections can attach it for diagnostics.
type TransportError struct {
	Status     int
	StatusText string
	Response   *http.Response
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: %d %s", e.Status, e.StatusText)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPTransport is the default Transport over net/http. The body of every
// response is decoded as a JSON object.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPTransport creates a transport for the given server base URL.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

// Do performs the request. Per-call deadlines come from ctx; the poll
// scheduler sets them to its current interval.
func (t *HTTPTransport) Do(ctx context.Context, method, path string, params Params) (*Reply, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	target := t.BaseURL + path
	var body io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete, "":
		if method == "" {
			method = http.MethodGet
		}
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
	default:
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Response:   resp,
		}
	}

	decoded := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err), Response: resp}
	}
	return &Reply{Body: decoded, HTTP: resp}, nil
}
