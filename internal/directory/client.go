// Package directory is the HTTP client for the backend that owns user
// presence and domain data.
package directory

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 10 << 20

// State is a target presence state.
type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

func (s State) path() string {
	if s == Online {
		return "setOnline"
	}
	return "setOffline"
}

// Options configures a Client.
type Options struct {
	// InsecureTLS disables certificate verification, for a backend serving a
	// self-signed certificate in development.
	InsecureTLS bool
	// HTTPClient replaces the default client. InsecureTLS is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts Options, logger zerolog.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		hc = &http.Client{Transport: transport}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger.With().Str("component", "DirectoryClient").Logger(),
	}
}

// SetPresence issues PUT /api/user/{setOnline|setOffline}/{email} with the
// bearer token and returns the response status code. Any status is returned
// without error; callers decide what counts as success. The response body is
// discarded, so a body that fails to arrive does not turn an accepted update
// into an error.
func (c *Client) SetPresence(ctx context.Context, userEmail, authToken string, state State) (int, error) {
	body, err := json.Marshal(map[string]string{"email": userEmail})
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/api/user/%s/%s", c.baseURL, state.path(), url.PathEscape(userEmail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build presence request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// FetchData issues GET /api/word and returns the response body. Non-2xx
// responses are returned as *StatusError.
func (c *Client) FetchData(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/word", nil)
	if err != nil {
		return nil, fmt.Errorf("build data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status}
	}
	return body, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.send(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, &ResponseError{StatusCode: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, body, nil
}

// send performs the round trip. A failure before any response arrives is a
// *TransportError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Msg("Backend responded.")
	return resp, nil
}
