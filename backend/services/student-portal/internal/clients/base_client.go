package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable wraps transport failures: the API could not be reached.
var ErrUnavailable = errors.New("clients: billing api unavailable")

// ErrIncompleteResponse marks a 2xx answer missing fields the caller needs.
var ErrIncompleteResponse = errors.New("clients: incomplete response")

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// APIError is a refusal reported by the billing API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("billing api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("billing api: status %d: %s", e.StatusCode, e.Message)
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Status  *bool           `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// BaseClient issues requests against the billing API.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do executes the request and returns status/body. Form values are sent url-encoded;
// a non-empty token is sent as a bearer credential.
func (c *BaseClient) Do(ctx context.Context, method, path, token string, form url.Values) (int, []byte, error) {
	var reader io.Reader
	if form != nil {
		reader = bytes.NewReader([]byte(form.Encode()))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

// call runs Do and unwraps the envelope. Non-2xx and status:false become *APIError.
func (c *BaseClient) call(ctx context.Context, method, path, token string, form url.Values) (*envelope, []byte, error) {
	status, body, err := c.Do(ctx, method, path, token, form)
	if err != nil {
		return nil, nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		apiErr := &APIError{StatusCode: status}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return nil, body, apiErr
	}
	if decodeErr != nil {
		return nil, body, fmt.Errorf("clients: decode %s %s: %w", method, path, decodeErr)
	}
	if env.Status != nil && !*env.Status {
		return nil, body, &APIError{StatusCode: status, Message: env.Message}
	}
	return &env, body, nil
}

// decodeList accepts either a bare array or an object holding the array under key.
func decodeList(raw json.RawMessage, key string, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return err
	}
	inner, ok := wrapper[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(inner, out)
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
