package gemini

import (
	"net/http"
	"sync"
)

// genai.APIError drops response headers, so the status and Retry-After of
// each response are recorded into a slot carried by the request context.
type capturedResponseKey struct{}

type capturedResponse struct {
	mu         sync.Mutex
	status     int
	retryAfter string
}

func (c *capturedResponse) set(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = resp.StatusCode
	c.retryAfter = resp.Header.Get("Retry-After")
}

func (c *capturedResponse) get() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status, c.retryAfter
}

type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if captured, ok := req.Context().Value(capturedResponseKey{}).(*capturedResponse); ok {
		captured.set(resp)
	}

	return resp, nil
}

// withResponseCapture returns a copy of client whose transport records
// responses for call.
func withResponseCapture(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	wrapped := *client
	wrapped.Transport = &captureTransport{base: base}

	return &wrapped
}
