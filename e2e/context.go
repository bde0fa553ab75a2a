// Package e2e drives a running credit gate over HTTP with godog scenarios.
//
// The suite targets the URL in CREDITGATE_E2E_URL and is skipped when the
// variable is unset, so unit test runs never require a live server.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// TestContext carries HTTP state across scenario steps. Each scenario gets a
// fresh context, and with it a fresh cookie jar, so device identities never
// leak between scenarios.
type TestContext struct {
	baseURL string
	client  *http.Client

	lastStatus int
	lastBody   []byte
}

// NewTestContext builds a context targeting the given base URL.
func NewTestContext(baseURL string) (*TestContext, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &TestContext{
		baseURL: baseURL,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

// ResetDevice discards cookies so the next request looks like a new device.
func (tc *TestContext) ResetDevice() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	tc.client.Jar = jar
	return nil
}

// POST sends a JSON body and captures the response.
func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := tc.client.Post(tc.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return tc.capture(resp)
}

// GET captures the response for a plain GET.
func (tc *TestContext) GET(path string) error {
	resp, err := tc.client.Get(tc.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return tc.capture(resp)
}

func (tc *TestContext) capture(resp *http.Response) error {
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = buf.Bytes()
	return nil
}

// LastStatus returns the most recent response status code.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// LastJSON decodes the most recent response body.
func (tc *TestContext) LastJSON() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(tc.lastBody, &m); err != nil {
		return nil, fmt.Errorf("decode response %q: %w", tc.lastBody, err)
	}
	return m, nil
}
