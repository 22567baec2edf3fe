package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to the portal's calendar service over its JSON API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

type HTTPClientConfig struct {
	BaseURL string
	Token   string
	// Timeout bounds every calendar call; the scheduler treats the
	// calendar as best-effort and must not hang on it.
	Timeout time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateEvent(ctx context.Context, input EventInput) (string, error) {
	var created struct {
		EventID string `json:"event_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/events", input, &created); err != nil {
		return "", err
	}
	if created.EventID == "" {
		return "", fmt.Errorf("calendar service returned no event_id")
	}
	return created.EventID, nil
}

func (c *HTTPClient) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error {
	return c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID), patch, nil)
}

func (c *HTTPClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(eventID), nil, nil)
	if err != nil {
		var statusErr *statusError
		// The entry may have been removed by hand in the calendar UI;
		// deleting a gone event is a success.
		if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("calendar service responded %d: %s", e.code, e.body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode calendar request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build calendar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(snippet)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return nil
}
