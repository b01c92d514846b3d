// Package client talks to the template backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mr1hm/go-alert-relationships/internal/models"
)

var (
	// ErrNetwork wraps transport failures.
	ErrNetwork = errors.New("backend request failed")
	// ErrNotFound is matched by a StatusError carrying a 404.
	ErrNotFound = errors.New("not found")
	// ErrMalformed wraps responses that could not be decoded.
	ErrMalformed = errors.New("malformed response")
)

// StatusError is returned for any non-2xx response. Body holds the response
// body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - body: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type Client struct {
	client *http.Client
	host   string
}

func New(host string, timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		host: strings.TrimRight(host, "/"),
	}
}

// LoadTemplate applies template to the selected alerts on the backend.
func (c *Client) LoadTemplate(ctx context.Context, template string, alerts []models.FlatAlert) (*models.LoadResponse, error) {
	encoded, err := models.EncodeAlerts(alerts)
	if err != nil {
		return nil, fmt.Errorf("error encoding alerts: %w", err)
	}

	var resp models.LoadResponse
	body := models.TemplateRequest{Template: template, Alerts: encoded}
	if err := c.do(ctx, http.MethodPost, "/api/templates/load", body, &resp); err != nil {
		return nil, err
	}
	if resp.Tree == nil {
		return nil, fmt.Errorf("%w: response has no tree", ErrMalformed)
	}

	return &resp, nil
}

// SaveTemplate stores the flat alert list under template.
func (c *Client) SaveTemplate(ctx context.Context, template string, alerts []models.FlatAlert) error {
	encoded, err := models.EncodeAlerts(alerts)
	if err != nil {
		return fmt.Errorf("error encoding alerts: %w", err)
	}

	var resp models.SaveResponse
	body := models.TemplateRequest{Template: template, Alerts: encoded}
	return c.do(ctx, http.MethodPost, "/api/templates/save", body, &resp)
}

func (c *Client) FetchAlertTypes(ctx context.Context) ([]models.AlertTypeRecord, error) {
	var resp models.AlertTypesResponse
	if err := c.do(ctx, http.MethodGet, "/api/alert_types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.AlertTypes, nil
}

// ListAlerts returns the monitoring grid's alerts, already nested.
func (c *Client) ListAlerts(ctx context.Context) ([]*models.AlertNode, error) {
	var resp models.AlertsResponse
	if err := c.do(ctx, http.MethodGet, "/api/alerts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

func (c *Client) ListTemplates(ctx context.Context) ([]string, error) {
	var resp models.TemplatesResponse
	if err := c.do(ctx, http.MethodGet, "/api/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: error decoding resp.Body: %w", ErrMalformed, err)
	}

	return nil
}
