// Package client talks to a supervisor over its HTTP API. Remote workers use it as
// their heartbeat reporter.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/health"
)

var ErrNotFound = errors.New("not found")

// Client represents a client to interact with the supervisor.
type Client struct {
	BaseURL    string
	options    *Options
	HTTPClient *http.Client
}

var _ health.Reporter = (*Client)(nil)

// NewClient creates a new Client instance.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: options.MaxIdleConnsPerHost,
		IdleConnTimeout:     options.IdleConnTimeout,
	}
	if options.ignoreTLSCert {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		BaseURL: baseURL,
		options: options,
		HTTPClient: &http.Client{
			Timeout:   options.Timeout,
			Transport: transport,
		},
	}, nil
}

// Heartbeat reports a heartbeat and never fails: errors are logged at debug level,
// the supervisor will notice the silence anyway.
func (c *Client) Heartbeat(name, status string) {
	if err := c.SendHeartbeat(context.Background(), name, status); err != nil {
		logrus.Debugf("Heartbeat for %s failed: %v", name, err)
	}
}

// SendHeartbeat reports a heartbeat and returns any transport error.
func (c *Client) SendHeartbeat(ctx context.Context, name, status string) error {
	return c.do(ctx, http.MethodPost, "/heartbeat/"+url.PathEscape(name), types.HeartbeatRequest{Status: status}, nil)
}

// Register registers a worker with the given criticality.
func (c *Client) Register(ctx context.Context, name string, criticality types.Criticality) error {
	return c.do(ctx, http.MethodPost, "/register/"+url.PathEscape(name), types.RegisterRequest{Criticality: criticality}, nil)
}

// ReportEvent appends an event to the supervisor's event log.
func (c *Client) ReportEvent(ctx context.Context, source string, severity types.Severity, message string) error {
	ev := types.Event{Source: source, Severity: severity, Message: message, Timestamp: time.Now()}
	return c.do(ctx, http.MethodPost, "/events", ev, nil)
}

func (c *Client) Status(ctx context.Context) (*types.SupervisorStatus, error) {
	st := &types.SupervisorStatus{}
	if err := c.do(ctx, http.MethodGet, "/status", nil, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *Client) Ledger(ctx context.Context) ([]types.LedgerEntry, error) {
	var entries []types.LedgerEntry
	if err := c.do(ctx, http.MethodGet, "/ledger", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LedgerEntry returns ErrNotFound for a source that never crashed.
func (c *Client) LedgerEntry(ctx context.Context, name string) (*types.LedgerEntry, error) {
	entry := &types.LedgerEntry{}
	if err := c.do(ctx, http.MethodGet, "/ledger/"+url.PathEscape(name), nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (c *Client) Audit(ctx context.Context, limit int) ([]types.AuditRecord, error) {
	var records []types.AuditRecord
	if err := c.do(ctx, http.MethodGet, "/audit?limit="+strconv.Itoa(limit), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) EmergencyStop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/emergency/stop", nil, nil)
}

func (c *Client) EmergencyClear(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/emergency/clear", nil, nil)
}

// do sends a request with an optional JSON body and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshaling request: %w", err)
		}
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.options.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %s request to %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respErr := types.APIError{}
		if json.Unmarshal(respBody, &respErr) == nil && respErr.Error != "" {
			return fmt.Errorf("error: %s (status code %d)", respErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("error: received status code %d from %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}
