// Package dependency provides the HTTP implementation of the external dependency the
// supervisor watches.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

var ErrNoProbeURL = errors.New("dependency probe URL is not set")

// HTTP probes a dependency with a GET request and resets it with a POST request.
type HTTP struct {
	probeURL   string
	resetURL   string
	httpClient *http.Client
	options    *Options
}

func NewHTTP(probeURL, resetURL string, opts ...Option) (*HTTP, error) {
	if probeURL == "" {
		return nil, ErrNoProbeURL
	}
	options := NewOptions(opts...)

	return &HTTP{
		probeURL:   probeURL,
		resetURL:   resetURL,
		httpClient: &http.Client{Timeout: options.Timeout},
		options:    options,
	}, nil
}

// Available reports whether the probe URL answers with a 2xx status. Transport errors
// are retried a few times and then reported as unavailable; only a cancelled context
// or a malformed request is returned as an error.
func (h *HTTP) Available(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.probeURL, nil)
	if err != nil {
		return false, fmt.Errorf("error creating probe request: %w", err)
	}

	var status int
	operation := func() error {
		resp, err := h.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		status = resp.StatusCode
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(h.options.RetryDelay), h.options.Retries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logrus.Debugf("Dependency probe %s failed: %v", h.probeURL, err)
		return false, nil
	}

	if status < 200 || status >= 300 {
		logrus.Debugf("Dependency probe %s returned status %d", h.probeURL, status)
		return false, nil
	}
	return true, nil
}

// Reset posts to the reset URL. Without one, a reset is a no-op and recovery relies on
// the dependency coming back by itself.
func (h *HTTP) Reset(ctx context.Context) error {
	if h.resetURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.resetURL, nil)
	if err != nil {
		return fmt.Errorf("error creating reset request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending reset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("error: received status code %d from reset", resp.StatusCode)
	}
	return nil
}
