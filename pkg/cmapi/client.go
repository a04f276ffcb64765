/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	"github.com/deckhouse/cmux-cli/pkg/poll"
)

const defaultRequestTimeout = 30 * time.Second

// ProgressFunc receives the last observed value of every confirmation poll,
// e.g. the current role state while waiting for STARTED.
type ProgressFunc func(status string)

// Config describes how to reach one Cloudera Manager.
type Config struct {
	// BaseURL is scheme://host:port of the manager.
	BaseURL string
	// APIVersion is the "vN" path segment. Use APIVersionFor to derive it.
	APIVersion         string
	User               string
	Password           string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	PollInterval       time.Duration
}

// Client is a typed client for the manager REST API.
type Client struct {
	http     *http.Client
	apiURL   string
	user     string
	password string
	poller   *poll.Poller
	progress ProgressFunc
	logger   *dkplog.Logger
}

func NewClient(cfg Config, logger *dkplog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid manager URL %q", cfg.BaseURL)
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("API version is required for %s", cfg.BaseURL)
	}

	transport := cleanhttp.DefaultPooledTransport()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		http:     &http.Client{Transport: transport, Timeout: timeout},
		apiURL:   strings.TrimRight(base.String(), "/") + "/api/" + cfg.APIVersion,
		user:     cfg.User,
		password: cfg.Password,
		poller:   poll.New(poll.WithInterval(cfg.PollInterval)),
		progress: func(string) {},
		logger:   logger,
	}, nil
}

// WithProgress returns a copy of the client reporting poll progress to fn.
func (c *Client) WithProgress(fn ProgressFunc) *Client {
	cp := *c
	if fn == nil {
		fn = func(string) {}
	}
	cp.progress = fn
	return &cp
}

func (c *Client) get(ctx context.Context, resource string, out any) error {
	return c.do(ctx, http.MethodGet, resource, nil, out)
}

func (c *Client) post(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, http.MethodPost, resource, body, out)
}

func (c *Client) do(ctx context.Context, method, resource string, body, out any) error {
	endpoint := c.apiURL + resource

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request for %s: %w", resource, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &APIError{Method: method, URL: endpoint, Err: err}
	}
	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Manager API request", slog.String("method", method), slog.String("url", endpoint))

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func rolePath(cluster, service, role string) string {
	return fmt.Sprintf("/clusters/%s/services/%s/roles/%s",
		url.PathEscape(cluster), url.PathEscape(service), url.PathEscape(role))
}

func servicePath(cluster, service string) string {
	return fmt.Sprintf("/clusters/%s/services/%s", url.PathEscape(cluster), url.PathEscape(service))
}
