// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thevirtualbrain/tvb-hpc/lib/credential"
	"github.com/thevirtualbrain/tvb-hpc/lib/version"
)

// DefaultTimeout bounds one request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// BaseURL is the controller root, e.g. "https://tvb.example.org".
	BaseURL string

	// Credentials supplies the bearer token for every request.
	Credentials *credential.Store

	// Timeout bounds each request including reading the body.
	Timeout time.Duration

	// Transport overrides the per-call transport. Tests point it at
	// an httptest server; production leaves it nil.
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client issues authenticated requests to one controller.
type Client struct {
	baseURL     string
	credentials *credential.Store
	timeout     time.Duration
	transport   http.RoundTripper
	logger      *slog.Logger
}

// New returns a Client for config.BaseURL.
func New(config Config) (*Client, error) {
	if config.Credentials == nil {
		return nil, fmt.Errorf("controller: credential store is required")
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("controller: base URL is empty")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		credentials: config.Credentials,
		timeout:     timeout,
		transport:   config.Transport,
		logger:      logger,
	}, nil
}

// BaseURL returns the controller root without a trailing slash.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// endpoint joins the controller root, a fixed route and the escaped
// simulator gid.
func (client *Client) endpoint(route, simulatorGID string) string {
	return client.baseURL + route + url.PathEscape(simulatorGID)
}

// channel builds the HTTP client for one outbound call. The token is
// read now so a rotated token file takes effect on the next call.
func (client *Client) channel() *http.Client {
	base := client.transport
	if base == nil {
		base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		}
	}
	return &http.Client{
		Timeout: client.timeout,
		Transport: &headerTransport{
			base:          base,
			authorization: client.credentials.Authorization(),
			userAgent:     version.UserAgent(),
		},
	}
}

// headerTransport adds the authentication and identification headers
// to each request.
type headerTransport struct {
	base          http.RoundTripper
	authorization string
	userAgent     string
}

func (transport *headerTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("Authorization", transport.authorization)
	request.Header.Set("User-Agent", transport.userAgent)
	return transport.base.RoundTrip(request)
}
