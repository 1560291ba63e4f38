// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package networking provides the HTTP plumbing shared by the native
// adapters: a client factory with per-call timeouts and generic JSON fetch
// helpers with bounded response reads.
package networking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// HTTPTimeout is the default timeout for outgoing HTTP requests.
	HTTPTimeout = 30 * time.Second

	// DefaultMaxResponseSize is the default maximum response body size (8MB).
	DefaultMaxResponseSize = 8 * 1024 * 1024

	// ContentTypeJSON is the JSON content type.
	ContentTypeJSON = "application/json"

	// ContentTypeFormURLEncoded is the form-urlencoded content type.
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// HTTPClient is the minimal client interface the fetch helpers need.
// *http.Client satisfies it; tests may substitute their own.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with sane transport timeouts. A
// non-positive timeout falls back to HTTPTimeout. Adapters share process-wide
// transport defaults and apply per-call timeouts through the request context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = HTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// FetchResult contains the result of a successful fetch operation.
type FetchResult[T any] struct {
	// Data is the parsed response body.
	Data T

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// Body is the raw response body.
	Body []byte
}

// FetchOption configures a fetch request.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	method          string
	headers         http.Header
	body            io.Reader
	maxResponseSize int64
	errorHandler    func(*http.Response, []byte) error
}

func newFetchOptions() *fetchOptions {
	return &fetchOptions{
		method:          http.MethodGet,
		headers:         make(http.Header),
		maxResponseSize: DefaultMaxResponseSize,
	}
}

// WithMethod sets the HTTP method for the request.
func WithMethod(method string) FetchOption {
	return func(opts *fetchOptions) {
		opts.method = method
	}
}

// WithHeader adds a single header to the request.
func WithHeader(key, value string) FetchOption {
	return func(opts *fetchOptions) {
		opts.headers.Set(key, value)
	}
}

// WithBody sets the request body.
func WithBody(body io.Reader) FetchOption {
	return func(opts *fetchOptions) {
		opts.body = body
	}
}

// WithJSONBody marshals v as the request body and sets the Content-Type.
func WithJSONBody(v any) FetchOption {
	return func(opts *fetchOptions) {
		encoded, err := json.Marshal(v)
		if err != nil {
			// Surfaced when the request is built; carrying the error in the
			// body reader keeps the option signature clean.
			opts.body = &errReader{err: fmt.Errorf("failed to encode request body: %w", err)}
			return
		}
		opts.body = strings.NewReader(string(encoded))
		opts.headers.Set("Content-Type", ContentTypeJSON)
	}
}

// WithMaxResponseSize sets the maximum response body size.
func WithMaxResponseSize(size int64) FetchOption {
	return func(opts *fetchOptions) {
		opts.maxResponseSize = size
	}
}

// WithErrorHandler sets a custom error handler for non-2xx responses.
// The handler receives the response and body; returning nil falls back to
// the default HTTPError.
func WithErrorHandler(handler func(*http.Response, []byte) error) FetchOption {
	return func(opts *fetchOptions) {
		opts.errorHandler = handler
	}
}

type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }

// FetchJSON performs an HTTP request and parses the JSON response body.
// It sets the Accept header to application/json unless one was provided.
// Non-2xx responses return an HTTPError or the result of a custom handler.
func FetchJSON[T any](
	ctx context.Context,
	client HTTPClient,
	requestURL string,
	opts ...FetchOption,
) (*FetchResult[T], error) {
	options := newFetchOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.headers.Get("Accept") == "" {
		options.headers.Set("Accept", ContentTypeJSON)
	}

	resp, body, err := doRequest(ctx, client, requestURL, options)
	if err != nil {
		return nil, err
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &FetchResult[T]{
		Data:       data,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// FetchBytes performs an HTTP request and returns the raw response body.
func FetchBytes(
	ctx context.Context,
	client HTTPClient,
	requestURL string,
	opts ...FetchOption,
) (*FetchResult[[]byte], error) {
	options := newFetchOptions()
	for _, opt := range opts {
		opt(options)
	}

	resp, body, err := doRequest(ctx, client, requestURL, options)
	if err != nil {
		return nil, err
	}

	return &FetchResult[[]byte]{
		Data:       body,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// PostForm performs a POST with a form-urlencoded body and parses the JSON
// response. Used for OAuth-style token endpoints.
func PostForm[T any](
	ctx context.Context,
	client HTTPClient,
	requestURL string,
	form string,
	opts ...FetchOption,
) (*FetchResult[T], error) {
	opts = append([]FetchOption{
		WithMethod(http.MethodPost),
		WithBody(strings.NewReader(form)),
		WithHeader("Content-Type", ContentTypeFormURLEncoded),
	}, opts...)
	return FetchJSON[T](ctx, client, requestURL, opts...)
}

func doRequest(
	ctx context.Context,
	client HTTPClient,
	requestURL string,
	options *fetchOptions,
) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, options.method, requestURL, options.body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range options.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, options.maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if options.errorHandler != nil {
			if customErr := options.errorHandler(resp, body); customErr != nil {
				return nil, nil, customErr
			}
		}
		bodyPreview := string(body)
		if len(bodyPreview) > DefaultErrorPreviewSize {
			bodyPreview = bodyPreview[:DefaultErrorPreviewSize]
		}
		return nil, nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       bodyPreview,
			URL:        requestURL,
		}
	}

	return resp, body, nil
}
