// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP clients for the chat service.
package backend

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is the chat service address.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultAccept prefers NDJSON but negotiates the other stream formats.
	DefaultAccept = "application/x-ndjson, text/event-stream;q=0.9, application/json;q=0.8"

	// DefaultConnectTimeout bounds dialing only; streams have no deadline.
	DefaultConnectTimeout = 10 * time.Second

	chatPath = "/chat"

	// maxErrorBody caps how much of a failed response is kept for the message
	maxErrorBody = 512
)

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the service base URL (default: http://127.0.0.1:8000).
	// A missing scheme is treated as http.
	BaseURL string

	// Accept is sent on streaming requests (default: DefaultAccept)
	Accept string

	// ConnectTimeout for establishing connections (default: 10s)
	ConnectTimeout time.Duration

	// UserAgent header, omitted when empty
	UserAgent string

	// HTTPClient overrides the transport, for tests
	HTTPClient *http.Client

	// Logger receives request diagnostics (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		Accept:         DefaultAccept,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens chat streams against the service. It is safe for
// concurrent use.
type Client struct {
	mu         sync.RWMutex
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL with default configuration.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	cfg.BaseURL = util.NormalizeBaseURL(cfg.BaseURL, DefaultBaseURL)
	if cfg.Accept == "" {
		cfg.Accept = DefaultAccept
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No overall Timeout: streams end by completion or cancellation
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		httpClient = &http.Client{Transport: transport}
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.BaseURL
}

// SetBaseURL points the client at a new service address. In-flight
// requests keep the address they started with.
func (c *Client) SetBaseURL(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.BaseURL = util.NormalizeBaseURL(raw, DefaultBaseURL)
}

// =============================================================================
// STREAMING
// =============================================================================

// Response is an open streaming response. The caller must Close it.
type Response struct {
	Body        io.ReadCloser
	Format      stream.Format
	ContentType string
	StatusCode  int
}

// Decode feeds the body through the stream decoder, calling fn for each
// record in arrival order.
func (r *Response) Decode(ctx context.Context, fn func(stream.Record) error) error {
	err := stream.Decode(ctx, r.Body, r.Format, fn)
	if err == nil || ctx.Err() != nil {
		return err
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}
	return &ClientError{Type: ErrTypeTransport, Message: "stream interrupted", Cause: err}
}

// Close releases the body.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// ChatURL builds the streaming request URL for a session and question.
func (c *Client) ChatURL(sessionID, question string) string {
	q := url.Values{}
	q.Set("thread_id", sessionID)
	q.Set("question", question)
	return c.BaseURL() + chatPath + "?" + q.Encode()
}

// Stream opens a chat stream for question within sessionID. When ctx is
// cancelled before headers arrive, ctx.Err() is returned unwrapped.
func (c *Client) Stream(ctx context.Context, sessionID, question string) (*Response, error) {
	c.mu.RLock()
	accept := c.config.Accept
	userAgent := c.config.UserAgent
	c.mu.RUnlock()

	target := c.ChatURL(sessionID, question)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", accept)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ClientError{Type: ErrTypeTransport, Message: "chat request failed", Cause: err}
	}

	c.logger.Debug("chat stream opened",
		zap.String("session_id", sessionID),
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
		zap.Duration("ttfb", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &ClientError{
			Type:    ErrTypeStatus,
			Status:  resp.StatusCode,
			Message: statusMessage(resp),
		}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, ErrNoBody
	}

	contentType := resp.Header.Get("Content-Type")
	return &Response{
		Body:        resp.Body,
		Format:      stream.FormatForContentType(contentType),
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}, nil
}

// statusMessage summarizes a failed response using the start of its body.
func statusMessage(resp *http.Response) string {
	msg := "chat request failed"
	if resp.Body == nil {
		return msg
	}
	snippet, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return msg
	}
	if s := strings.TrimSpace(string(snippet)); s != "" {
		msg += ": " + util.TruncateRunes(s, 200)
	}
	return msg
}
