// Package fetch downloads installer payloads over HTTP.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// UserAgent is sent with every request; GitHub rejects requests without one.
const UserAgent = "DesktopMateInstaller"

// ErrHTTPStatus is returned when the server answers with a non-2xx status.
var ErrHTTPStatus = errors.New("fetch: unexpected HTTP status")

// Config holds transport timeouts.
type Config struct {
	// Timeout bounds a whole request including the body. Zero means no limit,
	// which large depot archives need.
	Timeout time.Duration

	DialTimeout     time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration
}

// DefaultConfig returns timeouts suited to downloading large archives.
func DefaultConfig() Config {
	return Config{
		Timeout:         0,
		DialTimeout:     10 * time.Second,
		TLSHandshake:    10 * time.Second,
		ResponseHeader:  30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewHTTPClient builds an http.Client from cfg.
func NewHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeout,
	}
}

// Client downloads files and reports progress.
type Client struct {
	http     *http.Client
	logger   *slog.Logger
	progress ProgressFactory
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithProgress enables progress reporting for downloads.
func WithProgress(f ProgressFactory) Option {
	return func(c *Client) { c.progress = f }
}

// New creates a Client. Without options it uses DefaultConfig and discards logs.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(DefaultConfig())
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// HTTP exposes the underlying client for API calls that share its transport.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// Downloader is the part of Client that installer steps depend on.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}
