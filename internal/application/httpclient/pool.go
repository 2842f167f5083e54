// Package httpclient provides the shared HTTP client used for every
// test request: per-request timeout, optional untrusted-TLS mode,
// connection pooling, an optional rate limiter, and a capped,
// truncation-flagged body read.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// MaxBodyBytes caps how much of a response body is read into memory; any
// remainder is discarded and the truncation is flagged to the caller.
const MaxBodyBytes = 64 * 1024 * 1024 // 64 MiB

// Pool implements application.ClientPool.
type Pool struct {
	client         *http.Client
	requestTimeout time.Duration
	limiter        *rate.Limiter
}

// Option configures a Pool.
type Option func(*Pool)

// WithRequestTimeout sets the per-request timeout (default 30s).
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Pool) { p.requestTimeout = d }
}

// WithAllowUntrustedSSL disables TLS certificate validation. Explicit
// opt-in only; never enabled by default.
func WithAllowUntrustedSSL(allow bool) Option {
	return func(p *Pool) {
		if !allow {
			return
		}
		transport, ok := p.client.Transport.(*http.Transport)
		if !ok {
			return
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithRateLimit caps sustained throughput across the pool to rps requests
// per second (0 disables the limiter, the default).
func WithRateLimit(rps float64) Option {
	return func(p *Pool) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// NewPool creates an HTTP Client Pool with connection reuse and up to 10
// redirects.
func NewPool(options ...Option) *Pool {
	p := &Pool{
		requestTimeout: 30 * time.Second,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Client returns the shared *http.Client.
func (p *Pool) Client() *http.Client { return p.client }

// RequestTimeout returns the configured per-request timeout.
func (p *Pool) RequestTimeout() time.Duration { return p.requestTimeout }

// Wait blocks until the rate limiter (if any) admits one more request.
func (p *Pool) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// ReadBody reads up to MaxBodyBytes+1 from r, reporting whether the
// result was truncated.
func ReadBody(r io.Reader) (body []byte, truncated bool, err error) {
	limited := io.LimitReader(r, MaxBodyBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > MaxBodyBytes {
		return data[:MaxBodyBytes], true, nil
	}
	return data, false, nil
}
