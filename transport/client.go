package transport

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/version"
)

// Client is the default CallFactory built on net/http.
type Client struct {
	httpClient   *http.Client
	config       Config
	cb           *resilience.CircuitBreaker
	rl           *resilience.RateLimiter
	interceptors []Interceptor
	log          *logger.Logger
	roundTrip    RoundTripFunc
}

// Option configures a Client.
type Option func(*Client)

// WithInterceptors appends interceptors; the first one is outermost.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(c *Client) { c.interceptors = append(c.interceptors, interceptors...) }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient replaces the underlying *http.Client. TLS, HTTP/2 and
// cookie settings from Config are not applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg, log: logger.Get("transport")}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		c.httpClient = hc
	}

	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}

	c.roundTrip = Chain(c.interceptors...)(c.doOnce)
	return c, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	if cfg.HTTP2 {
		if _, err := http2.ConfigureTransports(transport); err != nil {
			return nil, fmt.Errorf("transport: configure http2: %w", err)
		}
	}

	hc := &http.Client{Transport: transport, Timeout: cfg.Timeout}
	if cfg.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return hc, nil
}

// NewCall implements CallFactory.
func (c *Client) NewCall(req *Request) Call {
	return c.roundTrip.NewCall(req)
}

var errServerStatus = stderrors.New("server error status")

// doOnce sends one request through the rate limiter and circuit breaker.
func (c *Client) doOnce(ctx context.Context, req *Request) (*Response, error) {
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, classify(ctx, req, err)
		}
	}

	if c.cb == nil {
		return c.send(ctx, req)
	}

	var resp *Response
	err := c.cb.Execute(func() error {
		var sendErr error
		resp, sendErr = c.send(ctx, req)
		if sendErr == nil && resp.StatusCode >= 500 {
			return errServerStatus
		}
		return sendErr
	})
	switch {
	case stderrors.Is(err, errServerStatus):
		return resp, nil
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return nil, errors.ServiceUnavailable(c.config.Name).WithCause(err)
	}
	return resp, err
}

// send builds the *http.Request, executes it and buffers the body.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, errors.Transport(err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, req, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, req, fmt.Errorf("read response body: %w", err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       NewResponseBody(resp.Header.Get("Content-Type"), data),
		Request:    req,
	}, nil
}

// buildRequest converts a Request into an *http.Request.
func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body.Content)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header = req.Header.HTTPHeader()
	if req.Body != nil && req.Body.ContentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", req.Body.ContentType)
	}

	for k, v := range c.config.Headers {
		if httpReq.Header.Get(k) == "" {
			httpReq.Header.Set(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		ua := c.config.UserAgent
		if ua == "" {
			ua = version.UserAgent()
		}
		httpReq.Header.Set("User-Agent", ua)
	}

	if err := c.config.Auth.apply(httpReq); err != nil {
		return nil, err
	}
	return httpReq, nil
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// IsAvailable reports false while the circuit breaker is open.
func (c *Client) IsAvailable(_ context.Context) bool {
	if c.cb != nil {
		return c.cb.State() != resilience.StateOpen
	}
	return true
}

// CircuitState returns the breaker state, or StateClosed when none is configured.
func (c *Client) CircuitState() resilience.State {
	if c.cb == nil {
		return resilience.StateClosed
	}
	return c.cb.State()
}

// Close releases idle connections.
func (c *Client) Close(_ context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.config
}
