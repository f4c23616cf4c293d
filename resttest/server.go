package resttest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/restkit/component"
	"github.com/kbukum/restkit/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestComponent extends component.Component with the state controls tests
// need between cases.
type TestComponent interface {
	component.Component

	// Reset restores the component to its initial state.
	Reset(ctx context.Context) error
	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) error
}

// Recorded is one request received by the stub server.
type Recorded struct {
	Method    string
	Path      string
	RawQuery  string
	Header    http.Header
	Body      []byte
	RequestID string
}

// Route is a stubbed endpoint.
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// Server is a gin stub server that records every request it receives.
type Server struct {
	log *logger.Logger

	mu       sync.RWMutex
	engine   *gin.Engine
	ts       *httptest.Server
	routes   []Route
	requests []Recorded
	started  bool
}

var (
	_ component.Component = (*Server)(nil)
	_ TestComponent       = (*Server)(nil)
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request lines.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates an unstarted stub server.
func NewServer(opts ...Option) *Server {
	s := &Server{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.newEngine()
	return s
}

func (s *Server) newEngine() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), s.record())
	return e
}

// record captures the request and assigns an X-Request-Id when absent.
func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-Id", id)

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RawQuery:  c.Request.URL.RawQuery,
			Header:    c.Request.Header.Clone(),
			Body:      body,
			RequestID: id,
		})
		s.mu.Unlock()

		c.Next()

		s.log.Debug("stub request", logger.Fields(
			logger.FieldHTTPMethod, c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatusCode, c.Writer.Status(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
			"request_id", id,
		))
	}
}

// Engine returns the gin engine for registering custom routes before Start.
func (s *Server) Engine() *gin.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Handle registers handlers for method and path. Routes survive Reset.
func (s *Server) Handle(method, path string, handlers ...gin.HandlerFunc) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, Route{Method: method, Path: path, Handlers: handlers})
	s.engine.Handle(method, path, handlers...)
	return s
}

// Stub answers method and path with a fixed status, content type and body.
func (s *Server) Stub(method, path string, status int, contentType, body string) *Server {
	return s.Handle(method, path, func(c *gin.Context) {
		c.Data(status, contentType, []byte(body))
	})
}

// JSON answers method and path with obj encoded as JSON.
func (s *Server) JSON(method, path string, status int, obj any) *Server {
	return s.Handle(method, path, func(c *gin.Context) {
		c.JSON(status, obj)
	})
}

// Echo answers method and path with the request body and content type.
func (s *Server) Echo(method, path string) *Server {
	return s.Handle(method, path, func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		ct := c.ContentType()
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Data(http.StatusOK, ct, body)
	})
}

// BaseURL returns the server URL with a trailing slash, ready for rest.New.
// It is empty before Start.
func (s *Server) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ts == nil {
		return ""
	}
	return s.ts.URL + "/"
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent request, or false when none arrived.
func (s *Server) Last() (Recorded, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	e := s.engine
	s.mu.RUnlock()
	e.ServeHTTP(w, r)
}

func (s *Server) Name() string { return "rest-stub" }

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("component already started")
	}
	s.ts = httptest.NewServer(http.HandlerFunc(s.serve))
	s.started = true
	return nil
}

func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.ts.Close()
	s.ts = nil
	s.started = false
	return nil
}

func (s *Server) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Reset clears recorded requests and rebuilds the engine from the
// registered routes. The listening address is kept.
func (s *Server) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return fmt.Errorf("component not started")
	}
	s.requests = nil
	s.engine = s.newEngine()
	for _, r := range s.routes {
		s.engine.Handle(r.Method, r.Path, r.Handlers...)
	}
	return nil
}

// Snapshot returns the recorded requests.
func (s *Server) Snapshot(_ context.Context) (any, error) {
	return s.Requests(), nil
}

// Restore replaces the recorded requests with a Snapshot result.
func (s *Server) Restore(_ context.Context, snapshot any) error {
	reqs, ok := snapshot.([]Recorded)
	if !ok {
		return fmt.Errorf("unexpected snapshot type %T", snapshot)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append([]Recorded(nil), reqs...)
	return nil
}
