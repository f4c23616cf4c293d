package rest

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/transport"
)

const testBaseURL = "http://example.com/api/"

// recorder is a CallFactory that records requests and answers with respond.
type recorder struct {
	mu       sync.Mutex
	requests []*transport.Request
	respond  func(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

func (r *recorder) NewCall(req *transport.Request) transport.Call {
	return transport.RoundTripFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		r.mu.Lock()
		r.requests = append(r.requests, req)
		r.mu.Unlock()
		if r.respond == nil {
			return textResponse(req, http.StatusOK, "text/plain", ""), nil
		}
		return r.respond(ctx, req)
	}).NewCall(req)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recorder) last() *transport.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return nil
	}
	return r.requests[len(r.requests)-1]
}

func textResponse(req *transport.Request, code int, contentType, body string) *transport.Response {
	return &transport.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       transport.NewResponseBody(contentType, []byte(body)),
		Request:    req,
	}
}

func respondWith(code int, contentType, body string) func(context.Context, *transport.Request) (*transport.Response, error) {
	return func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		return textResponse(req, code, contentType, body), nil
	}
}

func newTestClient(t *testing.T, rec *recorder, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithCallFactory(rec), WithLogger(logger.Nop())}
	c, err := New(testBaseURL, append(base, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func newTestService(t *testing.T, c *Client, methods ...*decl.Method) *Service {
	t.Helper()
	s, err := c.Create(decl.NewService("API").Add(methods...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

// compileError compiles m in a fresh service and returns the error.
func compileError(t *testing.T, m *decl.Method, opts ...Option) error {
	t.Helper()
	s := newTestService(t, newTestClient(t, &recorder{}, opts...), m)
	_, err := s.Template(m.Name)
	return err
}

// buildRequest assembles the request of method with args.
func buildRequest(t *testing.T, s *Service, method string, args ...any) *transport.Request {
	t.Helper()
	call, err := s.NewCall(method, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, err := call.Request()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return req
}

func requestError(t *testing.T, s *Service, method string, args ...any) error {
	t.Helper()
	call, err := s.NewCall(method, args...)
	if err != nil {
		return err
	}
	_, err = call.Request()
	return err
}

func void(m *decl.Method) *decl.Method {
	return decl.Returning[TypedCall[Void]](m)
}
