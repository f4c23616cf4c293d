package resttest

import (
	"context"
	"testing"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/rest"
)

// Start creates and starts a stub server that stops when the test ends.
func Start(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := NewServer(opts...)
	Setup(t, s)
	return s
}

// Setup starts c and registers its Stop with t.Cleanup.
func Setup(t testing.TB, c TestComponent) {
	t.Helper()
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(ctx); err != nil {
			t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}

// NewClient returns a client whose base URL is the started server's. Options
// are applied after a silent logger.
func NewClient(t testing.TB, s *Server, opts ...rest.Option) *rest.Client {
	t.Helper()
	base := s.BaseURL()
	if base == "" {
		t.Fatalf("stub server is not started")
	}
	c, err := rest.New(base, append([]rest.Option{rest.WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}
