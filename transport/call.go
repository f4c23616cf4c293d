package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/restkit/errors"
)

// Call is one transport exchange for a single request.
type Call interface {
	// Execute sends the request and blocks until the response is buffered.
	Execute(ctx context.Context) (*Response, error)
	// Enqueue sends the request asynchronously and invokes done exactly once.
	Enqueue(ctx context.Context, done func(*Response, error))
	// Cancel aborts the exchange; it is safe to call at any time.
	Cancel()
	IsCanceled() bool
	Request() *Request
}

// CallFactory creates transport calls.
type CallFactory interface {
	NewCall(req *Request) Call
}

// RoundTripFunc sends one request. It is also a CallFactory whose calls
// cancel the context passed to the function.
type RoundTripFunc func(ctx context.Context, req *Request) (*Response, error)

// NewCall implements CallFactory.
func (f RoundTripFunc) NewCall(req *Request) Call {
	return &call{req: req, rt: f}
}

type call struct {
	req      *Request
	rt       RoundTripFunc
	canceled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *call) Request() *Request { return c.req }

func (c *call) IsCanceled() bool { return c.canceled.Load() }

func (c *call) Cancel() {
	c.canceled.Store(true)
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *call) Execute(ctx context.Context) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if c.canceled.Load() {
		return nil, errors.Canceled()
	}
	resp, err := c.rt(ctx, c.req)
	if c.canceled.Load() {
		return nil, errors.Canceled()
	}
	return resp, err
}

func (c *call) Enqueue(ctx context.Context, done func(*Response, error)) {
	go func() {
		done(c.Execute(ctx))
	}()
}
