package rest

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/transport"
)

// Void is the response type of methods that discard the body. HEAD methods
// must use it.
type Void = convert.Void

// Callback receives the outcome of Call.Enqueue. Exactly one method is
// invoked, once, on the client's Executor.
type Callback interface {
	OnResponse(call *Call, resp *Response)
	OnFailure(call *Call, err error)
}

// CallbackFuncs adapts two functions to Callback. Nil functions are skipped.
type CallbackFuncs struct {
	Response func(call *Call, resp *Response)
	Failure  func(call *Call, err error)
}

func (f CallbackFuncs) OnResponse(call *Call, resp *Response) {
	if f.Response != nil {
		f.Response(call, resp)
	}
}

func (f CallbackFuncs) OnFailure(call *Call, err error) {
	if f.Failure != nil {
		f.Failure(call, err)
	}
}

// Executor runs callback deliveries.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Execute(task func()) { f(task) }

// GoExecutor runs every task on its own goroutine.
var GoExecutor Executor = ExecutorFunc(func(task func()) { go task() })

// ExecuteOption adjusts one execution.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	cacheControl string
}

// CacheControl replaces any declared Cache-Control header for this execution.
func CacheControl(value string) ExecuteOption {
	return func(o *executeOptions) { o.cacheControl = value }
}

// Call is one invocation of a service method with a fixed argument list.
// It can be executed once; use Clone to issue the same request again.
type Call struct {
	client *Client
	tmpl   *MethodTemplate
	args   []any

	executed atomic.Bool
	canceled atomic.Bool
	raw      atomic.Pointer[transport.Call]

	mu          sync.Mutex
	req         *transport.Request
	creationErr error
}

func newCall(c *Client, tmpl *MethodTemplate, args []any) *Call {
	return &Call{client: c, tmpl: tmpl, args: args}
}

// Template returns the compiled method template.
func (c *Call) Template() *MethodTemplate { return c.tmpl }

// Request assembles the request without executing it. The result, or the
// assembly error, is cached. Per-execution options such as CacheControl are
// not reflected.
func (c *Call) Request() (*transport.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request()
}

func (c *Call) request() (*transport.Request, error) {
	if c.req != nil || c.creationErr != nil {
		return c.req, c.creationErr
	}
	c.req, c.creationErr = c.client.assemble(c.tmpl, c.args)
	return c.req, c.creationErr
}

// rawCall creates the transport call on first use.
func (c *Call) rawCall(o executeOptions) (transport.Call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if raw := c.raw.Load(); raw != nil {
		return *raw, nil
	}
	req, err := c.request()
	if err != nil {
		return nil, err
	}
	if o.cacheControl != "" {
		req = req.Clone()
		req.Header.Set("Cache-Control", o.cacheControl)
	}
	raw := c.client.callFactory.NewCall(req)
	c.raw.Store(&raw)
	return raw, nil
}

// Execute sends the request and blocks until the response is converted.
// A non-2xx status is not an error: the Response carries ErrorBody.
func (c *Call) Execute(ctx context.Context, opts ...ExecuteOption) (*Response, error) {
	if !c.executed.CompareAndSwap(false, true) {
		return nil, errors.IllegalState("Already executed.")
	}
	o := applyOptions(opts)

	ctx, op := observability.StartOperation(ctx, observability.SpanCall, c.tmpl.service.Name, c.tmpl.id, c.client.metrics)
	resp, err := c.execute(ctx, o)
	c.finish(ctx, op, resp, err)
	return resp, err
}

func (c *Call) execute(ctx context.Context, o executeOptions) (*Response, error) {
	if c.canceled.Load() {
		return nil, errors.Canceled()
	}
	raw, err := c.rawCall(o)
	if err != nil {
		return nil, err
	}
	if c.canceled.Load() {
		raw.Cancel()
	}
	resp, err := raw.Execute(ctx)
	if err != nil {
		return nil, c.failure(err)
	}
	if c.canceled.Load() {
		return nil, errors.Canceled()
	}
	return c.parseResponse(resp)
}

// Enqueue sends the request asynchronously. It fails only when the call
// was already executed; every other outcome is delivered to cb.
func (c *Call) Enqueue(ctx context.Context, cb Callback, opts ...ExecuteOption) error {
	if cb == nil {
		return errors.IllegalArgument("callback == null")
	}
	if !c.executed.CompareAndSwap(false, true) {
		return errors.IllegalState("Already executed.")
	}
	o := applyOptions(opts)

	ctx, op := observability.StartOperation(ctx, observability.SpanCall, c.tmpl.service.Name, c.tmpl.id, c.client.metrics)
	deliver := func(resp *Response, err error) {
		c.finish(ctx, op, resp, err)
		c.client.executor.Execute(func() {
			if err == nil && c.canceled.Load() {
				resp, err = nil, errors.Canceled()
			}
			if err != nil {
				cb.OnFailure(c, err)
				return
			}
			cb.OnResponse(c, resp)
		})
	}

	if c.canceled.Load() {
		deliver(nil, errors.Canceled())
		return nil
	}
	raw, err := c.rawCall(o)
	if err != nil {
		deliver(nil, err)
		return nil
	}
	if c.canceled.Load() {
		raw.Cancel()
	}
	raw.Enqueue(ctx, func(r *transport.Response, err error) {
		if err != nil {
			deliver(nil, c.failure(err))
			return
		}
		deliver(c.parseResponse(r))
	})
	return nil
}

// Cancel marks the call canceled and aborts the transport call, if any.
// It never blocks and may be called at any time.
func (c *Call) Cancel() {
	c.canceled.Store(true)
	if raw := c.raw.Load(); raw != nil {
		(*raw).Cancel()
	}
}

func (c *Call) IsCanceled() bool {
	if c.canceled.Load() {
		return true
	}
	raw := c.raw.Load()
	return raw != nil && (*raw).IsCanceled()
}

func (c *Call) IsExecuted() bool { return c.executed.Load() }

// Clone returns a new, unexecuted call with the same arguments.
func (c *Call) Clone() *Call {
	return newCall(c.client, c.tmpl, c.args)
}

// failure classifies a transport error. Errors after Cancel become Canceled.
func (c *Call) failure(err error) error {
	if errors.IsCanceled(err) {
		return err
	}
	if c.canceled.Load() {
		return errors.Canceled().WithCause(err)
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.Transport(err)
}

// parseResponse converts a 2xx body. 204 and 205 carry no body.
func (c *Call) parseResponse(raw *transport.Response) (*Response, error) {
	code := raw.StatusCode
	if code < 200 || code >= 300 {
		return &Response{Raw: raw, ErrorBody: raw.Body}, nil
	}
	if code == 204 || code == 205 {
		return &Response{Raw: raw}, nil
	}
	body, err := c.tmpl.responseConverter.ConvertResponse(raw.Body)
	if err != nil {
		if !errors.IsConversion(err) {
			err = errors.Conversion("unable to convert response body", err)
		}
		return nil, err
	}
	return &Response{Raw: raw, Body: body}, nil
}

func (c *Call) finish(ctx context.Context, op *observability.Operation, resp *Response, err error) {
	status := "error"
	switch {
	case err == nil:
		status = strconv.Itoa(resp.Code())
	case errors.IsCanceled(err):
		status = "canceled"
	}
	op.End(ctx, status, err)

	fields := logger.Fields(
		logger.FieldMethod, c.tmpl.id,
		logger.FieldDuration, op.Duration().Milliseconds(),
	)
	log := c.client.log.WithContext(ctx)
	if err != nil {
		log.WithError(err).Warn("call failed", fields)
		return
	}
	fields[logger.FieldStatusCode] = resp.Code()
	log.Debug("call completed", fields)
}

func applyOptions(opts []ExecuteOption) executeOptions {
	var o executeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
