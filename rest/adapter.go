package rest

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// CallAdapter turns a Call into a method's declared return shape.
type CallAdapter interface {
	// ResponseType is the body type the response converter must produce.
	ResponseType() reflect.Type
	Adapt(call *Call) (any, error)
}

// CallAdapterFactory creates adapters for the return types it understands
// and returns nil for the rest.
type CallAdapterFactory interface {
	Get(returnType reflect.Type, meta decl.Metadata, c *Client) CallAdapter
}

// callShape is implemented by the built-in return shapes.
type callShape interface {
	responseType() reflect.Type
	adapt(call *Call) any
}

type shapeAdapter struct {
	shape callShape
}

func (a shapeAdapter) ResponseType() reflect.Type  { return a.shape.responseType() }
func (a shapeAdapter) Adapt(call *Call) (any, error) { return a.shape.adapt(call), nil }

// builtInAdapters handles TypedCall[T] and *Future[T].
type builtInAdapters struct{}

func (builtInAdapters) Get(t reflect.Type, _ decl.Metadata, _ *Client) CallAdapter {
	if t == nil || !t.Implements(reflect.TypeFor[callShape]()) {
		return nil
	}
	return shapeAdapter{shape: reflect.Zero(t).Interface().(callShape)}
}

// callAdapter returns the first adapter for t from the user factories,
// then the built-in ones.
func (c *Client) callAdapter(t reflect.Type, meta decl.Metadata) (CallAdapter, error) {
	for _, f := range c.adapters {
		if a := f.Get(t, meta, c); a != nil {
			return a, nil
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Could not locate call adapter for %s.\n  Tried:", t)
	for _, f := range c.adapters {
		fmt.Fprintf(&sb, "\n   * %T", f)
	}
	return nil, errors.New(errors.ErrCodeMethodConfiguration, sb.String()).WithDetail("type", t.String())
}

// TypedCall is a Call whose successful body is a T.
type TypedCall[T any] struct {
	call *Call
}

func (TypedCall[T]) responseType() reflect.Type { return reflect.TypeFor[T]() }
func (TypedCall[T]) adapt(call *Call) any       { return TypedCall[T]{call: call} }

// Call returns the untyped call.
func (t TypedCall[T]) Call() *Call { return t.call }

// Execute runs the call; see Call.Execute.
func (t TypedCall[T]) Execute(ctx context.Context, opts ...ExecuteOption) (*Response, error) {
	return t.call.Execute(ctx, opts...)
}

// Body runs the call and returns the converted body. A non-2xx response is
// an HTTP_ERROR AppError.
func (t TypedCall[T]) Body(ctx context.Context, opts ...ExecuteOption) (T, error) {
	resp, err := t.call.Execute(ctx, opts...)
	return bodyOf[T](resp, err)
}

// Enqueue runs the call asynchronously; see Call.Enqueue.
func (t TypedCall[T]) Enqueue(ctx context.Context, cb Callback, opts ...ExecuteOption) error {
	return t.call.Enqueue(ctx, cb, opts...)
}

func (t TypedCall[T]) Request() (*transport.Request, error) { return t.call.Request() }
func (t TypedCall[T]) Cancel()                              { t.call.Cancel() }
func (t TypedCall[T]) IsCanceled() bool                     { return t.call.IsCanceled() }
func (t TypedCall[T]) IsExecuted() bool                     { return t.call.IsExecuted() }

// Clone returns a fresh call with the same arguments.
func (t TypedCall[T]) Clone() TypedCall[T] { return TypedCall[T]{call: t.call.Clone()} }

// Future is an enqueued call. It starts when the method is invoked.
type Future[T any] struct {
	call *Call
	done chan struct{}
	resp *Response
	err  error
}

func (*Future[T]) responseType() reflect.Type { return reflect.TypeFor[T]() }

func (*Future[T]) adapt(call *Call) any {
	f := &Future[T]{call: call, done: make(chan struct{})}
	err := call.Enqueue(context.Background(), CallbackFuncs{
		Response: func(_ *Call, resp *Response) { f.complete(resp, nil) },
		Failure:  func(_ *Call, err error) { f.complete(nil, err) },
	})
	if err != nil {
		f.complete(nil, err)
	}
	return f
}

func (f *Future[T]) complete(resp *Response, err error) {
	f.resp, f.err = resp, err
	close(f.done)
}

// Done is closed once the outcome is known.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Response waits for the exchange and returns the raw outcome.
func (f *Future[T]) Response(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get waits for the exchange and returns the converted body. A non-2xx
// response is an HTTP_ERROR AppError.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	return bodyOf[T](f.Response(ctx))
}

// Cancel cancels the underlying call.
func (f *Future[T]) Cancel() { f.call.Cancel() }

func bodyOf[T any](resp *Response, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if !resp.IsSuccessful() {
		return zero, resp.Err()
	}
	if resp.Body == nil {
		return zero, nil
	}
	v, ok := resp.Body.(T)
	if !ok {
		return zero, errors.Conversion(fmt.Sprintf("response body %T is not %s", resp.Body, reflect.TypeFor[T]()), nil)
	}
	return v, nil
}
