package rest

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/convert/jsonconv"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

func userService(t *testing.T, rec *recorder, opts ...Option) *Service {
	t.Helper()
	opts = append(opts, WithConverterFactories(jsonconv.New()))
	return newTestService(t, newTestClient(t, rec, opts...),
		decl.Returning[TypedCall[user]](decl.Get("Get", "users/{id}").With(decl.Path[string]("id"))),
		decl.Returning[*Future[user]](decl.Get("Async", "users/{id}").With(decl.Path[string]("id"))),
		decl.Returning[TypedCall[convert.Optional[user]]](decl.Get("Maybe", "users/{id}").With(decl.Path[string]("id"))),
		decl.Returning[TypedCall[Void]](decl.Head("Exists", "users/{id}").With(decl.Path[string]("id"))),
	)
}

func getCall(t *testing.T, s *Service, id string) TypedCall[user] {
	t.Helper()
	call, err := Invoke[TypedCall[user]](s, "Get", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return call
}

func TestCall_Execute(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"alice"}`)}
	call := getCall(t, userService(t, rec), "7")

	u, err := call.Body(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "alice" {
		t.Errorf("expected alice, got %q", u.Name)
	}
	if got := rec.last().URL.String(); got != "http://example.com/api/users/7" {
		t.Errorf("unexpected URL %s", got)
	}
	if !call.IsExecuted() {
		t.Error("expected IsExecuted=true")
	}
}

func TestCall_NotFullyConsumed(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"alice"} {"name":"bob"}`)}
	call := getCall(t, userService(t, rec), "7")

	_, err := call.Execute(context.Background())
	if !errors.IsConversion(err) {
		t.Fatalf("expected conversion error, got %v", err)
	}
	if !strings.Contains(err.Error(), jsonconv.NotFullyConsumed) {
		t.Errorf("unexpected message %q", err.Error())
	}
	if rec.count() != 1 {
		t.Errorf("transport should have been called once, got %d", rec.count())
	}
}

func TestCall_ErrorStatus(t *testing.T) {
	rec := &recorder{respond: respondWith(404, "application/json", `{"message":"missing"}`)}
	call := getCall(t, userService(t, rec), "7")

	resp, err := call.Execute(context.Background())
	if err != nil {
		t.Fatalf("a non-2xx status is not an execution error, got %v", err)
	}
	if resp.IsSuccessful() || resp.Code() != 404 || resp.Body != nil {
		t.Errorf("unexpected response %v", resp)
	}
	if resp.ErrorBody.String() != `{"message":"missing"}` {
		t.Errorf("unexpected error body %q", resp.ErrorBody.String())
	}
	if err := resp.Err(); !errors.IsHTTP(err) {
		t.Errorf("expected HTTP error, got %v", err)
	}

	_, err = getCall(t, userService(t, rec), "7").Body(context.Background())
	ae, ok := errors.AsAppError(err)
	if !ok || ae.HTTPStatus != 404 {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}

func TestCall_NoContent(t *testing.T) {
	for _, code := range []int{204, 205} {
		rec := &recorder{respond: respondWith(code, "application/json", "garbage")}
		resp, err := getCall(t, userService(t, rec), "7").Execute(context.Background())
		if err != nil {
			t.Fatalf("%d: unexpected error: %v", code, err)
		}
		if resp.Body != nil || resp.Code() != code {
			t.Errorf("%d: expected empty body, got %v", code, resp.Body)
		}
	}
}

func TestCall_DoubleExecute(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"a"}`)}
	call := getCall(t, userService(t, rec), "7")

	if _, err := call.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := call.Execute(context.Background())
	if !errors.IsIllegalState(err) || !strings.Contains(err.Error(), "Already executed.") {
		t.Errorf("expected IllegalState, got %v", err)
	}
	err = call.Enqueue(context.Background(), CallbackFuncs{})
	if !errors.IsIllegalState(err) {
		t.Errorf("expected IllegalState from Enqueue, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("second execution must not reach the transport, got %d calls", rec.count())
	}

	clone := call.Clone()
	if clone.IsExecuted() {
		t.Error("clone should not be executed")
	}
	if _, err := clone.Execute(context.Background()); err != nil {
		t.Errorf("clone should execute, got %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("expected 2 transport calls, got %d", rec.count())
	}
}

func TestCall_CancelBeforeExecute(t *testing.T) {
	rec := &recorder{}
	call := getCall(t, userService(t, rec), "7")
	call.Cancel()
	if !call.IsCanceled() {
		t.Error("expected IsCanceled=true")
	}

	_, err := call.Execute(context.Background())
	if !errors.IsCanceled(err) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("canceled call must not reach the transport, got %d calls", rec.count())
	}
}

func TestCall_CancelDuringExecute(t *testing.T) {
	started := make(chan struct{})
	rec := &recorder{respond: func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	call := getCall(t, userService(t, rec), "7")

	go func() {
		<-started
		call.Cancel()
	}()
	_, err := call.Execute(context.Background())
	if !errors.IsCanceled(err) {
		t.Errorf("expected Canceled, got %v", err)
	}
}

func TestCall_TransportFailure(t *testing.T) {
	rec := &recorder{respond: func(context.Context, *transport.Request) (*transport.Response, error) {
		return nil, stderrors.New("connection reset")
	}}
	_, err := getCall(t, userService(t, rec), "7").Execute(context.Background())
	if !errors.IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestCall_AssemblyFailure(t *testing.T) {
	rec := &recorder{}
	call := getCall(t, userService(t, rec), "..")
	if _, err := call.Request(); err == nil {
		t.Fatal("expected assembly error")
	}
	_, err := call.Execute(context.Background())
	if !errors.IsIllegalArgument(err) {
		t.Errorf("expected the cached assembly error, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("transport should not be called, got %d", rec.count())
	}
}

func TestCall_Enqueue(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"carol"}`)}
	call := getCall(t, userService(t, rec), "7")

	var wg sync.WaitGroup
	wg.Add(1)
	var got *Response
	var failure error
	err := call.Enqueue(context.Background(), CallbackFuncs{
		Response: func(_ *Call, resp *Response) { got = resp; wg.Done() },
		Failure:  func(_ *Call, err error) { failure = err; wg.Done() },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wg.Wait()
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if got.Body.(user).Name != "carol" {
		t.Errorf("unexpected body %v", got.Body)
	}

	if err := call.Call().Enqueue(context.Background(), nil); !errors.IsIllegalArgument(err) {
		t.Errorf("expected nil callback error, got %v", err)
	}
}

func TestCall_EnqueueCanceled(t *testing.T) {
	rec := &recorder{}
	call := getCall(t, userService(t, rec), "7")
	call.Cancel()

	done := make(chan error, 1)
	err := call.Enqueue(context.Background(), CallbackFuncs{
		Response: func(*Call, *Response) { done <- nil },
		Failure:  func(_ *Call, err error) { done <- err },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case err := <-done:
		if !errors.IsCanceled(err) {
			t.Errorf("expected Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not delivered")
	}
	if rec.count() != 0 {
		t.Errorf("canceled call must not reach the transport, got %d calls", rec.count())
	}
}

func TestCall_CallbackExecutor(t *testing.T) {
	var mu sync.Mutex
	var tasks []func()
	executor := ExecutorFunc(func(task func()) {
		mu.Lock()
		tasks = append(tasks, task)
		mu.Unlock()
	})
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"d"}`)}
	call := getCall(t, userService(t, rec, WithCallbackExecutor(executor)), "7")

	delivered := make(chan struct{})
	if err := call.Enqueue(context.Background(), CallbackFuncs{
		Response: func(*Call, *Response) { close(delivered) },
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(tasks)
		mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-delivered:
		t.Fatal("callback ran outside the executor")
	default:
	}
	mu.Lock()
	task := tasks[0]
	mu.Unlock()
	task()
	<-delivered
}

func TestCall_Future(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"erin"}`)}
	f, err := Invoke[*Future[user]](userService(t, rec), "Async", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := f.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "erin" {
		t.Errorf("unexpected body %+v", u)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done should be closed")
	}
}

func TestCall_Optional(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{"name":"opt"}`)}
	call, err := Invoke[TypedCall[convert.Optional[user]]](userService(t, rec), "Maybe", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt, err := call.Body(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, ok := opt.Get(); !ok || u.Name != "opt" {
		t.Errorf("unexpected optional %+v", opt)
	}
}

func TestCall_OptionalNullBody(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", "null")}
	s := newTestService(t, newTestClient(t, rec, WithConverterFactories(jsonconv.New())),
		decl.Returning[TypedCall[convert.Optional[*user]]](decl.Get("Find", "users/{id}").
			With(decl.Path[string]("id"))))
	call, err := Invoke[TypedCall[convert.Optional[*user]]](s, "Find", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt, err := call.Body(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, ok := opt.Get(); ok {
		t.Errorf("null body should be absent, got %v", u)
	}
}

func TestCall_HeadVoid(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "", "")}
	call, err := Invoke[TypedCall[Void]](userService(t, rec), "Exists", "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := call.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resp.Body.(Void); !ok {
		t.Errorf("expected Void body, got %T", resp.Body)
	}
	if rec.last().Method != http.MethodHead {
		t.Errorf("expected HEAD, got %s", rec.last().Method)
	}
}

func TestCall_CacheControl(t *testing.T) {
	rec := &recorder{respond: respondWith(200, "application/json", `{}`)}
	s := newTestService(t, newTestClient(t, rec, WithConverterFactories(jsonconv.New())),
		decl.Returning[TypedCall[user]](decl.Get("Get", "u").Header("Cache-Control: max-age=60")),
	)
	call, err := Invoke[TypedCall[user]](s, "Get")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := call.Execute(context.Background(), CacheControl("no-cache")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.last().Header.Values("Cache-Control"); len(got) != 1 || got[0] != "no-cache" {
		t.Errorf("expected only no-cache, got %v", got)
	}
	req, _ := call.Request()
	if req.Header.Get("Cache-Control") != "max-age=60" {
		t.Errorf("assembled request should keep the declared header, got %v", req.Header)
	}
}

func TestCall_ConcurrentCompilation(t *testing.T) {
	c := newTestClient(t, &recorder{}, WithConverterFactories(jsonconv.New()))
	s := newTestService(t, c, decl.Returning[TypedCall[user]](decl.Get("Get", "users/{id}").With(decl.Path[string]("id"))))

	const n = 32
	var wg sync.WaitGroup
	templates := make([]*MethodTemplate, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			templates[i], _ = s.Template("Get")
		}(i)
	}
	close(start)
	wg.Wait()

	if runs := c.cache.runs.Load(); runs != 1 {
		t.Errorf("expected exactly one compilation, got %d", runs)
	}
	for i, tmpl := range templates {
		if tmpl == nil || tmpl != templates[0] {
			t.Fatalf("caller %d got a different template", i)
		}
	}
}

func TestCall_ConcurrentCompilationFailure(t *testing.T) {
	c := newTestClient(t, &recorder{})
	s := newTestService(t, c, void(decl.Get("Bad", "{id}")))

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Template("Bad")
		}(i)
	}
	wg.Wait()

	if runs := c.cache.runs.Load(); runs != 1 {
		t.Errorf("expected exactly one compilation, got %d", runs)
	}
	for i, err := range errs {
		if err == nil || err != errs[0] {
			t.Fatalf("caller %d got a different error: %v", i, err)
		}
	}
}

func TestCall_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") != "name" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"http"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/", WithConverterFactories(jsonconv.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := newTestService(t, c, decl.Returning[TypedCall[user]](
		decl.Get("Get", "users/{id}").With(decl.Path[int]("id"), decl.Query[string]("fields")),
	))
	call, err := Invoke[TypedCall[user]](s, "Get", 9, "name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := call.Body(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "http" {
		t.Errorf("unexpected body %+v", u)
	}
}
