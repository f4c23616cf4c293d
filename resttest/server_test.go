package resttest

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/restkit/component"
	"github.com/kbukum/restkit/convert/jsonconv"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/rest"
)

type user struct {
	Name string `json:"name"`
}

func TestServer_Lifecycle(t *testing.T) {
	s := NewServer()
	ctx := context.Background()

	if s.BaseURL() != "" {
		t.Error("BaseURL() should be empty before Start")
	}
	if h := s.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("Health = %q, want %q", h.Status, component.StatusUnhealthy)
	}
	if err := s.Reset(ctx); err == nil {
		t.Error("Reset() before Start should fail")
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
	if !strings.HasSuffix(s.BaseURL(), "/") {
		t.Errorf("BaseURL() = %q, want trailing slash", s.BaseURL())
	}
	if h := s.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health = %q, want %q", h.Status, component.StatusHealthy)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop() failed: %v", err)
	}
}

func TestServer_RecordsServiceCalls(t *testing.T) {
	srv := Start(t)
	srv.JSON(http.MethodGet, "/users/:id", http.StatusOK, gin.H{"name": "gopher"})
	srv.Echo(http.MethodPost, "/echo")

	client := NewClient(t, srv, rest.WithConverterFactories(jsonconv.New()))
	svc, err := client.Create(decl.NewService("Users").Add(
		decl.Returning[rest.TypedCall[user]](decl.Get("Get", "users/{id}").
			With(decl.Path[int]("id"), decl.Query[string]("q"))),
		decl.Returning[rest.TypedCall[user]](decl.Post("Echo", "echo").
			With(decl.Body[user]())),
	))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	call, err := rest.Invoke[rest.TypedCall[user]](svc, "Get", 42, "a b")
	if err != nil {
		t.Fatalf("Invoke() failed: %v", err)
	}
	u, err := call.Body(context.Background())
	if err != nil {
		t.Fatalf("Body() failed: %v", err)
	}
	if u.Name != "gopher" {
		t.Errorf("Name = %q, want gopher", u.Name)
	}

	last, ok := srv.Last()
	if !ok {
		t.Fatal("expected a recorded request")
	}
	if last.Method != http.MethodGet || last.Path != "/users/42" || last.RawQuery != "q=a%20b" {
		t.Errorf("unexpected request %s %s?%s", last.Method, last.Path, last.RawQuery)
	}
	if last.RequestID == "" {
		t.Error("expected a request id")
	}

	echo, err := rest.Invoke[rest.TypedCall[user]](svc, "Echo", user{Name: "echo"})
	if err != nil {
		t.Fatalf("Invoke() failed: %v", err)
	}
	u, err = echo.Body(context.Background())
	if err != nil {
		t.Fatalf("Body() failed: %v", err)
	}
	if u.Name != "echo" {
		t.Errorf("Name = %q, want echo", u.Name)
	}
	if got := len(srv.Requests()); got != 2 {
		t.Errorf("recorded %d requests, want 2", got)
	}
	last, _ = srv.Last()
	if string(last.Body) != `{"name":"echo"}` {
		t.Errorf("recorded body %q", last.Body)
	}
}

func TestServer_UnmatchedRoutesAreRecorded(t *testing.T) {
	srv := Start(t)
	resp, err := http.Get(srv.BaseURL() + "missing")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id response header")
	}
	if last, ok := srv.Last(); !ok || last.Path != "/missing" {
		t.Errorf("unexpected last request %+v", last)
	}
}

func TestServer_ResetSnapshotRestore(t *testing.T) {
	srv := Start(t)
	srv.Stub(http.MethodGet, "/ping", http.StatusOK, "text/plain", "pong")
	ctx := context.Background()

	get := func() {
		t.Helper()
		resp, err := http.Get(srv.BaseURL() + "ping")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	}
	get()

	snap, err := srv.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if err := srv.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("recorded %d requests after Reset, want 0", n)
	}

	get()
	if err := srv.Restore(ctx, snap); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if n := len(srv.Requests()); n != 1 {
		t.Errorf("recorded %d requests after Restore, want 1", n)
	}
	if err := srv.Restore(ctx, "bogus"); err == nil {
		t.Error("Restore() with a foreign snapshot should fail")
	}
}

func TestServer_InRegistry(t *testing.T) {
	reg := component.NewRegistry()
	srv := NewServer()
	if err := reg.Register(srv); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	ctx := context.Background()
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() failed: %v", err)
	}
	if reg.Get("rest-stub") == nil {
		t.Error("expected registered component")
	}
	if err := reg.StopAll(ctx); err != nil {
		t.Fatalf("StopAll() failed: %v", err)
	}
	if srv.BaseURL() != "" {
		t.Error("BaseURL() should be empty after StopAll")
	}
}
