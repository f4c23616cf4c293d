package rest

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/convert/jsonconv"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

func TestRequest_BaseURLResolution(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Relative", "foo/{id}").With(decl.Path[string]("id"))),
		void(decl.Get("Absolute", "/foo")),
		void(decl.Get("Dynamic", "").With(decl.URL[string]())),
		void(decl.Get("DynamicURL", "").With(decl.URL[*url.URL]())),
	)

	tests := []struct {
		method string
		args   []any
		want   string
	}{
		{"Relative", []any{"42"}, "http://example.com/api/foo/42"},
		{"Absolute", nil, "http://example.com/foo"},
		{"Dynamic", []any{"bar?x=1"}, "http://example.com/api/bar?x=1"},
		{"Dynamic", []any{"https://other.example.com/v2/items"}, "https://other.example.com/v2/items"},
		{"DynamicURL", []any{&url.URL{Path: "baz"}}, "http://example.com/api/baz"},
	}
	for _, tc := range tests {
		req := buildRequest(t, s, tc.method, tc.args...)
		if got := req.URL.String(); got != tc.want {
			t.Errorf("%s(%v): expected %s, got %s", tc.method, tc.args, tc.want, got)
		}
		if req.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", req.Method)
		}
	}
}

func TestRequest_PathEncoding(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Get", "foo/{id}/bar").With(decl.Path[string]("id"))),
		void(decl.Get("Encoded", "foo/{id}").With(decl.Path[string]("id").AsEncoded())),
		void(decl.Get("Twice", "{a}/x/{a}").With(decl.Path[int]("a"))),
	)

	if got := buildRequest(t, s, "Get", "a b/c").URL.String(); got != "http://example.com/api/foo/a%20b%2Fc/bar" {
		t.Errorf("unexpected URL %s", got)
	}
	if got := buildRequest(t, s, "Encoded", "a/b%20c").URL.String(); got != "http://example.com/api/foo/a/b%20c" {
		t.Errorf("unexpected URL %s", got)
	}
	if got := buildRequest(t, s, "Twice", 7).URL.String(); got != "http://example.com/api/7/x/7" {
		t.Errorf("unexpected URL %s", got)
	}
}

func TestRequest_PathTraversal(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Get", "foo/{id}").With(decl.Path[string]("id"))),
		void(decl.Get("Encoded", "foo/{id}").With(decl.Path[string]("id").AsEncoded())),
	)
	for _, v := range []string{".", ".."} {
		err := requestError(t, s, "Get", v)
		if !errors.IsIllegalArgument(err) || !strings.Contains(err.Error(), "path traversal") {
			t.Errorf("%q: expected traversal error, got %v", v, err)
		}
	}
	if err := requestError(t, s, "Encoded", "%2E%2E"); err == nil {
		t.Error("expected encoded traversal to fail")
	}
	if err := requestError(t, s, "Get", "..."); err != nil {
		t.Errorf("three dots is a plain segment, got %v", err)
	}
}

func TestRequest_NullArguments(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Query", "q").With(decl.Query[*string]("a"), decl.QueryName[*string]())),
		void(decl.Get("Header", "h").With(decl.Header[*string]("X-A"))),
		void(decl.Post("Field", "f").Form().With(decl.Field[*string]("a"), decl.Field[string]("b"))),
		void(decl.Get("Path", "p/{id}").With(decl.Path[*string]("id"))),
		void(decl.Post("Body", "b").With(decl.Body[*transport.RequestBody]())),
		void(decl.Get("Url", "").With(decl.URL[*url.URL]())),
	)

	req := buildRequest(t, s, "Query", nil, nil)
	if req.URL.RawQuery != "" {
		t.Errorf("expected no query, got %q", req.URL.RawQuery)
	}
	req = buildRequest(t, s, "Header", (*string)(nil))
	if len(req.Header) != 0 {
		t.Errorf("expected no headers, got %v", req.Header)
	}
	req = buildRequest(t, s, "Field", nil, "x")
	if got := string(req.Body.Content); got != "b=x" {
		t.Errorf("expected only field b, got %q", got)
	}

	err := requestError(t, s, "Path", (*string)(nil))
	if !errors.IsParameter(err) || !strings.Contains(err.Error(), `Path parameter "id" value must not be null.`) {
		t.Errorf("expected null path error, got %v", err)
	}
	err = requestError(t, s, "Body", nil)
	if !errors.IsParameter(err) || !strings.Contains(err.Error(), "Body parameter value must not be null.") {
		t.Errorf("expected null body error, got %v", err)
	}
	err = requestError(t, s, "Url", nil)
	if !errors.IsParameter(err) || !strings.Contains(err.Error(), "@Url parameter is null.") {
		t.Errorf("expected null url error, got %v", err)
	}
}

func TestRequest_Queries(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Search", "search?lang=go").With(
			decl.Query[string]("q"),
			decl.Query[[]string]("tag"),
			decl.Query[string]("raw").AsEncoded(),
			decl.QueryName[string](),
			decl.QueryMap[map[string]any](),
		)),
		void(decl.Get("Array", "a").With(decl.Query[[2]int]("n"))),
		void(decl.Get("Raw", "r").With(decl.Query[string]("q").AsEncoded())),
	)

	req := buildRequest(t, s, "Search",
		"a b&c",
		[]string{"x", "y"},
		"p%20q",
		"flag",
		map[string]any{"z": "1", "m": []string{"k", "l"}},
	)
	want := "lang=go&q=a%20b%26c&tag=x&tag=y&raw=p%20q&flag&m=k&m=l&z=1"
	if req.URL.RawQuery != want {
		t.Errorf("expected %s, got %s", want, req.URL.RawQuery)
	}

	req = buildRequest(t, s, "Array", [2]int{1, 2})
	if req.URL.RawQuery != "n=1&n=2" {
		t.Errorf("unexpected query %s", req.URL.RawQuery)
	}

	req = buildRequest(t, s, "Raw", "a b%2F%zz<")
	if req.URL.RawQuery != "q=a%20b%2F%25zz%3C" {
		t.Errorf("unexpected query %s", req.URL.RawQuery)
	}
	if got := req.URL.String(); strings.Contains(got, " ") {
		t.Errorf("request URL %q contains a space", got)
	}
}

func TestRequest_MapErrors(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Query", "q").With(decl.QueryMap[map[string]*string]())),
		void(decl.Get("Header", "h").With(decl.HeaderMap[map[*string]string]())),
	)

	err := requestError(t, s, "Query", map[string]*string(nil))
	if !strings.Contains(err.Error(), "Query map was null.") {
		t.Errorf("unexpected error %v", err)
	}
	err = requestError(t, s, "Query", map[string]*string{"a": nil})
	if !strings.Contains(err.Error(), "Query map contained null value for key 'a'.") {
		t.Errorf("unexpected error %v", err)
	}
	err = requestError(t, s, "Header", map[*string]string{nil: "v"})
	if !strings.Contains(err.Error(), "Header map contained null key.") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRequest_Headers(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Post("Send", "send").
			Header("X-Static: 1", "Content-Type: application/octet-stream").
			With(
				decl.Header[string]("X-Trace"),
				decl.HeaderMap[map[string]string](),
				decl.Headers[http.Header](),
				decl.Header[string]("Content-Type"),
				decl.Body[*transport.RequestBody](),
			)),
		void(decl.Get("Typed", "t").With(decl.Headers[transport.Headers]())),
	)

	req := buildRequest(t, s, "Send",
		"abc",
		map[string]string{"X-B": "b", "X-A": "a"},
		http.Header{"X-D": {"d"}, "X-C": {"c1", "c2"}},
		"text/plain",
		transport.NewRequestBody("application/json", []byte("hi")),
	)
	var names []string
	for _, h := range req.Header {
		names = append(names, h.Name+"="+h.Value)
	}
	want := "X-Static=1,X-Trace=abc,X-A=a,X-B=b,X-C=c1,X-C=c2,X-D=d"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("expected headers %s, got %s", want, got)
	}
	if req.Body.ContentType != "text/plain" {
		t.Errorf("dynamic Content-Type should win, got %q", req.Body.ContentType)
	}

	req = buildRequest(t, s, "Typed", transport.Headers{{Name: "X-One", Value: "1"}})
	if req.Header.Get("X-One") != "1" {
		t.Errorf("unexpected headers %v", req.Header)
	}

	err := requestError(t, s, "Typed", transport.Headers(nil))
	if !errors.IsParameter(err) {
		t.Errorf("expected null headers error, got %v", err)
	}
}

func TestRequest_FormEncoded(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Post("Login", "login").Form().With(
			decl.Field[string]("user"),
			decl.Field[[]string]("role"),
			decl.Field[string]("token").AsEncoded(),
			decl.FieldMap[map[string]int](),
		)),
	)

	req := buildRequest(t, s, "Login", "a b", []string{"r1", "r2"}, "x%2By", map[string]int{"n": 1})
	if req.Body.ContentType != transport.FormContentType {
		t.Errorf("unexpected content type %q", req.Body.ContentType)
	}
	want := "user=a+b&role=r1&role=r2&token=x%2By&n=1"
	if got := string(req.Body.Content); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRequest_FormAsJSON(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}, WithConverterFactories(jsonconv.New())),
		void(decl.Post("Save", "save").Form().Header("Content-Type: application/json").With(
			decl.Field[string]("firstName"),
			decl.Field[string]("lastName"),
		)),
	)

	req := buildRequest(t, s, "Save", "zhang", "san")
	if got := string(req.Body.Content); got != `{"firstName":"zhang","lastName":"san"}` {
		t.Errorf("unexpected body %s", got)
	}
	if req.Body.ContentType != "application/json" {
		t.Errorf("unexpected content type %q", req.Body.ContentType)
	}
}

func TestRequest_Multipart(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}, WithConverterFactories(convert.Text())),
		void(decl.Post("Upload", "upload").Multi().With(
			decl.Part[string]("title"),
			decl.Part[[]byte]("data").WithTransferEncoding("8bit"),
			decl.Part[*transport.Part](""),
			decl.PartMap[map[string]string](),
		)),
	)

	file := transport.FormFilePart("file", "a.txt", transport.NewRequestBody("text/plain", []byte("content")))
	req := buildRequest(t, s, "Upload", "hello", []byte{1, 2}, file, map[string]string{"k": "v"})

	mediaType, params, err := mime.ParseMediaType(req.Body.ContentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("unexpected content type %q: %v", req.Body.ContentType, err)
	}
	r := multipart.NewReader(strings.NewReader(string(req.Body.Content)), params["boundary"])

	type part struct{ name, encoding, body string }
	var got []part
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := io.ReadAll(p)
		got = append(got, part{p.FormName(), p.Header.Get("Content-Transfer-Encoding"), string(data)})
	}
	want := []part{
		{"title", "binary", "hello"},
		{"data", "8bit", "\x01\x02"},
		{"file", "", "content"},
		{"k", "binary", "v"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestRequest_MultipartWithoutParts(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}, WithConverterFactories(convert.Text())),
		void(decl.Post("Upload", "upload").Multi().With(decl.Part[string]("title"))),
	)
	err := requestError(t, s, "Upload", nil)
	if !errors.IsIllegalState(err) || !strings.Contains(err.Error(), "Multipart body must have at least one part.") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRequest_EmptyBodyForBodyVerbs(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Post("Post", "p")),
		void(decl.Get("Get", "g")),
	)
	if req := buildRequest(t, s, "Post"); req.Body == nil || req.Body.Len() != 0 {
		t.Errorf("expected empty body, got %v", req.Body)
	}
	if req := buildRequest(t, s, "Get"); req.Body != nil {
		t.Errorf("expected no body, got %v", req.Body)
	}
}

type traceID string

func TestRequest_Tags(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Get", "g").With(decl.Tag[traceID](), decl.Tag[*int]())),
	)
	req := buildRequest(t, s, "Get", traceID("t-1"), (*int)(nil))
	if got := req.Tag(reflect.TypeFor[traceID]()); got != traceID("t-1") {
		t.Errorf("unexpected tag %v", got)
	}
	if got := req.Tag(reflect.TypeFor[*int]()); got != nil {
		t.Errorf("nil tag should be absent, got %v", got)
	}
}

func TestRequest_ArgumentChecks(t *testing.T) {
	s := newTestService(t, newTestClient(t, &recorder{}),
		void(decl.Get("Get", "g").With(decl.Query[int]("n"))),
	)
	if _, err := s.NewCall("Get"); !errors.IsIllegalArgument(err) {
		t.Errorf("expected argument count error, got %v", err)
	}
	if _, err := s.NewCall("Get", "x"); !errors.IsParameter(err) {
		t.Errorf("expected assignability error, got %v", err)
	}
	if _, err := s.NewCall("Missing"); !errors.IsIllegalArgument(err) {
		t.Errorf("expected unknown method error, got %v", err)
	}
}
