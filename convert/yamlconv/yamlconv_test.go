package yamlconv

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

type repo struct {
	Name  string   `yaml:"name"`
	Tags  []string `yaml:"tags"`
	Stars int      `yaml:"stars"`
}

func decodeRepo(t *testing.T, f *Factory, data string) (any, error) {
	t.Helper()
	c := f.ResponseBodyConverter(reflect.TypeFor[repo](), nil, nil)
	return c.ConvertResponse(transport.NewResponseBody(MediaType, []byte(data)))
}

func TestResponse(t *testing.T) {
	got, err := decodeRepo(t, New(), "name: restkit\ntags: [go, http]\nstars: 7\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := got.(repo)
	if r.Name != "restkit" || len(r.Tags) != 2 || r.Stars != 7 {
		t.Errorf("unexpected value %+v", r)
	}
}

func TestResponse_Empty(t *testing.T) {
	got, err := decodeRepo(t, New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(repo).Name != "" {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestResponse_SecondDocument(t *testing.T) {
	_, err := decodeRepo(t, New(), "name: a\n---\nname: b\n")
	if !errors.IsConversion(err) || !strings.Contains(err.Error(), NotFullyConsumed) {
		t.Errorf("expected not fully consumed error, got %v", err)
	}
}

func TestResponse_KnownFields(t *testing.T) {
	f := New()
	f.KnownFields = true
	if _, err := decodeRepo(t, f, "name: a\nowner: b\n"); !errors.IsConversion(err) {
		t.Errorf("expected conversion error, got %v", err)
	}
}

func TestRequest(t *testing.T) {
	f := New()
	f.Indent = 2
	c := f.RequestBodyConverter(reflect.TypeFor[repo](), nil, nil, nil)
	body, err := c.ConvertRequest(repo{Name: "x", Tags: []string{"a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ContentType != MediaType {
		t.Errorf("unexpected content type %q", body.ContentType)
	}
	want := "name: x\ntags:\n  - a\nstars: 0\n"
	if string(body.Content) != want {
		t.Errorf("expected %q, got %q", want, body.Content)
	}
}
