package jsonconv

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

func decode[T any](t *testing.T, f *Factory, data string) (any, error) {
	t.Helper()
	c := f.ResponseBodyConverter(reflect.TypeFor[T](), nil, nil)
	if c == nil {
		t.Fatal("expected a converter")
	}
	return c.ConvertResponse(transport.NewResponseBody("application/json", []byte(data)))
}

func TestResponse_Decode(t *testing.T) {
	got, err := decode[user](t, New(), ` {"name":"ana","age":3} `+"\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (user{Name: "ana", Age: 3}) {
		t.Errorf("unexpected value %#v", got)
	}

	got, err = decode[*user](t, New(), `null`)
	if err != nil || got.(*user) != nil {
		t.Errorf("expected nil pointer, got %v, %v", got, err)
	}
}

func TestResponse_RequiresFullConsumption(t *testing.T) {
	for _, data := range []string{`{"name":"a"} {"name":"b"}`, `"value" trailing`, `{"name":"a"}}`} {
		_, err := decode[any](t, New(), data)
		if !errors.IsConversion(err) {
			t.Fatalf("%q: expected conversion error, got %v", data, err)
		}
		if !strings.Contains(err.Error(), NotFullyConsumed) {
			t.Errorf("%q: unexpected message %q", data, err.Error())
		}
	}
}

func TestResponse_Errors(t *testing.T) {
	_, err := decode[user](t, New(), `{"name":`)
	if !errors.IsConversion(err) {
		t.Errorf("expected conversion error, got %v", err)
	}
	_, err = decode[user](t, New(WithDisallowUnknownFields()), `{"name":"a","extra":1}`)
	if !errors.IsConversion(err) {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestResponse_UseNumber(t *testing.T) {
	got, err := decode[map[string]any](t, New(WithUseNumber()), `{"n":12345678901234567890}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(map[string]any)["n"].(interface{ String() string }).String() != "12345678901234567890" {
		t.Errorf("expected json.Number, got %#v", got)
	}
}

func TestRequest_Encode(t *testing.T) {
	f := New()
	c := f.RequestBodyConverter(reflect.TypeFor[user](), nil, nil, nil)
	body, err := c.ConvertRequest(user{Name: "<b>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body.Content) != `{"name":"<b>"}` {
		t.Errorf("unexpected content %s", body.Content)
	}
	if body.ContentType != MediaType {
		t.Errorf("unexpected content type %q", body.ContentType)
	}

	f = New(WithEscapeHTML(true), WithMediaType("application/vnd.api+json"))
	body, _ = f.RequestBodyConverter(reflect.TypeFor[user](), nil, nil, nil).ConvertRequest(user{Name: "<b>"})
	if !strings.Contains(string(body.Content), `\u003cb\u003e`) || body.ContentType != "application/vnd.api+json" {
		t.Errorf("options not applied: %s %s", body.ContentType, body.Content)
	}

	_, err = New().RequestBodyConverter(reflect.TypeFor[chan int](), nil, nil, nil).ConvertRequest(make(chan int))
	if !errors.IsConversion(err) {
		t.Errorf("expected conversion error, got %v", err)
	}
}

func TestRequest_FormObject(t *testing.T) {
	form := &transport.FormBody{}
	form.Add("firstName", "zhang")
	form.AddEncoded("lastName", "s%20an")
	form.Add("firstName", "firstName")

	c := New().RequestBodyConverter(reflect.TypeFor[*transport.FormBody](), nil, nil, nil)
	body, err := c.ConvertRequest(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"firstName":"zhang","lastName":"s an","firstName":"firstName"}`
	if string(body.Content) != want {
		t.Errorf("expected %s, got %s", want, body.Content)
	}
}

func TestRequest_MultipartObject(t *testing.T) {
	mp := transport.NewMultipartBody()
	mp.AddPart(transport.FormPart("firstName", transport.NewRequestBody(convert.TextPlain, []byte("zhang"))))
	mp.AddPart(transport.FormPart("lastName", transport.NewRequestBody("text/plain", []byte("san"))))

	c := New().RequestBodyConverter(reflect.TypeFor[*transport.MultipartBody](), nil, nil, nil)
	body, err := c.ConvertRequest(mp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body.Content) != `{"firstName":"zhang","lastName":"san"}` {
		t.Errorf("unexpected content %s", body.Content)
	}

	mp.AddPart(transport.FormPart("blob", transport.NewRequestBody("application/octet-stream", []byte{0})))
	if _, err := c.ConvertRequest(mp); !errors.IsConversion(err) {
		t.Errorf("expected conversion error for binary part, got %v", err)
	}
}

func TestRegistryIntegration(t *testing.T) {
	r := convert.NewRegistry(New())
	c, err := r.ResponseBodyConverter(reflect.TypeFor[convert.Optional[user]](), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.ConvertResponse(transport.NewResponseBody("application/json", []byte(`{"name":"x"}`)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := got.(convert.Optional[user]).Get(); !ok || v.Name != "x" {
		t.Errorf("unexpected optional %#v", got)
	}
}
