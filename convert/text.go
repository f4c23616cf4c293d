package convert

import (
	"reflect"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/transport"
)

// Media types used by the text factory.
const (
	TextPlain   = "text/plain; charset=UTF-8"
	OctetStream = "application/octet-stream"
)

var bytesType = reflect.TypeFor[[]byte]()

// Text returns a factory that sends strings and scalars as text/plain and
// byte slices as application/octet-stream, and reads string and []byte
// responses verbatim.
func Text() Factory { return textFactory{} }

type textFactory struct{ BaseFactory }

func (textFactory) RequestBodyConverter(t reflect.Type, _, _ decl.Metadata, _ *Registry) RequestBodyConverter {
	if t == bytesType {
		return RequestFunc(func(v any) (*transport.RequestBody, error) {
			return transport.NewRequestBody(OctetStream, v.([]byte)), nil
		})
	}
	if !isScalar(t) {
		return nil
	}
	return RequestFunc(func(v any) (*transport.RequestBody, error) {
		s, _, err := ToString(v)
		if err != nil {
			return nil, err
		}
		return transport.NewRequestBody(TextPlain, []byte(s)), nil
	})
}

func (textFactory) ResponseBodyConverter(t reflect.Type, _ decl.Metadata, _ *Registry) ResponseBodyConverter {
	switch {
	case t == bytesType:
		return ResponseFunc(func(body *transport.ResponseBody) (any, error) {
			return body.Data, nil
		})
	case t != nil && t.Kind() == reflect.String:
		return ResponseFunc(func(body *transport.ResponseBody) (any, error) {
			return reflect.ValueOf(body.String()).Convert(t).Interface(), nil
		})
	}
	return nil
}

func isScalar(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
