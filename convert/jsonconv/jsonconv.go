// Package jsonconv converts bodies with encoding/json.
//
// The factory claims every type, so register it after more specific
// factories. Form and multipart accumulators are written as ordered JSON
// objects, which lets a form-encoded method that declares
// "Content-Type: application/json" send {"name":"value",...}.
package jsonconv

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"reflect"
	"strings"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// MediaType is the default request content type.
const MediaType = "application/json; charset=UTF-8"

// NotFullyConsumed is the conversion error message for a response that
// holds trailing content after the first JSON value.
const NotFullyConsumed = "JSON document was not fully consumed."

var (
	formBodyType      = reflect.TypeFor[*transport.FormBody]()
	multipartBodyType = reflect.TypeFor[*transport.MultipartBody]()
)

// Option configures a Factory.
type Option func(*Factory)

// WithMediaType overrides the request content type.
func WithMediaType(mediaType string) Option {
	return func(f *Factory) { f.mediaType = mediaType }
}

// WithEscapeHTML toggles escaping of <, > and & in strings. Default false.
func WithEscapeHTML(on bool) Option {
	return func(f *Factory) { f.escapeHTML = on }
}

// WithDisallowUnknownFields rejects response objects with unknown keys.
func WithDisallowUnknownFields() Option {
	return func(f *Factory) { f.strict = true }
}

// WithUseNumber decodes numbers in interface values as json.Number.
func WithUseNumber() Option {
	return func(f *Factory) { f.useNumber = true }
}

// Factory is a convert.Factory for JSON bodies.
type Factory struct {
	convert.BaseFactory
	mediaType  string
	escapeHTML bool
	strict     bool
	useNumber  bool
}

// New returns a JSON factory.
func New(opts ...Option) *Factory {
	f := &Factory{mediaType: MediaType}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) RequestBodyConverter(t reflect.Type, _, _ decl.Metadata, _ *convert.Registry) convert.RequestBodyConverter {
	switch t {
	case formBodyType:
		return convert.RequestFunc(func(v any) (*transport.RequestBody, error) {
			return f.formObject(v.(*transport.FormBody))
		})
	case multipartBodyType:
		return convert.RequestFunc(func(v any) (*transport.RequestBody, error) {
			return f.multipartObject(v.(*transport.MultipartBody))
		})
	}
	return convert.RequestFunc(func(v any) (*transport.RequestBody, error) {
		data, err := f.encode(v)
		if err != nil {
			return nil, errors.Conversion("unable to encode JSON body", err)
		}
		return transport.NewRequestBody(f.mediaType, data), nil
	})
}

func (f *Factory) ResponseBodyConverter(t reflect.Type, _ decl.Metadata, _ *convert.Registry) convert.ResponseBodyConverter {
	if t == nil {
		return nil
	}
	return convert.ResponseFunc(func(body *transport.ResponseBody) (any, error) {
		ptr := reflect.New(t)
		dec := json.NewDecoder(body.Reader())
		if f.strict {
			dec.DisallowUnknownFields()
		}
		if f.useNumber {
			dec.UseNumber()
		}
		if err := dec.Decode(ptr.Interface()); err != nil {
			return nil, errors.Conversion("unable to decode JSON body", err)
		}
		if _, err := dec.Token(); err != io.EOF {
			return nil, errors.Conversion(NotFullyConsumed, nil)
		}
		return ptr.Elem().Interface(), nil
	})
}

func (f *Factory) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(f.escapeHTML)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type member struct {
	name  string
	value string
}

func (f *Factory) object(members []member) (*transport.RequestBody, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := f.encode(m.name)
		if err != nil {
			return nil, errors.Conversion("unable to encode JSON object", err)
		}
		value, err := f.encode(m.value)
		if err != nil {
			return nil, errors.Conversion("unable to encode JSON object", err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return transport.NewRequestBody(f.mediaType, buf.Bytes()), nil
}

func (f *Factory) formObject(form *transport.FormBody) (*transport.RequestBody, error) {
	fields := form.Fields()
	members := make([]member, len(fields))
	for i, field := range fields {
		members[i] = member{name: field.Name, value: field.Value}
	}
	return f.object(members)
}

// multipartObject accepts text parts only.
func (f *Factory) multipartObject(body *transport.MultipartBody) (*transport.RequestBody, error) {
	members := make([]member, 0, len(body.Parts))
	for _, p := range body.Parts {
		contentType := ""
		if p.Body != nil {
			contentType = p.Body.ContentType
		}
		mediaType, _, _ := mime.ParseMediaType(contentType)
		if !strings.HasPrefix(mediaType, "text/") {
			return nil, errors.Conversion("unsupported multipart part media type "+contentType, nil)
		}
		members = append(members, member{name: p.Name(), value: string(p.Body.Content)})
	}
	return f.object(members)
}
