// Package yamlconv converts bodies with go.yaml.in/yaml/v3.
//
// Responses must hold exactly one YAML document; a second document in the
// stream is a conversion error.
package yamlconv

import (
	"bytes"
	"io"
	"reflect"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// MediaType is the default request content type.
const MediaType = "application/yaml"

// NotFullyConsumed is the conversion error message for multi-document responses.
const NotFullyConsumed = "YAML document was not fully consumed."

// Factory is a convert.Factory for YAML bodies. It claims every type.
type Factory struct {
	convert.BaseFactory
	// MediaType overrides the request content type.
	MediaType string
	// Indent is the request indentation; 0 keeps the library default.
	Indent int
	// KnownFields rejects mapping keys without a matching struct field.
	KnownFields bool
}

// New returns a YAML factory with default settings.
func New() *Factory {
	return &Factory{MediaType: MediaType}
}

func (f *Factory) RequestBodyConverter(t reflect.Type, _, _ decl.Metadata, _ *convert.Registry) convert.RequestBodyConverter {
	return convert.RequestFunc(func(v any) (*transport.RequestBody, error) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		if f.Indent > 0 {
			enc.SetIndent(f.Indent)
		}
		if err := enc.Encode(v); err != nil {
			return nil, errors.Conversion("unable to encode YAML body", err)
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Conversion("unable to encode YAML body", err)
		}
		mediaType := f.MediaType
		if mediaType == "" {
			mediaType = MediaType
		}
		return transport.NewRequestBody(mediaType, buf.Bytes()), nil
	})
}

func (f *Factory) ResponseBodyConverter(t reflect.Type, _ decl.Metadata, _ *convert.Registry) convert.ResponseBodyConverter {
	if t == nil {
		return nil
	}
	return convert.ResponseFunc(func(body *transport.ResponseBody) (any, error) {
		ptr := reflect.New(t)
		dec := yaml.NewDecoder(body.Reader())
		dec.KnownFields(f.KnownFields)
		if err := dec.Decode(ptr.Interface()); err == io.EOF {
			return ptr.Elem().Interface(), nil
		} else if err != nil {
			return nil, errors.Conversion("unable to decode YAML body", err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); err != io.EOF {
			return nil, errors.Conversion(NotFullyConsumed, err)
		}
		return ptr.Elem().Interface(), nil
	})
}
