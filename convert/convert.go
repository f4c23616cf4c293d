package convert

import (
	"reflect"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/transport"
)

// StringConverter renders an argument for a path, query, header or form
// slot. ok is false when a non-nil value converts to "no value".
type StringConverter interface {
	ConvertString(v any) (s string, ok bool, err error)
}

// RequestBodyConverter encodes a body or part argument.
type RequestBodyConverter interface {
	ConvertRequest(v any) (*transport.RequestBody, error)
}

// ResponseBodyConverter decodes a successful response body. Converters must
// consume the whole document and fail on trailing content.
type ResponseBodyConverter interface {
	ConvertResponse(body *transport.ResponseBody) (any, error)
}

// StringFunc adapts a function to StringConverter.
type StringFunc func(v any) (string, bool, error)

func (f StringFunc) ConvertString(v any) (string, bool, error) { return f(v) }

// RequestFunc adapts a function to RequestBodyConverter.
type RequestFunc func(v any) (*transport.RequestBody, error)

func (f RequestFunc) ConvertRequest(v any) (*transport.RequestBody, error) { return f(v) }

// ResponseFunc adapts a function to ResponseBodyConverter.
type ResponseFunc func(body *transport.ResponseBody) (any, error)

func (f ResponseFunc) ConvertResponse(body *transport.ResponseBody) (any, error) { return f(body) }

// Factory creates converters for the types it understands and returns nil
// for the rest. r is the registry performing the lookup, so wrapping
// factories can resolve a delegate for an inner type.
type Factory interface {
	RequestBodyConverter(t reflect.Type, paramMeta, methodMeta decl.Metadata, r *Registry) RequestBodyConverter
	ResponseBodyConverter(t reflect.Type, meta decl.Metadata, r *Registry) ResponseBodyConverter
	StringConverter(t reflect.Type, meta decl.Metadata, r *Registry) StringConverter
}

// BaseFactory supports nothing. Embed it and override the lookups a
// factory cares about.
type BaseFactory struct{}

func (BaseFactory) RequestBodyConverter(reflect.Type, decl.Metadata, decl.Metadata, *Registry) RequestBodyConverter {
	return nil
}

func (BaseFactory) ResponseBodyConverter(reflect.Type, decl.Metadata, *Registry) ResponseBodyConverter {
	return nil
}

func (BaseFactory) StringConverter(reflect.Type, decl.Metadata, *Registry) StringConverter {
	return nil
}

// Void is the result type of methods whose response body is discarded.
type Void struct{}
