// Package msgpackconv converts bodies with vmihailenco/msgpack.
package msgpackconv

import (
	"bytes"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// MediaType is the request content type.
const MediaType = "application/msgpack"

// NotFullyConsumed is the conversion error message for trailing bytes.
const NotFullyConsumed = "MessagePack document was not fully consumed."

// Factory is a convert.Factory for MessagePack bodies. It claims every type.
type Factory struct {
	convert.BaseFactory
	// JSONTags makes struct fields fall back to their json tags.
	JSONTags bool
}

// New returns a MessagePack factory.
func New() *Factory { return &Factory{} }

func (f *Factory) RequestBodyConverter(reflect.Type, decl.Metadata, decl.Metadata, *convert.Registry) convert.RequestBodyConverter {
	return convert.RequestFunc(func(v any) (*transport.RequestBody, error) {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		if f.JSONTags {
			enc.SetCustomStructTag("json")
		}
		if err := enc.Encode(v); err != nil {
			return nil, errors.Conversion("unable to encode MessagePack body", err)
		}
		return transport.NewRequestBody(MediaType, buf.Bytes()), nil
	})
}

func (f *Factory) ResponseBodyConverter(t reflect.Type, _ decl.Metadata, _ *convert.Registry) convert.ResponseBodyConverter {
	if t == nil {
		return nil
	}
	return convert.ResponseFunc(func(body *transport.ResponseBody) (any, error) {
		r := bytes.NewReader(body.Data)
		dec := msgpack.NewDecoder(r)
		if f.JSONTags {
			dec.SetCustomStructTag("json")
		}
		ptr := reflect.New(t)
		if err := dec.Decode(ptr.Interface()); err != nil {
			return nil, errors.Conversion("unable to decode MessagePack body", err)
		}
		if r.Len() > 0 {
			return nil, errors.Conversion(NotFullyConsumed, nil)
		}
		return ptr.Elem().Interface(), nil
	})
}
