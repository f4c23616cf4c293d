package convert

import (
	"reflect"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/transport"
)

var (
	requestBodyType  = reflect.TypeFor[*transport.RequestBody]()
	responseBodyType = reflect.TypeFor[*transport.ResponseBody]()
	voidType         = reflect.TypeFor[Void]()
)

// builtIn passes raw bodies through and discards Void results.
type builtIn struct{ BaseFactory }

func (builtIn) RequestBodyConverter(t reflect.Type, _, _ decl.Metadata, _ *Registry) RequestBodyConverter {
	if t == requestBodyType {
		return RequestFunc(func(v any) (*transport.RequestBody, error) {
			return v.(*transport.RequestBody), nil
		})
	}
	return nil
}

func (builtIn) ResponseBodyConverter(t reflect.Type, _ decl.Metadata, _ *Registry) ResponseBodyConverter {
	switch t {
	case responseBodyType:
		return ResponseFunc(func(body *transport.ResponseBody) (any, error) {
			return body, nil
		})
	case voidType:
		return ResponseFunc(func(*transport.ResponseBody) (any, error) {
			return Void{}, nil
		})
	}
	return nil
}
