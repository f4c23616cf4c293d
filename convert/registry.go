package convert

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
)

// Registry is an immutable, ordered factory chain. It is safe for
// concurrent use.
type Registry struct {
	factories []Factory
}

// NewRegistry returns a registry that consults the built-in factory, then
// the Optional factory, then user in order.
func NewRegistry(user ...Factory) *Registry {
	factories := make([]Factory, 0, len(user)+2)
	factories = append(factories, builtIn{}, optionalFactory{})
	for _, f := range user {
		if f != nil {
			factories = append(factories, f)
		}
	}
	return &Registry{factories: factories}
}

// Factories returns the chain in lookup order.
func (r *Registry) Factories() []Factory {
	out := make([]Factory, len(r.factories))
	copy(out, r.factories)
	return out
}

// RequestBodyConverter returns the first request body converter for t.
func (r *Registry) RequestBodyConverter(t reflect.Type, paramMeta, methodMeta decl.Metadata) (RequestBodyConverter, error) {
	for _, f := range r.factories {
		if c := f.RequestBodyConverter(t, paramMeta, methodMeta, r); c != nil {
			return c, nil
		}
	}
	return nil, r.notFound("RequestBody", t)
}

// ResponseBodyConverter returns the first response body converter for t.
func (r *Registry) ResponseBodyConverter(t reflect.Type, meta decl.Metadata) (ResponseBodyConverter, error) {
	for _, f := range r.factories {
		if c := f.ResponseBodyConverter(t, meta, r); c != nil {
			return c, nil
		}
	}
	return nil, r.notFound("ResponseBody", t)
}

// StringConverter returns the first string converter for t. It never fails:
// types no factory claims are rendered by ToString.
func (r *Registry) StringConverter(t reflect.Type, meta decl.Metadata) StringConverter {
	for _, f := range r.factories {
		if c := f.StringConverter(t, meta, r); c != nil {
			return c
		}
	}
	return StringFunc(ToString)
}

func (r *Registry) notFound(kind string, t reflect.Type) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Could not locate %s converter for %s.\n  Tried:", kind, typeName(t))
	for _, f := range r.factories {
		fmt.Fprintf(&sb, "\n   * %T", f)
	}
	return errors.New(errors.ErrCodeMethodConfiguration, sb.String()).
		WithDetail("type", typeName(t))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
