package convert

import (
	"reflect"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/transport"
)

// Optional is a value that may be absent. As a response type it wraps the
// converter of T; a nil result from that converter becomes an absent value.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.present }

// IsPresent reports whether a value is held.
func (o Optional[T]) IsPresent() bool { return o.present }

// OrElse returns the value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}

func (Optional[T]) elemType() reflect.Type { return reflect.TypeFor[T]() }

func (Optional[T]) wrap(v any) any {
	if isNil(v) {
		return None[T]()
	}
	return Some(v.(T))
}

// isNil reports whether v is nil or a typed nil such as a decoded JSON null.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

type optionalType interface {
	elemType() reflect.Type
	wrap(v any) any
}

type optionalFactory struct{ BaseFactory }

func (optionalFactory) ResponseBodyConverter(t reflect.Type, meta decl.Metadata, r *Registry) ResponseBodyConverter {
	if t == nil || !t.Implements(reflect.TypeFor[optionalType]()) {
		return nil
	}
	opt := reflect.Zero(t).Interface().(optionalType)
	delegate, err := r.ResponseBodyConverter(opt.elemType(), meta)
	if err != nil {
		return nil
	}
	return ResponseFunc(func(body *transport.ResponseBody) (any, error) {
		v, err := delegate.ConvertResponse(body)
		if err != nil {
			return nil, err
		}
		return opt.wrap(v), nil
	})
}
