package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

type repeatMode int

const (
	repeatNone repeatMode = iota
	// repeatIterable applies the binding per slice element.
	repeatIterable
	// repeatArray applies the binding per array index.
	repeatArray
)

// binding applies one parameter to a request. kind selects the variant;
// rawPart marks a Part without a name whose value is a *transport.Part.
type binding struct {
	kind    decl.Kind
	rawPart bool
	repeat  repeatMode

	name             string
	encoded          bool
	transferEncoding string
	tagType          reflect.Type

	str  convert.StringConverter
	body convert.RequestBodyConverter

	method string
	index  int
}

func (b *binding) apply(rb *requestBuilder, v any) error {
	switch b.repeat {
	case repeatIterable, repeatArray:
		if isNil(v) {
			return nil
		}
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			if err := b.applyOne(rb, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}
	return b.applyOne(rb, v)
}

func (b *binding) applyOne(rb *requestBuilder, v any) error {
	switch b.kind {
	case decl.KindURL:
		if isNil(v) {
			return b.paramError("@Url parameter is null.")
		}
		switch u := v.(type) {
		case *url.URL:
			rb.setRelativeURL(u.String())
		default:
			rb.setRelativeURL(reflect.ValueOf(v).String())
		}
		return nil

	case decl.KindPath:
		if isNil(v) {
			return b.paramError("Path parameter %q value must not be null.", b.name)
		}
		s, ok, err := b.str.ConvertString(v)
		if err != nil {
			return b.convertError(v, err)
		}
		if !ok {
			return b.paramError("Path parameter %q value must not be null.", b.name)
		}
		if err := rb.addPathParam(b.name, s, b.encoded); err != nil {
			return b.wrap(err)
		}
		return nil

	case decl.KindQuery, decl.KindHeader, decl.KindField, decl.KindQueryName:
		if isNil(v) {
			return nil
		}
		s, ok, err := b.str.ConvertString(v)
		if err != nil {
			return b.convertError(v, err)
		}
		if !ok {
			return nil
		}
		switch b.kind {
		case decl.KindQuery:
			rb.addQueryParam(b.name, s, b.encoded)
		case decl.KindQueryName:
			rb.addQueryName(s, b.encoded)
		case decl.KindField:
			rb.addFormField(b.name, s, b.encoded)
		default:
			if err := rb.addHeader(b.name, s); err != nil {
				return b.wrap(err)
			}
		}
		return nil

	case decl.KindQueryMap:
		return b.applyMap(rb, v, "Query map", func(k, s string) error {
			rb.addQueryParam(k, s, b.encoded)
			return nil
		})

	case decl.KindHeaderMap:
		return b.applyMap(rb, v, "Header map", rb.addHeader)

	case decl.KindFieldMap:
		return b.applyMap(rb, v, "Field map", func(k, s string) error {
			rb.addFormField(k, s, b.encoded)
			return nil
		})

	case decl.KindHeaders:
		if isNil(v) {
			return b.paramError("Headers parameter must not be null.")
		}
		switch h := v.(type) {
		case transport.Headers:
			for _, f := range h {
				if err := rb.addHeader(f.Name, f.Value); err != nil {
					return b.wrap(err)
				}
			}
		case http.Header:
			keys := make([]string, 0, len(h))
			for k := range h {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				for _, value := range h[k] {
					if err := rb.addHeader(k, value); err != nil {
						return b.wrap(err)
					}
				}
			}
		}
		return nil

	case decl.KindPart:
		if isNil(v) {
			return nil
		}
		if b.rawPart {
			rb.addPart(v.(*transport.Part))
			return nil
		}
		body, err := b.body.ConvertRequest(v)
		if err != nil {
			return b.convertError(v, err)
		}
		rb.addPart(b.namedPart(b.name, body))
		return nil

	case decl.KindPartMap:
		if isNil(v) {
			return b.paramError("Part map was null.")
		}
		for _, e := range sortedEntries(reflect.ValueOf(v)) {
			key, ok := keyString(e.key)
			if !ok {
				return b.paramError("Part map contained null key.")
			}
			value := e.value.Interface()
			if isNil(value) {
				return b.paramError("Part map contained null value for key '%s'.", key)
			}
			body, err := b.body.ConvertRequest(value)
			if err != nil {
				return b.convertError(value, err)
			}
			rb.addPart(b.namedPart(key, body))
		}
		return nil

	case decl.KindBody:
		if isNil(v) {
			return b.paramError("Body parameter value must not be null.")
		}
		body, err := b.body.ConvertRequest(v)
		if err != nil {
			return b.convertError(v, err)
		}
		rb.setBody(body)
		return nil

	case decl.KindTag:
		if isNil(v) {
			rb.setTag(b.tagType, nil)
			return nil
		}
		rb.setTag(b.tagType, v)
		return nil
	}
	return b.paramError("unsupported binding kind %s", b.kind)
}

// applyMap walks a map argument in key order. Slice values contribute one
// entry per element.
func (b *binding) applyMap(rb *requestBuilder, v any, label string, add func(k, s string) error) error {
	if isNil(v) {
		return b.paramError("%s was null.", label)
	}
	for _, e := range sortedEntries(reflect.ValueOf(v)) {
		key, ok := keyString(e.key)
		if !ok {
			return b.paramError("%s contained null key.", label)
		}
		values := []reflect.Value{e.value}
		if isRepeated(e.value.Type()) || (e.value.Kind() == reflect.Interface && !e.value.IsNil() && isRepeated(e.value.Elem().Type())) {
			inner := e.value
			if inner.Kind() == reflect.Interface {
				inner = inner.Elem()
			}
			values = values[:0]
			for i := 0; i < inner.Len(); i++ {
				values = append(values, inner.Index(i))
			}
		}
		for _, rv := range values {
			value := rv.Interface()
			if isNil(value) {
				return b.paramError("%s contained null value for key '%s'.", label, key)
			}
			s, ok, err := b.str.ConvertString(value)
			if err != nil {
				return b.convertError(value, err)
			}
			if !ok {
				return b.paramError("%s value '%v' converted to null by %T for key '%s'.", label, value, b.str, key)
			}
			if err := add(key, s); err != nil {
				return b.wrap(err)
			}
		}
	}
	return nil
}

func (b *binding) namedPart(name string, body *transport.RequestBody) *transport.Part {
	p := transport.FormPart(name, body)
	enc := b.transferEncoding
	if enc == "" {
		enc = "binary"
	}
	p.Header.Add("Content-Transfer-Encoding", enc)
	return p
}

func (b *binding) paramError(format string, args ...any) error {
	return errors.Parameter(b.method, b.index, format, args...)
}

func (b *binding) convertError(v any, cause error) error {
	return errors.Conversion(fmt.Sprintf("Unable to convert %v to %s (parameter #%d) for method %s",
		v, b.target(), b.index+1, b.method), cause).
		WithDetail("method", b.method).
		WithDetail("parameter", b.index)
}

// wrap attaches method and parameter details to a builder error.
func (b *binding) wrap(err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail("method", b.method).WithDetail("parameter", b.index)
	}
	return err
}

func (b *binding) target() string {
	if b.body != nil {
		return "RequestBody"
	}
	return "string"
}

type mapEntry struct {
	key   reflect.Value
	value reflect.Value
}

// sortedEntries returns the entries of a map ordered by rendered key.
func sortedEntries(m reflect.Value) []mapEntry {
	entries := make([]mapEntry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: iter.Key(), value: iter.Value()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ki, _ := keyString(entries[i].key)
		kj, _ := keyString(entries[j].key)
		return ki < kj
	})
	return entries
}

// keyString renders a string or *string map key; ok is false for a nil key.
func keyString(k reflect.Value) (string, bool) {
	for k.Kind() == reflect.Pointer || k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "", false
		}
		k = k.Elem()
	}
	if k.Kind() != reflect.String {
		return fmt.Sprint(k.Interface()), true
	}
	return k.String(), true
}

// isNil reports a nil interface or a nil pointer, map, slice, func or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// isRepeated reports whether t is a slice or array applied per element.
// Byte slices are scalar values.
func isRepeated(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}
