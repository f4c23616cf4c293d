package bind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/muir/reflectutils"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/rest"
)

// Struct tag keys read from func fields.
const (
	TagRoute   = "rest"
	TagParams  = "params"
	TagHeaders = "headers"
	TagMeta    = "meta"
	TagQueries = "queries"
	TagURL     = "url"
	TagName    = "name"
)

// Class is embedded in a client struct to carry class-level templates:
//
//	type API struct {
//		bind.Class `headers:"X-Tenant: {tenant}" queries:"lang={lang}" url:"{base}"`
//		...
//	}
type Class struct{}

var (
	classType = reflect.TypeFor[Class]()
	errorType = reflect.TypeFor[error]()
)

// Option adjusts the declaration produced from a struct.
type Option func(*options)

type options struct {
	name   string
	parent *decl.Service
}

// WithName overrides the service name, which defaults to the struct type name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithParent sets the declaring scope whose class templates apply first.
func WithParent(parent *decl.Service) Option {
	return func(o *options) { o.parent = parent }
}

// boundField pairs a func field with the method declared for it.
type boundField struct {
	index  []int
	typ    reflect.Type
	method *decl.Method
}

// Declare builds a service declaration from the tagged func fields of the
// struct type t (or pointer to struct).
func Declare(t reflect.Type, opts ...Option) (*decl.Service, error) {
	svc, _, err := declare(t, opts)
	return svc, err
}

// Bind declares target's struct type, creates the service on c and fills
// every tagged func field with an implementation that invokes it. target must
// be a non-nil pointer to a struct.
func Bind(c *rest.Client, target any, opts ...Option) (*rest.Service, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, errors.IllegalArgument("bind target must be a non-nil pointer to a struct, got %T", target)
	}
	d, fields, err := declare(v.Type(), opts)
	if err != nil {
		return nil, err
	}
	svc, err := c.Create(d)
	if err != nil {
		return nil, err
	}
	elem := v.Elem()
	for _, f := range fields {
		elem.FieldByIndex(f.index).Set(reflect.MakeFunc(f.typ, invoker(svc, f)))
	}
	return svc, nil
}

// Must is Bind for package-level client variables; it panics on failure.
func Must(c *rest.Client, target any, opts ...Option) *rest.Service {
	svc, err := Bind(c, target, opts...)
	if err != nil {
		panic(err)
	}
	return svc
}

func declare(t reflect.Type, opts []Option) (*decl.Service, []boundField, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil, errors.IllegalArgument("bind requires a struct type, got %v", t)
	}
	o := options{name: t.Name()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		return nil, nil, errors.IllegalArgument("anonymous struct %s needs a service name", reflectutils.TypeName(t))
	}

	svc := decl.NewService(o.name)
	if o.parent != nil {
		svc.Inherit(o.parent)
	}
	var fields []boundField
	var walkErr error
	reflectutils.WalkStructElements(t, func(field reflect.StructField) bool {
		if field.Type == classType {
			applyClass(svc, field.Tag)
			return false
		}
		route, ok := field.Tag.Lookup(TagRoute)
		if !ok {
			return true
		}
		if field.PkgPath != "" {
			walkErr = errors.IllegalArgument("field %s of %s is unexported", field.Name, reflectutils.TypeName(t))
			return false
		}
		if field.Type.Kind() != reflect.Func {
			walkErr = errors.IllegalArgument("field %s of %s is %s, not a func",
				field.Name, reflectutils.TypeName(t), reflectutils.TypeName(field.Type))
			return false
		}
		m, err := declareMethod(o.name, field, route)
		if err != nil {
			walkErr = err
			return false
		}
		if svc.Method(m.Name) != nil {
			walkErr = errors.IllegalArgument("method %s is declared twice on %s", m.Name, reflectutils.TypeName(t))
			return false
		}
		svc.Add(m)
		fields = append(fields, boundField{index: field.Index, typ: field.Type, method: m})
		return false
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	if len(fields) == 0 {
		return nil, nil, errors.IllegalArgument("%s declares no methods", reflectutils.TypeName(t))
	}
	return svc, fields, nil
}

func applyClass(svc *decl.Service, tag reflect.StructTag) {
	if h := tag.Get(TagHeaders); h != "" {
		svc.ParamHeaders(splitList(h, "|")...)
	}
	if q, ok := tag.Lookup(TagQueries); ok && q != "" {
		encoded := false
		if trimmed, found := strings.CutSuffix(q, ";encoded"); found {
			q, encoded = trimmed, true
		}
		svc.ParamQueries(encoded, splitList(q, "&")...)
	}
	if u := tag.Get(TagURL); u != "" {
		svc.ParamURL(u)
	}
}

// declareMethod reads one func field:
//
//	Get func(id int) (rest.TypedCall[User], error) `rest:"GET users/{id}" params:"path=id"`
//
// The route tag is "VERB [path] [form|multipart|body]"; params lists one
// entry per func argument.
func declareMethod(service string, field reflect.StructField, route string) (*decl.Method, error) {
	name := field.Name
	if n := field.Tag.Get(TagName); n != "" {
		name = n
	}
	id := service + "." + name
	ft := field.Type
	if ft.IsVariadic() {
		return nil, errors.MethodConfiguration(id, "variadic functions are not supported")
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, errors.MethodConfiguration(id, "func must return (R) or (R, error), got %s", ft)
	}

	words := strings.Fields(route)
	if len(words) == 0 {
		return nil, errors.MethodConfiguration(id, "HTTP method annotation is required (e.g., GET, POST, etc.).")
	}
	m := decl.NewMethod(name, strings.ToUpper(words[0]), "")
	for _, w := range words[1:] {
		switch w {
		case "form":
			m.Form()
		case "multipart":
			m.Multi()
		case "body":
			m.WithBody(true)
		case "nobody":
			m.WithBody(false)
		default:
			if m.Path != "" {
				return nil, errors.MethodConfiguration(id, "unexpected %q in route %q", w, route)
			}
			m.Path = w
		}
	}
	if h := field.Tag.Get(TagHeaders); h != "" {
		m.Header(splitList(h, "|")...)
	}
	for _, kv := range splitList(field.Tag.Get(TagMeta), ",") {
		k, v, _ := strings.Cut(kv, "=")
		m.Annotate(k, v)
	}

	entries := splitList(field.Tag.Get(TagParams), ",")
	if len(entries) != ft.NumIn() {
		return nil, errors.MethodConfiguration(id, "%d params entries for %d arguments", len(entries), ft.NumIn())
	}
	for i, e := range entries {
		p, err := parseParam(e, ft.In(i))
		if err != nil {
			return nil, errors.ParameterConfiguration(id, i, "%s", err.Error())
		}
		m.With(p)
	}
	m.Return(ft.Out(0))
	return m, nil
}

// parseParam reads "kind[=name][;encoded][;transfer=<enc>][;key=value...]".
func parseParam(entry string, t reflect.Type) (decl.Param, error) {
	opts := strings.Split(entry, ";")
	kindName, name, _ := strings.Cut(strings.TrimSpace(opts[0]), "=")
	kind, ok := decl.ParseKind(kindName)
	if !ok {
		return decl.Param{}, fmt.Errorf("unknown parameter kind %q", kindName)
	}
	p := decl.Param{Kind: kind, Name: name, Type: t}
	for _, o := range opts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(o), "=")
		switch k {
		case "encoded":
			p.Encoded = true
		case "transfer":
			p.TransferEncoding = v
		default:
			if p.Meta == nil {
				p.Meta = decl.Metadata{}
			}
			p.Meta[k] = v
		}
	}
	return p, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func invoker(svc *rest.Service, f boundField) func([]reflect.Value) []reflect.Value {
	withErr := f.typ.NumOut() == 2
	out := f.typ.Out(0)
	return func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = argument(v)
		}
		result, err := svc.Invoke(f.method.Name, args...)
		if err == nil {
			rv := reflect.ValueOf(result)
			if !rv.IsValid() || !rv.Type().AssignableTo(out) {
				err = errors.IllegalState(fmt.Sprintf("call adapter for %s.%s returned %T, not %s",
					svc.Name(), f.method.Name, result, reflectutils.TypeName(out)))
			} else {
				return results(withErr, rv, nil)
			}
		}
		if !withErr {
			panic(err)
		}
		return results(withErr, reflect.Zero(out), err)
	}
}

// argument unwraps v, turning nil pointers, maps, slices and interfaces into
// an untyped nil so bindings treat them as absent.
func argument(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func results(withErr bool, v reflect.Value, err error) []reflect.Value {
	if !withErr {
		return []reflect.Value{v}
	}
	ev := reflect.Zero(errorType)
	if err != nil {
		ev = reflect.ValueOf(&err).Elem()
	}
	return []reflect.Value{v, ev}
}
