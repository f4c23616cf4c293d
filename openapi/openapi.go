// Package openapi derives service declarations from OpenAPI 3 documents.
//
// Each operation becomes a decl.Method named after its operationId. Arguments
// are ordered path, query, header, then body (or form fields / parts), which
// is the order Service.Invoke expects them in.
package openapi

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/rest"
	"github.com/kbukum/restkit/transport"
	"github.com/kbukum/restkit/version"
)

// SupportedVersions is the constraint a document's "openapi" field must meet.
const SupportedVersions = ">= 3.0, < 4.0"

// Metadata keys set on every extracted method.
const (
	MetaOperationID = "openapi.operation_id"
	MetaSummary     = "openapi.summary"
)

// verbs fixes the iteration order over a path item's operations.
var verbs = []string{decl.GET, decl.HEAD, decl.POST, decl.PUT, decl.PATCH, decl.DELETE, decl.OPTIONS}

var (
	rawBodyType     = reflect.TypeFor[*transport.RequestBody]()
	rawResponseType = reflect.TypeFor[rest.TypedCall[*transport.ResponseBody]]()
	voidResponse    = reflect.TypeFor[rest.TypedCall[rest.Void]]()
)

// ReturnsFunc picks the declared return shape of an operation. Returning nil
// falls back to the default.
type ReturnsFunc func(verb string, op *openapi3.Operation) reflect.Type

// TypeMapper maps a parameter or body schema to a Go type. Returning nil
// falls back to the default mapping.
type TypeMapper func(schema *openapi3.Schema) reflect.Type

type options struct {
	name           string
	tags           map[string]bool
	returns        ReturnsFunc
	types          TypeMapper
	useServerURL   bool
	skipValidation bool
}

// Option configures extraction.
type Option func(*options)

// WithServiceName overrides the service name, which defaults to the
// document title with non-identifier characters removed.
func WithServiceName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTags keeps only operations carrying at least one of the tags.
func WithTags(tags ...string) Option {
	return func(o *options) {
		if o.tags == nil {
			o.tags = make(map[string]bool)
		}
		for _, t := range tags {
			o.tags[t] = true
		}
	}
}

// WithReturns sets the return-shape policy. The default is
// rest.TypedCall[*transport.ResponseBody], or rest.TypedCall[rest.Void] for
// HEAD and for operations whose only success response is 204.
func WithReturns(fn ReturnsFunc) Option {
	return func(o *options) { o.returns = fn }
}

// WithTypeMapper overrides schema to Go type mapping.
func WithTypeMapper(fn TypeMapper) Option {
	return func(o *options) { o.types = fn }
}

// WithServerURL uses the document's first server URL as the service base URL
// template.
func WithServerURL() Option {
	return func(o *options) { o.useServerURL = true }
}

// WithoutValidation skips openapi3 document validation.
func WithoutValidation() Option {
	return func(o *options) { o.skipValidation = true }
}

// Load parses a JSON or YAML document and extracts its service declaration.
func Load(ctx context.Context, data []byte, opts ...Option) (*decl.Service, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, errors.IllegalArgument("openapi: parse document").WithCause(err)
	}
	return FromDocument(ctx, doc, opts...)
}

// LoadFile is Load for a file on disk. External references are resolved
// relative to the file.
func LoadFile(ctx context.Context, path string, opts ...Option) (*decl.Service, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, errors.IllegalArgument("openapi: load %s", path).WithCause(err)
	}
	return FromDocument(ctx, doc, opts...)
}

// FromDocument extracts a service declaration from a loaded document.
func FromDocument(ctx context.Context, doc *openapi3.T, opts ...Option) (*decl.Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ok, err := version.Constraint(doc.OpenAPI, SupportedVersions)
	if err != nil {
		return nil, errors.IllegalArgument("openapi: unreadable document version %q", doc.OpenAPI).WithCause(err)
	}
	if !ok {
		return nil, errors.IllegalArgument("openapi: unsupported document version %s, want %s", doc.OpenAPI, SupportedVersions)
	}
	if !o.skipValidation {
		if err := doc.Validate(ctx); err != nil {
			return nil, errors.IllegalArgument("openapi: invalid document").WithCause(err)
		}
	}

	name := o.name
	if name == "" && doc.Info != nil {
		name = identifier(doc.Info.Title, true)
	}
	if name == "" {
		name = "API"
	}
	svc := decl.NewService(name)
	if o.useServerURL && len(doc.Servers) > 0 {
		u := doc.Servers[0].URL
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		svc.ParamURL(u)
	}

	if doc.Paths == nil {
		return svc, nil
	}
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		for _, verb := range verbs {
			op := item.GetOperation(verb)
			if op == nil || !o.selected(op) {
				continue
			}
			m, err := o.method(path, verb, item, op)
			if err != nil {
				return nil, err
			}
			if svc.Method(m.Name) != nil {
				return nil, errors.IllegalArgument("openapi: duplicate operation %s (%s %s)", m.Name, verb, path)
			}
			svc.Add(m)
		}
	}
	return svc, nil
}

func (o *options) selected(op *openapi3.Operation) bool {
	if len(o.tags) == 0 {
		return true
	}
	for _, t := range op.Tags {
		if o.tags[t] {
			return true
		}
	}
	return false
}

func (o *options) method(path, verb string, item *openapi3.PathItem, op *openapi3.Operation) (*decl.Method, error) {
	name := op.OperationID
	if name == "" {
		name = operationName(verb, path)
	}
	m := decl.NewMethod(name, verb, strings.TrimPrefix(path, "/"))
	if op.OperationID != "" {
		m.Annotate(MetaOperationID, op.OperationID)
	}
	if op.Summary != "" {
		m.Annotate(MetaSummary, op.Summary)
	}

	byKind := map[string][]decl.Param{}
	for _, p := range mergeParameters(item.Parameters, op.Parameters) {
		var param decl.Param
		t := o.typeOf(p.Schema)
		switch p.In {
		case openapi3.ParameterInPath:
			param = decl.Param{Kind: decl.KindPath, Name: p.Name, Type: t}
		case openapi3.ParameterInQuery:
			param = decl.Param{Kind: decl.KindQuery, Name: p.Name, Type: t}
		case openapi3.ParameterInHeader:
			param = decl.Param{Kind: decl.KindHeader, Name: p.Name, Type: t}
		default:
			if p.Required {
				return nil, errors.IllegalArgument("openapi: %s: required %s parameter %q is not supported", name, p.In, p.Name)
			}
			continue
		}
		byKind[p.In] = append(byKind[p.In], param)
	}
	m.With(byKind[openapi3.ParameterInPath]...)
	m.With(byKind[openapi3.ParameterInQuery]...)
	m.With(byKind[openapi3.ParameterInHeader]...)

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		o.body(m, op.RequestBody.Value)
	}

	var returns reflect.Type
	if o.returns != nil {
		returns = o.returns(verb, op)
	}
	if returns == nil {
		returns = defaultReturns(verb, op)
	}
	m.Return(returns)
	return m, nil
}

// body picks the first supported media type: JSON, then form, then
// multipart, then anything else as a raw body.
func (o *options) body(m *decl.Method, rb *openapi3.RequestBody) {
	if !m.BodyAllowed() {
		m.WithBody(true)
	}
	content := rb.Content
	if mt := jsonMediaType(content); mt != nil {
		m.With(decl.Param{Kind: decl.KindBody, Type: o.typeOf(mt.Schema)})
		return
	}
	if mt := content.Get(transport.FormContentType); mt != nil {
		props := properties(mt.Schema)
		if len(props) > 0 {
			m.Form()
			for _, p := range props {
				m.With(decl.Param{Kind: decl.KindField, Name: p.name, Type: o.typeOf(p.schema)})
			}
			return
		}
	}
	if mt := content.Get("multipart/form-data"); mt != nil {
		props := properties(mt.Schema)
		if len(props) > 0 {
			m.Multi()
			for _, p := range props {
				m.With(decl.Param{Kind: decl.KindPart, Name: p.name, Type: rawBodyType})
			}
			return
		}
	}
	m.With(decl.Param{Kind: decl.KindBody, Type: rawBodyType})
}

func (o *options) typeOf(ref *openapi3.SchemaRef) reflect.Type {
	var s *openapi3.Schema
	if ref != nil {
		s = ref.Value
	}
	if o.types != nil {
		if t := o.types(s); t != nil {
			return t
		}
	}
	return goType(s)
}

// goType is the default schema mapping. Unknown or missing schemas map to
// string.
func goType(s *openapi3.Schema) reflect.Type {
	if s == nil || s.Type == nil {
		return reflect.TypeFor[string]()
	}
	switch {
	case s.Type.Is(openapi3.TypeInteger):
		if s.Format == "int32" {
			return reflect.TypeFor[int32]()
		}
		return reflect.TypeFor[int64]()
	case s.Type.Is(openapi3.TypeNumber):
		if s.Format == "float" {
			return reflect.TypeFor[float32]()
		}
		return reflect.TypeFor[float64]()
	case s.Type.Is(openapi3.TypeBoolean):
		return reflect.TypeFor[bool]()
	case s.Type.Is(openapi3.TypeArray):
		var items *openapi3.Schema
		if s.Items != nil {
			items = s.Items.Value
		}
		return reflect.SliceOf(goType(items))
	case s.Type.Is(openapi3.TypeObject):
		return reflect.TypeFor[map[string]any]()
	}
	return reflect.TypeFor[string]()
}

func defaultReturns(verb string, op *openapi3.Operation) reflect.Type {
	if verb == decl.HEAD {
		return voidResponse
	}
	if op.Responses != nil {
		success := 0
		for code := range op.Responses.Map() {
			if strings.HasPrefix(code, "2") {
				success++
			}
		}
		if success == 1 && op.Responses.Status(204) != nil {
			return voidResponse
		}
	}
	return rawResponseType
}

// mergeParameters applies operation parameters over path-item ones with the
// same name and location.
func mergeParameters(common, own openapi3.Parameters) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	index := map[string]int{}
	for _, list := range []openapi3.Parameters{common, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			key := p.In + ":" + p.Name
			if i, ok := index[key]; ok {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func jsonMediaType(content openapi3.Content) *openapi3.MediaType {
	if mt := content.Get("application/json"); mt != nil {
		return mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasSuffix(k, "+json") {
			return content[k]
		}
	}
	return nil
}

type property struct {
	name   string
	schema *openapi3.SchemaRef
}

func properties(ref *openapi3.SchemaRef) []property {
	if ref == nil || ref.Value == nil {
		return nil
	}
	names := make([]string, 0, len(ref.Value.Properties))
	for n := range ref.Value.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]property, len(names))
	for i, n := range names {
		out[i] = property{name: n, schema: ref.Value.Properties[n]}
	}
	return out
}

// operationName derives a name such as "getUsersById" from "GET /users/{id}".
func operationName(verb, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(verb))
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			b.WriteString("By")
			seg = strings.Trim(seg, "{}")
		}
		b.WriteString(identifier(seg, true))
	}
	return b.String()
}

// identifier keeps letters and digits, upper-casing the letter after each
// dropped character.
func identifier(s string, upperFirst bool) string {
	var b strings.Builder
	upper := upperFirst
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Describe renders a one-line signature per method, e.g.
// "getUser(Path(id) int64) rest.TypedCall[...]", in declaration order.
func Describe(svc *decl.Service) []string {
	out := make([]string, 0, len(svc.Methods))
	for _, m := range svc.Methods {
		args := make([]string, len(m.Params))
		for i, p := range m.Params {
			label := p.Kind.String()
			if p.Name != "" {
				label += "(" + p.Name + ")"
			}
			args[i] = fmt.Sprintf("%s %s", label, p.Type)
		}
		out = append(out, fmt.Sprintf("%s %s(%s) %s", m.Verb, m.Name, strings.Join(args, ", "), m.Returns))
	}
	return out
}
