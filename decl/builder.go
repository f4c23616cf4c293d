package decl

import "reflect"

// NewService starts a service declaration.
func NewService(name string) *Service {
	return &Service{Name: name}
}

// ParamHeaders appends class-level header templates.
func (s *Service) ParamHeaders(templates ...string) *Service {
	s.Headers = append(s.Headers, templates...)
	return s
}

// ParamQueries appends class-level query templates.
func (s *Service) ParamQueries(encoded bool, templates ...string) *Service {
	s.Queries = append(s.Queries, templates...)
	s.QueriesEncoded = encoded
	return s
}

// ParamURL sets the class-level base URL template.
func (s *Service) ParamURL(template string) *Service {
	s.URL = template
	return s
}

// Inherit sets the declaring scope.
func (s *Service) Inherit(parent *Service) *Service {
	s.Parent = parent
	return s
}

// Add appends method declarations.
func (s *Service) Add(methods ...*Method) *Service {
	s.Methods = append(s.Methods, methods...)
	return s
}

// NewMethod starts a method declaration with an arbitrary verb.
func NewMethod(name, verb, path string) *Method {
	return &Method{Name: name, Verb: verb, Path: path}
}

func Get(name, path string) *Method { return NewMethod(name, GET, path) }
func Head(name, path string) *Method { return NewMethod(name, HEAD, path) }
func Post(name, path string) *Method { return NewMethod(name, POST, path) }
func Put(name, path string) *Method { return NewMethod(name, PUT, path) }
func Patch(name, path string) *Method { return NewMethod(name, PATCH, path) }
func Delete(name, path string) *Method { return NewMethod(name, DELETE, path) }
func Options(name, path string) *Method { return NewMethod(name, OPTIONS, path) }

// WithBody forces the body semantics of a custom verb.
func (m *Method) WithBody(hasBody bool) *Method {
	m.HasBody = &hasBody
	return m
}

// Header appends static "Name: value" headers.
func (m *Method) Header(headers ...string) *Method {
	m.Headers = append(m.Headers, headers...)
	return m
}

// Form marks the method as form-url-encoded.
func (m *Method) Form() *Method {
	m.FormURLEncoded = true
	return m
}

// Multi marks the method as multipart.
func (m *Method) Multi() *Method {
	m.Multipart = true
	return m
}

// With appends parameter declarations in order.
func (m *Method) With(params ...Param) *Method {
	m.Params = append(m.Params, params...)
	return m
}

// Return sets the declared result shape.
func (m *Method) Return(t reflect.Type) *Method {
	m.Returns = t
	return m
}

// Annotate sets a metadata key.
func (m *Method) Annotate(key, value string) *Method {
	if m.Meta == nil {
		m.Meta = Metadata{}
	}
	m.Meta[key] = value
	return m
}

// Returning sets the declared result shape to T.
func Returning[T any](m *Method) *Method {
	return m.Return(reflect.TypeFor[T]())
}

func param[T any](kind Kind, name string) Param {
	return Param{Kind: kind, Name: name, Type: reflect.TypeFor[T]()}
}

func Path[T any](name string) Param { return param[T](KindPath, name) }
func Query[T any](name string) Param { return param[T](KindQuery, name) }
func QueryName[T any]() Param { return param[T](KindQueryName, "") }
func QueryMap[T any]() Param { return param[T](KindQueryMap, "") }
func Header[T any](name string) Param { return param[T](KindHeader, name) }
func HeaderMap[T any]() Param { return param[T](KindHeaderMap, "") }
func Headers[T any]() Param { return param[T](KindHeaders, "") }
func Field[T any](name string) Param { return param[T](KindField, name) }
func FieldMap[T any]() Param { return param[T](KindFieldMap, "") }
func Part[T any](name string) Param { return param[T](KindPart, name) }
func PartMap[T any]() Param { return param[T](KindPartMap, "") }
func Body[T any]() Param { return param[T](KindBody, "") }
func URL[T any]() Param { return param[T](KindURL, "") }
func Tag[T any]() Param { return param[T](KindTag, "") }

// AsEncoded returns a copy of p with the encoded flag set.
func (p Param) AsEncoded() Param {
	p.Encoded = true
	return p
}

// WithTransferEncoding returns a copy of p with the part transfer encoding set.
func (p Param) WithTransferEncoding(enc string) Param {
	p.TransferEncoding = enc
	return p
}

// Annotate returns a copy of p with a metadata key set.
func (p Param) Annotate(key, value string) Param {
	meta := make(Metadata, len(p.Meta)+1)
	for k, v := range p.Meta {
		meta[k] = v
	}
	meta[key] = value
	p.Meta = meta
	return p
}
