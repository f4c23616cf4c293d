package decl

import (
	"reflect"
	"strings"
)

// HTTP verbs with their body semantics.
const (
	GET     = "GET"
	HEAD    = "HEAD"
	POST    = "POST"
	PUT     = "PUT"
	PATCH   = "PATCH"
	DELETE  = "DELETE"
	OPTIONS = "OPTIONS"
)

// Metadata carries declaration-site key/value pairs that converter and call
// adapter factories may inspect (for example "format": "unix").
type Metadata map[string]string

// Get returns the value for key, or "" when m is nil or the key is absent.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Param declares one method parameter.
type Param struct {
	Kind Kind
	// Name is the path placeholder, query/field/part/header name.
	Name string
	// Encoded marks the value (and map keys) as already percent-encoded.
	Encoded bool
	// Type is the declared Go type of the argument.
	Type reflect.Type
	// TransferEncoding applies to Part and PartMap; defaults to "binary".
	TransferEncoding string
	Meta             Metadata
}

// Method declares one HTTP operation.
type Method struct {
	Name string
	Verb string
	// Path is the relative URL template, e.g. "users/{id}". It may be empty
	// when a Url parameter supplies the target.
	Path string
	// HasBody overrides the verb's body semantics for custom verbs.
	HasBody *bool
	// Headers are static "Name: value" headers.
	Headers        []string
	FormURLEncoded bool
	Multipart      bool
	Params         []Param
	// Returns is the declared result shape, e.g. rest.TypedCall[User].
	Returns reflect.Type
	Meta    Metadata
}

// BodyAllowed reports whether the method's verb carries a request body.
func (m *Method) BodyAllowed() bool {
	if m.HasBody != nil {
		return *m.HasBody
	}
	switch strings.ToUpper(m.Verb) {
	case POST, PUT, PATCH:
		return true
	}
	return false
}

// Service declares a set of methods that share class-level templates.
type Service struct {
	Name string
	// Parent is a declaring scope whose templates apply before this one's.
	Parent *Service
	// Headers are "Name: value" templates that may hold placeholders.
	Headers []string
	// Queries are "name=value" templates that may hold placeholders.
	Queries        []string
	QueriesEncoded bool
	// URL is a base URL template ("{base}" or a literal URL).
	URL     string
	Methods []*Method
}

// Method returns the named method or nil.
func (s *Service) Method(name string) *Method {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// ID returns the "Service.Method" identity used in diagnostics and caches.
func ID(s *Service, m *Method) string {
	return s.Name + "." + m.Name
}
