package rest

import (
	"fmt"
	"strings"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
)

// ParamProvider supplies the values of class-level placeholders. A nil
// result omits the header or query entry; a nil base URL keeps the client's.
type ParamProvider interface {
	HeaderParam(name string) any
	URLParam(name string) any
	QueryParam(name string) any
}

// Params is a ParamProvider backed by maps.
type Params struct {
	Header map[string]any
	URL    map[string]any
	Query  map[string]any
}

func (p Params) HeaderParam(name string) any { return p.Header[name] }
func (p Params) URLParam(name string) any    { return p.URL[name] }
func (p Params) QueryParam(name string) any  { return p.Query[name] }

type entryKind int

const (
	entryLiteral entryKind = iota
	entrySingle
	entryComposite
)

type compositePair struct {
	key   string
	param string // empty for a literal "key=value" pair
	value string
}

// templateEntry is one parsed header, query or base URL template.
type templateEntry struct {
	name    string
	kind    entryKind
	encoded bool
	literal string

	prefix string
	suffix string
	param  string
	pairs  []compositePair
}

// classTemplate holds the parsed templates of a service and its parents.
type classTemplate struct {
	headers []templateEntry
	queries []templateEntry
	url     *templateEntry
}

// parseClassTemplate parses s and its declaring scopes, outermost first.
func parseClassTemplate(s *decl.Service) (*classTemplate, error) {
	var chain []*decl.Service
	for p := s; p != nil; p = p.Parent {
		chain = append([]*decl.Service{p}, chain...)
	}

	t := &classTemplate{}
	for _, svc := range chain {
		for _, h := range svc.Headers {
			i := strings.IndexByte(h, ':')
			if i <= 0 || i == len(h)-1 {
				return nil, fmt.Errorf("@ParamHeaders value must be in the form \"Name: Value\". Found: %q", h)
			}
			name, value := strings.TrimSpace(h[:i]), strings.TrimSpace(h[i+1:])
			e, err := parseEntry(name, value)
			if err != nil {
				return nil, err
			}
			t.headers = append(t.headers, e)
		}
		for _, q := range svc.Queries {
			i := strings.IndexByte(q, '=')
			if i <= 0 {
				return nil, fmt.Errorf("@ParamQuerys value must be in the form \"name=value\". Found: %q", q)
			}
			e, err := parseEntry(q[:i], q[i+1:])
			if err != nil {
				return nil, err
			}
			e.encoded = svc.QueriesEncoded
			t.queries = append(t.queries, e)
		}
		if svc.URL != "" {
			e, err := parseEntry("url", svc.URL)
			if err != nil {
				return nil, err
			}
			t.url = &e
		}
	}
	return t, nil
}

// parseEntry scans value for top-level {...} tokens.
func parseEntry(name, value string) (templateEntry, error) {
	e := templateEntry{name: name, literal: value}

	start, end, count := -1, -1, 0
	for i := 0; i < len(value); i++ {
		if value[i] != '{' {
			continue
		}
		j := strings.IndexByte(value[i:], '}')
		if j < 0 {
			break
		}
		if count == 0 {
			start, end = i, i+j
		}
		count++
		i += j
	}

	switch {
	case count == 0:
		return e, nil
	case count > 1:
		return e, fmt.Errorf("Configuration errors, at %s, you can only have a maximum of one parameter", name)
	}

	e.prefix, e.suffix = value[:start], value[end+1:]
	body := value[start+1 : end]
	if !strings.Contains(body, "<") {
		e.kind = entrySingle
		e.param = body
		return e, nil
	}

	e.kind = entryComposite
	for _, pair := range strings.Split(body, ";") {
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return e, fmt.Errorf("Configuration errors, at %s, malformed placeholder %q", name, pair)
		}
		if strings.HasPrefix(val, "<") && strings.HasSuffix(val, ">") {
			e.pairs = append(e.pairs, compositePair{key: key, param: val[1 : len(val)-1]})
			continue
		}
		if strings.ContainsAny(val, "<>") {
			return e, fmt.Errorf("Configuration errors, at %s, malformed placeholder %q", name, pair)
		}
		e.pairs = append(e.pairs, compositePair{key: key, value: val})
	}
	return e, nil
}

// resolve renders the entry. ok is false when the provider has no value.
func (e *templateEntry) resolve(lookup func(string) any) (string, bool, error) {
	switch e.kind {
	case entrySingle:
		s, ok, err := convert.ToString(lookup(e.param))
		if err != nil || !ok {
			return "", false, err
		}
		return e.prefix + s + e.suffix, true, nil

	case entryComposite:
		parts := make([]string, 0, len(e.pairs))
		for _, p := range e.pairs {
			if p.param == "" {
				parts = append(parts, p.key+"="+p.value)
				continue
			}
			s, ok, err := convert.ToString(lookup(p.param))
			if err != nil {
				return "", false, err
			}
			if ok {
				parts = append(parts, p.key+"="+queryEscape(s))
			}
		}
		if len(parts) == 0 {
			return "", false, nil
		}
		return e.prefix + strings.Join(parts, ";") + e.suffix, true, nil
	}
	return e.literal, true, nil
}

func (t *classTemplate) hasPlaceholders() bool {
	for _, e := range t.headers {
		if e.kind != entryLiteral {
			return true
		}
	}
	for _, e := range t.queries {
		if e.kind != entryLiteral {
			return true
		}
	}
	return t.url != nil && t.url.kind != entryLiteral
}

func (t *classTemplate) empty() bool {
	return len(t.headers) == 0 && len(t.queries) == 0 && t.url == nil
}

// apply adds the class-level headers and queries to rb and replaces its
// base URL when a URL template resolves.
func (t *classTemplate) apply(rb *requestBuilder, p ParamProvider) error {
	if t.hasPlaceholders() && p == nil {
		return errors.IllegalArgument("type parameters must be set ParamProvider")
	}

	if t.url != nil {
		var lookup func(string) any
		if p != nil {
			lookup = p.URLParam
		}
		raw, ok, err := t.url.resolve(lookup)
		if err != nil {
			return errors.Conversion("unable to render base URL template", err)
		}
		if ok {
			if err := rb.setBaseURL(raw); err != nil {
				return err
			}
		}
	}

	for i := range t.headers {
		e := &t.headers[i]
		var lookup func(string) any
		if p != nil {
			lookup = p.HeaderParam
		}
		v, ok, err := e.resolve(lookup)
		if err != nil {
			return errors.Conversion("unable to render header "+e.name, err)
		}
		if ok {
			if err := rb.addHeader(e.name, v); err != nil {
				return err
			}
		}
	}

	for i := range t.queries {
		e := &t.queries[i]
		var lookup func(string) any
		if p != nil {
			lookup = p.QueryParam
		}
		v, ok, err := e.resolve(lookup)
		if err != nil {
			return errors.Conversion("unable to render query "+e.name, err)
		}
		if ok {
			rb.addClassQuery(e.name, v, e.encoded || e.kind == entryComposite)
		}
	}
	return nil
}
