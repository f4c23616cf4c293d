package rest

import (
	"mime"
	"net/url"
	"reflect"
	"strings"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

type queryParam struct {
	name     string
	value    string
	hasValue bool
	encoded  bool
	class    bool
}

// requestBuilder accumulates one request. It is owned by a single assembly
// and never shared.
type requestBuilder struct {
	method      string
	baseURL     *url.URL
	relativeURL string
	query       []queryParam
	headers     transport.Headers
	contentType string
	hasBody     bool

	body      *transport.RequestBody
	form      *transport.FormBody
	multipart *transport.MultipartBody
	tags      map[reflect.Type]any
}

func newRequestBuilder(method string, baseURL *url.URL, relativeURL string, headers transport.Headers,
	contentType string, hasBody, isForm, isMultipart bool) *requestBuilder {
	rb := &requestBuilder{
		method:      method,
		baseURL:     baseURL,
		relativeURL: relativeURL,
		headers:     headers.Clone(),
		contentType: contentType,
		hasBody:     hasBody,
	}
	switch {
	case isForm:
		rb.form = &transport.FormBody{}
	case isMultipart:
		rb.multipart = transport.NewMultipartBody()
	}
	return rb
}

func (rb *requestBuilder) setBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.IllegalArgument("Malformed base URL: %s", raw)
	}
	rb.baseURL = u
	return nil
}

func (rb *requestBuilder) setRelativeURL(relative string) {
	rb.relativeURL = relative
}

// addHeader appends a header. Content-Type replaces the request media type.
func (rb *requestBuilder) addHeader(name, value string) error {
	if strings.EqualFold(name, "Content-Type") {
		if _, _, err := mime.ParseMediaType(value); err != nil {
			return errors.IllegalArgument("Malformed content type: %s", value).WithCause(err)
		}
		rb.contentType = value
		return nil
	}
	rb.headers.Add(name, value)
	return nil
}

// addPathParam substitutes {name} in the relative URL.
func (rb *requestBuilder) addPathParam(name, value string, encoded bool) error {
	replacement := canonicalizeForPath(value, encoded)
	next := strings.ReplaceAll(rb.relativeURL, "{"+name+"}", replacement)
	if pathTraversal.MatchString(next) {
		return errors.IllegalArgument("@Path parameters shouldn't perform path traversal ('.' or '..'): %s", value)
	}
	rb.relativeURL = next
	return nil
}

func (rb *requestBuilder) addQueryParam(name, value string, encoded bool) {
	rb.query = append(rb.query, queryParam{name: name, value: value, hasValue: true, encoded: encoded})
}

// addQueryName appends a query entry without a value, e.g. "?flag".
func (rb *requestBuilder) addQueryName(name string, encoded bool) {
	rb.query = append(rb.query, queryParam{name: name, encoded: encoded})
}

func (rb *requestBuilder) addClassQuery(name, value string, encoded bool) {
	rb.query = append(rb.query, queryParam{name: name, value: value, hasValue: true, encoded: encoded, class: true})
}

func (rb *requestBuilder) addFormField(name, value string, encoded bool) {
	if encoded {
		rb.form.AddEncoded(name, value)
		return
	}
	rb.form.Add(name, value)
}

func (rb *requestBuilder) addPart(p *transport.Part) {
	rb.multipart.AddPart(p)
}

func (rb *requestBuilder) setBody(body *transport.RequestBody) {
	rb.body = body
}

func (rb *requestBuilder) setTag(t reflect.Type, v any) {
	if v == nil {
		delete(rb.tags, t)
		return
	}
	if rb.tags == nil {
		rb.tags = make(map[reflect.Type]any)
	}
	rb.tags[t] = v
}

// build resolves the URL against the base URL and finalizes the body.
// bodyConverter re-encodes a form or multipart body when set.
func (rb *requestBuilder) build(precedence QueryPrecedence, bodyConverter func(any) (*transport.RequestBody, error)) (*transport.Request, error) {
	ref, err := url.Parse(rb.relativeURL)
	if err != nil {
		return nil, errors.IllegalArgument("Malformed URL. Base: %s, Relative: %s", rb.baseURL, rb.relativeURL).WithCause(err)
	}
	target := rb.baseURL.ResolveReference(ref)

	if q := rb.encodeQuery(precedence); q != "" {
		if target.RawQuery != "" {
			target.RawQuery += "&" + q
		} else {
			target.RawQuery = q
		}
	}

	body := rb.body
	switch {
	case rb.form != nil:
		if bodyConverter != nil {
			if body, err = bodyConverter(rb.form); err != nil {
				return nil, err
			}
		} else {
			body = rb.form.Encode()
		}
	case rb.multipart != nil:
		if len(rb.multipart.Parts) == 0 {
			return nil, errors.IllegalState("Multipart body must have at least one part.")
		}
		if bodyConverter != nil {
			body, err = bodyConverter(rb.multipart)
		} else {
			body, err = rb.multipart.Encode()
		}
		if err != nil {
			return nil, errors.Conversion("unable to encode multipart body", err)
		}
	case body == nil && rb.hasBody:
		body = transport.NewRequestBody("", []byte{})
	}

	headers := rb.headers
	if rb.contentType != "" {
		if body != nil {
			body = transport.NewRequestBody(rb.contentType, body.Content)
		} else {
			headers.Add("Content-Type", rb.contentType)
		}
	}

	return &transport.Request{
		Method: rb.method,
		URL:    target,
		Header: headers,
		Body:   body,
		Tags:   rb.tags,
	}, nil
}

// encodeQuery renders the accumulated query entries in insertion order.
// With QueryMethodWins, class-level entries sharing a name with a
// method-level entry are dropped.
func (rb *requestBuilder) encodeQuery(precedence QueryPrecedence) string {
	var methodNames map[string]bool
	if precedence == QueryMethodWins {
		methodNames = make(map[string]bool)
		for _, q := range rb.query {
			if !q.class {
				methodNames[q.name] = true
			}
		}
	}

	var sb strings.Builder
	for _, q := range rb.query {
		if q.class && methodNames[q.name] {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(canonicalizeForQuery(q.name, q.encoded))
		if q.hasValue {
			sb.WriteByte('=')
			sb.WriteString(canonicalizeForQuery(q.value, q.encoded))
		}
	}
	return sb.String()
}

// queryEscape percent-encodes s for a query component using %20 for spaces.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
