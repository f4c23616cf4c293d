package transport

import (
	"net/url"
	"strings"
)

// FormContentType is the media type of an encoded FormBody.
const FormContentType = "application/x-www-form-urlencoded"

// FormField is one form entry. Name and Value are stored as given; Encoded
// marks them as already percent-encoded.
type FormField struct {
	Name    string
	Value   string
	Encoded bool
}

// FormBody accumulates form fields in insertion order.
type FormBody struct {
	fields []FormField
}

// Add appends a field that will be percent-encoded.
func (f *FormBody) Add(name, value string) {
	f.fields = append(f.fields, FormField{Name: name, Value: value})
}

// AddEncoded appends a field whose name and value are already encoded.
func (f *FormBody) AddEncoded(name, value string) {
	f.fields = append(f.fields, FormField{Name: name, Value: value, Encoded: true})
}

// Len returns the number of fields.
func (f *FormBody) Len() int { return len(f.fields) }

// Fields returns the fields with encoded entries decoded.
func (f *FormBody) Fields() []FormField {
	out := make([]FormField, len(f.fields))
	for i, field := range f.fields {
		if field.Encoded {
			field.Name = unescape(field.Name)
			field.Value = unescape(field.Value)
			field.Encoded = false
		}
		out[i] = field
	}
	return out
}

// Encode renders the fields as application/x-www-form-urlencoded.
func (f *FormBody) Encode() *RequestBody {
	var sb strings.Builder
	for i, field := range f.fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		if field.Encoded {
			sb.WriteString(field.Name)
			sb.WriteByte('=')
			sb.WriteString(field.Value)
			continue
		}
		sb.WriteString(url.QueryEscape(field.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(field.Value))
	}
	return NewRequestBody(FormContentType, []byte(sb.String()))
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}
