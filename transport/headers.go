package transport

import (
	"net/http"
	"net/textproto"
	"strings"
)

// HeaderField is one name/value pair.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header list that allows duplicates. Lookups are
// case-insensitive.
type Headers []HeaderField

// Get returns the first value for name.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in insertion order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Keys returns the distinct header names in insertion order.
func (h Headers) Keys() []string {
	seen := make(map[string]bool, len(h))
	keys := make([]string, 0, len(h))
	for _, f := range h {
		k := textproto.CanonicalMIMEHeaderKey(f.Name)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Add appends a header.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Set replaces every value for name with a single value.
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes every value for name.
func (h *Headers) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// HTTPHeader converts the list into an http.Header preserving per-name order.
func (h Headers) HTTPHeader() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out.Add(f.Name, f.Value)
	}
	return out
}
