package transport

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"reflect"
)

// Request is a fully assembled HTTP request.
type Request struct {
	Method string
	URL    *url.URL
	Header Headers
	Body   *RequestBody
	// Tags carries typed values keyed by their declared type; they are never sent.
	Tags map[reflect.Type]any
}

// Tag returns the tag stored for t, or nil.
func (r *Request) Tag(t reflect.Type) any {
	if r.Tags == nil {
		return nil
	}
	return r.Tags[t]
}

// Clone returns a copy whose headers and tags can be modified independently.
func (r *Request) Clone() *Request {
	out := *r
	if r.URL != nil {
		u := *r.URL
		out.URL = &u
	}
	out.Header = r.Header.Clone()
	if r.Tags != nil {
		out.Tags = make(map[reflect.Type]any, len(r.Tags))
		for k, v := range r.Tags {
			out.Tags[k] = v
		}
	}
	return &out
}

// String renders the request line, e.g. "GET http://example.com/users".
func (r *Request) String() string {
	if r.URL == nil {
		return r.Method
	}
	return r.Method + " " + r.URL.String()
}

// RequestBody is an encoded request payload.
type RequestBody struct {
	ContentType string
	Content     []byte
}

// NewRequestBody returns a body with the given media type.
func NewRequestBody(contentType string, content []byte) *RequestBody {
	return &RequestBody{ContentType: contentType, Content: content}
}

// Len returns the content length.
func (b *RequestBody) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Content)
}

// Response is a transport response with its body fully buffered.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       *ResponseBody
	Request    *Request
}

// IsSuccessful reports whether the status is in 200..299.
func (r *Response) IsSuccessful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ResponseBody is a buffered response payload.
type ResponseBody struct {
	ContentType string
	Data        []byte
}

// NewResponseBody returns a body with the given media type.
func NewResponseBody(contentType string, data []byte) *ResponseBody {
	return &ResponseBody{ContentType: contentType, Data: data}
}

// Reader returns a fresh reader over the body.
func (b *ResponseBody) Reader() io.Reader {
	if b == nil {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(b.Data)
}

func (b *ResponseBody) String() string {
	if b == nil {
		return ""
	}
	return string(b.Data)
}

// Len returns the content length.
func (b *ResponseBody) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}
