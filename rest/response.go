package rest

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// Response is the outcome of a completed exchange. Body holds the converted
// body of a 2xx response, ErrorBody the buffered body of any other status.
type Response struct {
	Raw       *transport.Response
	Body      any
	ErrorBody *transport.ResponseBody
}

// Success returns a synthetic "200 OK" response carrying body.
func Success(body any) *Response {
	return &Response{Raw: syntheticRaw(http.StatusOK), Body: body}
}

// SuccessCode returns a synthetic successful response with the given status.
func SuccessCode(code int, body any) (*Response, error) {
	if code < 200 || code >= 300 {
		return nil, errors.IllegalArgument("code < 200 or >= 300: %d", code)
	}
	return &Response{Raw: syntheticRaw(code), Body: body}, nil
}

// SuccessFrom wraps a successful raw response.
func SuccessFrom(body any, raw *transport.Response) (*Response, error) {
	if raw == nil {
		return nil, errors.IllegalArgument("rawResponse == null")
	}
	if !raw.IsSuccessful() {
		return nil, errors.IllegalArgument("rawResponse must be successful response")
	}
	return &Response{Raw: raw, Body: body}, nil
}

// ErrorResponse returns a synthetic error response with the given status.
func ErrorResponse(code int, body *transport.ResponseBody) (*Response, error) {
	if code < 400 {
		return nil, errors.IllegalArgument("code < 400: %d", code)
	}
	return ErrorFrom(body, syntheticRaw(code))
}

// ErrorFrom wraps an unsuccessful raw response.
func ErrorFrom(body *transport.ResponseBody, raw *transport.Response) (*Response, error) {
	switch {
	case body == nil:
		return nil, errors.IllegalArgument("body == null")
	case raw == nil:
		return nil, errors.IllegalArgument("rawResponse == null")
	case raw.IsSuccessful():
		return nil, errors.IllegalArgument("rawResponse should not be successful response")
	}
	return &Response{Raw: raw, ErrorBody: body}, nil
}

func syntheticRaw(code int) *transport.Response {
	return &transport.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     http.Header{},
		Request: &transport.Request{
			Method: http.MethodGet,
			URL:    &url.URL{Scheme: "http", Host: "localhost", Path: "/"},
		},
	}
}

// Code returns the HTTP status code.
func (r *Response) Code() int { return r.Raw.StatusCode }

// Message returns the HTTP status line text, e.g. "404 Not Found".
func (r *Response) Message() string { return r.Raw.Status }

// Headers returns the response headers.
func (r *Response) Headers() http.Header { return r.Raw.Header }

// IsSuccessful reports whether Code is in 200..299.
func (r *Response) IsSuccessful() bool { return r.Raw.IsSuccessful() }

// Err returns an HTTP_ERROR AppError for an unsuccessful response and nil
// otherwise.
func (r *Response) Err() error {
	if r.IsSuccessful() {
		return nil
	}
	return errors.HTTPStatus(r.Code(), r.ErrorBody.String())
}

func (r *Response) String() string {
	if r.Raw.Request != nil {
		return fmt.Sprintf("Response{code=%d, message=%s, url=%s}", r.Code(), r.Message(), r.Raw.Request.URL)
	}
	return fmt.Sprintf("Response{code=%d, message=%s}", r.Code(), r.Message())
}
