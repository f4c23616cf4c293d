package rest

import (
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

// assemble builds one request: static headers, class templates, then each
// binding in declaration order, then the body.
func (c *Client) assemble(t *MethodTemplate, args []any) (*transport.Request, error) {
	if len(args) != len(t.bindings) {
		return nil, errors.IllegalArgument("Argument count (%d) doesn't match expected count (%d)",
			len(args), len(t.bindings))
	}

	rb := newRequestBuilder(t.verb, c.baseURL, t.relativeURL, t.headers, t.contentType,
		t.hasBody, t.isForm, t.isMultipart)
	if !t.class.empty() {
		if err := t.class.apply(rb, c.provider); err != nil {
			return nil, err
		}
	}
	for i, b := range t.bindings {
		if err := b.apply(rb, args[i]); err != nil {
			return nil, err
		}
	}

	var reencode func(any) (*transport.RequestBody, error)
	if t.bodyConverter != nil {
		reencode = func(v any) (*transport.RequestBody, error) {
			body, err := t.bodyConverter.ConvertRequest(v)
			if err != nil && !errors.IsConversion(err) {
				err = errors.Conversion("Unable to convert "+t.contentType+" body", err)
			}
			return body, err
		}
	}
	return rb.build(c.queryPrecedence, reencode)
}
