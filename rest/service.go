package rest

import (
	"reflect"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
)

// Service dispatches calls to the methods of one declaration. Templates are
// compiled on first use, or by Create under eager validation.
type Service struct {
	client *Client
	decl   *decl.Service
}

func (s *Service) Name() string { return s.decl.Name }

// Declaration returns the declaration the service was created from.
func (s *Service) Declaration() *decl.Service { return s.decl }

// Client returns the owning client.
func (s *Service) Client() *Client { return s.client }

// Template returns the compiled template of the named method.
func (s *Service) Template(method string) (*MethodTemplate, error) {
	m := s.decl.Method(method)
	if m == nil {
		return nil, errors.IllegalArgument("service %s has no method %s", s.decl.Name, method)
	}
	return s.client.template(s.decl, m)
}

// Validate compiles every method and returns the first failure.
func (s *Service) Validate() error {
	for _, m := range s.decl.Methods {
		if _, err := s.client.template(s.decl, m); err != nil {
			return err
		}
	}
	return nil
}

// NewCall returns an unexecuted call of the named method regardless of its
// declared return shape.
func (s *Service) NewCall(method string, args ...any) (*Call, error) {
	t, err := s.Template(method)
	if err != nil {
		return nil, err
	}
	params := t.params
	if len(args) != len(t.bindings) {
		return nil, errors.IllegalArgument("Argument count (%d) doesn't match expected count (%d)", len(args), len(t.bindings))
	}
	for i, arg := range args {
		if arg == nil {
			continue
		}
		if at := reflect.TypeOf(arg); !at.AssignableTo(params[i].Type) {
			return nil, errors.Parameter(t.id, i, "argument of type %s is not assignable to %s", at, params[i].Type)
		}
	}
	return newCall(s.client, t, args), nil
}

// Invoke calls the named method and returns its declared return shape,
// e.g. a TypedCall[User] or a *Future[User].
func (s *Service) Invoke(method string, args ...any) (any, error) {
	call, err := s.NewCall(method, args...)
	if err != nil {
		return nil, err
	}
	return call.tmpl.adapter.Adapt(call)
}

// Invoke calls the named method and asserts its return shape to R.
func Invoke[R any](s *Service, method string, args ...any) (R, error) {
	var zero R
	v, err := s.Invoke(method, args...)
	if err != nil {
		return zero, err
	}
	r, ok := v.(R)
	if !ok {
		return zero, errors.IllegalArgument("method %s.%s returns %T, not %s", s.decl.Name, method, v, reflect.TypeFor[R]())
	}
	return r, nil
}
