package rest

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/transport"
	"github.com/kbukum/restkit/validation"
)

// QueryPrecedence decides how class-level query templates combine with
// method-level query parameters of the same name.
type QueryPrecedence string

const (
	// QueryAppend keeps both, class-level entries first.
	QueryAppend QueryPrecedence = "append"
	// QueryMethodWins drops class-level entries named by a method-level one.
	QueryMethodWins QueryPrecedence = "method"
)

// Client compiles service declarations and creates calls. It is safe for
// concurrent use.
type Client struct {
	baseURL         *url.URL
	callFactory     transport.CallFactory
	converterList   []convert.Factory
	converters      *convert.Registry
	adapters        []CallAdapterFactory
	provider        ParamProvider
	executor        Executor
	validateEagerly bool
	queryPrecedence QueryPrecedence
	log             *logger.Logger
	metrics         *observability.Metrics

	cache   *templateCache
	classMu sync.Mutex
	classes map[*decl.Service]*classEntry
}

type classEntry struct {
	once sync.Once
	tmpl *classTemplate
	err  error
}

// Option configures a Client.
type Option func(*Client)

// WithCallFactory sets the transport. Defaults to a transport.Client with
// default configuration.
func WithCallFactory(f transport.CallFactory) Option {
	return func(c *Client) { c.callFactory = f }
}

// WithConverterFactories appends converter factories. They are consulted
// after the built-in factories, in order.
func WithConverterFactories(factories ...convert.Factory) Option {
	return func(c *Client) { c.converterList = append(c.converterList, factories...) }
}

// WithCallAdapterFactories appends call adapter factories. They are
// consulted before the built-in TypedCall and Future adapters.
func WithCallAdapterFactories(factories ...CallAdapterFactory) Option {
	return func(c *Client) { c.adapters = append(c.adapters, factories...) }
}

// WithParamProvider sets the provider of class-level placeholder values.
func WithParamProvider(p ParamProvider) Option {
	return func(c *Client) { c.provider = p }
}

// WithCallbackExecutor sets the executor that delivers Enqueue callbacks.
// Defaults to GoExecutor.
func WithCallbackExecutor(e Executor) Option {
	return func(c *Client) { c.executor = e }
}

// WithValidateEagerly compiles every method when a service is created.
func WithValidateEagerly(eager bool) Option {
	return func(c *Client) { c.validateEagerly = eager }
}

// WithQueryPrecedence sets the query merge policy. Defaults to QueryAppend.
func WithQueryPrecedence(p QueryPrecedence) Option {
	return func(c *Client) { c.queryPrecedence = p }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records compile and call metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client. baseURL must be an absolute http(s) URL whose path
// ends in "/".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.IllegalArgument("baseUrl == null")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.IllegalArgument("Illegal URL: %s", baseURL)
	}
	if !validation.IsBaseURL(baseURL) {
		return nil, errors.IllegalArgument("baseUrl must end in /: %s", baseURL)
	}

	c := &Client{
		baseURL:         u,
		executor:        GoExecutor,
		queryPrecedence: QueryAppend,
		log:             logger.Get("rest"),
		cache:           newTemplateCache(),
		classes:         make(map[*decl.Service]*classEntry),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.callFactory == nil {
		tc, err := transport.New(transport.Config{}, transport.WithLogger(c.log))
		if err != nil {
			return nil, err
		}
		c.callFactory = tc
	}
	if c.executor == nil {
		c.executor = GoExecutor
	}
	switch c.queryPrecedence {
	case QueryAppend, QueryMethodWins:
	case "":
		c.queryPrecedence = QueryAppend
	default:
		return nil, errors.IllegalArgument("unknown query precedence %q", c.queryPrecedence)
	}
	c.converters = convert.NewRegistry(c.converterList...)
	c.adapters = append(c.adapters, builtInAdapters{})
	return c, nil
}

// BaseURL returns a copy of the default base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// CallFactory returns the transport.
func (c *Client) CallFactory() transport.CallFactory { return c.callFactory }

// Converters returns the converter registry.
func (c *Client) Converters() *convert.Registry { return c.converters }

// ParamProvider returns the configured provider, or nil.
func (c *Client) ParamProvider() ParamProvider { return c.provider }

// Create binds a service declaration. With eager validation every method is
// compiled before Create returns.
func (c *Client) Create(svc *decl.Service) (*Service, error) {
	if svc == nil {
		return nil, errors.IllegalArgument("service declaration == null")
	}
	if strings.TrimSpace(svc.Name) == "" {
		return nil, errors.IllegalArgument("service declaration must have a name")
	}
	seen := make(map[string]bool, len(svc.Methods))
	for _, m := range svc.Methods {
		if m == nil {
			return nil, errors.IllegalArgument("service %s declares a nil method", svc.Name)
		}
		if seen[m.Name] {
			return nil, errors.IllegalArgument("service %s declares method %s twice", svc.Name, m.Name)
		}
		seen[m.Name] = true
	}

	s := &Service{client: c, decl: svc}
	if c.validateEagerly {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		c.log.Info("service validated", logger.Fields(
			logger.FieldService, svc.Name,
			"methods", len(svc.Methods),
		))
	}
	return s, nil
}

// classTemplate parses the templates of svc once.
func (c *Client) classTemplate(svc *decl.Service) (*classTemplate, error) {
	c.classMu.Lock()
	e, ok := c.classes[svc]
	if !ok {
		e = &classEntry{}
		c.classes[svc] = e
	}
	c.classMu.Unlock()

	e.once.Do(func() { e.tmpl, e.err = parseClassTemplate(svc) })
	return e.tmpl, e.err
}

// template returns the compiled template of m, compiling it on first use.
func (c *Client) template(svc *decl.Service, m *decl.Method) (*MethodTemplate, error) {
	return c.cache.get(cacheKey{service: svc, method: m}, func() (*MethodTemplate, error) {
		id := decl.ID(svc, m)
		ctx, span := observability.StartSpan(context.Background(), observability.SpanCompile,
			trace.WithAttributes(attribute.String(observability.AttrMethod, id)))
		defer span.End()

		class, err := c.classTemplate(svc)
		var tmpl *MethodTemplate
		if err != nil {
			err = errors.MethodConfiguration(id, "%s", err.Error())
		} else {
			tmpl, err = compileMethod(c, svc, class, m)
		}

		c.metrics.RecordCompile(ctx, id, err)
		if err != nil {
			observability.SetSpanError(ctx, err)
			c.log.WithError(err).Debug("method compilation failed", logger.Fields(logger.FieldMethod, id))
			return nil, err
		}
		c.log.Debug("method compiled", logger.Fields(
			logger.FieldMethod, id,
			"verb", tmpl.verb,
			"bindings", len(tmpl.bindings),
		))
		return tmpl, nil
	})
}
