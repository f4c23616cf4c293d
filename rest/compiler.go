package rest

import (
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/kbukum/restkit/convert"
	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/transport"
)

var (
	partType          = reflect.TypeFor[*transport.Part]()
	urlType           = reflect.TypeFor[*url.URL]()
	headersType       = reflect.TypeFor[transport.Headers]()
	httpHeaderType    = reflect.TypeFor[http.Header]()
	formBodyType      = reflect.TypeFor[*transport.FormBody]()
	multipartBodyType = reflect.TypeFor[*transport.MultipartBody]()
	voidType          = reflect.TypeFor[Void]()
)

// invalidResponseTypes are exchange envelopes rather than body types.
var invalidResponseTypes = []reflect.Type{
	reflect.TypeFor[*transport.Response](),
	reflect.TypeFor[transport.Response](),
	reflect.TypeFor[*Response](),
	reflect.TypeFor[Response](),
}

// MethodTemplate is the compiled, immutable form of one declared method.
// It is shared by every call of that method.
type MethodTemplate struct {
	id      string
	service *decl.Service
	method  *decl.Method

	verb        string
	relativeURL string
	headers     transport.Headers
	contentType string
	hasBody     bool
	isForm      bool
	isMultipart bool

	params   []decl.Param
	bindings []*binding
	class    *classTemplate

	responseType      reflect.Type
	responseConverter convert.ResponseBodyConverter
	bodyConverter     convert.RequestBodyConverter
	adapter           CallAdapter
}

// ID returns the "Service.Method" identity.
func (t *MethodTemplate) ID() string { return t.id }

func (t *MethodTemplate) Verb() string        { return t.verb }
func (t *MethodTemplate) RelativeURL() string { return t.relativeURL }
func (t *MethodTemplate) ContentType() string { return t.contentType }
func (t *MethodTemplate) HasBody() bool       { return t.hasBody }
func (t *MethodTemplate) IsFormEncoded() bool { return t.isForm }
func (t *MethodTemplate) IsMultipart() bool   { return t.isMultipart }

// Headers returns a copy of the static headers.
func (t *MethodTemplate) Headers() transport.Headers { return t.headers.Clone() }

// ResponseType is the body type produced by the response converter.
func (t *MethodTemplate) ResponseType() reflect.Type { return t.responseType }

// Params returns a copy of the parameter declarations in binding order.
func (t *MethodTemplate) Params() []decl.Param { return slices.Clone(t.params) }

// compiler validates one method declaration and resolves its converters.
type compiler struct {
	client  *Client
	service *decl.Service
	method  *decl.Method
	id      string
	class   *classTemplate

	tmpl *MethodTemplate

	gotField, gotPart, gotBody, gotPath         bool
	gotQuery, gotQueryName, gotQueryMap, gotURL bool
	pathNames                                   []string
	seenPaths                                   map[string]bool
	tags                                        map[reflect.Type]int
}

func compileMethod(c *Client, svc *decl.Service, class *classTemplate, m *decl.Method) (*MethodTemplate, error) {
	comp := &compiler{
		client:    c,
		service:   svc,
		method:    m,
		id:        decl.ID(svc, m),
		class:     class,
		seenPaths: make(map[string]bool),
		tags:      make(map[reflect.Type]int),
	}
	return comp.compile()
}

func (c *compiler) methodError(format string, args ...any) *errors.AppError {
	return errors.MethodConfiguration(c.id, format, args...)
}

func (c *compiler) paramError(index int, format string, args ...any) *errors.AppError {
	return errors.ParameterConfiguration(c.id, index, format, args...)
}

func (c *compiler) compile() (*MethodTemplate, error) {
	m := c.method
	verb := strings.ToUpper(strings.TrimSpace(m.Verb))
	if verb == "" {
		return nil, c.methodError("HTTP method annotation is required (e.g., @GET, @POST, etc.).")
	}

	c.tmpl = &MethodTemplate{
		id:          c.id,
		service:     c.service,
		method:      m,
		verb:        verb,
		relativeURL: m.Path,
		hasBody:     m.BodyAllowed(),
		isForm:      m.FormURLEncoded,
		isMultipart: m.Multipart,
		params:      slices.Clone(m.Params),
		class:       c.class,
	}
	t := c.tmpl

	if q := splitQuery(m.Path); q != "" && paramURLRegex.MatchString(q) {
		return nil, c.methodError("URL query string %q must not have replace block. "+
			"For dynamic query parameters use @Query.", q)
	}
	c.pathNames = pathParams(m.Path)

	if err := c.parseHeaders(); err != nil {
		return nil, err
	}

	if t.isForm && t.isMultipart {
		return nil, c.methodError("Only one encoding annotation is allowed.")
	}
	if !t.hasBody {
		if t.isMultipart {
			return nil, c.methodError("Multipart can only be specified on HTTP methods with request body (e.g., @POST).")
		}
		if t.isForm {
			return nil, c.methodError("FormUrlEncoded can only be specified on HTTP methods with request body (e.g., @POST).")
		}
	}

	for i, p := range t.params {
		b, err := c.parseParam(i, p)
		if err != nil {
			return nil, err
		}
		t.bindings = append(t.bindings, b)
	}

	if t.relativeURL == "" && !c.gotURL {
		return nil, c.methodError("Missing either @%s URL or @Url parameter.", verb)
	}
	if !t.isForm && !t.isMultipart && !t.hasBody && c.gotBody {
		return nil, c.methodError("Non-body HTTP method cannot contain @Body.")
	}
	if t.isForm && !c.gotField {
		return nil, c.methodError("Form-encoded method must contain at least one @Field.")
	}
	if t.isMultipart && !c.gotPart {
		return nil, c.methodError("Multipart method must contain at least one @Part.")
	}
	var missing []string
	for _, name := range c.pathNames {
		if !c.seenPaths[name] {
			missing = append(missing, "{"+name+"}")
		}
	}
	if len(missing) > 0 {
		return nil, c.methodError("URL %q is missing parameter(s) for %s.", t.relativeURL, strings.Join(missing, ", ")).
			WithDetail("missing", missing)
	}

	if err := c.resolveResult(); err != nil {
		return nil, err
	}
	c.resolveBodyOverride()
	return t, nil
}

func (c *compiler) parseHeaders() error {
	for _, h := range c.method.Headers {
		i := strings.IndexByte(h, ':')
		if i <= 0 || i == len(h)-1 {
			return c.methodError("@Headers value must be in the form \"Name: Value\". Found: %q", h)
		}
		name, value := strings.TrimSpace(h[:i]), strings.TrimSpace(h[i+1:])
		if strings.EqualFold(name, "Content-Type") {
			if _, _, err := mime.ParseMediaType(value); err != nil {
				return c.methodError("Malformed content type: %s", value).WithCause(err)
			}
			c.tmpl.contentType = value
			continue
		}
		c.tmpl.headers.Add(name, value)
	}
	return nil
}

func (c *compiler) parseParam(i int, p decl.Param) (*binding, error) {
	if p.Type == nil {
		return nil, c.paramError(i, "Parameter type must not include a type variable or wildcard: <nil>")
	}
	b := &binding{
		kind:             p.Kind,
		name:             p.Name,
		encoded:          p.Encoded,
		transferEncoding: p.TransferEncoding,
		method:           c.id,
		index:            i,
	}
	reg := c.client.converters
	elem := p.Type
	if p.Kind.Named() && p.Kind != decl.KindPath && p.Name == "" {
		return nil, c.paramError(i, "@%s annotation must supply a name.", p.Kind)
	}

	switch p.Kind {
	case decl.KindURL:
		switch {
		case c.gotURL:
			return nil, c.paramError(i, "Multiple @Url method annotations found.")
		case c.gotPath:
			return nil, c.paramError(i, "@Path parameters may not be used with @Url.")
		case c.gotQuery:
			return nil, c.paramError(i, "A @Url parameter must not come after a @Query.")
		case c.gotQueryName:
			return nil, c.paramError(i, "A @Url parameter must not come after a @QueryName.")
		case c.gotQueryMap:
			return nil, c.paramError(i, "A @Url parameter must not come after a @QueryMap.")
		case c.tmpl.relativeURL != "":
			return nil, c.paramError(i, "@Url cannot be used with @%s URL", c.tmpl.verb)
		}
		if p.Type != urlType && p.Type.Kind() != reflect.String {
			return nil, c.paramError(i, "@Url must be string or *url.URL type.")
		}
		c.gotURL = true

	case decl.KindPath:
		switch {
		case c.gotQuery:
			return nil, c.paramError(i, "A @Path parameter must not come after a @Query.")
		case c.gotQueryName:
			return nil, c.paramError(i, "A @Path parameter must not come after a @QueryName.")
		case c.gotQueryMap:
			return nil, c.paramError(i, "A @Path parameter must not come after a @QueryMap.")
		case c.gotURL:
			return nil, c.paramError(i, "@Path parameters may not be used with @Url.")
		case c.tmpl.relativeURL == "":
			return nil, c.paramError(i, "@Path can only be used with relative url on @%s", c.tmpl.verb)
		}
		c.gotPath = true
		if !paramNameRegex.MatchString(p.Name) {
			return nil, c.paramError(i, "@Path parameter name must match %s. Found: %s", paramURLRegex, p.Name)
		}
		if !contains(c.pathNames, p.Name) {
			return nil, c.paramError(i, "URL %q does not contain \"{%s}\".", c.tmpl.relativeURL, p.Name)
		}
		c.seenPaths[p.Name] = true
		b.str = reg.StringConverter(p.Type, p.Meta)

	case decl.KindQuery, decl.KindQueryName, decl.KindHeader:
		switch p.Kind {
		case decl.KindQuery:
			c.gotQuery = true
		case decl.KindQueryName:
			c.gotQueryName = true
		}
		elem = c.repeat(b, p.Type)
		b.str = reg.StringConverter(elem, p.Meta)

	case decl.KindQueryMap, decl.KindHeaderMap, decl.KindFieldMap:
		label := "@" + p.Kind.String()
		switch p.Kind {
		case decl.KindQueryMap:
			c.gotQueryMap = true
		case decl.KindFieldMap:
			if !c.tmpl.isForm {
				return nil, c.paramError(i, "@FieldMap parameters can only be used with form encoding.")
			}
			c.gotField = true
		}
		value, err := c.mapValue(i, label, p.Type)
		if err != nil {
			return nil, err
		}
		if isRepeated(value) {
			value = value.Elem()
		}
		b.str = reg.StringConverter(value, p.Meta)

	case decl.KindHeaders:
		if p.Type != headersType && p.Type != httpHeaderType {
			return nil, c.paramError(i, "@Headers parameter type must be transport.Headers or http.Header.")
		}

	case decl.KindField:
		if !c.tmpl.isForm {
			return nil, c.paramError(i, "@Field parameters can only be used with form encoding.")
		}
		c.gotField = true
		elem = c.repeat(b, p.Type)
		b.str = reg.StringConverter(elem, p.Meta)

	case decl.KindPart:
		if !c.tmpl.isMultipart {
			return nil, c.paramError(i, "@Part parameters can only be used with multipart encoding.")
		}
		c.gotPart = true
		elem = c.repeat(b, p.Type)
		if p.Name == "" {
			if elem != partType {
				return nil, c.paramError(i, "@Part annotation must supply a name or use *transport.Part parameter type.")
			}
			b.rawPart = true
			break
		}
		if elem == partType {
			return nil, c.paramError(i, "@Part parameters using *transport.Part must not include a part name in the annotation.")
		}
		conv, err := reg.RequestBodyConverter(elem, p.Meta, c.method.Meta)
		if err != nil {
			return nil, c.paramError(i, "Unable to create @Part converter for %s", elem).WithCause(err)
		}
		b.body = conv

	case decl.KindPartMap:
		if !c.tmpl.isMultipart {
			return nil, c.paramError(i, "@PartMap parameters can only be used with multipart encoding.")
		}
		c.gotPart = true
		value, err := c.mapValue(i, "@PartMap", p.Type)
		if err != nil {
			return nil, err
		}
		if value == partType {
			return nil, c.paramError(i, "@PartMap values cannot be *transport.Part. "+
				"Use @Part []*transport.Part or a different value type instead.")
		}
		conv, err := reg.RequestBodyConverter(value, p.Meta, c.method.Meta)
		if err != nil {
			return nil, c.paramError(i, "Unable to create @PartMap value converter for %s", value).WithCause(err)
		}
		b.body = conv

	case decl.KindBody:
		if c.tmpl.isForm || c.tmpl.isMultipart {
			return nil, c.paramError(i, "@Body parameters cannot be used with form or multi-part encoding.")
		}
		if c.gotBody {
			return nil, c.paramError(i, "Multiple @Body method annotations found.")
		}
		conv, err := reg.RequestBodyConverter(p.Type, p.Meta, c.method.Meta)
		if err != nil {
			return nil, c.paramError(i, "Unable to create @Body converter for %s", p.Type).WithCause(err)
		}
		b.body = conv
		c.gotBody = true

	case decl.KindTag:
		if prev, ok := c.tags[p.Type]; ok {
			return nil, c.paramError(i, "@Tag type %s is duplicate of parameter #%d and would always overwrite its value.",
				p.Type, prev+1)
		}
		c.tags[p.Type] = i
		b.tagType = p.Type

	default:
		return nil, c.paramError(i, "No binding kind declared.")
	}
	return b, nil
}

// repeat marks b as a per-element binding when t is a slice or array and
// returns the element type.
func (c *compiler) repeat(b *binding, t reflect.Type) reflect.Type {
	if !isRepeated(t) {
		return t
	}
	if t.Kind() == reflect.Array {
		b.repeat = repeatArray
	} else {
		b.repeat = repeatIterable
	}
	return t.Elem()
}

// mapValue checks a map parameter and returns its value type.
func (c *compiler) mapValue(i int, label string, t reflect.Type) (reflect.Type, error) {
	if t.Kind() != reflect.Map {
		return nil, c.paramError(i, "%s parameter type must be Map.", label)
	}
	key := t.Key()
	if key.Kind() == reflect.Pointer {
		key = key.Elem()
	}
	if key.Kind() != reflect.String {
		return nil, c.paramError(i, "%s keys must be of type String: %s", label, t.Key())
	}
	return t.Elem(), nil
}

func (c *compiler) resolveResult() error {
	m, t := c.method, c.tmpl
	switch {
	case m.Returns == nil:
		return c.methodError("Service methods cannot return void.")
	case m.Returns.Kind() == reflect.Interface:
		return c.methodError("Method return type must not include a type variable or wildcard: %s", m.Returns)
	}

	adapter, err := c.client.callAdapter(m.Returns, m.Meta)
	if err != nil {
		return c.methodError("Unable to create call adapter for %s", m.Returns).WithCause(err)
	}
	t.adapter = adapter
	t.responseType = adapter.ResponseType()

	for _, invalid := range invalidResponseTypes {
		if t.responseType == invalid {
			return c.methodError("'%s' is not a valid response body type. Did you mean *transport.ResponseBody?", t.responseType)
		}
	}
	if t.verb == decl.HEAD && t.responseType != voidType {
		return c.methodError("HEAD method must use Void as response type.")
	}

	conv, err := c.client.converters.ResponseBodyConverter(t.responseType, m.Meta)
	if err != nil {
		return c.methodError("Unable to create converter for %s", t.responseType).WithCause(err)
	}
	t.responseConverter = conv
	return nil
}

// resolveBodyOverride negotiates a converter that re-encodes the form or
// multipart accumulator when the method declares another content type.
// Without one the accumulator keeps its own encoding.
func (c *compiler) resolveBodyOverride() {
	t := c.tmpl
	if t.contentType == "" || (!t.isForm && !t.isMultipart) {
		return
	}
	mediaType, _, _ := mime.ParseMediaType(t.contentType)
	var bodyType reflect.Type
	switch {
	case t.isForm && mediaType != transport.FormContentType:
		bodyType = formBodyType
	case t.isMultipart && !strings.HasPrefix(mediaType, "multipart/"):
		bodyType = multipartBodyType
	default:
		return
	}
	if conv, err := c.client.converters.RequestBodyConverter(bodyType, nil, c.method.Meta); err == nil {
		t.bodyConverter = conv
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
