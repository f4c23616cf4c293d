package transport

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartFormData is the default multipart media type.
const MultipartFormData = "multipart/form-data"

// Part is one multipart section.
type Part struct {
	Header Headers
	Body   *RequestBody
}

// FormPart builds a form-data part named name.
func FormPart(name string, body *RequestBody) *Part {
	return &Part{
		Header: Headers{{Name: "Content-Disposition", Value: `form-data; name="` + escapeQuotes(name) + `"`}},
		Body:   body,
	}
}

// FormFilePart builds a form-data part carrying a file name.
func FormFilePart(name, filename string, body *RequestBody) *Part {
	return &Part{
		Header: Headers{{
			Name:  "Content-Disposition",
			Value: `form-data; name="` + escapeQuotes(name) + `"; filename="` + escapeQuotes(filename) + `"`,
		}},
		Body: body,
	}
}

// Name returns the form-data name from the Content-Disposition header.
func (p *Part) Name() string {
	cd := p.Header.Get("Content-Disposition")
	const marker = `name="`
	i := strings.Index(cd, marker)
	if i < 0 {
		return ""
	}
	rest := cd[i+len(marker):]
	for j := 0; j < len(rest); j++ {
		switch rest[j] {
		case '\\':
			j++
		case '"':
			return unescapeQuotes(rest[:j])
		}
	}
	return ""
}

// MultipartBody accumulates parts in insertion order.
type MultipartBody struct {
	// MediaType defaults to multipart/form-data.
	MediaType string
	Parts     []*Part
	boundary  string
}

// NewMultipartBody returns an empty form-data body.
func NewMultipartBody() *MultipartBody {
	return &MultipartBody{MediaType: MultipartFormData}
}

// AddPart appends a part.
func (m *MultipartBody) AddPart(p *Part) {
	m.Parts = append(m.Parts, p)
}

// SetBoundary fixes the boundary; otherwise a random one is used.
func (m *MultipartBody) SetBoundary(b string) {
	m.boundary = b
}

// Encode writes every part and returns the body with its boundary parameter.
func (m *MultipartBody) Encode() (*RequestBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if m.boundary != "" {
		if err := w.SetBoundary(m.boundary); err != nil {
			return nil, err
		}
	}

	for _, p := range m.Parts {
		header := make(textproto.MIMEHeader, len(p.Header)+1)
		for _, f := range p.Header {
			header.Add(f.Name, f.Value)
		}
		if p.Body != nil && p.Body.ContentType != "" && header.Get("Content-Type") == "" {
			header.Set("Content-Type", p.Body.ContentType)
		}
		pw, err := w.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if p.Body != nil {
			if _, err := pw.Write(p.Body.Content); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = MultipartFormData
	}
	return NewRequestBody(mediaType+"; boundary="+w.Boundary(), buf.Bytes()), nil
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}

func unescapeQuotes(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
