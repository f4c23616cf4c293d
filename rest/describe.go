package rest

import (
	"fmt"
	"strings"

	"github.com/bndr/gotabulate"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
)

var tableHeaders = []string{"method", "verb", "path", "params", "returns", "status"}

// Table renders the service's methods as a grid. The status column compiles
// each method and shows "ok" or the error code.
func (s *Service) Table() string {
	rows := make([][]any, 0, len(s.decl.Methods))
	for _, m := range s.decl.Methods {
		status := "ok"
		if _, err := s.client.template(s.decl, m); err != nil {
			status = "error"
			if appErr, ok := errors.AsAppError(err); ok {
				status = string(appErr.Code)
			}
		}
		returns := "<nil>"
		if m.Returns != nil {
			returns = m.Returns.String()
		}
		rows = append(rows, []any{m.Name, strings.ToUpper(m.Verb), m.Path, describeParams(m.Params), returns, status})
	}
	if len(rows) == 0 {
		return s.decl.Name + ": <no methods>"
	}

	t := gotabulate.Create(rows)
	t.SetHeaders(tableHeaders)
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(60)
	return fmt.Sprintf("%s:\n%s", s.decl.Name, t.Render("grid"))
}

// describeParams renders parameters as "Kind(name) type".
func describeParams(params []decl.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		label := p.Kind.String()
		if p.Name != "" {
			label += "(" + p.Name + ")"
		}
		if p.Type != nil {
			label += " " + p.Type.String()
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}
