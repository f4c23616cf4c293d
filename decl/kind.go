package decl

import "strings"

// Kind classifies how a parameter contributes to a request.
type Kind int

const (
	KindInvalid Kind = iota
	KindPath
	KindQuery
	KindQueryName
	KindQueryMap
	KindHeader
	KindHeaderMap
	KindHeaders
	KindField
	KindFieldMap
	KindPart
	KindPartMap
	KindBody
	KindURL
	KindTag
)

var kindNames = map[Kind]string{
	KindPath:      "Path",
	KindQuery:     "Query",
	KindQueryName: "QueryName",
	KindQueryMap:  "QueryMap",
	KindHeader:    "Header",
	KindHeaderMap: "HeaderMap",
	KindHeaders:   "Headers",
	KindField:     "Field",
	KindFieldMap:  "FieldMap",
	KindPart:      "Part",
	KindPartMap:   "PartMap",
	KindBody:      "Body",
	KindURL:       "Url",
	KindTag:       "Tag",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Invalid"
}

// ParseKind maps a lower-case kind name ("path", "querymap", "url") to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, true
		}
	}
	return KindInvalid, false
}

// Named reports whether the kind requires a parameter name.
func (k Kind) Named() bool {
	switch k {
	case KindPath, KindQuery, KindHeader, KindField:
		return true
	}
	return false
}
