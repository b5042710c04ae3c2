package params

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// maxValueWidth bounds how much of a value a table row shows.
const maxValueWidth = 60

// Row is one line of the tree's tabular view.
type Row struct {
	Name  string
	Type  string
	Value string
	Desc  string
}

// Render returns the tree's parameters as display rows, in declaration
// order. Branch values render as "(subtype) {params}"; long values are
// truncated and non-printable values fall back to an escaped form.
func (t *Tree) Render() []Row {
	rows := make([]Row, 0, len(t.infos))
	for _, pi := range t.infos {
		var val string
		switch n := t.nodes[pi.Name].(type) {
		case *Branch:
			val = fmt.Sprintf("(%s) %s", n.Subtype, NiceString(n.Params.ToMap()))
		case *Leaf:
			val = NiceString(n.Value)
		default:
			val = NiceString(nil)
		}
		rows = append(rows, Row{
			Name:  pi.Name,
			Type:  pi.Type.Name,
			Value: val,
			Desc:  pi.Desc,
		})
	}
	return rows
}

// NiceString formats a parameter or field value for one table cell.
func NiceString(v any) string {
	var s string
	switch v.(type) {
	case nil:
		return "<unset>"
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(b)
		}
	default:
		s = fmt.Sprint(v)
	}

	if len(s) > maxValueWidth {
		// back off to a rune boundary so the cut never splits a multibyte rune
		cut := maxValueWidth
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	for _, r := range s {
		if r < 32 || r > 126 {
			return strconv.Quote(s)
		}
	}
	return s
}
