package magic

import (
	"fmt"
	"strings"
)

// Formatter renders a node's message template against its extracted value
// (§6). It is a pluggable component: the core only specifies the
// interface, not the formatting rules themselves (§1 "out of scope").
type Formatter interface {
	Format(template string, v Value) string
}

// defaultFormatter implements the minimal printf-directive contract
// required by §6: one conversion per template, honoring %s, %d, %ld, %x,
// %c, %.Ns, and similar length-modified variants; an absent directive
// returns the template verbatim.
type defaultFormatter struct{}

// DefaultFormatter is used by RuleSet.Find when no Formatter option is
// supplied.
var DefaultFormatter Formatter = defaultFormatter{}

func (defaultFormatter) Format(template string, v Value) string {
	start := strings.IndexByte(template, '%')
	if start < 0 {
		return template
	}
	end, spec, verb, ok := scanDirective(template, start)
	if !ok {
		return template
	}
	goSpec := spec + string(verb)
	var rendered string
	switch verb {
	case 's':
		rendered = fmt.Sprintf(goSpec, toDisplayString(v))
	case 'c':
		rendered = fmt.Sprintf(goSpec, rune(v.Int))
	case 'd', 'u':
		rendered = fmt.Sprintf(spec+"d", v.Int)
	case 'x', 'X', 'o':
		rendered = fmt.Sprintf(goSpec, v.Uint)
	case 'f', 'g', 'e':
		rendered = fmt.Sprintf(goSpec, v.Flt)
	default:
		return template
	}
	return template[:start] + rendered + template[end:]
}

func toDisplayString(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBytes:
		return string(v.Raw)
	default:
		return fmt.Sprint(v.formatArg())
	}
}

// scanDirective parses one printf directive starting at template[start]
// (which must be '%'). It strips C length modifiers (l, ll, h, hh) that Go's
// fmt does not understand, returning a Go-compatible spec (flags/width/
// precision only, no verb) plus the conversion verb and the index just past
// the directive.
func scanDirective(template string, start int) (end int, spec string, verb byte, ok bool) {
	i := start + 1
	n := len(template)
	var b strings.Builder
	b.WriteByte('%')
	for i < n && strings.IndexByte("-+ 0#", template[i]) >= 0 {
		b.WriteByte(template[i])
		i++
	}
	for i < n && template[i] >= '0' && template[i] <= '9' {
		b.WriteByte(template[i])
		i++
	}
	if i < n && template[i] == '.' {
		b.WriteByte('.')
		i++
		for i < n && template[i] >= '0' && template[i] <= '9' {
			b.WriteByte(template[i])
			i++
		}
	}
	for i < n && strings.IndexByte("lhLqjzt", template[i]) >= 0 {
		i++
	}
	if i >= n {
		return 0, "", 0, false
	}
	v := template[i]
	if strings.IndexByte("sdcxXouifge", v) < 0 {
		return 0, "", 0, false
	}
	return i + 1, b.String(), v, true
}
