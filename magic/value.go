package magic

// Value is the typed result of reading a node's extractor at its resolved
// offset. Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Int  int64
	Uint uint64
	Flt  float64
	Str  string
	Raw  []byte
}

// ValueKind discriminates which field of Value holds the extracted data.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBytes
)

// formatArg returns the value in the shape the default Formatter's printf
// directives expect: %d/%ld/%x/%c want an integer, %s wants a string.
func (v Value) formatArg() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Flt
	case KindString:
		return v.Str
	case KindBytes:
		return string(v.Raw)
	default:
		return nil
	}
}
