package magic

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/filekind/magic/byteset"
)

// Criterion is a typed comparator (§4.3): it reads at a resolved offset and
// decides whether the node matches.
type Criterion interface {
	// Evaluate reads at offset and compares against the criterion's
	// expected value. invert flips the criterion's declared byte order,
	// for numeric/UTF-16 criteria reached through a "use ^name" (§4.4).
	Evaluate(buf []byte, offset int64, invert bool) criterionResult

	// StartingBytes returns the deterministic first byte(s) this criterion
	// requires when read at offset zero, or nil if none is determinable
	// (§4.7). Node gates this to offset-zero literal roots only.
	StartingBytes() byteset.Matcher
}

// criterionResult is the outcome of evaluating one node's criterion.
type criterionResult struct {
	Matched  bool
	Value    Value
	Consumed int64 // bytes from offset to the end of the read window
}

func noMatch() criterionResult { return criterionResult{} }

// ---- numeric -----------------------------------------------------------

// numericCriterion implements byte/short/long/quad/float/double/ID3
// comparisons, including the 'x' no-op test (always matches if the read is
// in range) used to anchor children on a typed field.
type numericCriterion struct {
	Width    int
	Order    Order
	ID3      bool
	IsFloat  bool
	Unsigned bool
	NoOp     bool
	Op       byte // '=' '<' '>' '&' '^' '~' '!'
	Mask     *int64
	Expected int64
	ExpFloat float64
}

func (c numericCriterion) effectiveOrder(invert bool) Order {
	if !invert {
		return c.Order
	}
	switch c.Order.resolved() {
	case Little:
		return Big
	case Big:
		return Little
	default:
		return c.Order
	}
}

func (c numericCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	order := c.effectiveOrder(invert)

	if c.IsFloat {
		var f float64
		var ok bool
		if c.Width == 4 {
			var f32 float32
			f32, ok = extractFloat32(buf, offset, order)
			f = float64(f32)
		} else {
			f, ok = extractFloat64(buf, offset, order)
		}
		if !ok {
			return noMatch()
		}
		v := Value{Kind: KindFloat, Flt: f}
		if c.NoOp {
			return criterionResult{Matched: true, Value: v, Consumed: int64(c.Width)}
		}
		matched := compareFloat(f, c.Op, c.ExpFloat)
		return criterionResult{Matched: matched, Value: v, Consumed: int64(c.Width)}
	}

	var raw int64
	if c.Unsigned {
		u, ok := extractUint(buf, offset, c.Width, order, c.ID3)
		if !ok {
			return noMatch()
		}
		raw = int64(u)
	} else {
		r, ok := extractInt(buf, offset, c.Width, order, c.ID3)
		if !ok {
			return noMatch()
		}
		raw = r
	}
	if c.Mask != nil {
		raw &= *c.Mask
	}
	v := Value{Kind: KindInt, Int: raw, Uint: uint64(raw)}
	if c.NoOp {
		return criterionResult{Matched: true, Value: v, Consumed: int64(c.Width)}
	}
	var matched bool
	if c.Unsigned {
		matched = compareUint(uint64(raw), c.Op, uint64(c.Expected))
	} else {
		matched = compareInt(raw, c.Op, c.Expected)
	}
	return criterionResult{Matched: matched, Value: v, Consumed: int64(c.Width)}
}

func compareInt(v int64, op byte, expected int64) bool {
	switch op {
	case '<':
		return v < expected
	case '>':
		return v > expected
	case '&':
		return v&expected == expected
	case '^':
		return v&expected == 0
	case '~':
		return v == ^expected
	case '!':
		return v != expected
	default:
		return v == expected
	}
}

func compareUint(v uint64, op byte, expected uint64) bool {
	switch op {
	case '<':
		return v < expected
	case '>':
		return v > expected
	case '&':
		return v&expected == expected
	case '^':
		return v&expected == 0
	case '~':
		return v == ^expected
	case '!':
		return v != expected
	default:
		return v == expected
	}
}

func compareFloat(v float64, op byte, expected float64) bool {
	switch op {
	case '<':
		return v < expected
	case '>':
		return v > expected
	case '!':
		return v != expected
	default:
		return v == expected
	}
}

func (c numericCriterion) StartingBytes() byteset.Matcher {
	if c.NoOp || c.IsFloat {
		return nil
	}
	if c.Width == 1 {
		return c.singleByteStartingBytes()
	}
	// Wider reads only commit to the index on a literal, unmasked, non-ID3
	// '=': every other comparator's set of possible leading bytes depends on
	// carries and borrows from the trailing bytes, and a mask or the ID3
	// 7-bit packing decouples the leading byte from the expected value, so
	// none of those is a single deterministic value the way plain equality is.
	if c.Op != '=' || c.Mask != nil || c.ID3 {
		return nil
	}
	width := c.Width
	if width == 0 {
		return nil
	}
	b := make([]byte, width)
	v := uint64(c.Expected)
	switch c.Order.resolved() {
	case Little:
		for i := 0; i < width; i++ {
			b[i] = byte(v >> (8 * uint(i)))
		}
	case Middle:
		return nil // word-swapped order has no single deterministic leading byte worth indexing
	default:
		for i := 0; i < width; i++ {
			b[width-1-i] = byte(v >> (8 * uint(i)))
		}
	}
	return byteset.Exactly(b[0])
}

// singleByteStartingBytes handles the byte/ubyte case exactly: the read
// value is the leading byte alone (sign-extended for byte, as Evaluate reads
// it), so every comparator (and any mask) can be evaluated against all 256
// candidates directly, using the same compareInt/compareUint the Evaluate
// path uses, rather than re-deriving comparator semantics a second time.
func (c numericCriterion) singleByteStartingBytes() byteset.Matcher {
	var matched []byte
	for v := 0; v < 256; v++ {
		raw := int64(int8(v))
		if c.Unsigned {
			raw = int64(byte(v))
		}
		if c.Mask != nil {
			raw &= *c.Mask
		}
		var ok bool
		if c.Unsigned {
			ok = compareUint(uint64(raw), c.Op, uint64(c.Expected))
		} else {
			ok = compareInt(raw, c.Op, c.Expected)
		}
		if ok {
			matched = append(matched, byte(v))
		}
	}
	return byteSetOf(matched)
}

// byteSetOf picks the byteset representation the package's own doc comments
// recommend for the shape of the given (sorted, deduplicated) byte list:
// Ranges for a handful of contiguous runs, Not(...) when the complement is
// the smaller set to describe, SparseSet for a small scattered set, and
// DenseSet as the catch-all for everything else.
func byteSetOf(matched []byte) byteset.Matcher {
	switch len(matched) {
	case 0:
		return byteset.None()
	case 256:
		return byteset.All()
	case 1:
		return byteset.Exactly(matched[0])
	}
	if complement := complementOf(matched); len(complement) < len(matched) {
		return byteset.Not(compactByteSet(complement))
	}
	return compactByteSet(matched)
}

func complementOf(matched []byte) []byte {
	in := make([]bool, 256)
	for _, b := range matched {
		in[b] = true
	}
	out := make([]byte, 0, 256-len(matched))
	for v := 0; v < 256; v++ {
		if !in[v] {
			out = append(out, byte(v))
		}
	}
	return out
}

func compactByteSet(sorted []byte) byteset.Matcher {
	ranges := coalesceToRanges(sorted)
	if len(ranges) <= 8 {
		return byteset.Ranges(ranges...)
	}
	if len(sorted) <= 32 {
		return byteset.SparseSet(sorted...)
	}
	return byteset.DenseSet(sorted...)
}

func coalesceToRanges(sorted []byte) []byteset.Range {
	var ranges []byteset.Range
	for i := 0; i < len(sorted); {
		lo := sorted[i]
		hi := lo
		j := i + 1
		for j < len(sorted) && hi < 255 && sorted[j] == hi+1 {
			hi = sorted[j]
			j++
		}
		ranges = append(ranges, byteset.Range{Lo: lo, Hi: hi})
		i = j
	}
	return ranges
}

// ---- string --------------------------------------------------------------

type stringFlags struct {
	CompactWhitespace bool // B
	OptionalWhitespace bool // b
	CaseFold          bool // c or C
}

type stringCriterion struct {
	Expected []byte
	Op       byte // '=' '<' '>' '!'
	Flags    stringFlags
}

func (c stringCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	if c.Flags.CompactWhitespace || c.Flags.OptionalWhitespace {
		return c.evaluateWhitespace(buf, offset)
	}
	n := int64(len(c.Expected))
	window, ok := readWidth(buf, offset, int(n))
	if !ok {
		return noMatch()
	}
	got := window
	want := c.Expected
	if c.Flags.CaseFold {
		got = bytes.ToLower(got)
		want = bytes.ToLower(want)
	}
	var matched bool
	switch c.Op {
	case '<':
		matched = bytes.Compare(got, want) < 0
	case '>':
		matched = bytes.Compare(got, want) > 0
	case '!':
		matched = !bytes.Equal(got, want)
	default:
		matched = bytes.Equal(got, want)
	}
	return criterionResult{Matched: matched, Value: Value{Kind: KindBytes, Raw: window}, Consumed: n}
}

// evaluateWhitespace implements the B (compact-whitespace: a run of spaces
// in Expected matches one-or-more spaces in input) and b (optional-
// whitespace: a space in Expected is optional in input) flags of §4.3.
func (c stringCriterion) evaluateWhitespace(buf []byte, offset int64) criterionResult {
	bi := offset
	ei := 0
	for ei < len(c.Expected) {
		if int64(bi) >= int64(len(buf)) {
			return noMatch()
		}
		ec := c.Expected[ei]
		if ec == ' ' {
			run := 0
			for ei < len(c.Expected) && c.Expected[ei] == ' ' {
				ei++
				run++
			}
			consumed := 0
			for int(bi) < len(buf) && buf[bi] == ' ' {
				bi++
				consumed++
			}
			if c.Flags.CompactWhitespace && consumed < 1 {
				return noMatch()
			}
			continue
		}
		got := buf[bi]
		want := ec
		if c.Flags.CaseFold {
			got = lowerByte(got)
			want = lowerByte(want)
		}
		if got != want {
			return noMatch()
		}
		bi++
		ei++
	}
	return criterionResult{Matched: true, Value: Value{Kind: KindBytes, Raw: buf[offset:bi]}, Consumed: bi - offset}
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func (c stringCriterion) StartingBytes() byteset.Matcher {
	if len(c.Expected) == 0 || c.Flags.CompactWhitespace || c.Flags.OptionalWhitespace {
		return nil
	}
	b := c.Expected[0]
	positive := byteset.Exactly(b)
	if c.Flags.CaseFold {
		positive = byteset.Or(byteset.Exactly(lowerByte(b)), byteset.Exactly(upperByte(b)))
	}
	switch c.Op {
	case '=':
		return positive
	case '!':
		// Exact only when Expected is a single byte: a leading-byte
		// mismatch guarantees inequality regardless of length, but a
		// leading-byte match doesn't guarantee equality when more bytes
		// follow. Index soundness doesn't depend on this being exact —
		// Find always falls back to a full scan — so the approximation
		// only costs a redundant pass on a false index hit, never a
		// missed match.
		return byteset.Not(positive)
	default:
		return nil
	}
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// ---- pstring ---------------------------------------------------------

type pstringCriterion struct {
	LenWidth int
	Order    Order
	Expected []byte
	Op       byte
}

func (c pstringCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	payload, consumed, ok := extractPascalString(buf, offset, c.LenWidth, c.Order)
	if !ok {
		return noMatch()
	}
	n := len(c.Expected)
	cmp := payload
	if len(cmp) > n {
		cmp = cmp[:n]
	}
	var matched bool
	switch c.Op {
	case '<':
		matched = bytes.Compare(cmp, c.Expected) < 0
	case '>':
		matched = bytes.Compare(cmp, c.Expected) > 0
	default:
		matched = bytes.Equal(cmp, c.Expected)
	}
	return criterionResult{Matched: matched, Value: Value{Kind: KindBytes, Raw: payload}, Consumed: consumed}
}

func (c pstringCriterion) StartingBytes() byteset.Matcher { return nil }

// ---- search ------------------------------------------------------------

type searchCriterion struct {
	Expected  []byte
	Range     int
	CaseFold  bool
}

func (c searchCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	if offset < 0 || offset > int64(len(buf)) {
		return noMatch()
	}
	limit := c.Range
	if limit <= 0 {
		limit = len(buf)
	}
	end := offset + int64(limit)
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	needle := c.Expected
	for pos := offset; pos+int64(len(needle)) <= end; pos++ {
		window := buf[pos : pos+int64(len(needle))]
		if c.matches(window, needle) {
			return criterionResult{
				Matched:  true,
				Value:    Value{Kind: KindBytes, Raw: window},
				Consumed: (pos - offset) + int64(len(needle)),
			}
		}
	}
	return noMatch()
}

func (c searchCriterion) matches(window, needle []byte) bool {
	if !c.CaseFold {
		return bytes.Equal(window, needle)
	}
	return bytes.EqualFold(window, needle)
}

func (c searchCriterion) StartingBytes() byteset.Matcher { return nil }

// ---- regex -------------------------------------------------------------

type regexCriterion struct {
	Re       *regexp.Regexp
	CompileErr error
	Window   int
}

func (c regexCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	if c.Re == nil || offset < 0 || offset > int64(len(buf)) {
		return noMatch()
	}
	window := c.Range(buf, offset)
	loc := c.Re.FindIndex(window)
	if loc == nil {
		return noMatch()
	}
	matchBytes := window[loc[0]:loc[1]]
	return criterionResult{
		Matched:  true,
		Value:    Value{Kind: KindBytes, Raw: matchBytes},
		Consumed: int64(loc[1]),
	}
}

func (c regexCriterion) Range(buf []byte, offset int64) []byte {
	limit := c.Window
	if limit <= 0 {
		limit = 8192
	}
	end := offset + int64(limit)
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	if idx := bytes.IndexByte(buf[offset:end], '\n'); idx >= 0 && c.Window <= 0 {
		end = offset + int64(idx)
	}
	return buf[offset:end]
}

func (c regexCriterion) StartingBytes() byteset.Matcher { return nil }

func compileRegex(pattern string, caseFold, dotAll bool) (*regexp.Regexp, error) {
	var prefix strings.Builder
	if caseFold {
		prefix.WriteString("(?i)")
	}
	if dotAll {
		prefix.WriteString("(?s)")
	}
	return regexp.CompilePOSIX(prefix.String() + pattern)
}

// ---- UTF-16 strings -------------------------------------------------

type utf16Criterion struct {
	Expected string
	Order    Order
}

func (c utf16Criterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	runes := []rune(c.Expected)
	order := c.Order
	if invert {
		if order == Little {
			order = Big
		} else if order == Big {
			order = Little
		}
	}
	got, consumed, ok := extractUTF16(buf, offset, len(runes), order)
	if !ok {
		return noMatch()
	}
	matched := got == c.Expected
	return criterionResult{Matched: matched, Value: Value{Kind: KindString, Str: got}, Consumed: consumed}
}

func (c utf16Criterion) StartingBytes() byteset.Matcher { return nil }

// ---- no-op ("x" test on any type, used to anchor children) ------------

type noopCriterion struct{}

func (c noopCriterion) Evaluate(buf []byte, offset int64, invert bool) criterionResult {
	if offset < 0 || offset > int64(len(buf)) {
		return noMatch()
	}
	return criterionResult{Matched: true, Consumed: 0}
}

func (c noopCriterion) StartingBytes() byteset.Matcher { return nil }
