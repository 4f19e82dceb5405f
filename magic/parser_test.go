package magic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_SimpleStringRule(t *testing.T) {
	n, err := parseLine("0 string hello greeting")
	require.NoError(t, err)
	assert.Equal(t, 0, n.Level)
	assert.Equal(t, "greeting", n.Message)
	c, ok := n.Criterion()
	require.True(t, ok)
	sc, ok := c.(stringCriterion)
	require.True(t, ok)
	assert.Equal(t, "hello", string(sc.Expected))
}

func TestParseLine_ContinuationLevel(t *testing.T) {
	n, err := parseLine(">>3 belong 0 nested")
	require.NoError(t, err)
	assert.Equal(t, 2, n.Level)
	assert.Equal(t, OffsetLiteral, n.Offset.Kind)
	assert.EqualValues(t, 3, n.Offset.Literal)
}

func TestParseLine_EscapedSpaceKeepsFieldTogether(t *testing.T) {
	n, err := parseLine(`0 string/B h\ ello test`)
	require.NoError(t, err)
	sc := n.Op.(stringCriterion)
	assert.True(t, sc.Flags.CompactWhitespace)
	assert.Equal(t, "h ello", string(sc.Expected))
}

func TestParseLine_StringNotEqualComparator(t *testing.T) {
	n, err := parseLine("0 string !ELF notmatch")
	require.NoError(t, err)
	sc := n.Op.(stringCriterion)
	assert.Equal(t, byte('!'), sc.Op)
	assert.Equal(t, "ELF", string(sc.Expected))
}

func TestParseLine_UnknownReservedType(t *testing.T) {
	_, err := parseLine("0 clear 0 nope")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParseLine_MaskOnTypeField(t *testing.T) {
	n, err := parseLine("0 long&0xff 0xAB masked")
	require.NoError(t, err)
	nc := n.Op.(numericCriterion)
	require.NotNil(t, nc.Mask)
	assert.EqualValues(t, 0xff, *nc.Mask)
	assert.EqualValues(t, 0xAB, nc.Expected)
}

func TestParseLine_IndirectOffset(t *testing.T) {
	n, err := parseLine("(4.l+8) string X indirect-anchored")
	require.NoError(t, err)
	assert.Equal(t, OffsetIndirect, n.Offset.Kind)
	assert.EqualValues(t, 4, n.Offset.Indirect.BaseLiteral)
	assert.EqualValues(t, 8, n.Offset.Indirect.Operand)
	assert.Equal(t, byte('+'), n.Offset.Indirect.Op)
}

func TestParseLine_BadEscapeReported(t *testing.T) {
	_, err := parseLine(`0 string hel\qlo bad`)
	assert.ErrorIs(t, err, ErrBadEscape)
}

func TestParseMagicFile_GarbageLineDoesNotPoisonOthers(t *testing.T) {
	src := "0 string hello greeting one\nTHIS IS NOT A VALID LINE AT ALL\n0 string world greeting two\n"
	rs := NewRuleSet()
	var errs []*ParseError
	err := rs.AddRules(strings.NewReader(src), func(e *ParseError) { errs = append(errs, e) })
	require.NoError(t, err)
	assert.Len(t, rs.roots, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, uint64(2), errs[0].Line)
}

func TestParseMagicFile_OrphanChildReported(t *testing.T) {
	src := ">0 string hello orphan\n"
	rs := NewRuleSet()
	var errs []*ParseError
	err := rs.AddRules(strings.NewReader(src), func(e *ParseError) { errs = append(errs, e) })
	require.NoError(t, err)
	assert.Empty(t, rs.roots)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrOrphanChild)
}

func TestParseMagicFile_NestingAndMime(t *testing.T) {
	src := "0 string hello top\n" +
		"!:mime text/plain\n" +
		">0 belong 0 child\n" +
		"!:optional\n"
	rs := NewRuleSet()
	err := rs.AddRules(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.Len(t, rs.roots, 1)
	root := rs.roots[0]
	assert.Equal(t, "text/plain", root.Mime)
	require.Len(t, root.Children, 1)
	assert.True(t, root.Children[0].Optional)
}

func TestParseMagicFile_NameAndUse(t *testing.T) {
	src := "0 name sub\n" +
		">0 string hi used\n" +
		"0 use sub\n"
	rs := NewRuleSet()
	err := rs.AddRules(strings.NewReader(src), nil)
	require.NoError(t, err)
	_, ok := rs.NamedLookup("sub")
	assert.True(t, ok)
}

func TestParseMagicFile_CommentsAndBlankLinesIgnored(t *testing.T) {
	src := "# a comment\n\n0 string hi greeting\n"
	rs := NewRuleSet()
	err := rs.AddRules(strings.NewReader(src), nil)
	require.NoError(t, err)
	assert.Len(t, rs.roots, 1)
}
