package magic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleSet_Defaults(t *testing.T) {
	rs := NewRuleSet()
	assert.Equal(t, 20, rs.opts.MaxLevel)
	assert.Equal(t, 15, rs.opts.MaxRecursionDepth)
	assert.True(t, rs.opts.HonorOptional)
	assert.True(t, rs.opts.BuildIndex)
	assert.NotNil(t, rs.formatter())
}

func TestNewRuleSet_OptionsOverrideDefaults(t *testing.T) {
	rs := NewRuleSet(WithMaxLevel(4), WithMaxRecursionDepth(2), WithHonorOptional(false), WithIndex(false))
	assert.Equal(t, 4, rs.opts.MaxLevel)
	assert.Equal(t, 2, rs.opts.MaxRecursionDepth)
	assert.False(t, rs.opts.HonorOptional)
	assert.False(t, rs.opts.BuildIndex)
}

func TestFinalize_Idempotent(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string hi greeting\n"), nil))
	assert.Empty(t, rs.Finalize())
	assert.Empty(t, rs.Finalize())
	info := rs.Find([]byte("hi"))
	require.NotNil(t, info)
	assert.Equal(t, "greeting", info.Description)
}

func TestFinalize_DanglingUseReported(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string go greeting\n>&0 use nosuchname\n"), nil))
	diags := rs.Finalize()
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], ErrDanglingUse)
}

func TestFinalize_RebuildsIndexAfterFurtherAddRules(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string hi first\n"), nil))
	rs.Finalize()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string yo second\n"), nil))
	rs.Finalize()

	assert.NotNil(t, rs.Find([]byte("hi")))
	assert.NotNil(t, rs.Find([]byte("yo")))
}

func TestNamedLookup_FindsRegisteredNode(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 name widget\n>&0 string hi nested\n"), nil))
	n, ok := rs.NamedLookup("widget")
	require.True(t, ok)
	assert.NotNil(t, n)

	_, ok = rs.NamedLookup("gadget")
	assert.False(t, ok)
}

func TestRoots_PreservesAdditionOrder(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string aa first\n0 string bb second\n"), nil))
	roots := rs.Roots()
	require.Len(t, roots, 2)
	c0, _ := roots[0].Criterion()
	c1, _ := roots[1].Criterion()
	assert.Equal(t, "aa", string(c0.(stringCriterion).Expected))
	assert.Equal(t, "bb", string(c1.(stringCriterion).Expected))
}

func TestDump_RendersTypeNamesAndStartingByte(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string hi top\n>&0 byte 1 nested\n"), nil))
	rs.Finalize()

	var buf strings.Builder
	require.NoError(t, rs.Dump(&buf))
	out := buf.String()

	assert.Contains(t, out, "string")
	assert.Contains(t, out, "byte")
	assert.Contains(t, out, "starts=0x")
}

func TestDump_MultipleRootsSeparatedByBlankLine(t *testing.T) {
	rs := NewRuleSet()
	require.NoError(t, rs.AddRules(strings.NewReader("0 string aa first\n0 string bb second\n"), nil))
	rs.Finalize()

	var buf strings.Builder
	require.NoError(t, rs.Dump(&buf))
	assert.Contains(t, buf.String(), "\n\n")
}

func TestWithIndex_False_StillFindsViaLinearScan(t *testing.T) {
	rs := NewRuleSet(WithIndex(false))
	require.NoError(t, rs.AddRules(strings.NewReader("0 string hi greeting\n"), nil))
	rs.Finalize()

	for i := range rs.index {
		assert.Empty(t, rs.index[i])
	}
	info := rs.Find([]byte("hi"))
	require.NotNil(t, info)
	assert.Equal(t, "greeting", info.Description)
}

func TestWithHonorOptional_False_OptionalSuccessBlocksDefault(t *testing.T) {
	// The optional child always matches (byte 0 against a trailing NUL); with
	// HonorOptional honored its success still doesn't block the default
	// sibling, but with HonorOptional disabled it does.
	src := "0 string hi top\n" +
		">&0 byte 0 matches\n" +
		"!:optional\n" +
		">&0 default x fallback\n"

	honoring := NewRuleSet()
	require.NoError(t, honoring.AddRules(strings.NewReader(src), nil))
	honoring.Finalize()
	info := honoring.Find([]byte("hi" + string([]byte{0})))
	require.NotNil(t, info)
	assert.Contains(t, info.Description, "fallback")

	strict := NewRuleSet(WithHonorOptional(false))
	require.NoError(t, strict.AddRules(strings.NewReader(src), nil))
	strict.Finalize()
	info = strict.Find([]byte("hi" + string([]byte{0})))
	require.NotNil(t, info)
	assert.NotContains(t, info.Description, "fallback")
}
