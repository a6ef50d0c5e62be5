package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var categoryStrings = []struct {
	in, canonical string
	depth         int
}{
	{"NP", "NP", 0},
	{"S[dcl]", "S[dcl]", 0},
	{"S\\NP", "(S\\NP)", 1},
	{"(S\\NP)/NP", "((S\\NP)/NP)", 2},
	{"S\\NP/NP", "((S\\NP)/NP)", 2},
	{"((S\\NP)/NP)", "((S\\NP)/NP)", 2},
	{"N|N", "(N|N)", 1},
	{"(NP\\NP)/(S/NP)", "((NP\\NP)/(S/NP))", 2},
}

func TestParseCategory(t *testing.T) {
	assert := assert.New(t)
	for _, c := range categoryStrings {
		cat, err := ParseCategory(c.in)
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		assert.Equal(c.canonical, cat.String(), "canonical form of %q", c.in)
		assert.Equal(c.depth, cat.Depth(), "depth of %q", c.in)

		// canonical strings are fixed points
		again, err := ParseCategory(cat.String())
		assert.NoError(err)
		assert.Equal(cat, again)
	}
}

func TestParseCategoryErrors(t *testing.T) {
	for _, in := range []string{"", "(NP", "NP)", "/NP", "NP/", "()"} {
		if _, err := ParseCategory(in); err == nil {
			t.Errorf("Expected %q to fail to parse", in)
		}
	}
}

func TestCompose(t *testing.T) {
	assert := assert.New(t)
	vp := Compose(Atomic("S"), Bwd, Atomic("NP"))
	tv := Compose(vp, Fwd, Atomic("NP"))
	assert.False(tv.IsAtomic())
	assert.True(tv.Right.IsAtomic())
	assert.Equal(`((S\NP)/NP)`, tv.String())
	assert.Equal("BWD", vp.Slash.Name())
	assert.Equal("|", Either.String())
}

func TestRuleTypes(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(12, NumRules)
	assert.Equal(3, NumSlashes)
	for i := 0; i < NumRules; i++ {
		r := RuleType(i)
		got, ok := RuleTypeOf(r.String())
		assert.True(ok)
		assert.Equal(r, got)
	}
	_, ok := RuleTypeOf("XX")
	assert.False(ok)
	assert.False(RuleType(NumRules).IsValid())
}
