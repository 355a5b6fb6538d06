package columns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_PositionalGroups(t *testing.T) {
	expr := MustCompile(`T=([-\d.]+),H=([-\d.]+),P=([-\d.]+)`)

	matched, cols := expr.Apply("T=25.3,H=60.2,P=1013")
	assert.True(t, matched)
	assert.Equal(t, []string{"25.3", "60.2", "1013"}, cols)

	matched, cols = expr.Apply("garbage")
	assert.False(t, matched)
	assert.Empty(t, cols)
}

func TestApply_NonParticipatingGroup(t *testing.T) {
	expr := MustCompile(`(?:temp=(\d+)|hum=(\d+))`)

	matched, cols := expr.Apply("hum=40")
	require.True(t, matched)
	assert.Equal(t, []string{"", "40"}, cols)
}

func TestApply_ZeroGroups(t *testing.T) {
	expr := MustCompile(`^OK`)

	matched, cols := expr.Apply("OK ready")
	assert.True(t, matched)
	assert.Empty(t, cols)

	matched, _ = expr.Apply("ERR")
	assert.False(t, matched)
}

func TestCompile_EmptyPatternMatchesEverything(t *testing.T) {
	expr, err := Compile("")
	require.NoError(t, err)
	assert.Zero(t, expr.NumGroups())

	matched, cols := expr.Apply("anything at all")
	assert.True(t, matched)
	assert.Empty(t, cols)
}

func TestCompile_PatternError(t *testing.T) {
	_, err := Compile(`T=([\d.]+`)
	require.Error(t, err)

	var pe *PatternError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Equal(t, `T=([\d.]+`, pe.Pattern)
	assert.Equal(t, 2, pe.Offset)
	assert.Contains(t, pe.Message, "missing closing )")
	assert.Contains(t, pe.Error(), "offset 2")
}

func TestCompile_PatternErrorParenOffset(t *testing.T) {
	tests := []struct {
		pattern string
		offset  int
	}{
		{`abc)`, 3},
		{`(a)(b`, 3},
		{`(a(b)`, 0},
		{`[)(]x)`, 5},
		{`\((a`, 2},
		{`\Q(\E(`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			var pe *PatternError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.offset, pe.Offset)
		})
	}
}

func TestCompile_PatternErrorOffsetInsideClass(t *testing.T) {
	_, err := Compile(`abc[z-a]`)
	var pe *PatternError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Offset)
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		overrides []string
		want      HeaderSet
	}{
		{"defaults", `(\d+),(\d+)`, nil, HeaderSet{"Col 1", "Col 2"}},
		{"override wins over default", `(\d+),(\d+)`, []string{"temp", "hum"}, HeaderSet{"temp", "hum"}},
		{"named wins over override", `(?P<temp>\d+)`, []string{"celsius"}, HeaderSet{"temp"}},
		{"mixed", `(?P<temp>\d+),(\d+),(\d+)`, []string{"x", "hum"}, HeaderSet{"temp", "hum", "Col 3"}},
		{"empty override falls back", `(\d+),(\d+)`, []string{"", " "}, HeaderSet{"Col 1", "Col 2"}},
		{"extra overrides ignored", `(\d+)`, []string{"a", "b", "c"}, HeaderSet{"a"}},
		{"named out of order", `(\d+)-(?P<b>\d+)-(?P<a>\d+)`, nil, HeaderSet{"Col 1", "b", "a"}},
		{"no groups", `^OK`, []string{"a"}, HeaderSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(MustCompile(tt.pattern), tt.overrides)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, MustCompile(tt.pattern).NumGroups())
		})
	}
}

func TestParseNames(t *testing.T) {
	assert.Nil(t, ParseNames("  "))
	assert.Equal(t, []string{"temp", "", "pressure"}, ParseNames(" temp , ,pressure"))
}

func TestTest(t *testing.T) {
	assert.Equal(t, "Match: [25] [60]", Test(`T=(\d+),H=(\d+)`, "T=25,H=60"))
	assert.Equal(t, "No match", Test(`T=(\d+)`, "bogus"))
	assert.Equal(t, "Match", Test(`^OK`, "OK"))
	assert.Contains(t, Test(`(`, "x"), "Regex error")
}
