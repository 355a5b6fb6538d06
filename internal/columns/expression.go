// Package columns turns a line of text into ordered column values using a
// regular expression, and names those columns.
package columns

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// ErrInvalidPattern is matched by every *PatternError.
var ErrInvalidPattern = errors.New("invalid pattern")

// PatternError reports a pattern that failed to compile.
type PatternError struct {
	Pattern string
	Message string
	// Offset is the byte offset of the offending fragment, or -1.
	Offset int
}

func (e *PatternError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid pattern at offset %d: %s", e.Offset, e.Message)
	}
	return "invalid pattern: " + e.Message
}

func (e *PatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}

// Expression is a compiled pattern. It is immutable and safe to share.
type Expression struct {
	pattern string
	re      *regexp.Regexp
}

// Compile parses pattern. The empty pattern is valid: it matches every line
// and has no groups.
func Compile(pattern string) (*Expression, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, newPatternError(pattern, err)
	}
	return &Expression{pattern: pattern, re: re}, nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(pattern string) *Expression {
	expr, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return expr
}

func newPatternError(pattern string, err error) *PatternError {
	pe := &PatternError{Pattern: pattern, Message: err.Error(), Offset: -1}
	var se *syntax.Error
	if errors.As(err, &se) {
		pe.Message = se.Code.String()
		if se.Expr != "" {
			pe.Message += ": " + se.Expr
		}
		switch se.Code {
		case syntax.ErrMissingParen, syntax.ErrUnexpectedParen:
			// These name the whole pattern rather than the bad paren.
			pe.Offset = parenOffset(pattern)
		default:
			if se.Expr != "" {
				pe.Offset = strings.Index(pattern, se.Expr)
			}
		}
	}
	return pe
}

// parenOffset finds the first ')' without an opening '(' or, failing
// that, the first '(' never closed. Escapes, \Q...\E and character
// classes are skipped. It returns -1 when the parens balance.
func parenOffset(pattern string) int {
	var open []int
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if strings.HasPrefix(pattern[i:], `\Q`) {
				end := strings.Index(pattern[i+2:], `\E`)
				if end < 0 {
					i = len(pattern)
				} else {
					i += 2 + end + 1
				}
				continue
			}
			i++
		case '[':
			i = classEnd(pattern, i)
		case '(':
			open = append(open, i)
		case ')':
			if len(open) == 0 {
				return i
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return open[0]
	}
	return -1
}

// classEnd returns the index of the ']' closing the class opened at i, or
// the last index when the class never closes.
func classEnd(pattern string, i int) int {
	j := i + 1
	if j < len(pattern) && pattern[j] == '^' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for ; j < len(pattern); j++ {
		switch {
		case pattern[j] == '\\':
			j++
		case strings.HasPrefix(pattern[j:], "[:"):
			if end := strings.Index(pattern[j+2:], ":]"); end >= 0 {
				j += 2 + end + 1
			}
		case pattern[j] == ']':
			return j
		}
	}
	return len(pattern) - 1
}

// Pattern returns the source the expression was compiled from.
func (e *Expression) Pattern() string { return e.pattern }

// NumGroups is the number of capture groups, and so the number of columns.
func (e *Expression) NumGroups() int { return e.re.NumSubexp() }

// GroupNames returns the declared name of each group in index order, with
// "" for unnamed groups.
func (e *Expression) GroupNames() []string {
	names := e.re.SubexpNames()
	out := make([]string, len(names)-1)
	copy(out, names[1:])
	return out
}

// Apply matches line. On a match cols has one entry per group, "" for a
// group that did not take part. On no match cols is nil.
func (e *Expression) Apply(line string) (matched bool, cols []string) {
	loc := e.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return false, nil
	}
	n := e.re.NumSubexp()
	if n == 0 {
		return true, nil
	}
	cols = make([]string, n)
	for i := 1; i <= n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start >= 0 {
			cols[i-1] = line[start:end]
		}
	}
	return true, cols
}

// Test renders a one-line preview of pattern applied to input, as shown
// next to the pattern editor.
func Test(pattern, input string) string {
	expr, err := Compile(pattern)
	if err != nil {
		return "Regex error: " + err.Error()
	}
	matched, cols := expr.Apply(input)
	if !matched {
		return "No match"
	}
	if len(cols) == 0 {
		return "Match"
	}
	return "Match: [" + strings.Join(cols, "] [") + "]"
}
