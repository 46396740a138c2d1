// errors.go: the common error surface and source-snippet rendering
//
// Every error produced by this package belongs to one of four closed
// taxonomies (parse, unification, typing, interpreter). They all implement
// the Error interface below: a stable Name used as the diagnostic header
// and a human-readable Message. The Go error string is always
// "<Name>: <Message>", which is also the format drivers are expected to
// print to stderr.
//
// WrapErrorWithSource augments line-carrying errors (currently the parse
// family) with a numbered excerpt of the offending source:
//
//	Parse error: On line 3, while parsing a variable (starting on line 3): unknown variable: y
//
//	  2 | (def foo (x) (a) [x a])
//	> 3 | [y <END>]
//
// Errors without line information are returned unchanged.
package lammm

import (
	"fmt"
	"strings"
)

// Error is implemented by every error type in this package.
type Error interface {
	error
	// Name returns the stable error-kind header, e.g. "Parse error".
	Name() string
	// Message returns the human-readable explanation.
	Message() string
}

// lineCarrier is implemented by errors that know which source line caused
// them. CauseLine is 1-based.
type lineCarrier interface {
	CauseLine() int
}

// WrapErrorWithSource returns an error whose message ends with a numbered
// snippet of src around the failing line. If err carries no line
// information (or the line is out of range), err is returned unchanged.
func WrapErrorWithSource(err error, src string) error {
	lc, ok := err.(lineCarrier)
	if !ok {
		return err
	}
	snippet := renderSnippet(src, lc.CauseLine())
	if snippet == "" {
		return err
	}
	return &sourceError{inner: err, snippet: snippet}
}

// sourceError decorates an error with a source snippet. Unwrap exposes the
// original error so callers can still switch on its type.
type sourceError struct {
	inner   error
	snippet string
}

func (e *sourceError) Error() string {
	return e.inner.Error() + "\n\n" + e.snippet
}

func (e *sourceError) Unwrap() error {
	return e.inner
}

// renderSnippet renders up to one line of context before and after the
// 1-based cause line, with a "> " marker on the cause line. Returns "" if
// the line is out of range.
func renderSnippet(src string, causeLine int) string {
	lines := strings.Split(src, "\n")
	if causeLine < 1 || causeLine > len(lines) {
		return ""
	}
	first := causeLine - 1
	if first < 1 {
		first = 1
	}
	last := causeLine + 1
	if last > len(lines) {
		last = len(lines)
	}
	width := len(fmt.Sprint(last))
	var sb strings.Builder
	for n := first; n <= last; n++ {
		marker := "  "
		if n == causeLine {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%*d | %s\n", marker, width, n, lines[n-1])
	}
	return strings.TrimRight(sb.String(), "\n")
}
