package assembler

import (
	"fmt"
	"strings"
)

// Diagnostic is a fatal assembly error: a located, caret-underlined report
// that terminates assembly immediately. The assembler does not attempt
// recovery after one is raised.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Snippet string
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: error: %s", d.File, d.Line, d.Column, d.Message)
}

// Render renders the full caret-underlined form of the diagnostic, the way
// it would be printed to stderr by a CLI front end.
func (d *Diagnostic) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: error: %s\n", d.File, d.Line, d.Column, d.Message)
	b.WriteString(d.Snippet)
	b.WriteByte('\n')
	if d.Column > 0 {
		b.WriteString(strings.Repeat(" ", d.Column-1))
	}
	b.WriteByte('^')
	return b.String()
}

// WarningKind distinguishes non-fatal diagnostics. Only OverlappingOrg can
// be toggled (Options.WarnOriginOverlap, the -Worigin-overlap[no-] CLI
// switch); HalfRegTruncation is always reported.
type WarningKind int

const (
	// OverlappingOrg fires when a .org directive moves the cursor
	// backward relative to where it already stood.
	OverlappingOrg WarningKind = iota
	// HalfRegTruncation fires when an instruction's 16-bit immediate form
	// pairs an 8-bit half-register with a symbol or with a literal wider
	// than a byte. Kept distinct from OverlappingOrg: the
	// original assembler reuses the origin-overlap warning variant for
	// this unrelated case, which this implementation treats as an
	// accidental conflation rather than a behavior to preserve.
	HalfRegTruncation
)

// Warning is a non-fatal diagnostic: assembly continues after it is
// reported.
type Warning struct {
	Kind    WarningKind
	File    string
	Line    int
	Column  int
	Snippet string
	Message string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s:%d:%d: warning: %s", w.File, w.Line, w.Column, w.Message)
}
