// Package diagnostic reports ARC-pipeline internal invariant violations
// (spec.md §7): SSA violated, block-argument arity mismatch, reference to
// an unknown block, Reset/Reuse surviving expansion, RcInc/RcDec on a
// Scalar variable, and PossibleRef surviving monomorphization. All are
// fatal "compiler bug" conditions, never user-recoverable — the surrounding
// driver (internal/pipeline, cmd/arcc) is expected to print them and exit
// non-zero.
//
// Shaped after the teacher's internal/errors package (CompilerError plus a
// colorized ErrorReporter), generalized from "error in user source" to
// "internal-compiler-error in generated IR": Position becomes a
// (Function, Block, Instruction index) locator rather than a source span,
// since a verified ArcFunction carries no source text of its own.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"oriarc/internal/sig"
)

// Location pinpoints a problem within an ArcFunction: the function, the
// block, and (when applicable) the instruction index within that block's
// body. Index is -1 when the problem is about the terminator rather than
// a body instruction.
type Location struct {
	Function sig.Name
	Block    int
	Index    int
}

// Problem is one internal-invariant violation found in an ArcFunction.
type Problem struct {
	Code     string
	Message  string
	Location Location
	Notes    []string
}

// InternalError wraps one or more Problems as a Go error, for callers
// that want to propagate a verification failure through a normal error
// return rather than a diagnostic channel.
type InternalError struct {
	Problems []Problem
}

func (e *InternalError) Error() string {
	if len(e.Problems) == 1 {
		p := e.Problems[0]
		return fmt.Sprintf("internal compiler error [%s]: %s", p.Code, p.Message)
	}
	return fmt.Sprintf("internal compiler error: %d invariant violations", len(e.Problems))
}

// Reporter formats Problems for a terminal, the way ErrorReporter formats
// CompilerError for the surface language.
type Reporter struct{}

// NewReporter creates a Reporter. Takes no arguments (unlike the surface
// reporter, which needs the source file's text to show context lines):
// an ArcFunction's only "source" is its own structure, which the
// formatted message already names via Location.
func NewReporter() *Reporter { return &Reporter{} }

// Format renders p as a single colorized ICE block.
func (r *Reporter) Format(names *sig.Interner, p Problem) string {
	var out strings.Builder

	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fnName := lookupName(names, p.Location.Function)

	out.WriteString(fmt.Sprintf("%s[%s]: %s\n", red("internal compiler error"), p.Code, bold(p.Message)))

	where := fmt.Sprintf("function %s, block %d", fnName, p.Location.Block)
	if p.Location.Index >= 0 {
		where += fmt.Sprintf(", instruction %d", p.Location.Index)
	} else {
		where += ", terminator"
	}
	out.WriteString(fmt.Sprintf("  %s %s\n", dim("-->"), where))

	for _, n := range p.Notes {
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("note:"), n))
	}
	out.WriteString(fmt.Sprintf("  %s %s\n", dim("help:"), Description(p.Code)))

	return out.String()
}

// FormatAll renders every problem, in order.
func (r *Reporter) FormatAll(names *sig.Interner, problems []Problem) string {
	var out strings.Builder
	for _, p := range problems {
		out.WriteString(r.Format(names, p))
		out.WriteString("\n")
	}
	return out.String()
}

// lookupName resolves n to its source string, falling back to a numeric
// placeholder when names is nil or n was never interned by it (Lookup
// panics in that case, and a diagnostic formatter must never itself panic
// while reporting a bug).
func lookupName(names *sig.Interner, n sig.Name) (s string) {
	s = fmt.Sprintf("fn#%d", n)
	if names == nil {
		return s
	}
	defer func() {
		if recover() != nil {
			s = fmt.Sprintf("fn#%d", n)
		}
	}()
	return names.Lookup(n)
}
