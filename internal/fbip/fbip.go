// Package fbip reports, per function, whether every heap construction has
// been turned into an in-place reuse (spec.md §4.J): "functional but in
// place" execution with zero net allocation. Purely informational —
// nothing downstream depends on its result, matching the Rust crate's
// analyze_fbip, which is exercised by the pipeline integration test but
// never asserted against for specific values.
//
// Analyze runs on the function either before or after internal/expand.
// Pre-expansion, a reused Construct is still a Reuse instruction pointing
// at the Reset that licensed it. Post-expansion, Reuse has already become
// a ConstructInPlace on the fast path, counted as a "reused" site, plus a
// fallback Construct on the slow path. That fallback is an ordinary
// Construct and counts as an allocating site like any other, so a
// post-expansion function with a slow path never reports FBIP achieved.
package fbip

import (
	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/domtree"
	"oriarc/internal/liveness"
	"oriarc/internal/sig"
)

// Site describes one construction point found during analysis.
type Site struct {
	Block arcir.BlockId
	Index int
	Dst   arcir.VarId
	// Reused is true when this site allocates nothing: either the
	// pre-expansion IR paired it with a Reset (a Reuse instruction), or
	// the post-expansion IR reinitializes in place (ConstructInPlace).
	Reused bool
}

// Report is the FBIP finding for one function.
type Report struct {
	Function sig.Name
	Sites    []Site
}

// Achieved reports whether every construction site in the function was
// reused, i.e. the function can run with zero net heap allocation.
func (r Report) Achieved() bool {
	for _, s := range r.Sites {
		if !s.Reused {
			return false
		}
	}
	return true
}

// Allocating returns the sites that still allocate, in source order.
func (r Report) Allocating() []Site {
	var out []Site
	for _, s := range r.Sites {
		if !s.Reused {
			out = append(out, s)
		}
	}
	return out
}

// Analyze walks f's blocks in order and classifies every Construct,
// ConstructInPlace, and Reuse site. dom and refined are accepted to match
// the shape of the rest of the pipeline's per-function analyses and to
// leave room for a future "why didn't this reuse" explainer (e.g. whether
// a dominating Reset of the right type existed but was rejected for
// aliasing); the current report does not yet use them beyond that.
func Analyze(f *arcir.Function, classifier classify.Classification, dom *domtree.Tree, refined *liveness.Refined) Report {
	_ = classifier
	_ = dom
	_ = refined

	report := Report{Function: f.Name}
	for _, b := range f.Blocks {
		for idx, instr := range b.Body {
			switch in := instr.(type) {
			case *arcir.Construct:
				report.Sites = append(report.Sites, Site{Block: b.ID, Index: idx, Dst: in.Dst, Reused: false})
			case *arcir.ConstructInPlace:
				report.Sites = append(report.Sites, Site{Block: b.ID, Index: idx, Dst: in.Dst, Reused: true})
			case *arcir.Reuse:
				report.Sites = append(report.Sites, Site{Block: b.ID, Index: idx, Dst: in.Dst, Reused: true})
			}
		}
	}
	return report
}
