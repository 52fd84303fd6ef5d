// Package pipeline sequences the per-function ARC passes and the
// whole-program batch driver (spec.md §6.3, §5), mirroring the Rust
// crate's run_arc_pipeline / run_arc_pipeline_all exactly in step order:
//
//	ownership inference -> dominator tree -> refined liveness (includes
//	standard liveness) -> RC insertion -> reset/reuse detection ->
//	expansion -> RC elimination
//
// RunAll additionally applies borrow inference to every function's
// parameter list before the per-function pipeline runs, and may run the
// independent per-function pipelines concurrently (spec.md §5: each
// per-function run only touches its own Function plus read-only shared
// state, so there is nothing to synchronize beyond waiting for them all
// to finish).
package pipeline

import (
	"sync"

	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/domtree"
	"oriarc/internal/expand"
	"oriarc/internal/liveness"
	"oriarc/internal/ownership"
	"oriarc/internal/rcelim"
	"oriarc/internal/rcinsert"
	"oriarc/internal/reuse"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

// Run executes the canonical per-function pipeline on f in place. This is
// the ordering every caller should go through rather than sequencing the
// individual passes by hand, which would duplicate ordering knowledge
// spec.md §4.I calls a "hard invariant of the pipeline."
func Run(f *arcir.Function, classifier classify.Classification, sigs sig.SigTable, boolTy typepool.Idx) {
	owned := ownership.InferDerivedOwnership(f, sigs)
	dom := domtree.Build(f)
	refined, live := liveness.ComputeRefined(f, classifier)

	rcinsert.InsertRCOpsWithOwnership(f, classifier, live, owned, sigs)
	reuse.DetectResetReuseCFG(f, classifier, dom, refined)
	expand.ExpandResetReuse(f, boolTy)
	rcelim.EliminateRCOpsDataflow(f, classifier, owned)
}

// RunAll runs the full batch pipeline: apply_borrows across every
// function's parameter list, then Run on each function. maxConcurrency
// bounds how many per-function pipelines run at once; 0 or negative means
// run every function concurrently with no limit.
func RunAll(functions []*arcir.Function, classifier classify.Classification, sigs sig.SigTable, boolTy typepool.Idx, maxConcurrency int) {
	ownership.ApplyBorrows(functions, sigs)

	if maxConcurrency <= 0 || maxConcurrency > len(functions) {
		maxConcurrency = len(functions)
	}
	if maxConcurrency <= 1 {
		for _, f := range functions {
			Run(f, classifier, sigs, boolTy)
		}
		return
	}

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	for _, f := range functions {
		f := f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			Run(f, classifier, sigs, boolTy)
		}()
	}
	wg.Wait()
}
