// Package rcelim removes RcInc/RcDec pairs whose combined effect is
// observably a no-op, including pairs introduced or exposed by expansion
// (spec.md §4.I). This pass must run after internal/expand: running it
// earlier leaves the inc/dec pairs expansion subsequently introduces
// unoptimized (spec.md §4.I, "ordering requirement").
package rcelim

import (
	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/ownership"
	"oriarc/internal/sig"
)

// EliminateRCOps runs the local (single-block) peephole: an RcInc(v)
// immediately matched, later in the same block, by an RcDec(v) with no
// intervening read of v, cancels both. This is the pass the pipeline
// ordering regression test (spec.md §4.I) runs before and after expansion
// to demonstrate the ordering invariant.
func EliminateRCOps(f *arcir.Function, classifier classify.Classification) {
	for _, b := range f.Blocks {
		b.Body = eliminateBlockLocal(f, b, classifier)
	}
}

func eliminateBlockLocal(f *arcir.Function, b *arcir.Block, classifier classify.Classification) []arcir.Instruction {
	needsRC := func(v arcir.VarId) bool { return classifier.NeedsRC(f.TypeOf(v)) }

	removed := make(map[int]bool)
	pendingIncAt := map[arcir.VarId]int{} // var -> index of its uncanceled RcInc

	for idx, instr := range b.Body {
		switch in := instr.(type) {
		case *arcir.RcInc:
			if needsRC(in.Var) {
				pendingIncAt[in.Var] = idx
			}
			continue
		case *arcir.RcDec:
			if needsRC(in.Var) {
				if incIdx, ok := pendingIncAt[in.Var]; ok {
					removed[incIdx] = true
					removed[idx] = true
					delete(pendingIncAt, in.Var)
					continue
				}
			}
			continue
		}
		// Any other instruction: every variable it reads was observably
		// used, so any pending inc on that variable can no longer be
		// cancelled without changing behavior (an observer between the
		// inc and a later dec could see the bumped count, e.g. via
		// is_unique checks in a not-yet-expanded Reset).
		for _, v := range instr.Operands() {
			delete(pendingIncAt, v)
		}
	}

	out := make([]arcir.Instruction, 0, len(b.Body)-len(removed))
	for idx, instr := range b.Body {
		if !removed[idx] {
			out = append(out, instr)
		}
	}
	return out
}

// rcLoc names one RcInc's position, so a dec that cancels an inc carried
// in from a predecessor block can mark that inc's own instruction for
// removal rather than just the dec's.
type rcLoc struct {
	Block arcir.BlockId
	Index int
}

// EliminateRCOpsDataflow runs the full-CFG version: a variable's pending
// "uncancelled inc" status carries across a block boundary only when every
// predecessor agrees it is pending (dataflow meet = intersection), letting
// an Inc in one block cancel against a Dec in a successor. Each pending
// entry tracks the set of RcInc locations that produced it (merged across
// predecessors), so cancelling a dec against a carried-in pending removes
// the reaching inc(s) too, not just the dec — dropping only the dec would
// leave the inc's retain live, a net reference leak rather than a no-op.
// DerivedOwnership tells whether a pass-through Apply/ApplyIndirect call
// consumes v (so an inc feeding it is real, not eliminable) or merely
// borrows it.
func EliminateRCOpsDataflow(f *arcir.Function, classifier classify.Classification, owned ownership.Derived) {
	needsRC := func(v arcir.VarId) bool { return classifier.NeedsRC(f.TypeOf(v)) }
	isOwned := func(v arcir.VarId) bool { return owned.Of(v) == sig.Owned }

	preds := make(map[arcir.BlockId][]arcir.BlockId, len(f.Blocks))
	for _, b := range f.Blocks {
		preds[b.ID] = nil
	}
	for _, b := range f.Blocks {
		for _, s := range b.Terminator.Successors() {
			preds[s] = append(preds[s], b.ID)
		}
	}

	order := make([]arcir.BlockId, len(f.Blocks))
	for i, b := range f.Blocks {
		order[i] = b.ID
	}

	entryPending := make(map[arcir.BlockId]map[arcir.VarId]map[rcLoc]bool, len(f.Blocks))
	exitPending := make(map[arcir.BlockId]map[arcir.VarId]map[rcLoc]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		entryPending[b.ID] = map[arcir.VarId]map[rcLoc]bool{}
		exitPending[b.ID] = map[arcir.VarId]map[rcLoc]bool{}
	}

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			in := mergePendingFromPreds(preds[id], exitPending, id == f.Entry)
			out := simulateBlock(f, f.Block(id), needsRC, isOwned, in, nil)

			if !pendingEqual(entryPending[id], in) {
				entryPending[id] = in
				changed = true
			}
			if !pendingEqual(exitPending[id], out) {
				exitPending[id] = out
				changed = true
			}
		}
	}

	// Fixpoint reached: re-simulate every block once more against its
	// final entry state, this time actually recording which instructions
	// to drop. A single shared removal set is used across all blocks
	// since a dec in one block can mark an inc's location in another.
	var removedByBlock map[arcir.BlockId]map[int]bool
	for _, b := range f.Blocks {
		simulateBlock(f, b, needsRC, isOwned, entryPending[b.ID], &removedByBlock)
	}
	if len(removedByBlock) == 0 {
		return
	}

	for _, b := range f.Blocks {
		removed := removedByBlock[b.ID]
		if len(removed) == 0 {
			continue
		}
		out := make([]arcir.Instruction, 0, len(b.Body)-len(removed))
		for idx, instr := range b.Body {
			if !removed[idx] {
				out = append(out, instr)
			}
		}
		b.Body = out
	}
}

// mergePendingFromPreds computes a block's entry pending state: a var is
// pending only if every predecessor's exit state agrees it is pending
// (meet = intersection), and its reaching-inc locations are the union of
// whatever each predecessor contributes.
func mergePendingFromPreds(ps []arcir.BlockId, exit map[arcir.BlockId]map[arcir.VarId]map[rcLoc]bool, isEntry bool) map[arcir.VarId]map[rcLoc]bool {
	if isEntry || len(ps) == 0 {
		return map[arcir.VarId]map[rcLoc]bool{}
	}
	out := map[arcir.VarId]map[rcLoc]bool{}
	for v, locs := range exit[ps[0]] {
		merged := map[rcLoc]bool{}
		for l := range locs {
			merged[l] = true
		}
		present := true
		for _, p := range ps[1:] {
			pl, ok := exit[p][v]
			if !ok {
				present = false
				break
			}
			for l := range pl {
				merged[l] = true
			}
		}
		if present {
			out[v] = merged
		}
	}
	return out
}

func pendingEqual(a, b map[arcir.VarId]map[rcLoc]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v, la := range a {
		lb, ok := b[v]
		if !ok || len(la) != len(lb) {
			return false
		}
		for l := range la {
			if !lb[l] {
				return false
			}
		}
	}
	return true
}

// simulateBlock walks b.Body forward from the given entry pending-inc
// state, returning the exit state. When removed is non-nil, it also
// records every cancelling instruction's location — including, for a dec
// that cancels a pending inc carried in from a predecessor, the inc's
// location in that other block.
func simulateBlock(f *arcir.Function, b *arcir.Block, needsRC func(arcir.VarId) bool, isOwned func(arcir.VarId) bool, entry map[arcir.VarId]map[rcLoc]bool, removed *map[arcir.BlockId]map[int]bool) map[arcir.VarId]map[rcLoc]bool {
	pending := make(map[arcir.VarId]map[rcLoc]bool, len(entry))
	for v, locs := range entry {
		cp := make(map[rcLoc]bool, len(locs))
		for l := range locs {
			cp[l] = true
		}
		pending[v] = cp
	}

	markRemoved := func(loc rcLoc) {
		if removed == nil {
			return
		}
		if *removed == nil {
			*removed = map[arcir.BlockId]map[int]bool{}
		}
		m := (*removed)[loc.Block]
		if m == nil {
			m = map[int]bool{}
			(*removed)[loc.Block] = m
		}
		m[loc.Index] = true
	}

	for idx, instr := range b.Body {
		switch in := instr.(type) {
		case *arcir.RcInc:
			if needsRC(in.Var) {
				pending[in.Var] = map[rcLoc]bool{{Block: b.ID, Index: idx}: true}
			}
			continue
		case *arcir.RcDec:
			if needsRC(in.Var) {
				if locs, ok := pending[in.Var]; ok {
					for l := range locs {
						markRemoved(l)
					}
					markRemoved(rcLoc{Block: b.ID, Index: idx})
					delete(pending, in.Var)
					continue
				}
			}
			continue
		}
		// A pass-through call that merely borrows its argument (per
		// DerivedOwnership) does not disturb a pending inc on it, since
		// borrowing does not retain past this instruction; a consuming
		// call, or any other operand read, does.
		for _, v := range instr.Operands() {
			if applyBorrowsOnly(instr, v, isOwned) {
				continue
			}
			delete(pending, v)
		}
	}

	return pending
}

// applyBorrowsOnly reports whether instr reads v only as a Borrowed
// pass-through argument (an Apply/ApplyIndirect call whose derived
// ownership for v is Borrowed), which does not interfere with a pending
// retain the way a consuming use does.
func applyBorrowsOnly(instr arcir.Instruction, v arcir.VarId, isOwned func(arcir.VarId) bool) bool {
	switch instr.(type) {
	case *arcir.Apply, *arcir.ApplyIndirect:
		return !isOwned(v)
	default:
		return false
	}
}
