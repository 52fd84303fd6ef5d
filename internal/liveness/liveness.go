// Package liveness computes standard and refined liveness over an
// arcir.Function (spec.md §4.D). Refined liveness distinguishes
// live-for-use (the value will be read again) from live-for-drop (the
// value is only still alive because its refcount has not yet been
// decremented) — the distinction the reset/reuse detector (internal/reuse)
// and the RC eliminator (internal/rcelim) depend on to avoid treating a
// pending drop as aliasing.
package liveness

import (
	"oriarc/internal/arcir"
	"oriarc/internal/classify"
)

// Set is a set of variables live at some program point.
type Set map[arcir.VarId]bool

func (s Set) clone() Set {
	out := make(Set, len(s))
	for v := range s {
		out[v] = true
	}
	return out
}

func (s Set) union(other Set) bool {
	changed := false
	for v := range other {
		if !s[v] {
			s[v] = true
			changed = true
		}
	}
	return changed
}

// BlockLiveness holds the live-in/live-out variable sets for one block.
type BlockLiveness struct {
	LiveIn  Set
	LiveOut Set
}

// Liveness is the per-block result of standard liveness analysis.
type Liveness map[arcir.BlockId]*BlockLiveness

// Compute runs standard backward liveness over f, tracking only variables
// whose type needs_rc (spec.md §4.D: "The classifier ... restricts
// liveness tracking to variables whose type needs_rc").
func Compute(f *arcir.Function, classifier classify.Classification) Liveness {
	result := make(Liveness, len(f.Blocks))
	for _, b := range f.Blocks {
		result[b.ID] = &BlockLiveness{LiveIn: Set{}, LiveOut: Set{}}
	}

	succs := make(map[arcir.BlockId][]arcir.BlockId, len(f.Blocks))
	for _, b := range f.Blocks {
		succs[b.ID] = b.Terminator.Successors()
	}

	needsRC := func(v arcir.VarId) bool {
		return classifier.NeedsRC(f.TypeOf(v))
	}

	order := blockOrder(f)

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			b := f.Block(id)
			bl := result[id]

			out := Set{}
			for _, s := range succs[id] {
				out.union(result[s].LiveIn)
			}

			in := out.clone()
			// Terminator operands are reads.
			for _, v := range b.Terminator.Operands() {
				if needsRC(v) {
					in[v] = true
				}
			}
			// Walk body backward: kill defs, gen uses.
			for i := len(b.Body) - 1; i >= 0; i-- {
				instr := b.Body[i]
				if dst, ok := instr.Result(); ok {
					delete(in, dst)
				}
				for _, v := range instr.Operands() {
					if needsRC(v) {
						in[v] = true
					}
				}
			}
			// Block parameters are defined at entry.
			for _, p := range b.Params {
				delete(in, p.Var)
			}

			if !setsEqual(bl.LiveOut, out) {
				bl.LiveOut = out
				changed = true
			}
			if !setsEqual(bl.LiveIn, in) {
				bl.LiveIn = in
				changed = true
			}
		}
	}

	return result
}

func setsEqual(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func blockOrder(f *arcir.Function) []arcir.BlockId {
	out := make([]arcir.BlockId, len(f.Blocks))
	for i, b := range f.Blocks {
		out[i] = b.ID
	}
	return out
}

// Refined is the refined-liveness result: for each block, which needs-rc
// variables live at its entry/exit are live-for-use (read again on some
// reachable path before any redefinition) versus live-for-drop only.
type Refined struct {
	forUseEntry map[arcir.BlockId]Set
	forUseExit  map[arcir.BlockId]Set
	live        Liveness
}

// IsLiveForUseAtEntry reports whether v is read again (not just pending a
// drop) on some path starting at the entry of block b.
func (r *Refined) IsLiveForUseAtEntry(b arcir.BlockId, v arcir.VarId) bool {
	return r.forUseEntry[b][v]
}

// IsLiveForUseAtExit reports whether v is read again on some path starting
// at the exit of block b.
func (r *Refined) IsLiveForUseAtExit(b arcir.BlockId, v arcir.VarId) bool {
	return r.forUseExit[b][v]
}

// IsLiveAtEntry reports plain (non-refined) liveness at block b's entry.
func (r *Refined) IsLiveAtEntry(b arcir.BlockId, v arcir.VarId) bool {
	return r.live[b].LiveIn[v]
}

// isDropOnly reports whether instr's only effect on its operand is to
// consume a pending reference count (an RcDec or a Reset check-and-tear-
// down), rather than reading the value for its contents the way every
// other instruction does.
func isDropOnly(instr arcir.Instruction) bool {
	switch instr.(type) {
	case *arcir.RcDec, *arcir.Reset:
		return true
	default:
		return false
	}
}

// ComputeRefined computes both standard liveness and the refined
// for-use/for-drop distinction in one pass (mirroring the reference
// implementation's compute_refined_liveness, which returns both).
func ComputeRefined(f *arcir.Function, classifier classify.Classification) (*Refined, Liveness) {
	live := Compute(f, classifier)

	needsRC := func(v arcir.VarId) bool {
		return classifier.NeedsRC(f.TypeOf(v))
	}

	succs := make(map[arcir.BlockId][]arcir.BlockId, len(f.Blocks))
	for _, b := range f.Blocks {
		succs[b.ID] = b.Terminator.Successors()
	}
	order := blockOrder(f)

	forUseEntry := make(map[arcir.BlockId]Set, len(f.Blocks))
	forUseExit := make(map[arcir.BlockId]Set, len(f.Blocks))
	for _, b := range f.Blocks {
		forUseEntry[b.ID] = Set{}
		forUseExit[b.ID] = Set{}
	}

	changed := true
	for changed {
		changed = false
		for _, id := range order {
			b := f.Block(id)

			exit := Set{}
			for _, s := range succs[id] {
				exit.union(forUseEntry[s])
			}

			entry := exit.clone()
			for _, v := range b.Terminator.Operands() {
				if needsRC(v) {
					entry[v] = true
				}
			}
			for i := len(b.Body) - 1; i >= 0; i-- {
				instr := b.Body[i]
				if dst, ok := instr.Result(); ok {
					delete(entry, dst)
				}
				// RcDec and Reset consume a pending reference but are not
				// themselves a "use" of the value for reading purposes
				// (spec.md §3.5/§4.D): a variable kept alive only by a
				// pending drop must not count as live-for-use, or the
				// reset/reuse detector's IsLiveForUseAtExit gate would
				// wrongly refuse a pairing the drop itself permits.
				if isDropOnly(instr) {
					continue
				}
				for _, v := range instr.Operands() {
					if needsRC(v) {
						entry[v] = true
					}
				}
			}
			for _, p := range b.Params {
				delete(entry, p.Var)
			}

			if !setsEqual(forUseExit[id], exit) {
				forUseExit[id] = exit
				changed = true
			}
			if !setsEqual(forUseEntry[id], entry) {
				forUseEntry[id] = entry
				changed = true
			}
		}
	}

	return &Refined{forUseEntry: forUseEntry, forUseExit: forUseExit, live: live}, live
}
