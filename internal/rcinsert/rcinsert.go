// Package rcinsert inserts the minimal RcInc/RcDec operations that
// preserve program semantics given ownership and liveness (spec.md §4.F).
package rcinsert

import (
	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/liveness"
	"oriarc/internal/ownership"
	"oriarc/internal/sig"
)

// terminatorSentinel marks "last use occurs in the terminator" in the
// per-block last-use index map.
const terminatorSentinel = -2

// InsertRCOps inserts RC operations treating every needs-rc variable as
// Owned, ignoring any per-variable ownership inference. This mirrors the
// reference implementation's simpler insert_rc_ops, used by the pipeline
// ordering regression test (spec.md §4.I) to compare against the
// ownership-aware insertion.
func InsertRCOps(f *arcir.Function, classifier classify.Classification, live liveness.Liveness) {
	InsertRCOpsWithOwnership(f, classifier, live, allOwned(f), nil)
}

func allOwned(f *arcir.Function) ownership.Derived {
	d := make(ownership.Derived, len(f.VarTypes))
	for v := range f.VarTypes {
		d[arcir.VarId(v)] = sig.Owned
	}
	return d
}

// InsertRCOpsWithOwnership inserts RC operations using the derived
// ownership and refined liveness already computed for f.
func InsertRCOpsWithOwnership(f *arcir.Function, classifier classify.Classification, live liveness.Liveness, owned ownership.Derived, sigs sig.SigTable) {
	for _, b := range f.Blocks {
		entryParams := []arcir.VarId(nil)
		if b.ID == f.Entry {
			for _, p := range f.Params {
				entryParams = append(entryParams, p.Var)
			}
		}
		rewriteBlock(f, b, classifier, live[b.ID], owned, sigs, entryParams)
	}
	insertInvokeUnwindCleanup(f, classifier, live, owned)
}

func rewriteBlock(f *arcir.Function, b *arcir.Block, classifier classify.Classification, bl *liveness.BlockLiveness, owned ownership.Derived, sigs sig.SigTable, entryParams []arcir.VarId) {
	needsRC := func(v arcir.VarId) bool { return classifier.NeedsRC(f.TypeOf(v)) }
	isOwned := func(v arcir.VarId) bool { return owned.Of(v) == sig.Owned }

	lastUse := computeLastUse(b)

	var newBody []arcir.Instruction

	for idx, instr := range b.Body {
		// Rule 2: an Owned argument to a consuming call that remains
		// live-for-use afterward needs a retain before the call.
		consumers := consumingOperands(instr, sigs)
		consumedHere := make(map[arcir.VarId]bool, len(consumers))
		for _, v := range consumers {
			consumedHere[v] = true
			if !needsRC(v) || !isOwned(v) {
				continue
			}
			usedAgain := lastUse[v] == terminatorSentinel || lastUse[v] > idx || bl.LiveOut[v]
			if usedAgain {
				newBody = append(newBody, &arcir.RcInc{Var: v})
			}
		}

		newBody = append(newBody, instr)

		// Rule 4: decrement at the last live-for-use point within this
		// block, unless the variable survives into a successor or that use
		// consumes it (the consumer already took the reference).
		for _, v := range instr.Operands() {
			if !needsRC(v) || !isOwned(v) {
				continue
			}
			if lastUse[v] == idx && !bl.LiveOut[v] && !consumedHere[v] {
				newBody = append(newBody, &arcir.RcDec{Var: v})
			}
		}
	}

	// Rule 1: an Owned parameter not consumed anywhere in this block and
	// not live-out (i.e. this is its final block) is decremented once
	// before the terminator, unless the terminator itself transfers it
	// out (Return, or a Jump/Branch/Switch argument — ownership passes to
	// the continuation in both cases).
	transferred := make(map[arcir.VarId]bool)
	for _, v := range b.Terminator.Operands() {
		transferred[v] = true
	}
	// Candidates are every variable live into this block, plus (for the
	// entry block only) every function parameter: a parameter untouched
	// anywhere in the body never becomes live-in under plain dataflow
	// liveness, yet it still must be dropped somewhere.
	candidates := make(map[arcir.VarId]bool, len(bl.LiveIn)+len(entryParams))
	for v := range bl.LiveIn {
		candidates[v] = true
	}
	for _, v := range entryParams {
		candidates[v] = true
	}
	for v := range candidates {
		if transferred[v] || bl.LiveOut[v] {
			continue
		}
		if _, used := lastUse[v]; used {
			continue // already decremented by the rule-4 scan above
		}
		if needsRC(v) && isOwned(v) {
			newBody = append(newBody, &arcir.RcDec{Var: v})
		}
	}

	b.Body = newBody
}

// consumingOperands returns the operands of instr that are handed off as
// Owned arguments to a consuming sink: a Construct's fields (always
// consumed — they become part of the new value), or an Apply/
// ApplyIndirect argument the callee's signature marks Owned.
func consumingOperands(instr arcir.Instruction, sigs sig.SigTable) []arcir.VarId {
	switch in := instr.(type) {
	case *arcir.Construct:
		return in.Args
	case *arcir.Apply:
		return ownedArgs(in.Args, in.Func, sigs)
	case *arcir.ApplyIndirect:
		// Closure body ownership is not visible (spec.md §9): treat every
		// argument as consumed, maximally conservative.
		return in.Args
	default:
		return nil
	}
}

func ownedArgs(args []arcir.VarId, callee sig.Name, sigs sig.SigTable) []arcir.VarId {
	asig, ok := sigs[callee]
	if !ok {
		return args
	}
	var out []arcir.VarId
	for i, a := range args {
		if i < len(asig.Params) && asig.Params[i] == sig.Owned {
			out = append(out, a)
		}
	}
	return out
}

// computeLastUse returns, for every variable read within b, the index of
// its last reading instruction in b.Body, or terminatorSentinel if its
// last read within b is in the terminator's operands.
func computeLastUse(b *arcir.Block) map[arcir.VarId]int {
	last := map[arcir.VarId]int{}
	for idx, instr := range b.Body {
		for _, v := range instr.Operands() {
			last[v] = idx
		}
	}
	for _, v := range b.Terminator.Operands() {
		last[v] = terminatorSentinel
	}
	return last
}

// insertInvokeUnwindCleanup implements rule 6: every Owned, needs-rc
// variable live across an Invoke must be decremented on its unwind edge,
// since the callee's unwind does not know whether the normal path already
// ran its own cleanup.
func insertInvokeUnwindCleanup(f *arcir.Function, classifier classify.Classification, live liveness.Liveness, owned ownership.Derived) {
	needsRC := func(v arcir.VarId) bool { return classifier.NeedsRC(f.TypeOf(v)) }

	for _, b := range f.Blocks {
		inv, ok := b.Terminator.(*arcir.Invoke)
		if !ok {
			continue
		}
		unwind := f.Block(inv.Unwind)
		if !isBareResume(unwind) {
			continue // already populated; avoid double-inserting on re-runs
		}

		bl := live[b.ID]
		var prefix []arcir.Instruction
		for v := range bl.LiveOut {
			if needsRC(v) && owned.Of(v) == sig.Owned {
				prefix = append(prefix, &arcir.RcDec{Var: v})
			}
		}
		unwind.Body = append(prefix, unwind.Body...)
	}
}

func isBareResume(b *arcir.Block) bool {
	_, ok := b.Terminator.(*arcir.Resume)
	return ok && len(b.Body) == 0
}
