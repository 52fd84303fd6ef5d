// Package expand lowers every Reset/Reuse pair left by internal/reuse into
// explicit fast/slow/merge control flow (spec.md §4.H). After this pass, no
// Reset or Reuse instruction remains anywhere in the function: a Reset
// becomes a DecRefTest feeding a Branch, and a Reuse becomes a
// ConstructInPlace on the fast (uniquely-owned) path and an ordinary
// Construct plus RcDec on the slow path, joined by a merge block whose
// single parameter is the original Reuse destination.
package expand

import (
	"oriarc/internal/arcir"
	"oriarc/internal/typepool"
)

type resetSite struct {
	block arcir.BlockId
	idx   int
	instr *arcir.Reset
}

type reuseSite struct {
	block arcir.BlockId
	idx   int
	instr *arcir.Reuse
}

// ExpandResetReuse rewrites every Reset/Reuse pair in f. boolTy is the
// typepool index for the boolean type, supplied by the caller since arcir
// carries no built-in notion of "the" bool type (spec.md §9).
func ExpandResetReuse(f *arcir.Function, boolTy typepool.Idx) {
	resets := map[arcir.VarId]resetSite{}
	reuses := map[arcir.VarId]reuseSite{}

	for _, b := range f.Blocks {
		for idx, instr := range b.Body {
			switch in := instr.(type) {
			case *arcir.Reset:
				resets[in.Token] = resetSite{block: b.ID, idx: idx, instr: in}
			case *arcir.Reuse:
				reuses[in.Token] = reuseSite{block: b.ID, idx: idx, instr: in}
			}
		}
	}

	for token, r := range resets {
		u, ok := reuses[token]
		if !ok {
			continue // a Reset left unpaired by internal/reuse; nothing to expand
		}
		if r.block == u.block {
			expandSameBlock(f, boolTy, r, u)
		} else {
			expandCrossBlock(f, boolTy, r, u)
		}
	}
}

// expandSameBlock handles a Reset and its Reuse found in the same block
// (internal/reuse's intra-block pairing, spec.md §4.G).
func expandSameBlock(f *arcir.Function, boolTy typepool.Idx, r resetSite, u reuseSite) {
	b := f.Block(r.block)
	body := b.Body

	prefix := append([]arcir.Instruction(nil), body[:r.idx]...)
	between := append([]arcir.Instruction(nil), body[r.idx+1:u.idx]...)
	suffix := append([]arcir.Instruction(nil), body[u.idx+1:]...)
	origTerm := b.Terminator

	fast, slow, merge := buildExpansion(f, r.instr, u.instr, boolTy)

	merge.Body = suffix
	merge.Terminator = origTerm

	b.Body = append(prefix, between...)
	b.Body = append(b.Body, newCondInstrs(f, boolTy, r.instr)...)
	b.Terminator = &arcir.Branch{Cond: condVarOf(b), Then: fast.ID, Else: slow.ID}
}

// expandCrossBlock handles a Reset/Reuse pair found in different blocks,
// where the reuse block is reached from the reset block along a linear
// chain of unconditional Jumps (the shape internal/reuse's cross-block
// phase actually produces for a single dominating predecessor, spec.md
// §4.G). Any intervening block's instructions are duplicated onto both the
// fast and slow continuations, since they run identically regardless of
// which path is taken.
func expandCrossBlock(f *arcir.Function, boolTy typepool.Idx, r resetSite, u reuseSite) {
	resetBlock := f.Block(r.block)
	reuseBlock := f.Block(u.block)

	chain := linearChain(f, r.block, u.block)

	var shared []arcir.Instruction
	if chain != nil {
		for _, bid := range chain {
			if bid == u.block {
				shared = append(shared, reuseBlock.Body[:u.idx]...)
				break
			}
			shared = append(shared, f.Block(bid).Body...)
		}
	}

	suffix := append([]arcir.Instruction(nil), reuseBlock.Body[u.idx+1:]...)
	origTerm := reuseBlock.Terminator

	fast, slow, merge := buildExpansion(f, r.instr, u.instr, boolTy)

	fast.Body = append(append([]arcir.Instruction(nil), shared...), fast.Body...)
	slow.Body = append(append([]arcir.Instruction(nil), shared...), slow.Body...)

	merge.Body = suffix
	merge.Terminator = origTerm

	resetBlock.Body = append(resetBlock.Body[:r.idx], resetBlock.Body[r.idx+1:]...)
	resetBlock.Body = append(resetBlock.Body, newCondInstrs(f, boolTy, r.instr)...)
	resetBlock.Terminator = &arcir.Branch{Cond: condVarOf(resetBlock), Then: fast.ID, Else: slow.ID}

	// The reuse block (and any purely intermediate blocks) are now
	// unreachable; dominator analysis over the rewritten CFG proves this.
	reuseBlock.Body = nil
	reuseBlock.Terminator = &arcir.Unreachable{}
}

// linearChain returns the sequence of blocks from (excluding) from to
// (including) to, following each block's sole unconditional Jump successor,
// or nil if no such simple chain exists.
func linearChain(f *arcir.Function, from, to arcir.BlockId) []arcir.BlockId {
	var chain []arcir.BlockId
	cur := from
	for i := 0; i < len(f.Blocks)+1; i++ {
		b := f.Block(cur)
		jmp, ok := b.Terminator.(*arcir.Jump)
		if !ok || len(jmp.Args) != 0 {
			return nil
		}
		cur = jmp.Target
		chain = append(chain, cur)
		if cur == to {
			return chain
		}
	}
	return nil
}

// newCondInstrs returns the DecRefTest + Let pair that replace a Reset,
// binding a fresh boolean to "token is non-null" for the Branch that
// follows. condVarOf reads that variable back off the last instruction in
// whichever block these two instructions were appended to.
func newCondInstrs(f *arcir.Function, boolTy typepool.Idx, reset *arcir.Reset) []arcir.Instruction {
	cond := f.FreshVar(boolTy)
	return []arcir.Instruction{
		&arcir.DecRefTest{Var: reset.Var, Token: reset.Token},
		&arcir.Let{Dst: cond, Type: boolTy, Value: arcir.PrimOpValue{Op: arcir.PrimTokenValid, Args: []arcir.VarId{reset.Token}}},
	}
}

func condVarOf(b *arcir.Block) arcir.VarId {
	last := b.Body[len(b.Body)-1].(*arcir.Let)
	return last.Dst
}

// buildExpansion allocates the fast, slow, and merge blocks shared by both
// the same-block and cross-block cases and fills in their bodies up to (but
// not including) the caller-specific shared prefix and merge suffix.
func buildExpansion(f *arcir.Function, reset *arcir.Reset, reuse *arcir.Reuse, boolTy typepool.Idx) (fast, slow, merge *arcir.Block) {
	fastID := f.NewBlock()
	slowID := f.NewBlock()
	mergeID := f.NewBlock()
	fast, slow, merge = f.Block(fastID), f.Block(slowID), f.Block(mergeID)

	fastDst := f.FreshVar(reuse.Type)
	fast.Body = []arcir.Instruction{
		&arcir.ConstructInPlace{Dst: fastDst, Type: reuse.Type, Token: reset.Token, Ctor: reuse.Ctor, Args: reuse.Args},
	}
	fast.Terminator = &arcir.Jump{Target: mergeID, Args: []arcir.VarId{fastDst}}

	slowDst := f.FreshVar(reuse.Type)
	slow.Body = []arcir.Instruction{
		&arcir.RcDec{Var: reset.Var},
		&arcir.Construct{Dst: slowDst, Type: reuse.Type, Ctor: reuse.Ctor, Args: reuse.Args},
	}
	slow.Terminator = &arcir.Jump{Target: mergeID, Args: []arcir.VarId{slowDst}}

	merge.Params = []arcir.BlockParam{{Var: reuse.Dst, Type: reuse.Type}}
	return fast, slow, merge
}
