// Package reuse implements the reset/reuse detector (spec.md §4.G):
// rewriting an RcDec(x); ... Construct(τ) pair, where τ == typeof(x) and x
// is not referenced between the two, into Reset(x, tok); ... Reuse(tok, ...).
package reuse

import (
	"sort"

	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/domtree"
	"oriarc/internal/liveness"
)

// DetectResetReuse runs the intra-block phase only: a linear scan per
// block pairing each RcDec with the first same-type Construct reachable
// without an intervening use or alias risk (spec.md §4.G, "first construct
// wins").
func DetectResetReuse(f *arcir.Function, classifier classify.Classification) {
	for _, b := range f.Blocks {
		detectIntraBlock(f, b, classifier)
	}
}

func detectIntraBlock(f *arcir.Function, b *arcir.Block, classifier classify.Classification) {
	body := b.Body
	newBody := make([]arcir.Instruction, 0, len(body))

	i := 0
	for i < len(body) {
		instr := body[i]
		dec, ok := instr.(*arcir.RcDec)
		if !ok {
			newBody = append(newBody, instr)
			i++
			continue
		}

		x := dec.Var
		ty := f.TypeOf(x)
		if !classifier.NeedsRC(ty) {
			newBody = append(newBody, instr)
			i++
			continue
		}

		pairedAt := -1
		for j := i + 1; j < len(body); j++ {
			cand := body[j]
			if usesVar(cand, x) {
				break // aliasing risk or re-use of x: abort this pairing
			}
			if c, ok := cand.(*arcir.Construct); ok && f.TypeOf(c.Dst) == ty {
				pairedAt = j
				break
			}
		}

		if pairedAt == -1 {
			newBody = append(newBody, instr)
			i++
			continue
		}

		token := f.FreshVar(ty)
		newBody = append(newBody, &arcir.Reset{Var: x, Token: token})
		for k := i + 1; k < pairedAt; k++ {
			newBody = append(newBody, body[k])
		}
		c := body[pairedAt].(*arcir.Construct)
		newBody = append(newBody, &arcir.Reuse{
			Token: token,
			Dst:   c.Dst,
			Type:  c.Type,
			Ctor:  c.Ctor,
			Args:  c.Args,
		})
		i = pairedAt + 1
	}

	b.Body = newBody
}

func usesVar(instr arcir.Instruction, x arcir.VarId) bool {
	for _, v := range instr.Operands() {
		if v == x {
			return true
		}
	}
	return false
}

// DetectResetReuseCFG runs both the intra-block phase and the cross-block
// phase: for every RcDec left unpaired within its own block, search blocks
// strictly dominated by it for the first same-type Construct, guided by
// refined liveness to ensure x is not live-for-use anywhere between
// (spec.md §4.G, detect_reset_reuse_cfg).
func DetectResetReuseCFG(f *arcir.Function, classifier classify.Classification, dom *domtree.Tree, refined *liveness.Refined) {
	DetectResetReuse(f, classifier)

	for _, b := range f.Blocks {
		pairCrossBlock(f, b, classifier, dom, refined)
	}
}

func pairCrossBlock(f *arcir.Function, b *arcir.Block, classifier classify.Classification, dom *domtree.Tree, refined *liveness.Refined) {
	for idx, instr := range b.Body {
		dec, ok := instr.(*arcir.RcDec)
		if !ok {
			continue
		}
		x := dec.Var
		ty := f.TypeOf(x)
		if !classifier.NeedsRC(ty) {
			continue
		}
		// Not live-for-use anywhere reachable from this block's exit means
		// no path between here and a dominated Construct reads x.
		if refined.IsLiveForUseAtExit(b.ID, x) {
			continue
		}

		dominated := dom.Dominated(b.ID)
		sort.Slice(dominated, func(i, j int) bool { return dominated[i] < dominated[j] })

		for _, did := range dominated {
			// §4.G requires the match on every dominated path: a Construct
			// reachable from b by only one side of a branch would leave the
			// other path with a Reset never reclaimed by a Reuse, so did
			// must post-dominate b (every path forward from b passes
			// through did before any exit), not merely be dominated by it.
			if !postDominatesAllPaths(f, b.ID, did) {
				continue
			}
			blk := f.Block(did)
			for cidx, cand := range blk.Body {
				c, ok := cand.(*arcir.Construct)
				if !ok || f.TypeOf(c.Dst) != ty {
					continue
				}
				token := f.FreshVar(ty)
				b.Body[idx] = &arcir.Reset{Var: x, Token: token}
				blk.Body[cidx] = &arcir.Reuse{
					Token: token,
					Dst:   c.Dst,
					Type:  c.Type,
					Ctor:  c.Ctor,
					Args:  c.Args,
				}
				goto paired
			}
		}
	paired:
	}
}

// postDominatesAllPaths reports whether every control-flow path leaving
// from passes through did before reaching a block with no successors
// (Return/Resume/Unreachable), i.e. did post-dominates from.
func postDominatesAllPaths(f *arcir.Function, from, did arcir.BlockId) bool {
	for _, s := range f.Block(from).Terminator.Successors() {
		if reachesExitWithoutPassing(f, s, did, map[arcir.BlockId]bool{}) {
			return false
		}
	}
	return true
}

// reachesExitWithoutPassing reports whether some path starting at id
// reaches a block with no successors without first visiting did.
func reachesExitWithoutPassing(f *arcir.Function, id, did arcir.BlockId, visited map[arcir.BlockId]bool) bool {
	if id == did || visited[id] {
		return false
	}
	visited[id] = true

	succs := f.Block(id).Terminator.Successors()
	if len(succs) == 0 {
		return true
	}
	for _, s := range succs {
		if reachesExitWithoutPassing(f, s, did, visited) {
			return true
		}
	}
	return false
}
