// Package domtree computes the immediate-dominator tree over an
// arcir.Function's control-flow graph (spec.md §4.C), using the iterative
// Cooper-Harvey-Kennedy algorithm so irreducible CFGs (produced by
// break/continue across labeled loops) still converge.
package domtree

import "oriarc/internal/arcir"

// Tree is the immediate-dominator table for one function.
type Tree struct {
	idom  []int // reverse-postorder index -> idom's rpo index, -1 for entry
	rpo   []arcir.BlockId
	index map[arcir.BlockId]int
}

// Build computes the dominator tree for f.
func Build(f *arcir.Function) *Tree {
	preds := predecessors(f)
	rpo := reversePostorder(f)

	index := make(map[arcir.BlockId]int, len(rpo))
	for i, b := range rpo {
		index[b] = i
	}

	idom := make([]int, len(rpo))
	for i := range idom {
		idom[i] = -1
	}
	entryIdx := index[f.Entry]
	idom[entryIdx] = entryIdx

	changed := true
	for changed {
		changed = false
		for i, b := range rpo {
			if i == entryIdx {
				continue
			}
			newIdom := -1
			for _, p := range preds[b] {
				pi, ok := index[p]
				if !ok || idom[pi] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = pi
					continue
				}
				newIdom = intersect(idom, newIdom, pi)
			}
			if newIdom != -1 && idom[i] != newIdom {
				idom[i] = newIdom
				changed = true
			}
		}
	}

	return &Tree{idom: idom, rpo: rpo, index: index}
}

func intersect(idom []int, a, b int) int {
	for a != b {
		for a > b {
			a = idom[a]
		}
		for b > a {
			b = idom[b]
		}
	}
	return a
}

// IDom returns the immediate dominator of b. Returns (b, true) for the
// entry block (a block is its own idom at the root).
func (t *Tree) IDom(b arcir.BlockId) (arcir.BlockId, bool) {
	i, ok := t.index[b]
	if !ok || t.idom[i] == -1 {
		return 0, false
	}
	return t.rpo[t.idom[i]], true
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *Tree) Dominates(a, b arcir.BlockId) bool {
	ai, ok := t.index[a]
	if !ok {
		return false
	}
	bi, ok := t.index[b]
	if !ok {
		return false
	}
	for {
		if bi == ai {
			return true
		}
		// The walk ends at the entry (its own idom) or at an unreachable
		// block (no idom).
		if t.idom[bi] == bi || t.idom[bi] == -1 {
			return bi == ai
		}
		bi = t.idom[bi]
	}
}

// DominatesStrict reports whether a strictly dominates b (a != b).
func (t *Tree) DominatesStrict(a, b arcir.BlockId) bool {
	return a != b && t.Dominates(a, b)
}

// Dominated returns every block strictly dominated by b, in reverse
// postorder. Used by the reset/reuse detector's cross-block search
// (spec.md §4.G) to enumerate candidate Construct sites.
func (t *Tree) Dominated(b arcir.BlockId) []arcir.BlockId {
	var out []arcir.BlockId
	for _, other := range t.rpo {
		if t.DominatesStrict(b, other) {
			out = append(out, other)
		}
	}
	return out
}

func predecessors(f *arcir.Function) map[arcir.BlockId][]arcir.BlockId {
	preds := make(map[arcir.BlockId][]arcir.BlockId, len(f.Blocks))
	for _, b := range f.Blocks {
		preds[b.ID] = nil
	}
	for _, b := range f.Blocks {
		for _, succ := range b.Terminator.Successors() {
			preds[succ] = append(preds[succ], b.ID)
		}
	}
	return preds
}

func reversePostorder(f *arcir.Function) []arcir.BlockId {
	visited := make(map[arcir.BlockId]bool, len(f.Blocks))
	var post []arcir.BlockId

	var visit func(arcir.BlockId)
	visit = func(b arcir.BlockId) {
		if visited[b] {
			return
		}
		visited[b] = true
		blk := f.Block(b)
		for _, succ := range blk.Terminator.Successors() {
			visit(succ)
		}
		post = append(post, b)
	}
	visit(f.Entry)

	// Unreachable blocks (possible after an aggressive rewrite) are
	// appended afterward so every block still has an rpo index; they can
	// never dominate or be dominated by anything reachable from entry.
	for _, b := range f.Blocks {
		visit(b.ID)
	}

	rpo := make([]arcir.BlockId, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}
