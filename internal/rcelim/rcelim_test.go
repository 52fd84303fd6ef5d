package rcelim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/lower"
	"oriarc/internal/ownership"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

func countRC(body []arcir.Instruction) (incs, decs int) {
	for _, instr := range body {
		switch instr.(type) {
		case *arcir.RcInc:
			incs++
		case *arcir.RcDec:
			decs++
		}
	}
	return
}

func TestEliminateRCOpsCancelsAdjacentPair(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxStr)
	b.TerminateReturn(x)
	f := b.Finish(sig.Name(1), nil, typepool.IdxStr, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{
		&arcir.RcInc{Var: x},
		&arcir.RcDec{Var: x},
	}

	EliminateRCOps(f, c)

	incs, decs := countRC(f.Blocks[0].Body)
	assert.Zero(t, incs)
	assert.Zero(t, decs)
}

func TestEliminateRCOpsKeepsPairSeparatedByUse(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxStr)
	proj := b.FreshVar(typepool.IdxInt)
	b.TerminateReturn(proj)
	f := b.Finish(sig.Name(2), nil, typepool.IdxInt, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{
		&arcir.RcInc{Var: x},
		&arcir.Project{Dst: proj, Type: typepool.IdxInt, Value: x, Field: 0},
		&arcir.RcDec{Var: x},
	}

	EliminateRCOps(f, c)

	incs, decs := countRC(f.Blocks[0].Body)
	assert.Equal(t, 1, incs, "an intervening use of x means the inc/dec cannot be proven redundant")
	assert.Equal(t, 1, decs)
}

func TestEliminateRCOpsDataflowCancelsAcrossBlocks(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxStr)
	next := b.NewBlock()
	b.TerminateJump(next, nil)
	b.PositionAt(next)
	b.TerminateReturn(x)

	f := b.Finish(sig.Name(3), nil, typepool.IdxStr, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{&arcir.RcInc{Var: x}}
	f.Blocks[1].Body = []arcir.Instruction{&arcir.RcDec{Var: x}}

	owned := ownership.Derived{}
	EliminateRCOpsDataflow(f, c, owned)

	inc0, dec0 := countRC(f.Blocks[0].Body)
	inc1, dec1 := countRC(f.Blocks[1].Body)
	assert.Zero(t, inc0+dec0+inc1+dec1, "the inc in block 0 and dec in block 1 reach each other on the only path between them")
}

func TestEliminateRCOpsDataflowRequiresAllPredecessorsToAgree(t *testing.T) {
	// entry branches to b1 (which incs x) and b2 (which does not); both
	// join at b3 which decs x. Since only one predecessor has a pending
	// inc, the dec at b3 must survive.
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxStr)
	cond := b.FreshVar(typepool.IdxBool)
	b1 := b.NewBlock()
	b2 := b.NewBlock()
	b3 := b.NewBlock()
	b.TerminateBranch(cond, b1, b2)

	b.PositionAt(b1)
	b.TerminateJump(b3, nil)
	b.PositionAt(b2)
	b.TerminateJump(b3, nil)
	b.PositionAt(b3)
	b.TerminateReturn(x)

	f := b.Finish(sig.Name(4), nil, typepool.IdxStr, 0, nil)
	f.Blocks[b1].Body = []arcir.Instruction{&arcir.RcInc{Var: x}}
	f.Blocks[b3].Body = []arcir.Instruction{&arcir.RcDec{Var: x}}

	EliminateRCOpsDataflow(f, c, ownership.Derived{})

	_, dec3 := countRC(f.Blocks[b3].Body)
	require.Equal(t, 1, dec3, "b2's path never incremented x, so the dec at the join point must stay")
	inc1, _ := countRC(f.Blocks[b1].Body)
	assert.Equal(t, 1, inc1)
}

func TestEliminateRCOpsDataflowConsumingApplyBlocksCancellation(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxStr)
	result := b.EmitApply(typepool.IdxInt, sig.Name(5), []arcir.VarId{x}, nil)
	b.TerminateReturn(result)
	f := b.Finish(sig.Name(6), nil, typepool.IdxInt, 0, nil)
	f.Blocks[0].Body = append([]arcir.Instruction{&arcir.RcInc{Var: x}}, f.Blocks[0].Body...)
	f.Blocks[0].Body = append(f.Blocks[0].Body, &arcir.RcDec{Var: x})

	owned := ownership.Derived{x: sig.Owned}
	EliminateRCOpsDataflow(f, c, owned)

	incs, decs := countRC(f.Blocks[0].Body)
	assert.Equal(t, 1, incs, "x is consumed by the Apply, so the surrounding inc/dec is not provably redundant")
	assert.Equal(t, 1, decs)
}
