package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriarc/internal/arcir"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

func TestBuilderLinearFunction(t *testing.T) {
	b := NewBuilder()
	x := b.FreshVar(typepool.IdxInt)
	one := b.EmitLet(typepool.IdxInt, arcir.Literal{Lit: arcir.LitInt(1)}, nil)
	sum := b.EmitApply(typepool.IdxInt, sig.Name(1), []arcir.VarId{x, one}, nil)
	b.TerminateReturn(sum)

	f := b.Finish(sig.Name(2), []arcir.Param{{Var: x, Type: typepool.IdxInt, Ownership: sig.Owned}}, typepool.IdxInt, 0, nil)

	require.Len(t, f.Blocks, 1)
	assert.Len(t, f.Blocks[0].Body, 2)
	ret, ok := f.Blocks[0].Terminator.(*arcir.Return)
	require.True(t, ok)
	assert.Equal(t, sum, ret.Value)
}

func TestBuilderBranchingBlocks(t *testing.T) {
	b := NewBuilder()
	cond := b.FreshVar(typepool.IdxBool)
	thenBlk := b.NewBlock()
	elseBlk := b.NewBlock()
	b.TerminateBranch(cond, thenBlk, elseBlk)

	b.PositionAt(thenBlk)
	one := b.EmitLet(typepool.IdxInt, arcir.Literal{Lit: arcir.LitInt(1)}, nil)
	b.TerminateReturn(one)

	b.PositionAt(elseBlk)
	zero := b.EmitLet(typepool.IdxInt, arcir.Literal{Lit: arcir.LitInt(0)}, nil)
	b.TerminateReturn(zero)

	f := b.Finish(sig.Name(3), nil, typepool.IdxInt, 0, nil)
	require.Len(t, f.Blocks, 3)

	branch, ok := f.Blocks[0].Terminator.(*arcir.Branch)
	require.True(t, ok)
	assert.Equal(t, thenBlk, branch.Then)
	assert.Equal(t, elseBlk, branch.Else)
}

func TestEmitInvokeCreatesNormalAndUnwindBlocks(t *testing.T) {
	b := NewBuilder()
	result := b.EmitInvoke(typepool.IdxInt, sig.Name(4), nil)
	b.TerminateReturn(result)

	f := b.Finish(sig.Name(5), nil, typepool.IdxInt, 0, nil)
	require.Len(t, f.Blocks, 3) // entry, normal, unwind

	inv, ok := f.Blocks[0].Terminator.(*arcir.Invoke)
	require.True(t, ok)
	assert.Equal(t, arcir.BlockId(1), inv.Normal)
	assert.Equal(t, arcir.BlockId(2), inv.Unwind)

	_, isResume := f.Block(inv.Unwind).Terminator.(*arcir.Resume)
	assert.True(t, isResume)
}

func TestFinishClosesUnterminatedBlocksWithWarning(t *testing.T) {
	b := NewBuilder()
	b.NewBlock() // block 1: never positioned at, never terminated

	var warned []arcir.BlockId
	f := b.Finish(sig.Name(6), nil, typepool.IdxUnit, 0, func(id arcir.BlockId) {
		warned = append(warned, id)
	})

	assert.Contains(t, warned, arcir.BlockId(0))
	assert.Contains(t, warned, arcir.BlockId(1))
	_, ok := f.Blocks[0].Terminator.(*arcir.Unreachable)
	assert.True(t, ok)
}
