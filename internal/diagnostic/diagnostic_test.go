package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriarc/internal/arcir"
	"oriarc/internal/classify"
	"oriarc/internal/lower"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

func TestVerifyCleanFunctionHasNoProblems(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxInt)
	b.TerminateReturn(x)
	f := b.Finish(sig.Name(1), []arcir.Param{{Var: x, Type: typepool.IdxInt}}, typepool.IdxInt, 0, nil)

	problems := Verify(f, c, true)
	assert.Empty(t, problems)
}

func TestVerifyDetectsSSAViolation(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxInt)
	b.TerminateReturn(x)
	f := b.Finish(sig.Name(2), nil, typepool.IdxInt, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{
		&arcir.Let{Dst: x, Type: typepool.IdxInt, Value: arcir.Literal{Lit: arcir.LitInt(1)}},
		&arcir.Let{Dst: x, Type: typepool.IdxInt, Value: arcir.Literal{Lit: arcir.LitInt(2)}},
	}

	problems := Verify(f, c, true)
	require.NotEmpty(t, problems)
	assert.Equal(t, ErrorSSAViolation, problems[0].Code)
}

func TestVerifyDetectsUnexpandedReuse(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)
	ty := pool.DefineStruct(typepool.TagStruct, nil)

	b := lower.NewBuilder()
	token := b.FreshVar(ty)
	dst := b.FreshVar(ty)
	b.TerminateReturn(dst)
	f := b.Finish(sig.Name(3), nil, ty, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{
		&arcir.Reuse{Token: token, Dst: dst, Type: ty, Ctor: arcir.CtorStruct{}, Args: nil},
	}

	assert.Empty(t, Verify(f, c, false), "pre-expansion, a Reuse is expected and not a violation")

	problems := Verify(f, c, true)
	require.Len(t, problems, 1)
	assert.Equal(t, ErrorUnexpandedResetReuse, problems[0].Code)
}

func TestVerifyDetectsRCOnScalar(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	x := b.FreshVar(typepool.IdxInt)
	b.TerminateReturn(x)
	f := b.Finish(sig.Name(4), nil, typepool.IdxInt, 0, nil)
	f.Blocks[0].Body = []arcir.Instruction{&arcir.RcInc{Var: x}}

	problems := Verify(f, c, true)
	require.Len(t, problems, 1)
	assert.Equal(t, ErrorRCOnScalar, problems[0].Code)
}

func TestVerifyDetectsUnknownBlockTarget(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	b.TerminateJump(99, nil)
	f := b.Finish(sig.Name(5), nil, typepool.IdxUnit, 0, nil)

	problems := Verify(f, c, true)
	require.NotEmpty(t, problems)
	assert.Equal(t, ErrorUnknownBlock, problems[0].Code)
}

func TestVerifyDetectsBlockArityMismatch(t *testing.T) {
	pool := typepool.NewStaticPool()
	c := classify.New(pool)

	b := lower.NewBuilder()
	next := b.NewBlock()
	b.TerminateJump(next, nil)
	b.PositionAt(next)
	b.AddBlockParam(next, typepool.IdxInt)
	b.TerminateReturn(0)

	f := b.Finish(sig.Name(6), nil, typepool.IdxInt, 0, nil)

	problems := Verify(f, c, true)
	require.NotEmpty(t, problems)
	assert.Equal(t, ErrorBlockArityMismatch, problems[0].Code)
}

func TestReporterFormatIncludesCodeAndLocation(t *testing.T) {
	names := sig.NewInterner()
	fn := names.Intern("compute")

	r := NewReporter()
	out := r.Format(names, Problem{
		Code:     ErrorRCOnScalar,
		Message:  "RcInc targets a Scalar-classified variable",
		Location: Location{Function: fn, Block: 0, Index: 2},
	})

	assert.Contains(t, out, ErrorRCOnScalar)
	assert.Contains(t, out, "compute")
	assert.Contains(t, out, "block 0")
}

func TestInternalErrorImplementsError(t *testing.T) {
	var err error = &InternalError{Problems: []Problem{{Code: ErrorSSAViolation, Message: "boom"}}}
	assert.Contains(t, err.Error(), ErrorSSAViolation)
}
