package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriarc/internal/arcir"
	"oriarc/internal/sig"
)

const reusePatternSource = `
fn foo(x: str) -> str {
  b0:
    v1: str = project x, 0
    v2: str = project x, 1
    v3: str = apply transform(v1)
    v4: str = construct Pair(v3, v2)
    return v4
}
`

func TestParseReusePatternFunction(t *testing.T) {
	file, err := Parse("fixture.arc", reusePatternSource)
	require.NoError(t, err)
	require.Len(t, file.Functions, 1)

	fn := file.Functions[0]
	assert.Equal(t, "foo", fn.Name)
	assert.Equal(t, "str", fn.ReturnType)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "x", fn.Params[0].Name)
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, "b0", fn.Blocks[0].Label)
	assert.Len(t, fn.Blocks[0].Instrs, 4)
	require.NotNil(t, fn.Blocks[0].Term.Return)
	assert.Equal(t, "v4", fn.Blocks[0].Term.Return.Value)
}

func TestBuildReusePatternFunction(t *testing.T) {
	file, err := Parse("fixture.arc", reusePatternSource)
	require.NoError(t, err)

	names := sig.NewInterner()
	funcs, err := Build(file, names)
	require.NoError(t, err)
	require.Len(t, funcs, 1)

	f := funcs[0]
	assert.Equal(t, "foo", names.Lookup(f.Name))
	require.Len(t, f.Blocks, 1)
	require.Len(t, f.Blocks[0].Body, 4)

	proj1, ok := f.Blocks[0].Body[0].(*arcir.Project)
	require.True(t, ok)
	assert.Equal(t, f.Params[0].Var, proj1.Value)
	assert.EqualValues(t, 0, proj1.Field)

	proj2, ok := f.Blocks[0].Body[1].(*arcir.Project)
	require.True(t, ok)
	assert.EqualValues(t, 1, proj2.Field)

	apply, ok := f.Blocks[0].Body[2].(*arcir.Apply)
	require.True(t, ok)
	assert.Equal(t, "transform", names.Lookup(apply.Func))
	assert.Equal(t, []arcir.VarId{proj1.Dst}, apply.Args)

	construct, ok := f.Blocks[0].Body[3].(*arcir.Construct)
	require.True(t, ok)
	ctor, ok := construct.Ctor.(arcir.CtorStruct)
	require.True(t, ok)
	assert.Equal(t, "Pair", names.Lookup(ctor.Name))
	assert.Equal(t, []arcir.VarId{apply.Dst, proj2.Dst}, construct.Args)

	ret, ok := f.Blocks[0].Terminator.(*arcir.Return)
	require.True(t, ok)
	assert.Equal(t, construct.Dst, ret.Value)
}

func TestBuildRejectsUnknownVariable(t *testing.T) {
	src := `
fn bad(x: str) -> str {
  b0:
    v1: str = project missing, 0
    return v1
}
`
	file, err := Parse("fixture.arc", src)
	require.NoError(t, err)

	_, err = Build(file, sig.NewInterner())
	assert.Error(t, err)
}

func TestBuildBranchAndJump(t *testing.T) {
	src := `
fn pick(c: bool) -> str {
  entry:
    branch c, then, els
  then:
    v1: str = let 1
    jump join(v1)
  els:
    v2: str = let 0
    jump join(v2)
  join:
    return v2
}
`
	file, err := Parse("fixture.arc", src)
	require.NoError(t, err)

	funcs, err := Build(file, sig.NewInterner())
	require.NoError(t, err)
	require.Len(t, funcs, 1)

	f := funcs[0]
	require.Len(t, f.Blocks, 4)

	branch, ok := f.Blocks[0].Terminator.(*arcir.Branch)
	require.True(t, ok)
	assert.Equal(t, f.Params[0].Var, branch.Cond)

	jumpThen, ok := f.Blocks[1].Terminator.(*arcir.Jump)
	require.True(t, ok)
	assert.Len(t, jumpThen.Args, 1)
}
