package fixture

import (
	"fmt"

	"oriarc/internal/arcir"
	"oriarc/internal/lower"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

// typeByName resolves a fixture type keyword to a pool index. Only the
// four built-in scalar/ref primitives StaticPool predefines are
// supported; a fixture needing a struct/list/map type must still name one
// of these as the element-level storage type (the fixture format has no
// struct-field-layout syntax of its own — lowering structural shape is
// the surface compiler's job, out of scope here per spec.md §1).
func typeByName(name string) (typepool.Idx, error) {
	switch name {
	case "int":
		return typepool.IdxInt, nil
	case "str":
		return typepool.IdxStr, nil
	case "bool":
		return typepool.IdxBool, nil
	case "unit":
		return typepool.IdxUnit, nil
	default:
		return 0, fmt.Errorf("fixture: unknown type %q", name)
	}
}

// Build lowers a parsed File into ARC functions ready for
// internal/pipeline, interning Apply/Construct target names into names.
func Build(file *File, names *sig.Interner) ([]*arcir.Function, error) {
	out := make([]*arcir.Function, 0, len(file.Functions))
	for _, fn := range file.Functions {
		f, err := buildFunction(fn, names)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func buildFunction(fn *Function, names *sig.Interner) (*arcir.Function, error) {
	b := lower.NewBuilder()
	vars := map[string]arcir.VarId{}
	blocks := map[string]arcir.BlockId{}

	var params []arcir.Param
	for _, p := range fn.Params {
		ty, err := typeByName(p.Type)
		if err != nil {
			return nil, err
		}
		v := b.FreshVar(ty)
		vars[p.Name] = v
		params = append(params, arcir.Param{Var: v, Type: ty, Ownership: sig.Owned})
	}

	returnType, err := typeByName(fn.ReturnType)
	if err != nil {
		return nil, err
	}

	// First pass: allocate a BlockId per label in source order, using the
	// builder's own block-allocation sequence so the entry block (fn.Blocks[0])
	// lands on BlockId 0.
	for i, blk := range fn.Blocks {
		if i == 0 {
			blocks[blk.Label] = b.EntryBlock()
			continue
		}
		blocks[blk.Label] = b.NewBlock()
	}

	lookupVar := func(name string) (arcir.VarId, error) {
		v, ok := vars[name]
		if !ok {
			return 0, fmt.Errorf("fixture: reference to undefined variable %q", name)
		}
		return v, nil
	}
	lookupVars := func(names []string) ([]arcir.VarId, error) {
		out := make([]arcir.VarId, 0, len(names))
		for _, n := range names {
			v, err := lookupVar(n)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	lookupBlock := func(label string) (arcir.BlockId, error) {
		id, ok := blocks[label]
		if !ok {
			return 0, fmt.Errorf("fixture: jump/branch to undefined block %q", label)
		}
		return id, nil
	}

	for _, blk := range fn.Blocks {
		b.PositionAt(blocks[blk.Label])

		for _, instr := range blk.Instrs {
			if err := buildInstr(b, instr, names, vars, lookupVar, lookupVars); err != nil {
				return nil, err
			}
		}

		if err := buildTerminator(b, blk.Term, lookupVar, lookupBlock); err != nil {
			return nil, err
		}
	}

	name := names.Intern(fn.Name)
	return b.Finish(name, params, returnType, b.EntryBlock(), nil), nil
}

func buildInstr(
	b *lower.Builder,
	instr *Instr,
	names *sig.Interner,
	vars map[string]arcir.VarId,
	lookupVar func(string) (arcir.VarId, error),
	lookupVars func([]string) ([]arcir.VarId, error),
) error {
	switch {
	case instr.Let != nil:
		in := instr.Let
		ty, err := typeByName(in.Type)
		if err != nil {
			return err
		}
		dst := b.EmitLet(ty, arcir.Literal{Lit: arcir.LitInt(in.Value)}, nil)
		vars[in.Dst] = dst

	case instr.Project != nil:
		in := instr.Project
		ty, err := typeByName(in.Type)
		if err != nil {
			return err
		}
		value, err := lookupVar(in.Value)
		if err != nil {
			return err
		}
		dst := b.EmitProject(ty, value, uint32(in.Field), nil)
		vars[in.Dst] = dst

	case instr.Apply != nil:
		in := instr.Apply
		ty, err := typeByName(in.Type)
		if err != nil {
			return err
		}
		args, err := lookupVars(in.Args)
		if err != nil {
			return err
		}
		dst := b.EmitApply(ty, names.Intern(in.Func), args, nil)
		vars[in.Dst] = dst

	case instr.Construct != nil:
		in := instr.Construct
		ty, err := typeByName(in.Type)
		if err != nil {
			return err
		}
		args, err := lookupVars(in.Args)
		if err != nil {
			return err
		}
		ctor := arcir.CtorStruct{Name: names.Intern(in.Ctor)}
		dst := b.EmitConstruct(ty, ctor, args, nil)
		vars[in.Dst] = dst

	case instr.RcInc != nil:
		v, err := lookupVar(instr.RcInc.Var)
		if err != nil {
			return err
		}
		b.EmitInstr(&arcir.RcInc{Var: v}, nil)

	case instr.RcDec != nil:
		v, err := lookupVar(instr.RcDec.Var)
		if err != nil {
			return err
		}
		b.EmitInstr(&arcir.RcDec{Var: v}, nil)

	default:
		return fmt.Errorf("fixture: instruction with no recognized alternative populated")
	}
	return nil
}

func buildTerminator(
	b *lower.Builder,
	term *Terminator,
	lookupVar func(string) (arcir.VarId, error),
	lookupBlock func(string) (arcir.BlockId, error),
) error {
	switch {
	case term.Return != nil:
		v, err := lookupVar(term.Return.Value)
		if err != nil {
			return err
		}
		b.TerminateReturn(v)

	case term.Jump != nil:
		target, err := lookupBlock(term.Jump.Target)
		if err != nil {
			return err
		}
		args, err := lookupVarsOrNil(term.Jump.Args, lookupVar)
		if err != nil {
			return err
		}
		b.TerminateJump(target, args)

	case term.Branch != nil:
		cond, err := lookupVar(term.Branch.Cond)
		if err != nil {
			return err
		}
		then, err := lookupBlock(term.Branch.Then)
		if err != nil {
			return err
		}
		els, err := lookupBlock(term.Branch.Else)
		if err != nil {
			return err
		}
		b.TerminateBranch(cond, then, els)

	default:
		return fmt.Errorf("fixture: terminator with no recognized alternative populated")
	}
	return nil
}

func lookupVarsOrNil(names []string, lookupVar func(string) (arcir.VarId, error)) ([]arcir.VarId, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]arcir.VarId, 0, len(names))
	for _, n := range names {
		v, err := lookupVar(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
