// Package lower builds arcir.Function values with an explicit
// "position at a block, emit instructions, terminate" builder, the same
// shape as the teacher's internal/ir.Builder and the original ori_arc
// crate's ArcIrBuilder (spec.md §4.B).
//
// The real AST→ARC lowering pass walks a typed expression tree owned by
// the type checker (an external collaborator, spec.md §1). That tree is
// not part of this repo's scope; Builder is the reusable half of lowering
// that the rest of the pipeline, the CLI's fixture parser, and tests all
// build functions with.
package lower

import (
	"oriarc/internal/arcir"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

type blockBuilder struct {
	id         arcir.BlockId
	params     []arcir.BlockParam
	body       []arcir.Instruction
	spans      []*arcir.Span
	terminator arcir.Terminator
}

// Builder is an in-progress ARC IR function. Owns block and variable state
// until consumed by Finish.
type Builder struct {
	blocks  []*blockBuilder
	current arcir.BlockId
	varTys  []typepool.Idx
}

// NewBuilder creates a builder with an entry block already allocated.
func NewBuilder() *Builder {
	return &Builder{
		blocks:  []*blockBuilder{{id: 0}},
		current: 0,
	}
}

// NewBlock allocates a new empty block and returns its id.
func (b *Builder) NewBlock() arcir.BlockId {
	id := arcir.BlockId(len(b.blocks))
	b.blocks = append(b.blocks, &blockBuilder{id: id})
	return id
}

// PositionAt sets the insertion point to block.
func (b *Builder) PositionAt(block arcir.BlockId) { b.current = block }

// CurrentBlock returns the block currently being built.
func (b *Builder) CurrentBlock() arcir.BlockId { return b.current }

// IsTerminated reports whether the current block already has a terminator.
func (b *Builder) IsTerminated() bool {
	return b.blocks[b.current].terminator != nil
}

// EntryBlock returns the entry block id (always 0).
func (b *Builder) EntryBlock() arcir.BlockId { return 0 }

// FreshVar allocates a variable of type ty.
func (b *Builder) FreshVar(ty typepool.Idx) arcir.VarId {
	id := arcir.VarId(len(b.varTys))
	b.varTys = append(b.varTys, ty)
	return id
}

// AddBlockParam adds a parameter of type ty to block and returns its
// bound variable.
func (b *Builder) AddBlockParam(block arcir.BlockId, ty typepool.Idx) arcir.VarId {
	v := b.FreshVar(ty)
	bb := b.blocks[block]
	bb.params = append(bb.params, arcir.BlockParam{Var: v, Type: ty})
	return v
}

func (b *Builder) cur() *blockBuilder { return b.blocks[b.current] }

// EmitLet emits a Let instruction, returning its result variable.
func (b *Builder) EmitLet(ty typepool.Idx, value arcir.Value, span *arcir.Span) arcir.VarId {
	dst := b.FreshVar(ty)
	bb := b.cur()
	bb.body = append(bb.body, &arcir.Let{Dst: dst, Type: ty, Value: value})
	bb.spans = append(bb.spans, span)
	return dst
}

// EmitApply emits a direct call instruction.
func (b *Builder) EmitApply(ty typepool.Idx, f sig.Name, args []arcir.VarId, span *arcir.Span) arcir.VarId {
	dst := b.FreshVar(ty)
	bb := b.cur()
	bb.body = append(bb.body, &arcir.Apply{Dst: dst, Type: ty, Func: f, Args: args})
	bb.spans = append(bb.spans, span)
	return dst
}

// EmitApplyIndirect emits a closure-call instruction.
func (b *Builder) EmitApplyIndirect(ty typepool.Idx, closure arcir.VarId, args []arcir.VarId, span *arcir.Span) arcir.VarId {
	dst := b.FreshVar(ty)
	bb := b.cur()
	bb.body = append(bb.body, &arcir.ApplyIndirect{Dst: dst, Type: ty, Closure: closure, Args: args})
	bb.spans = append(bb.spans, span)
	return dst
}

// EmitConstruct emits a Construct instruction.
func (b *Builder) EmitConstruct(ty typepool.Idx, ctor arcir.CtorKind, args []arcir.VarId, span *arcir.Span) arcir.VarId {
	dst := b.FreshVar(ty)
	bb := b.cur()
	bb.body = append(bb.body, &arcir.Construct{Dst: dst, Type: ty, Ctor: ctor, Args: args})
	bb.spans = append(bb.spans, span)
	return dst
}

// EmitProject emits a field-read instruction.
func (b *Builder) EmitProject(ty typepool.Idx, value arcir.VarId, field uint32, span *arcir.Span) arcir.VarId {
	dst := b.FreshVar(ty)
	bb := b.cur()
	bb.body = append(bb.body, &arcir.Project{Dst: dst, Type: ty, Value: value, Field: field})
	bb.spans = append(bb.spans, span)
	return dst
}

// EmitInstr appends instr as-is to the current block's body, for
// instruction kinds the builder has no dedicated Emit method for (e.g.
// RcInc/RcDec, or Reset/Reuse when a caller wants to hand-place them
// rather than let internal/reuse discover the pattern).
func (b *Builder) EmitInstr(instr arcir.Instruction, span *arcir.Span) {
	bb := b.cur()
	bb.body = append(bb.body, instr)
	bb.spans = append(bb.spans, span)
}

// EmitInvoke terminates the current block with Invoke, automatically
// creating the normal continuation block and the unwind cleanup block
// (initially just Resume; internal/rcinsert fills in cleanup decs later).
// Positions the builder at the normal block on return.
func (b *Builder) EmitInvoke(ty typepool.Idx, f sig.Name, args []arcir.VarId) arcir.VarId {
	dst := b.FreshVar(ty)
	normal := b.NewBlock()
	unwind := b.NewBlock()

	b.TerminateInvoke(dst, ty, f, args, normal, unwind)

	b.PositionAt(unwind)
	b.TerminateResume()

	b.PositionAt(normal)
	return dst
}

func (b *Builder) terminate(t arcir.Terminator) {
	bb := b.cur()
	if bb.terminator != nil {
		panic("lower: block already terminated")
	}
	bb.terminator = t
}

// TerminateReturn terminates the current block with Return.
func (b *Builder) TerminateReturn(value arcir.VarId) { b.terminate(&arcir.Return{Value: value}) }

// TerminateJump terminates the current block with an unconditional Jump.
func (b *Builder) TerminateJump(target arcir.BlockId, args []arcir.VarId) {
	b.terminate(&arcir.Jump{Target: target, Args: args})
}

// TerminateBranch terminates the current block with a conditional Branch.
func (b *Builder) TerminateBranch(cond arcir.VarId, then, els arcir.BlockId) {
	b.terminate(&arcir.Branch{Cond: cond, Then: then, Else: els})
}

// TerminateSwitch terminates the current block with a multi-way Switch.
func (b *Builder) TerminateSwitch(scrutinee arcir.VarId, cases []arcir.SwitchCase, def arcir.BlockId) {
	b.terminate(&arcir.Switch{Scrutinee: scrutinee, Cases: cases, Default: def})
}

// TerminateInvoke terminates the current block with Invoke.
func (b *Builder) TerminateInvoke(dst arcir.VarId, ty typepool.Idx, f sig.Name, args []arcir.VarId, normal, unwind arcir.BlockId) {
	b.terminate(&arcir.Invoke{Dst: dst, Type: ty, Func: f, Args: args, Normal: normal, Unwind: unwind})
}

// TerminateResume terminates the current block with Resume.
func (b *Builder) TerminateResume() { b.terminate(&arcir.Resume{}) }

// TerminateUnreachable terminates the current block with Unreachable.
func (b *Builder) TerminateUnreachable() { b.terminate(&arcir.Unreachable{}) }

// Finish consumes the builder and produces a finished Function. Any block
// still missing a terminator is closed with Unreachable and reported via
// warnOnUnterminated (spec.md §4.B, §7).
func (b *Builder) Finish(name sig.Name, params []arcir.Param, returnType typepool.Idx, entry arcir.BlockId, warnOnUnterminated func(blockID arcir.BlockId)) *arcir.Function {
	blocks := make([]*arcir.Block, len(b.blocks))
	spans := make([][]*arcir.Span, len(b.blocks))

	for i, bb := range b.blocks {
		if bb.terminator == nil {
			if warnOnUnterminated != nil {
				warnOnUnterminated(bb.id)
			}
			bb.terminator = &arcir.Unreachable{}
		}
		blocks[i] = &arcir.Block{
			ID:         bb.id,
			Params:     bb.params,
			Body:       bb.body,
			Terminator: bb.terminator,
		}
		spans[i] = bb.spans
	}

	return &arcir.Function{
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Blocks:     blocks,
		Entry:      entry,
		VarTypes:   b.varTys,
		Spans:      spans,
	}
}
