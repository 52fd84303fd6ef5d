// Package arcir is the ARC IR data model: functions, blocks, instructions,
// and terminators forming a basic-block SSA representation with block
// parameters standing in for phi nodes (spec.md §3.2).
//
// The arena style follows the teacher's kanso/internal/ir package (an
// Instruction interface implemented by many concrete structs, each exposing
// GetID/GetResult/GetOperands/GetBlock/IsTerminator) adapted to dense
// VarId/BlockId indices rather than owning pointers, per the original
// Rust ori_arc crate's arena-based design.
package arcir

import (
	"fmt"

	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

// VarId is a dense index identifying an SSA variable within a Function.
type VarId uint32

func (v VarId) String() string { return fmt.Sprintf("v%d", uint32(v)) }

// BlockId is a dense index identifying a basic block within a Function.
// Block 0 is always the entry.
type BlockId uint32

func (b BlockId) String() string { return fmt.Sprintf("b%d", uint32(b)) }

// Span is an optional source-location tag carried through lowering for
// diagnostics. The surface parser (an external collaborator, spec.md §1)
// owns real span construction; this is the shape the ARC core threads
// through unchanged.
type Span struct {
	Line, Col int
}

// Param is a function parameter: its variable, declared type, and ownership.
type Param struct {
	Var       VarId
	Type      typepool.Idx
	Ownership sig.Ownership
}

// BlockParam is one block parameter: a variable defined at block entry,
// replacing a phi node (spec.md §9).
type BlockParam struct {
	Var  VarId
	Type typepool.Idx
}

// Function is the top-level ARC IR unit (spec.md §3.2).
type Function struct {
	Name       sig.Name
	Params     []Param
	ReturnType typepool.Idx
	Blocks     []*Block
	Entry      BlockId
	VarTypes   []typepool.Idx
	Spans      [][]*Span // per block, one slot per body instruction
}

// TypeOf returns the declared type of v, looked up from VarTypes.
func (f *Function) TypeOf(v VarId) typepool.Idx {
	return f.VarTypes[v]
}

// Block looks up a block by id.
func (f *Function) Block(id BlockId) *Block {
	return f.Blocks[id]
}

// FreshVar allocates a new VarId of the given type, appending to VarTypes.
// Used by passes that introduce new variables after lowering (reset/reuse
// tokens, expansion's fast/slow-path temporaries).
func (f *Function) FreshVar(ty typepool.Idx) VarId {
	id := VarId(len(f.VarTypes))
	f.VarTypes = append(f.VarTypes, ty)
	return id
}

// NewBlock appends a fresh, empty block (terminated Unreachable until the
// caller fills it in) and returns its id. Used by internal/expand to
// materialize the fast/slow/merge blocks a Reset/Reuse pair expands into.
func (f *Function) NewBlock() BlockId {
	id := BlockId(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{ID: id, Terminator: &Unreachable{}})
	f.Spans = append(f.Spans, nil)
	return id
}

// Clone returns a deep-enough copy of f suitable for the pipeline's
// round-trip/idempotence tests (spec.md §8, properties 8–9): every Block
// and its Params/Body slices are copied, as are Params, VarTypes, and
// Spans, so adding, removing, or replacing instructions, terminators, or
// blocks in the clone never affects the original. The Instruction and
// Terminator values themselves are shared, not copied: mutating one in
// place is visible through both functions.
func (f *Function) Clone() *Function {
	out := &Function{
		Name:       f.Name,
		Params:     append([]Param(nil), f.Params...),
		ReturnType: f.ReturnType,
		Entry:      f.Entry,
		VarTypes:   append([]typepool.Idx(nil), f.VarTypes...),
	}
	out.Blocks = make([]*Block, len(f.Blocks))
	for i, b := range f.Blocks {
		out.Blocks[i] = b.clone()
	}
	out.Spans = make([][]*Span, len(f.Spans))
	for i, s := range f.Spans {
		out.Spans[i] = append([]*Span(nil), s...)
	}
	return out
}

// Block is a maximal straight-line instruction sequence ending in exactly
// one terminator.
type Block struct {
	ID         BlockId
	Params     []BlockParam
	Body       []Instruction
	Terminator Terminator
}

func (b *Block) clone() *Block {
	return &Block{
		ID:         b.ID,
		Params:     append([]BlockParam(nil), b.Params...),
		Body:       append([]Instruction(nil), b.Body...),
		Terminator: b.Terminator,
	}
}

// Instruction is a single linear (non-terminating) operation within a
// block's body.
type Instruction interface {
	// Result returns the variable this instruction defines, or (0, false)
	// for instructions with no result (RcInc/RcDec).
	Result() (VarId, bool)
	// Operands returns every VarId this instruction reads.
	Operands() []VarId
	String() string
}

// Terminator ends a block and names its successor blocks.
type Terminator interface {
	// Successors returns every BlockId this terminator may transfer to.
	Successors() []BlockId
	// Operands returns every VarId this terminator reads, including
	// any jump/branch arguments passed to successor block parameters.
	Operands() []VarId
	String() string
}

// Value is the right-hand side of a Let instruction: a literal, a bare
// variable alias, a primitive operation, or a partial application
// (spec.md §3.2, "Let(dst, τ, value)").
type Value interface {
	isValue()
	Operands() []VarId
	String() string
}

// Literal wraps a compile-time constant.
type Literal struct{ Lit LitValue }

func (Literal) isValue()              {}
func (l Literal) Operands() []VarId   { return nil }
func (l Literal) String() string      { return l.Lit.String() }

// VarRef aliases an existing variable (`let y = x`).
type VarRef struct{ Var VarId }

func (VarRef) isValue()            {}
func (r VarRef) Operands() []VarId { return []VarId{r.Var} }
func (r VarRef) String() string    { return r.Var.String() }

// PrimOpValue applies a built-in scalar/string primitive to its operands.
type PrimOpValue struct {
	Op   PrimOp
	Args []VarId
}

func (PrimOpValue) isValue()              {}
func (p PrimOpValue) Operands() []VarId   { return p.Args }
func (p PrimOpValue) String() string      { return fmt.Sprintf("%s%v", p.Op, p.Args) }

// PartialApply partially applies a known function to a prefix of its
// arguments, producing a closure value.
type PartialApply struct {
	Func sig.Name
	Args []VarId
}

func (PartialApply) isValue()            {}
func (p PartialApply) Operands() []VarId { return p.Args }
func (p PartialApply) String() string    { return fmt.Sprintf("partial(%v,%v)", p.Func, p.Args) }

// PrimOp enumerates the built-in scalar/string primitive operations a Let
// may bind.
type PrimOp int

const (
	PrimAdd PrimOp = iota
	PrimSub
	PrimMul
	PrimDiv
	PrimEq
	PrimLt
	PrimNot
	PrimConcat
	// PrimTokenValid tests whether a reset/reuse token is non-null,
	// synthesized by internal/expand when lowering a Reset/Reuse pair
	// into explicit fast/slow control flow (spec.md §4.H).
	PrimTokenValid
)

func (p PrimOp) String() string {
	switch p {
	case PrimAdd:
		return "add"
	case PrimSub:
		return "sub"
	case PrimMul:
		return "mul"
	case PrimDiv:
		return "div"
	case PrimEq:
		return "eq"
	case PrimLt:
		return "lt"
	case PrimNot:
		return "not"
	case PrimConcat:
		return "concat"
	default:
		return "prim?"
	}
}

// LitValue is the sum type of literal constants Let/Literal can bind.
type LitValue interface {
	isLit()
	String() string
}

type LitInt int64
type LitFloat float64
type LitBool bool
type LitChar rune
type LitByte byte
type LitString string
type LitUnit struct{}

func (LitInt) isLit()    {}
func (LitFloat) isLit()  {}
func (LitBool) isLit()   {}
func (LitChar) isLit()   {}
func (LitByte) isLit()   {}
func (LitString) isLit() {}
func (LitUnit) isLit()   {}

func (l LitInt) String() string    { return fmt.Sprintf("%d", int64(l)) }
func (l LitFloat) String() string  { return fmt.Sprintf("%g", float64(l)) }
func (l LitBool) String() string   { return fmt.Sprintf("%t", bool(l)) }
func (l LitChar) String() string   { return fmt.Sprintf("%q", rune(l)) }
func (l LitByte) String() string   { return fmt.Sprintf("%#x", byte(l)) }
func (l LitString) String() string { return fmt.Sprintf("%q", string(l)) }
func (LitUnit) String() string     { return "()" }

// CtorKind names which allocating shape a Construct/Reuse initializes
// (spec.md §3.2, "tuple / list literal / map literal / struct / enum
// variant").
type CtorKind interface {
	isCtor()
	String() string
}

type CtorTuple struct{}
type CtorList struct{}
type CtorMap struct{}
type CtorSet struct{}
type CtorStruct struct{ Name sig.Name }
type CtorEnum struct {
	Name    sig.Name
	Variant uint32
}

func (CtorTuple) isCtor()  {}
func (CtorList) isCtor()   {}
func (CtorMap) isCtor()    {}
func (CtorSet) isCtor()    {}
func (CtorStruct) isCtor() {}
func (CtorEnum) isCtor()   {}

func (CtorTuple) String() string    { return "Tuple" }
func (CtorList) String() string     { return "List" }
func (CtorMap) String() string      { return "Map" }
func (CtorSet) String() string      { return "Set" }
func (c CtorStruct) String() string { return fmt.Sprintf("Struct#%d", c.Name) }
func (c CtorEnum) String() string   { return fmt.Sprintf("Enum#%d.%d", c.Name, c.Variant) }

// --- Instructions ---

// Let binds dst to a literal, variable alias, primitive op, or partial
// application.
type Let struct {
	Dst   VarId
	Type  typepool.Idx
	Value Value
}

func (l *Let) Result() (VarId, bool) { return l.Dst, true }
func (l *Let) Operands() []VarId     { return l.Value.Operands() }
func (l *Let) String() string        { return fmt.Sprintf("%s = let %s", l.Dst, l.Value) }

// Apply directly calls a known function by name.
type Apply struct {
	Dst  VarId
	Type typepool.Idx
	Func sig.Name
	Args []VarId
}

func (a *Apply) Result() (VarId, bool) { return a.Dst, true }
func (a *Apply) Operands() []VarId     { return a.Args }
func (a *Apply) String() string        { return fmt.Sprintf("%s = apply %v%v", a.Dst, a.Func, a.Args) }

// ApplyIndirect calls through a closure value.
type ApplyIndirect struct {
	Dst     VarId
	Type    typepool.Idx
	Closure VarId
	Args    []VarId
}

func (a *ApplyIndirect) Result() (VarId, bool) { return a.Dst, true }
func (a *ApplyIndirect) Operands() []VarId {
	return append([]VarId{a.Closure}, a.Args...)
}
func (a *ApplyIndirect) String() string {
	return fmt.Sprintf("%s = apply_indirect %s%v", a.Dst, a.Closure, a.Args)
}

// Construct allocates and initializes a fresh value.
type Construct struct {
	Dst  VarId
	Type typepool.Idx
	Ctor CtorKind
	Args []VarId
}

func (c *Construct) Result() (VarId, bool) { return c.Dst, true }
func (c *Construct) Operands() []VarId     { return c.Args }
func (c *Construct) String() string {
	return fmt.Sprintf("%s = construct %s%v", c.Dst, c.Ctor, c.Args)
}

// Project reads one field of a product/sum value.
type Project struct {
	Dst   VarId
	Type  typepool.Idx
	Value VarId
	Field uint32
}

func (p *Project) Result() (VarId, bool) { return p.Dst, true }
func (p *Project) Operands() []VarId     { return []VarId{p.Value} }
func (p *Project) String() string {
	return fmt.Sprintf("%s = project %s.%d", p.Dst, p.Value, p.Field)
}

// RcInc increments the refcount of v.
type RcInc struct{ Var VarId }

func (RcInc) Result() (VarId, bool) { return 0, false }
func (r *RcInc) Operands() []VarId  { return []VarId{r.Var} }
func (r *RcInc) String() string     { return fmt.Sprintf("rc_inc %s", r.Var) }

// RcDec decrements the refcount of v; frees it if it reaches zero.
type RcDec struct{ Var VarId }

func (RcDec) Result() (VarId, bool) { return 0, false }
func (r *RcDec) Operands() []VarId  { return []VarId{r.Var} }
func (r *RcDec) String() string     { return fmt.Sprintf("rc_dec %s", r.Var) }

// Reset decrements v and, if it was unique, yields token as a reusable
// memory handle; otherwise token carries a null marker at runtime.
type Reset struct {
	Var   VarId
	Token VarId
}

func (Reset) Result() (VarId, bool) { return 0, false }
func (r *Reset) Operands() []VarId  { return []VarId{r.Var} }
func (r *Reset) String() string     { return fmt.Sprintf("reset %s -> %s", r.Var, r.Token) }

// Reuse reinitializes token's memory in place if non-null, otherwise
// allocates fresh memory, producing dst.
type Reuse struct {
	Token VarId
	Dst   VarId
	Type  typepool.Idx
	Ctor  CtorKind
	Args  []VarId
}

func (r *Reuse) Result() (VarId, bool) { return r.Dst, true }
func (r *Reuse) Operands() []VarId {
	return append([]VarId{r.Token}, r.Args...)
}
func (r *Reuse) String() string {
	return fmt.Sprintf("%s = reuse(%s) %s%v", r.Dst, r.Token, r.Ctor, r.Args)
}

// ConstructInPlace reinitializes token's existing memory with a fresh
// value's fields rather than allocating new storage. internal/expand emits
// this only on the fast (uniquely-owned) path of a Reset/Reuse expansion;
// it never appears before expansion runs (spec.md §4.H).
type ConstructInPlace struct {
	Dst   VarId
	Type  typepool.Idx
	Token VarId
	Ctor  CtorKind
	Args  []VarId
}

func (c *ConstructInPlace) Result() (VarId, bool) { return c.Dst, true }
func (c *ConstructInPlace) Operands() []VarId {
	return append([]VarId{c.Token}, c.Args...)
}
func (c *ConstructInPlace) String() string {
	return fmt.Sprintf("%s = construct_in_place(%s) %s%v", c.Dst, c.Token, c.Ctor, c.Args)
}

// DecRefTest decrements nothing itself; it tests whether v's refcount is
// exactly one and, if so, binds token to a handle on v's memory for in-place
// reuse, else binds token to a null marker. This is the lowered realization
// of Reset's "decrement and maybe yield" semantics once expansion has made
// the uniqueness test an explicit branch: the actual release of a
// non-reusable v happens via an ordinary RcDec on the slow path, since the
// fast path's ConstructInPlace takes over v's single reference directly.
type DecRefTest struct {
	Var   VarId
	Token VarId
}

func (DecRefTest) Result() (VarId, bool) { return 0, false }
func (d *DecRefTest) Operands() []VarId  { return []VarId{d.Var} }
func (d *DecRefTest) String() string     { return fmt.Sprintf("dec_ref_test %s -> %s", d.Var, d.Token) }

// --- Terminators ---

// Return exits the function with value.
type Return struct{ Value VarId }

func (r *Return) Successors() []BlockId { return nil }
func (r *Return) Operands() []VarId     { return []VarId{r.Value} }
func (r *Return) String() string        { return fmt.Sprintf("return %s", r.Value) }

// Jump unconditionally transfers to target, passing args for its block
// parameters.
type Jump struct {
	Target BlockId
	Args   []VarId
}

func (j *Jump) Successors() []BlockId { return []BlockId{j.Target} }
func (j *Jump) Operands() []VarId     { return j.Args }
func (j *Jump) String() string        { return fmt.Sprintf("jump %s%v", j.Target, j.Args) }

// Branch transfers to then or else based on cond.
type Branch struct {
	Cond VarId
	Then BlockId
	Else BlockId
}

func (b *Branch) Successors() []BlockId { return []BlockId{b.Then, b.Else} }
func (b *Branch) Operands() []VarId     { return []VarId{b.Cond} }
func (b *Branch) String() string {
	return fmt.Sprintf("branch %s ? %s : %s", b.Cond, b.Then, b.Else)
}

// SwitchCase is one (tag, target) arm of a Switch.
type SwitchCase struct {
	Tag    uint64
	Target BlockId
}

// Switch transfers control based on the scrutinee's discriminant tag.
type Switch struct {
	Scrutinee VarId
	Cases     []SwitchCase
	Default   BlockId
}

func (s *Switch) Successors() []BlockId {
	out := make([]BlockId, 0, len(s.Cases)+1)
	for _, c := range s.Cases {
		out = append(out, c.Target)
	}
	return append(out, s.Default)
}
func (s *Switch) Operands() []VarId { return []VarId{s.Scrutinee} }
func (s *Switch) String() string    { return fmt.Sprintf("switch %s%v else %s", s.Scrutinee, s.Cases, s.Default) }

// Invoke calls a function that may unwind: dst is defined at normal's
// entry; unwind receives control if the callee panics.
type Invoke struct {
	Dst    VarId
	Type   typepool.Idx
	Func   sig.Name
	Args   []VarId
	Normal BlockId
	Unwind BlockId
}

func (i *Invoke) Successors() []BlockId { return []BlockId{i.Normal, i.Unwind} }
func (i *Invoke) Operands() []VarId     { return i.Args }
func (i *Invoke) String() string {
	return fmt.Sprintf("%s = invoke %v%v normal %s unwind %s", i.Dst, i.Func, i.Args, i.Normal, i.Unwind)
}

// Resume re-raises an unwinding panic; used only in unwind blocks.
type Resume struct{}

func (Resume) Successors() []BlockId { return nil }
func (Resume) Operands() []VarId     { return nil }
func (Resume) String() string        { return "resume" }

// Unreachable marks a block the lowerer proved (or assumed after a
// diagnostic) can never execute.
type Unreachable struct{}

func (Unreachable) Successors() []BlockId { return nil }
func (Unreachable) Operands() []VarId     { return nil }
func (Unreachable) String() string        { return "unreachable" }

var (
	_ Instruction = (*Let)(nil)
	_ Instruction = (*Apply)(nil)
	_ Instruction = (*ApplyIndirect)(nil)
	_ Instruction = (*Construct)(nil)
	_ Instruction = (*Project)(nil)
	_ Instruction = (*RcInc)(nil)
	_ Instruction = (*RcDec)(nil)
	_ Instruction = (*Reset)(nil)
	_ Instruction = (*Reuse)(nil)
	_ Instruction = (*ConstructInPlace)(nil)
	_ Instruction = (*DecRefTest)(nil)

	_ Terminator = (*Return)(nil)
	_ Terminator = (*Jump)(nil)
	_ Terminator = (*Branch)(nil)
	_ Terminator = (*Switch)(nil)
	_ Terminator = (*Invoke)(nil)
	_ Terminator = (*Resume)(nil)
	_ Terminator = (*Unreachable)(nil)
)
