// Package ownership infers per-parameter and per-local ownership
// (spec.md §4.E): whether a variable's single reference is Owned (this
// function must release it) or Borrowed (the caller retains ownership).
package ownership

import (
	"oriarc/internal/arcir"
	"oriarc/internal/sig"
)

// Derived is the per-variable ownership map for one function, extending
// the parameter-level Ownership annotations to every local
// (spec.md §3.3, "DerivedOwnership").
type Derived map[arcir.VarId]sig.Ownership

// Of returns v's derived ownership, defaulting to Owned for variables not
// explicitly classified (conservative: an unclassified Owned value still
// gets cleaned up; an unclassified Borrowed value merely forgoes an
// optimization).
func (d Derived) Of(v arcir.VarId) sig.Ownership {
	if o, ok := d[v]; ok {
		return o
	}
	return sig.Owned
}

// InferBorrows determines, for each Owned parameter of f, whether the body
// consumes it anywhere (passes it to a callee expecting Owned, stores it
// into a constructor, or returns it). A parameter consumed nowhere is
// downgraded to Borrowed (spec.md §4.E, infer_borrows). Consumption is not
// checked path by path: a parameter consumed on at least one path stays
// Owned even if other paths never consume it.
//
// sigs supplies each callee's AnnotatedSig so a call site's argument
// ownership expectation can be read back; the whole-program fixpoint over
// sigs itself is the batch driver's responsibility (internal/pipeline),
// not this per-function pass.
func InferBorrows(f *arcir.Function, sigs sig.SigTable) []sig.Ownership {
	out := make([]sig.Ownership, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Ownership
	}

	consumed := consumedVars(f, sigs)

	for i, p := range f.Params {
		if p.Ownership != sig.Owned {
			continue
		}
		if !consumed[p.Var] {
			out[i] = sig.Borrowed
		}
	}
	return out
}

// consumedVars returns the set of variables that are consumed somewhere
// in f: passed as an Owned argument to a known-Owned callee parameter,
// used as a Construct argument, or returned.
func consumedVars(f *arcir.Function, sigs sig.SigTable) map[arcir.VarId]bool {
	consumed := map[arcir.VarId]bool{}

	markOwnedArgs := func(callee sig.Name, args []arcir.VarId) {
		asig, ok := sigs[callee]
		if !ok {
			// Unknown callee signature: conservatively assume every
			// argument is consumed, since under-consuming could cause a
			// use-after-free if the callee actually is Owned.
			for _, a := range args {
				consumed[a] = true
			}
			return
		}
		for i, a := range args {
			if i < len(asig.Params) && asig.Params[i] == sig.Owned {
				consumed[a] = true
			}
		}
	}

	for _, b := range f.Blocks {
		for _, instr := range b.Body {
			switch in := instr.(type) {
			case *arcir.Apply:
				markOwnedArgs(in.Func, in.Args)
			case *arcir.ApplyIndirect:
				// Closure-body ownership is not visible to the ARC core
				// (spec.md §9 decision): conservatively treat every
				// argument as consumed.
				for _, a := range in.Args {
					consumed[a] = true
				}
			case *arcir.Construct:
				for _, a := range in.Args {
					consumed[a] = true
				}
			}
		}
		if inv, ok := b.Terminator.(*arcir.Invoke); ok {
			markOwnedArgs(inv.Func, inv.Args)
		}
		if ret, ok := b.Terminator.(*arcir.Return); ok {
			consumed[ret.Value] = true
		}
	}
	return consumed
}

// InferDerivedOwnership extends the parameter-level ownership (refined by
// InferBorrows) to every local in f (spec.md §4.E, infer_derived_ownership):
// a Construct's result is Owned; a Project's result inherits its parent's
// ownership; an Apply's result inherits the callee's return ownership.
func InferDerivedOwnership(f *arcir.Function, sigs sig.SigTable) Derived {
	refinedParams := InferBorrows(f, sigs)

	d := make(Derived, len(f.VarTypes))
	for i, p := range f.Params {
		d[p.Var] = refinedParams[i]
	}

	for _, b := range f.Blocks {
		for _, p := range b.Params {
			// Block parameters merge values from multiple predecessors;
			// default to Owned (conservative: ensures cleanup happens).
			if _, ok := d[p.Var]; !ok {
				d[p.Var] = sig.Owned
			}
		}
		for _, instr := range b.Body {
			switch in := instr.(type) {
			case *arcir.Construct:
				d[in.Dst] = sig.Owned
			case *arcir.Reuse:
				d[in.Dst] = sig.Owned
			case *arcir.Project:
				d[in.Dst] = d.Of(in.Value)
			case *arcir.Apply:
				if asig, ok := sigs[in.Func]; ok {
					d[in.Dst] = asig.Return
				} else {
					d[in.Dst] = sig.Owned
				}
			case *arcir.ApplyIndirect:
				d[in.Dst] = sig.Owned
			case *arcir.Let:
				if ref, ok := in.Value.(arcir.VarRef); ok {
					d[in.Dst] = d.Of(ref.Var)
				} else {
					d[in.Dst] = sig.Owned
				}
			}
		}
		if inv, ok := b.Terminator.(*arcir.Invoke); ok {
			if asig, ok := sigs[inv.Func]; ok {
				d[inv.Dst] = asig.Return
			} else {
				d[inv.Dst] = sig.Owned
			}
		}
	}

	return d
}

// ApplyBorrows rewrites each function's parameter list in place to reflect
// inferred ownership (spec.md §4.E, apply_borrows). This is the batch
// entry point run before the per-function pipeline.
func ApplyBorrows(functions []*arcir.Function, sigs sig.SigTable) {
	for _, f := range functions {
		refined := InferBorrows(f, sigs)
		for i := range f.Params {
			f.Params[i].Ownership = refined[i]
		}
	}
}
