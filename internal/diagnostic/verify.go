package diagnostic

import (
	"oriarc/internal/arcir"
	"oriarc/internal/classify"
)

// Verify checks f against the internal invariants spec.md §7 calls fatal
// compiler bugs, returning every violation found (nil if none). expanded
// tells whether f has already been through internal/expand: the
// Reset/Reuse-survives check only applies once expansion is supposed to
// have removed them.
func Verify(f *arcir.Function, classifier classify.Classification, expanded bool) []Problem {
	var problems []Problem

	blockIndex := make(map[arcir.BlockId]int, len(f.Blocks))
	for i, b := range f.Blocks {
		blockIndex[b.ID] = i
	}

	defined := make(map[arcir.VarId]bool)
	markDefined := func(loc Location, v arcir.VarId) {
		if defined[v] {
			problems = append(problems, Problem{
				Code:     ErrorSSAViolation,
				Message:  "variable is assigned more than once",
				Location: loc,
				Notes:    []string{"every ARC IR variable must have exactly one defining instruction or block parameter"},
			})
			return
		}
		defined[v] = true
	}

	for _, p := range f.Params {
		markDefined(Location{Function: f.Name, Block: int(f.Entry), Index: -1}, p.Var)
	}

	for bi, b := range f.Blocks {
		for _, p := range b.Params {
			markDefined(Location{Function: f.Name, Block: bi, Index: -1}, p.Var)
		}

		for idx, instr := range b.Body {
			loc := Location{Function: f.Name, Block: bi, Index: idx}

			if dst, ok := instr.Result(); ok {
				markDefined(loc, dst)
			}

			switch in := instr.(type) {
			case *arcir.Reset:
				if expanded {
					problems = append(problems, Problem{
						Code:     ErrorUnexpandedResetReuse,
						Message:  "Reset instruction survives past expansion",
						Location: loc,
					})
				}
			case *arcir.Reuse:
				if expanded {
					problems = append(problems, Problem{
						Code:     ErrorUnexpandedResetReuse,
						Message:  "Reuse instruction survives past expansion",
						Location: loc,
					})
				}
			case *arcir.RcInc:
				checkRCOnScalar(&problems, f, classifier, loc, "RcInc", in.Var)
			case *arcir.RcDec:
				checkRCOnScalar(&problems, f, classifier, loc, "RcDec", in.Var)
			}
		}

		termLoc := Location{Function: f.Name, Block: bi, Index: -1}
		checkTerminator(&problems, f, blockIndex, termLoc, b.Terminator)
	}

	for v := 0; v < len(f.VarTypes); v++ {
		if classifier.Class(f.VarTypes[v]) == classify.PossibleRef {
			problems = append(problems, Problem{
				Code:     ErrorPossibleRefPostMono,
				Message:  "variable classifies as PossibleRef",
				Location: Location{Function: f.Name, Block: int(f.Entry), Index: -1},
				Notes:    []string{"PossibleRef must not appear once monomorphization has resolved all type variables"},
			})
		}
	}

	return problems
}

func checkRCOnScalar(problems *[]Problem, f *arcir.Function, classifier classify.Classification, loc Location, op string, v arcir.VarId) {
	if classifier.Class(f.TypeOf(v)) == classify.Scalar {
		*problems = append(*problems, Problem{
			Code:     ErrorRCOnScalar,
			Message:  op + " targets a Scalar-classified variable",
			Location: loc,
		})
	}
}

func checkTerminator(problems *[]Problem, f *arcir.Function, blockIndex map[arcir.BlockId]int, loc Location, term arcir.Terminator) {
	for _, target := range term.Successors() {
		if _, ok := blockIndex[target]; !ok {
			*problems = append(*problems, Problem{
				Code:     ErrorUnknownBlock,
				Message:  "terminator references a block id that does not exist",
				Location: loc,
			})
			continue
		}
		checkArity(problems, f, loc, term, target)
	}
}

func checkArity(problems *[]Problem, f *arcir.Function, loc Location, term arcir.Terminator, target arcir.BlockId) {
	var args []arcir.VarId
	switch t := term.(type) {
	case *arcir.Jump:
		args = t.Args
	default:
		return
	}
	targetBlock := f.Block(target)
	if len(args) != len(targetBlock.Params) {
		*problems = append(*problems, Problem{
			Code:     ErrorBlockArityMismatch,
			Message:  "jump argument count does not match target block's parameter count",
			Location: loc,
		})
	}
}
