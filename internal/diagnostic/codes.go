package diagnostic

// Error codes for the ARC pipeline. These are internal-invariant
// violations: spec.md §7 lists the conditions below as "fatal, treated
// as compiler bugs" rather than user-facing diagnostics, but they still
// carry a stable code so tooling and tests can pattern-match on them the
// way the rest of the toolchain's codes work.
//
// Code ranges:
// A0001-A0099: SSA / IR well-formedness violations
// A0100-A0199: reset/reuse and RC-operation invariants
const (
	// A0001: a variable is assigned a Result() twice within the function.
	ErrorSSAViolation = "A0001"

	// A0002: a Jump target block's parameter count does not match the
	// number of arguments supplied at the jump.
	ErrorBlockArityMismatch = "A0002"

	// A0003: a terminator names a BlockId that has no corresponding block.
	ErrorUnknownBlock = "A0003"

	// A0100: a Reset or Reuse instruction survives past internal/expand.
	ErrorUnexpandedResetReuse = "A0100"

	// A0101: an RcInc or RcDec targets a variable classify reports Scalar.
	ErrorRCOnScalar = "A0101"

	// A0102: a type classifies as PossibleRef; only legal before
	// monomorphization, so any ARC run on finalized IR has hit a bug
	// upstream of this pipeline.
	ErrorPossibleRefPostMono = "A0102"
)

// Description returns a human-readable explanation of code.
func Description(code string) string {
	switch code {
	case ErrorSSAViolation:
		return "variable is defined more than once (SSA violated)"
	case ErrorBlockArityMismatch:
		return "jump argument count does not match the target block's parameter count"
	case ErrorUnknownBlock:
		return "terminator references a block id that does not exist in this function"
	case ErrorUnexpandedResetReuse:
		return "Reset or Reuse instruction remains after expansion"
	case ErrorRCOnScalar:
		return "RcInc or RcDec targets a Scalar-classified variable"
	case ErrorPossibleRefPostMono:
		return "PossibleRef classification encountered after monomorphization"
	default:
		return "unknown diagnostic code"
	}
}
