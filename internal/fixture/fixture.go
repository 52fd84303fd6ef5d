// Package fixture parses the small textual ARC IR format cmd/arcc accepts
// as input, since the real surface-language parser and type checker are
// out of this repo's scope (spec.md §1). Grammar style (participle struct
// tags driving a stateful lexer) follows the teacher's grammar package;
// the vocabulary itself is this repo's own, since the teacher has no
// notion of an ARC IR text format to port.
//
// Concrete syntax:
//
//	fn foo(x: str) -> str {
//	  b0:
//	    v1: str = project x, 0
//	    v2: str = project x, 1
//	    v3: str = apply transform(v1)
//	    v4: str = construct Pair(v3, v2)
//	    return v4
//	}
package fixture

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var arcLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"Arrow", `->`, nil},
		{"Punct", `[{}()\[\]:,=]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// File is the top-level parse result: a sequence of function definitions.
type File struct {
	Functions []*Function `@@*`
}

// Function is one ARC function definition.
type Function struct {
	Name       string    `"fn" @Ident`
	Params     []*Param  `"(" (@@ ("," @@)*)? ")"`
	ReturnType string    `"->" @Ident`
	Blocks     []*Block  `"{" @@* "}"`
}

// Param is one parameter's name and declared type.
type Param struct {
	Name string `@Ident`
	Type string `":" @Ident`
}

// Block is a labeled sequence of instructions ending in a terminator.
type Block struct {
	Label string         `@Ident ":"`
	Instrs []*Instr      `@@*`
	Term   *Terminator   `@@`
}

// Instr is one non-terminating instruction; exactly one alternative is
// populated.
type Instr struct {
	Let       *LetInstr       `  @@`
	Project   *ProjectInstr   `| @@`
	Apply     *ApplyInstr     `| @@`
	Construct *ConstructInstr `| @@`
	RcInc     *RcIncInstr     `| @@`
	RcDec     *RcDecInstr     `| @@`
}

// LetInstr binds Dst to an integer literal: `v1: int = let 42`.
type LetInstr struct {
	Dst   string `@Ident ":"`
	Type  string `@Ident "="`
	Value int    `"let" @Int`
}

// ProjectInstr reads one field of a struct/tuple value.
type ProjectInstr struct {
	Dst   string `@Ident ":"`
	Type  string `@Ident "="`
	Value string `"project" @Ident ","`
	Field int    `@Int`
}

// ApplyInstr calls a named function directly.
type ApplyInstr struct {
	Dst  string   `@Ident ":"`
	Type string   `@Ident "="`
	Func string   `"apply" @Ident`
	Args []string `"(" (@Ident ("," @Ident)*)? ")"`
}

// ConstructInstr allocates a fresh struct value from its field values.
type ConstructInstr struct {
	Dst  string   `@Ident ":"`
	Type string   `@Ident "="`
	Ctor string   `"construct" @Ident`
	Args []string `"(" (@Ident ("," @Ident)*)? ")"`
}

// RcIncInstr is an explicit retain, for fixtures that want to test RC
// passes on hand-annotated IR rather than relying on insertion.
type RcIncInstr struct {
	Var string `"rcinc" @Ident`
}

// RcDecInstr is an explicit release.
type RcDecInstr struct {
	Var string `"rcdec" @Ident`
}

// Terminator is a block's closing control-flow instruction.
type Terminator struct {
	Return *ReturnTerm `  @@`
	Jump   *JumpTerm   `| @@`
	Branch *BranchTerm `| @@`
}

// ReturnTerm returns a value from the function.
type ReturnTerm struct {
	Value string `"return" @Ident`
}

// JumpTerm transfers control unconditionally to Target, passing Args as
// that block's parameters.
type JumpTerm struct {
	Target string   `"jump" @Ident`
	Args   []string `("(" (@Ident ("," @Ident)*)? ")")?`
}

// BranchTerm transfers control to Then or Else depending on Cond.
type BranchTerm struct {
	Cond string `"branch" @Ident ","`
	Then string `@Ident ","`
	Else string `@Ident`
}

var parser = buildParser()

func buildParser() *participle.Parser[File] {
	p, err := participle.Build[File](
		participle.Lexer(arcLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(2),
	)
	if err != nil {
		panic(fmt.Errorf("fixture: failed to build parser: %w", err))
	}
	return p
}

// Parse parses source (named filename for error messages) into a File.
func Parse(filename, source string) (*File, error) {
	return parser.ParseString(filename, source)
}
