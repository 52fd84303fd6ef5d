// Command arcc runs the ARC pipeline over a textual fixture file and
// prints an FBIP report plus any internal invariant violations, the
// same file-read -> parse -> process -> color-print shape as
// cmd/kanso-cli (there parsing a .ka source file; here parsing the ARC
// IR textual fixture format internal/fixture defines, since the real
// surface-language front end is out of this repo's scope, spec.md §1).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"oriarc/internal/classify"
	"oriarc/internal/diagnostic"
	"oriarc/internal/domtree"
	"oriarc/internal/fbip"
	"oriarc/internal/fixture"
	"oriarc/internal/liveness"
	"oriarc/internal/pipeline"
	"oriarc/internal/sig"
	"oriarc/internal/typepool"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: arcc <file.arc>")
		os.Exit(1)
	}

	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	file, err := fixture.Parse(path, string(source))
	if err != nil {
		reportParseError(string(source), err)
		os.Exit(1)
	}

	names := sig.NewInterner()
	functions, err := fixture.Build(file, names)
	if err != nil {
		color.Red("failed to build IR: %s", err)
		os.Exit(1)
	}

	pool := typepool.NewStaticPool()
	classifier := classify.New(pool)
	reporter := diagnostic.NewReporter()

	var problems []diagnostic.Problem
	for _, f := range functions {
		problems = append(problems, diagnostic.Verify(f, classifier, false)...)
	}
	if len(problems) > 0 {
		fmt.Print(reporter.FormatAll(names, problems))
		os.Exit(1)
	}

	pipeline.RunAll(functions, classifier, sig.SigTable{}, typepool.IdxBool, len(functions))

	problems = nil
	for _, f := range functions {
		problems = append(problems, diagnostic.Verify(f, classifier, true)...)
	}
	if len(problems) > 0 {
		fmt.Print(reporter.FormatAll(names, problems))
		os.Exit(1)
	}

	allAchieved := true
	for _, f := range functions {
		dom := domtree.Build(f)
		refined, _ := liveness.ComputeRefined(f, classifier)
		report := fbip.Analyze(f, classifier, dom, refined)

		if report.Achieved() {
			color.Green("✅ %s: functional-but-in-place (no heap allocation)", names.Lookup(f.Name))
		} else {
			allAchieved = false
			color.HiRed("⚠️  %s: %d allocating construction site(s)", names.Lookup(f.Name), len(report.Allocating()))
		}
	}

	if allAchieved {
		color.Green("✅ Successfully processed %s", path)
	} else {
		os.Exit(1)
	}
}

// reportParseError prints a friendly caret-style parse error message.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
