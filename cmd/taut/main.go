// Command taut is the CLI entrypoint (spec.md §6): parses flags, loads
// .taut.yaml, wires the built-in listeners onto a bus, and drives
// runner.Runner over the registry's tests.
//
// Grounded on opal-lang-opal/cmd/devcmd/main.go's exit-code-constants
// block and linear "parse, validate, run, report" shape, generalized
// from a single-file code generator to a test runner.
package main

import (
	"fmt"
	"os"

	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/config"
	"github.com/taut-go/taut/listeners"
	"github.com/taut-go/taut/registry"
	"github.com/taut-go/taut/runner"
	"github.com/taut-go/taut/term"
)

const generateGuide = `--generate PAT//PROG overrides the values a GENERATE-equivalent call
produces, for every registered test whose name matches the regex PAT.

PROG is a comma-separated list of per-generator entries:

    Name Rule
    Name { Rule, Rule, ... }

where Name is the generator's own name (set at the call site) and each
Rule is one of:

    =VALUE      insert a custom value
    -=VALUE     remove a natural value equal to VALUE
    #RANGE      accept only natural values at RANGE (1-based, inclusive)
    -#RANGE     remove natural values at RANGE
    &RULE       join this rule to the previous one; accepted by the parser,
                but a joined rule is not applied to generated values (and
                is reported as never applied after the run)

RANGE is N, N.., ..N, or N..M.

Example:

    -g 'my_test//x{#1,=42},y-=a'

keeps only x's first natural value, appends a custom value 42, and
removes the natural value "a" from y.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	raw, fs := runner.NewFlagSet("taut")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitBadArguments
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitBadArguments
	}

	flags := raw.Resolve(cfg)
	flags.ExpandIncludeDirectives()

	if flags.Help {
		fmt.Fprintln(os.Stderr, "Usage: taut [flags] [--include PAT]...")
		fs.PrintDefaults()
		return runner.ExitOK
	}
	if flags.HelpGenerate {
		fmt.Print(generateGuide)
		return runner.ExitOK
	}

	t := term.New(term.Options{ForceColor: &flags.Color, UseUnicode: flags.Unicode})

	overrider := listeners.NewGeneratorOverrider()
	diagrammer := listeners.NewAssertionDiagrammer(t)
	diagrammer.Unicode = flags.Unicode
	participants := []bus.Listener{
		overrider,
		diagrammer,
		listeners.NewExceptionPrinter(t),
		listeners.NewLogPrinter(t),
		listeners.NewTracePrinter(t),
		listeners.NewResultsSummary(t),
	}
	if flags.Progress {
		participants = append(participants, listeners.NewProgressPrinter(t))
	}

	r := &runner.Runner{
		Bus:       bus.New(participants...),
		Overrider: overrider,
		Catch:     flags.Catch,
		Break:     flags.Break,
	}

	directives, err := runner.ParseGenerateDirectives(flags.Generate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitBadArguments
	}

	tests, err := r.FilterTests(registry.All(), flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runner.ExitBadArguments
	}
	if len(tests) == 0 && len(flags.Include) > 0 {
		fmt.Fprintln(os.Stderr, "taut: no registered test matched the given --include pattern(s)")
		return runner.ExitNoTestNameMatch
	}

	code, err := r.Run(tests, directives)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
