// Flag parsing for the runner's CLI surface (spec.md §6), grounded on
// opal-lang-opal's cmd/devcmd/main.go exit-code-constants block and
// runtime/cli/harness.go's persistent --dry-run/--no-color boolean
// idiom, ported from flag/cobra onto spf13/pflag directly (SPEC_FULL.md
// §10 explains why pflag was kept and cobra dropped).
package runner

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/taut-go/taut/config"
)

// Exit codes named in spec.md §6.
const (
	ExitOK = iota
	ExitBadArguments
	ExitNoTestNameMatch
	ExitTestFailed
)

// Flags is the resolved CLI/config surface: one field per row of
// spec.md §6's table, already merged with any .taut.yaml defaults.
type Flags struct {
	Include  []string
	Exclude  []string
	Generate []string

	Color    bool
	Unicode  bool
	Progress bool
	Break    bool
	Catch    bool

	Help         bool
	HelpGenerate bool
}

// rawFlags holds the pflag.FlagSet wiring before Resolve folds the
// negative toggles and the config file into the public Flags.
type rawFlags struct {
	fs *pflag.FlagSet

	include  []string
	exclude  []string
	generate []string

	color, noColor       bool
	unicode, noUnicode   bool
	progress, noProgress bool
	brk, noBreak         bool
	catch, noCatch       bool
	debug                bool

	help         bool
	helpGenerate bool
}

// NewFlagSet builds the pflag.FlagSet for name. Call fs.Parse(args),
// then Resolve(cfg) to obtain the merged Flags.
func NewFlagSet(name string) (*rawFlags, *pflag.FlagSet) {
	r := &rawFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringArrayVarP(&r.include, "include", "i", nil, "enable tests matching PAT (regex); a '//' in PAT redirects the tail to --generate")
	fs.StringArrayVarP(&r.exclude, "exclude", "e", nil, "disable tests matching PAT (regex)")
	fs.StringArrayVarP(&r.generate, "generate", "g", nil, "override generators for tests matching PAT: PAT//PROG; may repeat")

	fs.BoolVar(&r.color, "color", false, "force colour on")
	fs.BoolVar(&r.noColor, "no-color", false, "force colour off (default: on if stdout is a tty)")
	fs.BoolVar(&r.unicode, "unicode", false, "use unicode pseudographics (default)")
	fs.BoolVar(&r.noUnicode, "no-unicode", false, "use ascii fallback")
	fs.BoolVar(&r.progress, "progress", false, "print per-test progress lines (default)")
	fs.BoolVar(&r.noProgress, "no-progress", false, "suppress per-test progress lines")
	fs.BoolVar(&r.brk, "break", false, "trigger a breakpoint on failure")
	fs.BoolVar(&r.noBreak, "no-break", false, "do not break on failure (default)")
	fs.BoolVar(&r.catch, "catch", false, "catch exceptions inside tests (default)")
	fs.BoolVar(&r.noCatch, "no-catch", false, "do not catch exceptions inside tests")
	fs.BoolVar(&r.debug, "debug", false, "shorthand: on = --break --no-catch, off = --no-break --catch")

	fs.BoolVarP(&r.help, "help", "h", false, "print flags and exit")
	fs.BoolVar(&r.helpGenerate, "help-generate", false, "print the --generate DSL guide and exit")

	r.fs = fs
	return r, fs
}

// Resolve folds the negative-toggle pairs and cfg's .taut.yaml defaults
// into a Flags, giving precedence to whichever flag the user actually
// typed (fs.Changed), then the config file, then the flag's own
// zero-value default.
func (r *rawFlags) Resolve(cfg *config.Config) *Flags {
	f := &Flags{
		Help:         r.help,
		HelpGenerate: r.helpGenerate,
	}

	f.Include = config.MergeStrings(r.include, cfg.Include)
	f.Exclude = config.MergeStrings(r.exclude, cfg.Exclude)
	f.Generate = config.MergeStrings(r.generate, cfg.Generate)

	f.Color = r.resolveToggle("color", "no-color", r.color, r.noColor, cfg.Color,
		isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	f.Unicode = r.resolveToggle("unicode", "no-unicode", r.unicode, r.noUnicode, cfg.Unicode, true)
	f.Progress = r.resolveToggle("progress", "no-progress", r.progress, r.noProgress, cfg.Progress, true)
	f.Break = r.resolveToggle("break", "no-break", r.brk, r.noBreak, cfg.Break, false)
	f.Catch = r.resolveToggle("catch", "no-catch", r.catch, r.noCatch, cfg.Catch, true)

	// --debug is a shorthand applied last so it wins over the file
	// (but not over an explicit --[no-]break/--[no-]catch, which the
	// user typed more specifically than --debug).
	if r.fs.Changed("debug") {
		if !r.fs.Changed("break") && !r.fs.Changed("no-break") {
			f.Break = r.debug
		}
		if !r.fs.Changed("catch") && !r.fs.Changed("no-catch") {
			f.Catch = !r.debug
		}
	}

	return f
}

// resolveToggle applies "explicit flag wins, else config file, else
// fallback" to one --[no-]name pair.
func (r *rawFlags) resolveToggle(name, noName string, posVal, negVal bool, fromFile *bool, fallback bool) bool {
	switch {
	case r.fs.Changed(noName):
		return !negVal
	case r.fs.Changed(name):
		return posVal
	case fromFile != nil:
		return *fromFile
	default:
		return fallback
	}
}

// ExpandIncludeDirectives applies the "//" redirect on every --include
// argument (spec.md §6): the pattern before "//" still gates
// inclusion, and the whole argument is appended to Generate since it
// is already a valid PAT//PROG for -g.
func (f *Flags) ExpandIncludeDirectives() {
	var patterns, extraGenerate []string
	for _, raw := range f.Include {
		pattern, generateArg, has := splitIncludeDirective(raw)
		patterns = append(patterns, pattern)
		if has {
			extraGenerate = append(extraGenerate, generateArg)
		}
	}
	f.Include = patterns
	f.Generate = append(f.Generate, extraGenerate...)
}
