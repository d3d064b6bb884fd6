package listeners

import (
	"github.com/taut-go/taut/bus"
	tcontext "github.com/taut-go/taut/context"
	"github.com/taut-go/taut/term"
)

// LogPrinter answers on_print_log_entry for *tcontext.LogEntry frames
// (spec.md §3's LogEntry, §4.7's "first to claim consumes the frame"),
// printing the lazily-computed message next to its chronological id.
type LogPrinter struct {
	bus.BaseListener

	Term term.Terminal
}

func NewLogPrinter(t term.Terminal) *LogPrinter { return &LogPrinter{Term: t} }

func (p *LogPrinter) Capabilities() bus.Capability { return bus.CapPrintLogEntry }

func (p *LogPrinter) OnPrintLogEntry(f tcontext.Frame) bool {
	entry, ok := f.(*tcontext.LogEntry)
	if !ok {
		return false
	}
	msg := ""
	if entry.Message != nil {
		msg = entry.Message()
	}
	p.Term.Print("  log#%d: %s\n", entry.ID, msg)
	return true
}

// TracePrinter answers on_print_context_frame for tcontext.BasicTrace
// frames — the user-pushed "doing X" breadcrumbs named in spec.md §3's
// context-frame variant list.
type TracePrinter struct {
	bus.BaseListener

	Term term.Terminal
}

func NewTracePrinter(t term.Terminal) *TracePrinter { return &TracePrinter{Term: t} }

func (p *TracePrinter) Capabilities() bus.Capability { return bus.CapPrintContextFrame }

func (p *TracePrinter) OnPrintContextFrame(f tcontext.Frame) bool {
	trace, ok := f.(tcontext.BasicTrace)
	if !ok {
		return false
	}
	p.Term.Print("  while: %s\n", trace.Message)
	return true
}
