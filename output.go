package fastgrep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Sink is what the Output collector drains MatchGroups into (spec §4.6).
// The spec treats the "terminal/color output formatter" as an external
// collaborator (spec §1); TerminalSink below is this repository's
// reference implementation of that collaborator, the same way
// matcher_builtin.go is the reference implementation of the otherwise-
// abstract Matcher capability.
type Sink interface {
	Emit(group MatchGroup) error
}

// ColorMode selects whether TerminalSink styles its output.
type ColorMode int

const (
	// ColorAuto styles output iff stdout is a terminal and NO_COLOR is
	// unset (spec §6 "--color/--nocolor", §6 "Environment").
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ResolveColor applies the --color/--nocolor/NO_COLOR precedence spec §6
// describes: an explicit flag always wins; absent a flag, NO_COLOR
// disables styling; absent both, styling follows TTY detection.
func ResolveColor(mode ColorMode, w *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		return isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
	}
}

// TerminalSink renders MatchGroups the way a terminal grep tool does:
// one header line per file, then one line per Match with its 1-based
// line number, a separator, and the line content with highlight ranges
// styled (spec §4.6). Grounded on blueman82-conductor's fatih/color +
// mattn/go-isatty NO_COLOR/TTY resolution.
type TerminalSink struct {
	w      *bufio.Writer
	styled bool
	header *color.Color
	lineNo *color.Color
	highlt *color.Color
}

// NewTerminalSink builds a sink writing to w, styled according to
// enableColor.
func NewTerminalSink(w io.Writer, enableColor bool) *TerminalSink {
	s := &TerminalSink{
		w:      bufio.NewWriter(w),
		styled: enableColor,
		header: color.New(color.FgGreen, color.Bold),
		lineNo: color.New(color.FgYellow),
		highlt: color.New(color.FgRed, color.Bold),
	}
	color.NoColor = !enableColor
	return s
}

// Emit implements Sink.
func (s *TerminalSink) Emit(group MatchGroup) error {
	if s.styled {
		s.header.Fprintln(s.w, group.Path)
	} else {
		fmt.Fprintln(s.w, group.Path)
	}

	for _, m := range group.Matches {
		s.emitLine(m)
	}
	fmt.Fprintln(s.w)
	return s.w.Flush()
}

func (s *TerminalSink) emitLine(m Match) {
	if s.styled {
		s.lineNo.Fprintf(s.w, "%d", m.Line)
		fmt.Fprint(s.w, ":")
	} else {
		fmt.Fprintf(s.w, "%d:", m.Line)
	}

	if !s.styled || len(m.Highlights) == 0 {
		s.w.Write(m.Text)
		fmt.Fprintln(s.w)
		return
	}

	cursor := 0
	for _, h := range m.Highlights {
		s.w.Write(m.Text[cursor:h.Start])
		s.highlt.Fprint(s.w, string(m.Text[h.Start:h.End]))
		cursor = h.End
	}
	s.w.Write(m.Text[cursor:])
	fmt.Fprintln(s.w)
}

// OutputCollector drains the MatchGroup queue and forwards each group to
// Sink in arrival order, never interleaving two groups (spec §4.6) — a
// guarantee the single-consumer design provides automatically, with no
// extra synchronization needed.
type OutputCollector struct {
	in       *queue[MatchGroup]
	sink     Sink
	matched  atomic.Bool
	groupErr error
}

func NewOutputCollector(in *queue[MatchGroup], sink Sink) *OutputCollector {
	return &OutputCollector{in: in, sink: sink}
}

// Run drains the queue until closed. Sink errors (e.g. a broken pipe) are
// recorded but do not stop drainage — a slow or failing sink must not
// deadlock the scanner pool still pushing onto the same queue.
func (c *OutputCollector) Run() {
	for {
		group, ok := c.in.Pop()
		if !ok {
			return
		}
		c.matched.Store(true)
		if err := c.sink.Emit(group); err != nil && c.groupErr == nil {
			c.groupErr = err
		}
	}
}

// MatchedAny reports whether at least one MatchGroup was emitted — the
// exit-code-0-vs-1 decision from spec §6.
func (c *OutputCollector) MatchedAny() bool { return c.matched.Load() }

// Err returns the first error a sink returned, if any.
func (c *OutputCollector) Err() error { return c.groupErr }
