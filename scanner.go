package fastgrep

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"
)

// Match is one matched source line (spec §3). Multiple matches on the
// same line are coalesced into a single Match whose Highlights has
// length > 1 (spec invariant).
type Match struct {
	// Line is the 1-based line number within the file.
	Line int
	// LineStart is the byte offset of the line's first byte in the file.
	LineStart int
	// Text is the line's contents (no trailing newline), copied into
	// memory the MatchGroup owns outright. A scanner worker reuses its
	// read buffer across files, so the group can't keep borrowing into
	// it once pushed onto the output queue for the collector to read
	// concurrently with the next scan.
	Text []byte
	// Highlights are (start, end) byte offsets within Text.
	Highlights []MatchOffset
}

// MatchGroup is all matches for one file, line-ascending (spec §3).
// Semantically move-only: it travels from a scanner worker to the output
// collector through the shared queue and is never copied on enqueue
// (spec §9 "Move-only result groups") — passing it by value through a Go
// channel already transfers ownership without an extra clone, since
// nothing on the producer side reads it again afterward.
type MatchGroup struct {
	Path    string
	Matches []Match
}

// ScanBuffer runs m over data starting at offset 0 and appends every
// match it finds to group, coalescing same-line matches (spec §4.5
// "ScanBuffer algorithm"). wholeWord controls whether the literal fast
// path rejects candidates whose neighboring bytes are word characters
// before ever invoking the engine — see DESIGN.md's Open Question (a)
// resolution: for literal patterns, a candidate that fails the
// word-boundary check never reaches the engine; a candidate that passes
// it is still confirmed by m.FindAllFrom.
func ScanBuffer(data []byte, m Matcher, wholeWord bool, group *MatchGroup) {
	la, hasLiteralFastPath := m.(LiteralAware)

	var prefix []byte
	useFastPath := false
	if hasLiteralFastPath && la.IsLiteral() {
		prefix = la.LiteralPrefix()
		useFastPath = len(prefix) > 0
	}

	cursor := 0
	prevLineStart := 0
	currentLine := 1
	lastReportedLine := 0

	for {
		if useFastPath {
			next := advanceToCandidate(data, cursor, prefix, wholeWord)
			if next < 0 {
				return
			}
			cursor = next
		}

		mo, ok := m.FindAllFrom(data, cursor)
		if !ok {
			return
		}
		mStart, mEnd := mo.Start, mo.End

		currentLine += countNewlines(data[prevLineStart:mStart])
		if nl := lastNewlineBefore(data, prevLineStart, mStart); nl >= 0 {
			prevLineStart = nl + 1
		}

		if currentLine == lastReportedLine {
			last := &group.Matches[len(group.Matches)-1]
			last.Highlights = append(last.Highlights, MatchOffset{
				Start: mStart - last.LineStart,
				End:   mEnd - last.LineStart,
			})
		} else {
			lineEnd := bytes.IndexByte(data[mStart:], '\n')
			if lineEnd < 0 {
				lineEnd = len(data)
			} else {
				lineEnd += mStart
			}
			group.Matches = append(group.Matches, Match{
				Line:      currentLine,
				LineStart: prevLineStart,
				// Copied, not sliced: data is the scanner worker's
				// reusable read buffer, and this Match will outlive the
				// current file once the group is pushed to the output
				// queue.
				Text:      append([]byte(nil), data[prevLineStart:lineEnd]...),
				Highlights: []MatchOffset{{
					Start: mStart - prevLineStart,
					End:   mEnd - prevLineStart,
				}},
			})
			lastReportedLine = currentLine
		}

		if mEnd > mStart {
			cursor = mEnd
		} else {
			cursor = mStart + 1 // guarantee progress on zero-width matches
		}
	}
}

// lastNewlineBefore returns the offset of the last '\n' in data[from:upto),
// or -1 if there is none.
func lastNewlineBefore(data []byte, from, upto int) int {
	idx := bytes.LastIndexByte(data[from:upto], '\n')
	if idx < 0 {
		return -1
	}
	return from + idx
}

// advanceToCandidate finds the next position at or after cursor where a
// literal match could start, honoring wholeWord by rejecting candidates
// whose neighboring bytes are word characters (DESIGN.md Open Question
// (a)). Returns -1 when no further candidate exists.
func advanceToCandidate(data []byte, cursor int, prefix []byte, wholeWord bool) int {
	for {
		idx := findLiteralPrefix(data, cursor, prefix)
		if idx < 0 {
			return -1
		}
		if !wholeWord || isWordBoundaryMatch(data, idx, idx+len(prefix)) {
			return idx
		}
		cursor = idx + 1
	}
}

func isWordBoundaryMatch(data []byte, start, end int) bool {
	if start > 0 && isWordByte(data[start-1]) {
		return false
	}
	if end < len(data) && isWordByte(data[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// errReporter is the minimal sink for per-file scan errors (spec §7):
// reported to stderr, never fatal, never returned to the caller.
type errReporter func(err error)

func defaultErrReporter(progName string) errReporter {
	return func(err error) {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progName, err)
	}
}

// scannerPool is one scan worker: it pulls FileIdentity values from in and
// pushes non-empty MatchGroups to out (spec §4.5). Run starts one
// scannerPool per worker (spec §5 "Thread counts").
type scannerPool struct {
	matcher   Matcher
	wholeWord bool
	in        *queue[FileIdentity]
	out       *queue[MatchGroup]
	reportErr errReporter
	stats     *Stats
}

// Run is one scan worker's loop. It owns a single reusable read buffer
// for its entire lifetime, amortizing allocation across every file it
// processes (spec §4.5 step 2, §9 "Resource ownership"), the same
// per-worker-buffer discipline used by I/O-bound worker pools generally.
func (p *scannerPool) Run(ctx context.Context) {
	buf := make([]byte, 0, 64*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fi, ok := p.in.Pop()
		if !ok {
			return
		}

		var scanned bool
		buf, scanned = p.scanOne(fi, buf)
		_ = scanned
	}
}

func (p *scannerPool) scanOne(fi FileIdentity, buf []byte) ([]byte, bool) {
	start := time.Now()

	f, err := os.Open(fi.Path)
	if err != nil {
		p.reportErr(&FileOpenError{Path: fi.Path, Err: err})
		p.stats.addIOError()
		return buf, false
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		p.reportErr(&FileOpenError{Path: fi.Path, Err: err})
		p.stats.addIOError()
		return buf, false
	}

	size := st.Size()
	if size == 0 {
		p.stats.addFileScanned(0, time.Since(start))
		return buf, true
	}

	if int64(cap(buf)) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	n, err := readFull(f, buf)
	if err != nil {
		p.reportErr(&FileReadError{Path: fi.Path, Err: err})
		p.stats.addIOError()
		return buf, false
	}
	data := buf[:n]

	group := MatchGroup{Path: fi.Path}
	ScanBuffer(data, p.matcher, p.wholeWord, &group)

	p.stats.addFileScanned(int64(n), time.Since(start))

	if len(group.Matches) > 0 {
		p.out.Push(group)
	}
	return buf, true
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
