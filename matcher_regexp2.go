package fastgrep

import (
	"github.com/dlclark/regexp2"
)

// regexp2Matcher wraps github.com/dlclark/regexp2 as the alternate
// Matcher capability backend (spec §4.4), selected with
// --regex-engine=regexp2. Unlike Go's built-in RE2 engine, regexp2
// supports backreferences and lookaround at the cost of potential
// exponential backtracking on pathological patterns — the same trade-off
// the original program's PCRE backends make relative to its built-in
// engine (original_source/src/FileScannerPCRE2.cpp).
type regexp2Matcher struct {
	re   *regexp2.Regexp
	info literalInfo
}

func newRegexp2Matcher(spec MatcherSpec) (Matcher, error) {
	pattern := spec.Pattern
	if spec.Literal {
		pattern = regexp2.Escape(pattern)
	}
	if spec.WholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}

	opts := regexp2.None
	if spec.IgnoreCase {
		opts |= regexp2.IgnoreCase
	}

	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, &ConfigError{Context: "regex", Msg: err.Error()}
	}

	var info literalInfo
	if !spec.IgnoreCase {
		info = analyzeLiteral(spec.Pattern)
		if spec.Literal {
			info.isLiteral = true
			info.literalPrefix = []byte(spec.Pattern)
		}
	}
	return &regexp2Matcher{re: re, info: info}, nil
}

// FindAllFrom implements Matcher. regexp2 addresses matches by rune
// index rather than byte offset, so each call rebuilds a rune->byte
// offset table over data; this backend trades per-call overhead for the
// regex features the builtin RE2 engine can't express, and is meant to
// be selected deliberately, not by default.
func (m *regexp2Matcher) FindAllFrom(data []byte, start int) (MatchOffset, bool) {
	s := string(data)
	runeToByte := buildRuneByteOffsets(s)

	startRune := byteToRuneIndex(runeToByte, start)

	match, err := m.re.FindStringMatchStartingAt(s, startRune)
	if err != nil || match == nil {
		return MatchOffset{}, false
	}

	mStartRune := match.Index
	mEndRune := match.Index + match.Length
	mStart := runeOffsetToByte(runeToByte, mStartRune, len(data))
	mEnd := runeOffsetToByte(runeToByte, mEndRune, len(data))
	return MatchOffset{Start: mStart, End: mEnd}, true
}

func (m *regexp2Matcher) IsLiteral() bool       { return m.info.isLiteral }
func (m *regexp2Matcher) LiteralPrefix() []byte { return m.info.literalPrefix }
func (m *regexp2Matcher) FirstByteBitmap() (bitmap [256]bool, ok bool) {
	if len(m.info.literalPrefix) > 0 || m.info.hasClass {
		return m.info.firstByte, true
	}
	return bitmap, false
}

// buildRuneByteOffsets returns, for each rune index i in s, the byte
// offset at which that rune starts; len(result) == number of runes in s.
func buildRuneByteOffsets(s string) []int {
	offsets := make([]int, 0, len(s))
	for i := range s {
		offsets = append(offsets, i)
	}
	return offsets
}

func byteToRuneIndex(runeToByte []int, byteOffset int) int {
	lo, hi := 0, len(runeToByte)
	for lo < hi {
		mid := (lo + hi) / 2
		if runeToByte[mid] < byteOffset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func runeOffsetToByte(runeToByte []int, runeIdx, dataLen int) int {
	if runeIdx >= len(runeToByte) {
		return dataLen
	}
	if runeIdx < 0 {
		return 0
	}
	return runeToByte[runeIdx]
}
