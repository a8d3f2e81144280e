package fastgrep

import "fmt"

// MatchOffset is one non-overlapping match within a buffer, in byte
// offsets [Start, End).
type MatchOffset struct {
	Start, End int
}

// Matcher is the abstract regex engine capability the scan pipeline is
// built against (spec §4.4). The core never depends on a concrete regex
// library directly outside of the two backends in matcher_builtin.go and
// matcher_regexp2.go; any third implementation only needs to satisfy this
// interface.
type Matcher interface {
	// FindAllFrom returns the next non-overlapping match at or after
	// start, or ok=false if there is none. Matchers are stateless between
	// calls: callers drive the scan loop (scanner.go) and decide the next
	// start offset themselves, matching spec §4.5's ScanBuffer algorithm.
	FindAllFrom(data []byte, start int) (m MatchOffset, ok bool)
}

// LiteralAware is an optional capability a Matcher backend can implement
// to expose the literal fast-path metadata the scanner uses to skip
// ahead with a vectorized byte search before invoking the full engine
// (spec §4.4). Backends that don't implement it (or return ok=false) are
// always correct, just slower: ScanBuffer falls back to invoking the
// matcher directly at every cursor position.
type LiteralAware interface {
	IsLiteral() bool
	LiteralPrefix() []byte
	FirstByteBitmap() (bitmap [256]bool, ok bool)
}

// MatcherSpec describes the inputs needed to build a Matcher (spec §4.4).
type MatcherSpec struct {
	Pattern    string
	IgnoreCase bool
	WholeWord  bool
	Literal    bool // treat Pattern as a literal string, not a regex
}

// EngineName identifies a concrete Matcher backend, selected by
// --regex-engine (spec §6).
type EngineName string

const (
	EngineBuiltin EngineName = "builtin"
	EngineRegexp2 EngineName = "regexp2"
)

// NewMatcher builds a Matcher using the named backend. Unknown engine
// names and regex compile failures are ConfigErrors: both are fatal at
// startup, before any worker is launched (spec §7 "Propagation policy").
func NewMatcher(engine EngineName, spec MatcherSpec) (Matcher, error) {
	switch engine {
	case "", EngineBuiltin:
		return newBuiltinMatcher(spec)
	case EngineRegexp2:
		return newRegexp2Matcher(spec)
	default:
		return nil, &ConfigError{Context: "regex-engine", Msg: fmt.Sprintf("unknown engine %q", engine)}
	}
}

// literalInfo holds what the core derives from a regex source to drive
// the literal fast path (spec §4.4).
type literalInfo struct {
	isLiteral     bool
	literalPrefix []byte
	// firstByte is a 256-entry bitmap of bytes that may begin a match.
	firstByte [256]bool
	// classByte is a 256-entry bitmap of bytes inside any character class
	// used at the start of the regex (empty/unused when the regex has no
	// leading character class).
	classByte [256]bool
	hasClass  bool
}

// analyzeLiteral inspects a regex source string and derives the literal
// fast-path metadata (spec §4.4 "IsLiteral", "LiteralPrefix", "First-code-
// unit bitmap", "Range bitmap").
//
// This is a conservative, source-text analysis: it recognizes the common
// unescaped-metacharacter and leading-character-class shapes; anything it
// can't prove literal/bounded is treated as "no fast path available",
// which only costs a few percent of scan throughput and never changes
// correctness (the full engine always runs regardless).
func analyzeLiteral(pattern string) literalInfo {
	var info literalInfo

	if !containsRegexMeta(pattern) {
		info.isLiteral = true
		info.literalPrefix = []byte(pattern)
		if len(pattern) > 0 {
			info.firstByte[pattern[0]] = true
		}
		return info
	}

	// Longest literal run at the start of the pattern, stopping at the
	// first metacharacter.
	prefixEnd := 0
	for prefixEnd < len(pattern) && !isRegexMeta(pattern[prefixEnd]) {
		prefixEnd++
	}
	info.literalPrefix = []byte(pattern[:prefixEnd])
	if prefixEnd > 0 {
		info.firstByte[pattern[0]] = true
	}

	// A leading bracket expression like "[A-Za-z_]" becomes the
	// first-code-unit/range bitmap when there is no literal prefix.
	if prefixEnd == 0 && len(pattern) > 0 && pattern[0] == '[' {
		if set, rest, ok := parseLeadingClass(pattern); ok {
			for _, b := range set {
				info.firstByte[b] = true
				info.classByte[b] = true
			}
			info.hasClass = true
			_ = rest
		}
	}

	return info
}

const regexMeta = `.*+?()[]{}|^$\`

func containsRegexMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		if isRegexMeta(s[i]) {
			return true
		}
	}
	return false
}

func isRegexMeta(b byte) bool {
	for i := 0; i < len(regexMeta); i++ {
		if regexMeta[i] == b {
			return true
		}
	}
	return false
}

// parseLeadingClass expands a leading "[...]" bracket expression
// (supporting simple ranges like "a-z") into the set of bytes it matches.
// It does not support negation or POSIX classes; those patterns simply
// don't get a first-code-unit bitmap and fall back to the full engine
// for every candidate, which is always correct, just slower.
func parseLeadingClass(pattern string) (set []byte, rest string, ok bool) {
	if len(pattern) < 2 || pattern[0] != '[' {
		return nil, pattern, false
	}
	end := -1
	for i := 1; i < len(pattern); i++ {
		if pattern[i] == ']' {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, pattern, false
	}
	body := pattern[1:end]
	if len(body) > 0 && body[0] == '^' {
		return nil, pattern, false // negated class, no bounded bitmap
	}

	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			lo, hi := body[i], body[i+2]
			if lo <= hi {
				for b := int(lo); b <= int(hi); b++ {
					set = append(set, byte(b))
				}
			}
			i += 2
			continue
		}
		set = append(set, body[i])
	}
	return set, pattern[end+1:], true
}
