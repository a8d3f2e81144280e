package fastgrep

import (
	"regexp"
)

// builtinMatcher wraps Go's regexp (RE2 semantics) as the default
// Matcher capability backend (spec §4.4).
type builtinMatcher struct {
	re   *regexp.Regexp
	info literalInfo
}

func newBuiltinMatcher(spec MatcherSpec) (Matcher, error) {
	pattern := spec.Pattern
	if spec.Literal {
		pattern = regexp.QuoteMeta(pattern)
	}
	if spec.WholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if spec.IgnoreCase {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
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
	// The fast path does a case-sensitive byte search (findLiteralPrefix);
	// a case-insensitive pattern needs the full engine for every
	// candidate, so info is left at its zero value above and IsLiteral()
	// reports false, rather than advertising fast-path metadata ScanBuffer
	// would use incorrectly.
	return &builtinMatcher{re: re, info: info}, nil
}

// FindAllFrom implements Matcher.
func (m *builtinMatcher) FindAllFrom(data []byte, start int) (MatchOffset, bool) {
	if start > len(data) {
		return MatchOffset{}, false
	}
	loc := m.re.FindIndex(data[start:])
	if loc == nil {
		return MatchOffset{}, false
	}
	return MatchOffset{Start: start + loc[0], End: start + loc[1]}, true
}

// IsLiteral reports whether the matcher's source pattern contains no
// regex metacharacters, enabling the literal fast path (spec §4.4).
func (m *builtinMatcher) IsLiteral() bool { return m.info.isLiteral }

// LiteralPrefix returns the longest initial literal run of the pattern.
func (m *builtinMatcher) LiteralPrefix() []byte { return m.info.literalPrefix }

// FirstByteBitmap returns the 256-entry bitmap of bytes that may begin a
// match, when derivable.
func (m *builtinMatcher) FirstByteBitmap() (bitmap [256]bool, ok bool) {
	if len(m.info.literalPrefix) > 0 || m.info.hasClass {
		return m.info.firstByte, true
	}
	return bitmap, false
}
