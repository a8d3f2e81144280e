package fastgrep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatcherUnknownEngineIsConfigError(t *testing.T) {
	_, err := NewMatcher(EngineName("nope"), MatcherSpec{Pattern: "x"})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMatcherBackendsFindBasicMatch(t *testing.T) {
	for _, engine := range []EngineName{EngineBuiltin, EngineRegexp2} {
		t.Run(string(engine), func(t *testing.T) {
			m, err := NewMatcher(engine, MatcherSpec{Pattern: `wo\w+`})
			require.NoError(t, err)

			data := []byte("hello world")
			mo, ok := m.FindAllFrom(data, 0)
			require.True(t, ok)
			assert.Equal(t, "world", string(data[mo.Start:mo.End]))

			_, ok = m.FindAllFrom(data, mo.End)
			assert.False(t, ok)
		})
	}
}

func TestMatcherBackendsIgnoreCase(t *testing.T) {
	for _, engine := range []EngineName{EngineBuiltin, EngineRegexp2} {
		t.Run(string(engine), func(t *testing.T) {
			m, err := NewMatcher(engine, MatcherSpec{Pattern: "HELLO", IgnoreCase: true})
			require.NoError(t, err)

			data := []byte("say hello there")
			mo, ok := m.FindAllFrom(data, 0)
			require.True(t, ok)
			assert.Equal(t, "hello", string(data[mo.Start:mo.End]))
		})
	}
}

func TestMatcherBackendsWholeWord(t *testing.T) {
	for _, engine := range []EngineName{EngineBuiltin, EngineRegexp2} {
		t.Run(string(engine), func(t *testing.T) {
			m, err := NewMatcher(engine, MatcherSpec{Pattern: "cat", WholeWord: true})
			require.NoError(t, err)

			data := []byte("concatenate cat scatter")
			mo, ok := m.FindAllFrom(data, 0)
			require.True(t, ok)
			assert.Equal(t, "cat", string(data[mo.Start:mo.End]))
			assert.Equal(t, 12, mo.Start)
		})
	}
}

func TestMatcherLiteralEscapesMetacharacters(t *testing.T) {
	for _, engine := range []EngineName{EngineBuiltin, EngineRegexp2} {
		t.Run(string(engine), func(t *testing.T) {
			m, err := NewMatcher(engine, MatcherSpec{Pattern: "a.b(c)", Literal: true})
			require.NoError(t, err)

			data := []byte("prefix a.b(c) suffix")
			mo, ok := m.FindAllFrom(data, 0)
			require.True(t, ok)
			assert.Equal(t, "a.b(c)", string(data[mo.Start:mo.End]))

			data2 := []byte("aXb(c) has no literal match")
			_, ok = m.FindAllFrom(data2, 0)
			assert.False(t, ok)
		})
	}
}

func TestBuiltinMatcherLiteralAwareMetadata(t *testing.T) {
	m, err := NewMatcher(EngineBuiltin, MatcherSpec{Pattern: "needle", Literal: true})
	require.NoError(t, err)

	la, ok := m.(LiteralAware)
	require.True(t, ok)
	assert.True(t, la.IsLiteral())
	assert.Equal(t, []byte("needle"), la.LiteralPrefix())
}

func TestLiteralAwareDisabledWhenIgnoreCase(t *testing.T) {
	// A case-insensitive literal pattern can't use the case-sensitive
	// byte-search fast path: IsLiteral must report false so ScanBuffer
	// never skips the full engine and drops a differently-cased match.
	for _, engine := range []EngineName{EngineBuiltin, EngineRegexp2} {
		t.Run(string(engine), func(t *testing.T) {
			m, err := NewMatcher(engine, MatcherSpec{Pattern: "needle", Literal: true, IgnoreCase: true})
			require.NoError(t, err)

			la, ok := m.(LiteralAware)
			require.True(t, ok)
			assert.False(t, la.IsLiteral())
			assert.Empty(t, la.LiteralPrefix())
		})
	}
}

func TestAnalyzeLiteralPlainString(t *testing.T) {
	info := analyzeLiteral("hello")
	assert.True(t, info.isLiteral)
	assert.Equal(t, []byte("hello"), info.literalPrefix)
	assert.True(t, info.firstByte['h'])
}

func TestAnalyzeLiteralLeadingClass(t *testing.T) {
	info := analyzeLiteral("[a-c]foo")
	assert.False(t, info.isLiteral)
	assert.True(t, info.hasClass)
	assert.True(t, info.classByte['a'])
	assert.True(t, info.classByte['c'])
	assert.False(t, info.classByte['d'])
}

func TestAnalyzeLiteralPrefixStopsAtMeta(t *testing.T) {
	info := analyzeLiteral("abc.*")
	assert.False(t, info.isLiteral)
	assert.Equal(t, []byte("abc"), info.literalPrefix)
}
