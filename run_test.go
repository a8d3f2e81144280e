package fastgrep

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	groups []MatchGroup
}

func (s *recordingSink) Emit(g MatchGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, g)
	return nil
}

func TestRunEndToEndFindsMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n\nfunc Hello() { println(\"needle\") }\n")
	writeFile(t, filepath.Join(root, "b.go"), "package b\n\nfunc World() {}\n")

	sink := &recordingSink{}
	result, err := Run(context.Background(), "needle", []string{root},
		WithRecurse(),
		WithSink(sink),
	)
	require.NoError(t, err)
	assert.True(t, result.Matched)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.groups, 1)
	assert.Equal(t, filepath.Join(root, "a.go"), sink.groups[0].Path)
}

func TestRunEndToEndNoMatches(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")

	sink := &recordingSink{}
	result, err := Run(context.Background(), "nonexistent-pattern", []string{root},
		WithRecurse(),
		WithSink(sink),
	)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestRunBadPatternIsConfigError(t *testing.T) {
	root := t.TempDir()
	_, err := Run(context.Background(), "(unclosed", []string{root})
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRunRespectsTypeFilterOption(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "needle\n")
	writeFile(t, filepath.Join(root, "a.py"), "needle\n")

	tm := NewTypeManager()
	require.NoError(t, tm.Enable("go"))

	sink := &recordingSink{}
	result, err := Run(context.Background(), "needle", []string{root},
		WithRecurse(),
		WithTypes(tm),
		WithSink(sink),
	)
	require.NoError(t, err)
	assert.True(t, result.Matched)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.groups, 1)
	assert.Equal(t, filepath.Join(root, "a.go"), sink.groups[0].Path)
}

func TestAppendStatsFileWritesJSONLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.jsonl")

	stats := NewStats()
	stats.addFileFound()
	stats.Finish()

	require.NoError(t, appendStatsFile(path, stats.Snapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id"`)
}
