package fastgrep

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func collectPaths(t *testing.T, trav *Traverser) []string {
	t.Helper()
	var got []string
	for {
		fi, ok := trav.Out.Pop()
		if !ok {
			break
		}
		got = append(got, fi.Path)
	}
	sort.Strings(got)
	return got
}

func TestTraverserWalksRecursivelyAndSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "sub", "helper.go"), "package sub\n")
	writeFile(t, filepath.Join(root, ".git", "config"), "ignored\n")

	tm := NewTypeManager()
	tm.Compile()

	out := newQueue[FileIdentity](16)
	trav := NewTraverser(TraverserOptions{
		Recurse:    true,
		DirWorkers: 2,
		DirFilter:  NewDirectoryInclusionFilter(nil),
		Types:      tm,
		Stats:      NewStats(),
	}, out)

	trav.Run(context.Background(), []string{root})
	got := collectPaths(t, trav)

	assert.Equal(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "sub", "helper.go"),
	}, got)
}

func TestTraverserNonRecursiveSkipsSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.go"), "package main\n")
	writeFile(t, filepath.Join(root, "sub", "nested.go"), "package sub\n")

	tm := NewTypeManager()
	tm.Compile()

	out := newQueue[FileIdentity](16)
	trav := NewTraverser(TraverserOptions{
		Recurse:    false,
		DirWorkers: 2,
		DirFilter:  NewDirectoryInclusionFilter(nil),
		Types:      tm,
		Stats:      NewStats(),
	}, out)

	trav.Run(context.Background(), []string{root})
	got := collectPaths(t, trav)

	assert.Equal(t, []string{filepath.Join(root, "top.go")}, got)
}

func TestTraverserRespectsTypeFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "script.py"), "print(1)\n")

	tm := NewTypeManager()
	require.NoError(t, tm.Enable("go"))
	tm.Compile()

	out := newQueue[FileIdentity](16)
	trav := NewTraverser(TraverserOptions{
		Recurse:    true,
		DirWorkers: 2,
		DirFilter:  NewDirectoryInclusionFilter(nil),
		Types:      tm,
		Stats:      NewStats(),
	}, out)

	trav.Run(context.Background(), []string{root})
	got := collectPaths(t, trav)

	assert.Equal(t, []string{filepath.Join(root, "main.go")}, got)
}

func TestTraverserExtraIgnoreDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.go"), "package main\n")
	writeFile(t, filepath.Join(root, "vendor", "dep.go"), "package dep\n")

	tm := NewTypeManager()
	tm.Compile()

	out := newQueue[FileIdentity](16)
	trav := NewTraverser(TraverserOptions{
		Recurse:    true,
		DirWorkers: 2,
		DirFilter:  NewDirectoryInclusionFilter([]string{"vendor"}),
		Types:      tm,
		Stats:      NewStats(),
	}, out)

	trav.Run(context.Background(), []string{root})
	got := collectPaths(t, trav)

	assert.Equal(t, []string{filepath.Join(root, "keep.go")}, got)
}

func TestTraverserStatsCountFoundAndRejected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\n")
	writeFile(t, filepath.Join(root, "b.png"), "binary\n")

	tm := NewTypeManager()
	tm.Compile()
	stats := NewStats()

	out := newQueue[FileIdentity](16)
	trav := NewTraverser(TraverserOptions{
		Recurse:    true,
		DirWorkers: 2,
		DirFilter:  NewDirectoryInclusionFilter(nil),
		Types:      tm,
		Stats:      stats,
	}, out)

	trav.Run(context.Background(), []string{root})
	collectPaths(t, trav)

	snap := stats.Snapshot()
	assert.Equal(t, int64(1), snap.FilesFound)
	assert.Equal(t, int64(1), snap.FilesRejected)
}
