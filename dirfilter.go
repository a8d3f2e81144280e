package fastgrep

// builtinExcludedDirs is the fixed set of source-control and build
// metadata directory names that are never descended into, regardless of
// user configuration (spec §4.1). It is immutable process-wide
// initialization data, never a mutable global (spec §9 "Global exclusion
// table").
var builtinExcludedDirs = map[string]struct{}{
	".bzr":           {},
	".git":           {},
	".hg":            {},
	".metadata":      {},
	".svn":           {},
	"CMakeFiles":     {},
	"CVS":            {},
	"autom4te.cache": {},
	".deps":          {},
}

// DirectoryInclusionFilter decides whether a directory base name should be
// descended into (spec §4.1). It is safe for concurrent read-only use
// after construction: ShouldExclude never mutates the filter.
type DirectoryInclusionFilter struct {
	excluded map[string]struct{}
}

// NewDirectoryInclusionFilter builds a filter from the built-in exclusion
// list plus any user-supplied additions (--ignore-dir).
func NewDirectoryInclusionFilter(extra []string) *DirectoryInclusionFilter {
	excluded := make(map[string]struct{}, len(builtinExcludedDirs)+len(extra))
	for name := range builtinExcludedDirs {
		excluded[name] = struct{}{}
	}
	for _, name := range extra {
		excluded[name] = struct{}{}
	}
	return &DirectoryInclusionFilter{excluded: excluded}
}

// ShouldExclude reports whether baseName must never be descended into.
// Matching is exact string equality on the base name (spec §4.1).
func (f *DirectoryInclusionFilter) ShouldExclude(baseName string) bool {
	_, excluded := f.excluded[baseName]
	return excluded
}
