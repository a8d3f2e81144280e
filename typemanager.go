package fastgrep

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/denormal/go-gitignore"
)

// maxFirstLineBytes bounds how much of a file firstlinematch filters will
// read, so a pathological single-line file can't force a full read just to
// classify it (original_source/src/TypeManager.cpp takes the same
// precaution; see SPEC_FULL.md §C.3).
const maxFirstLineBytes = 4096

// filterKind is one of the filter-spec grammar's KIND tokens (spec §4.2,
// §6 "Filter-spec grammar").
type filterKind int

const (
	filterIsName filterKind = iota
	filterExt
	filterGlobInclude
	filterGlobExclude
	filterFirstLine
)

// typeFilter is one compiled rule belonging to a named type. Any filter
// matching is sufficient for that type to claim a file (spec §4.2 "A type
// is a named bundle of filters, any of which can match").
type typeFilter struct {
	kind  filterKind
	arg   string         // is: exact name; ext: bare extension; glob-*: pattern
	first *regexp.Regexp // only set for filterFirstLine
}

type fileType struct {
	name    string
	enabled bool
	filters []typeFilter
}

// TypeManager classifies files by name (and, for firstlinematch filters,
// by a bounded read of their content) to decide whether the Traverser
// should hand them to the scanner pool (spec §4.2).
//
// The zero value is not usable; construct with NewTypeManager.
type TypeManager struct {
	types map[string]*fileType
	// order preserves registration order for ListMatchingTypes and for
	// deterministic iteration while compiling.
	order []string

	// anonIgnore backs --ignore-file: a nameless type whose filters only
	// ever exclude.
	anonIgnore *fileType
	// anonInclude backs AddAnonymousInclude: a nameless type whose
	// filters only ever include. The CLI's --include flag goes through
	// anonOrdered instead.
	anonInclude *fileType

	// anonOrdered backs interleaved anonymous include/exclude globs (the
	// CLI's --include/--exclude flags), preserved in call order so a
	// later flag can override an earlier one for the same name, the same
	// way named-type filters already do (spec §4.2 step 3).
	anonOrdered []orderedGlobEntry

	// clearedDefaults becomes true on the first Enable call, switching the
	// manager from "default allow-list" to "only these types" (spec §4.2).
	clearedDefaults bool
	defaultActive   map[string]struct{}

	// gitIgnores holds gitignore-syntax matchers registered via
	// --ignore-file=gitignore:PATH, checked against the root-relative path
	// by MatchesGitIgnore, which the Traverser calls before ShouldScan;
	// ShouldScan itself does not consult them.
	gitIgnores []gitignore.GitIgnore

	compiled   bool
	tableExact map[string]struct{}
	tableExt   []string // sorted, binary-searchable
	pureExclude []string
	ordered    []orderedGlobEntry
	firstLine  []*regexp.Regexp
}

type orderedGlobEntry struct {
	pattern string
	include bool
}

// NewTypeManager creates a manager pre-populated with the built-in default
// type table (SPEC_FULL.md §C.1) and no anonymous filters. Defaults start
// active; the first Enable call clears them.
func NewTypeManager() *TypeManager {
	tm := &TypeManager{
		types:         make(map[string]*fileType),
		anonIgnore:    &fileType{name: ""},
		anonInclude:   &fileType{name: ""},
		defaultActive: make(map[string]struct{}),
	}
	for _, def := range builtinTypeDefs {
		tm.registerBuiltin(def)
	}
	return tm
}

func (tm *TypeManager) registerBuiltin(def builtinTypeDef) {
	ft := &fileType{name: def.name, enabled: true}
	for _, name := range def.isNames {
		ft.filters = append(ft.filters, typeFilter{kind: filterIsName, arg: name})
	}
	for _, ext := range def.extensions {
		ft.filters = append(ft.filters, typeFilter{kind: filterExt, arg: ext})
	}
	for _, g := range def.globs {
		ft.filters = append(ft.filters, typeFilter{kind: filterGlobInclude, arg: g})
	}
	tm.types[def.name] = ft
	tm.order = append(tm.order, def.name)
	tm.defaultActive[def.name] = struct{}{}
}

// Enable turns a type on. The first call to Enable after construction
// clears the default active set (spec §4.2).
func (tm *TypeManager) Enable(typeName string) error {
	ft, ok := tm.types[typeName]
	if !ok {
		return &ConfigError{Context: "type", Msg: fmt.Sprintf("unknown type %q", typeName)}
	}
	if !tm.clearedDefaults {
		for _, t := range tm.types {
			t.enabled = false
		}
		tm.clearedDefaults = true
	}
	ft.enabled = true
	tm.compiled = false
	return nil
}

// Disable turns a type off.
func (tm *TypeManager) Disable(typeName string) error {
	ft, ok := tm.types[typeName]
	if !ok {
		return &ConfigError{Context: "type", Msg: fmt.Sprintf("unknown type %q", typeName)}
	}
	ft.enabled = false
	tm.compiled = false
	return nil
}

// AddFilterSpec parses "KIND:ARGS" (spec §4.2, §6) and attaches the
// resulting filter to typeName, creating the type if it does not exist.
// If deletePrevious is true, the type's existing filters are discarded
// first (backs --type-set, as opposed to --type-add which appends).
func (tm *TypeManager) AddFilterSpec(typeName, spec string, deletePrevious bool) error {
	filter, err := parseFilterSpec(spec)
	if err != nil {
		return err
	}

	ft, ok := tm.types[typeName]
	if !ok {
		ft = &fileType{name: typeName, enabled: !tm.clearedDefaults}
		tm.types[typeName] = ft
		tm.order = append(tm.order, typeName)
	}
	if deletePrevious {
		ft.filters = nil
	}
	ft.filters = append(ft.filters, filter)
	tm.compiled = false
	return nil
}

// DeleteType removes a type entirely (backs --type-del).
func (tm *TypeManager) DeleteType(typeName string) {
	delete(tm.types, typeName)
	for i, n := range tm.order {
		if n == typeName {
			tm.order = append(tm.order[:i], tm.order[i+1:]...)
			break
		}
	}
	tm.compiled = false
}

// AddAnonymousIgnore attaches an exclude-only filter spec to the nameless
// type backing --ignore-file. spec may be a bare glob, or
// "gitignore:PATH" to load gitignore-syntax rules from a file.
func (tm *TypeManager) AddAnonymousIgnore(spec string) error {
	if path, ok := strings.CutPrefix(spec, "gitignore:"); ok {
		gi, err := loadGitIgnore(path)
		if err != nil {
			return err
		}
		tm.gitIgnores = append(tm.gitIgnores, gi)
		tm.compiled = false
		return nil
	}
	filter, err := parseFilterSpec(spec)
	if err != nil {
		// Bare globs (no "KIND:" prefix) are the common case for
		// --ignore-file; fall back to treating the whole spec as a glob.
		filter = typeFilter{kind: filterGlobExclude, arg: spec}
	}
	// Anonymous ignore filters always exclude, regardless of which kind
	// the filter parsed as (e.g. "is:Makefile" still means "ignore it").
	filter.kind = filterGlobExclude
	tm.anonIgnore.filters = append(tm.anonIgnore.filters, filter)
	tm.compiled = false
	return nil
}

// AddAnonymousInclude attaches an include-only glob to a nameless type.
// The CLI's --include flag uses AddOrderedGlob instead.
func (tm *TypeManager) AddAnonymousInclude(spec string) error {
	tm.anonInclude.filters = append(tm.anonInclude.filters, typeFilter{kind: filterGlobInclude, arg: spec})
	tm.compiled = false
	return nil
}

// AddOrderedGlob attaches an include or exclude glob to the ordered
// override vector (spec §4.2 step 3) in call order. Unlike
// AddAnonymousInclude/AddAnonymousIgnore, which each bucket their globs
// by flag name regardless of when they were given, a caller that needs
// --include and --exclude to resolve in the order they appeared on the
// command line should route both through this method instead.
func (tm *TypeManager) AddOrderedGlob(pattern string, include bool) {
	tm.anonOrdered = append(tm.anonOrdered, orderedGlobEntry{pattern: pattern, include: include})
	tm.compiled = false
}

func loadGitIgnore(path string) (gitignore.GitIgnore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Context: "ignore-file", Msg: err.Error()}
	}
	defer f.Close()
	return gitignore.New(f, path, nil), nil
}

func parseFilterSpec(spec string) (typeFilter, error) {
	idx := strings.IndexByte(spec, ':')
	if idx < 0 {
		return typeFilter{}, &ConfigError{Context: "filter-spec", Msg: fmt.Sprintf("malformed filter spec %q: missing ':'", spec)}
	}
	kind, arg := spec[:idx], spec[idx+1:]

	switch kind {
	case "is":
		return typeFilter{kind: filterIsName, arg: arg}, nil
	case "ext":
		// ext ARG may itself be a comma-separated list; callers needing
		// multiple extensions should call AddFilterSpec once per bare
		// extension, but we accept the list form directly here too.
		return typeFilter{kind: filterExt, arg: arg}, nil
	case "glob-include", "glob":
		return typeFilter{kind: filterGlobInclude, arg: arg}, nil
	case "glob-exclude":
		return typeFilter{kind: filterGlobExclude, arg: arg}, nil
	case "firstlinematch":
		re, err := regexp.Compile(arg)
		if err != nil {
			return typeFilter{}, &ConfigError{Context: "filter-spec", Msg: fmt.Sprintf("bad firstlinematch regex %q: %v", arg, err)}
		}
		return typeFilter{kind: filterFirstLine, arg: arg, first: re}, nil
	default:
		return typeFilter{}, &ConfigError{Context: "filter-spec", Msg: fmt.Sprintf("unknown filter kind %q", kind)}
	}
}

// ListMatchingTypes returns the names of all registered types whose name
// starts with prefix, sorted. The CLI's --type/--notype flags do not call
// it: they take exact type names, and an abbreviation is reported as an
// unknown type.
func (tm *TypeManager) ListMatchingTypes(prefix string) []string {
	var out []string
	for _, name := range tm.order {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Compile must be called once after all filter specs are known. It builds
// the fast-lookup tables ShouldScan consults (spec §4.2).
func (tm *TypeManager) Compile() {
	exact := make(map[string]struct{})
	extSet := make(map[string]struct{})
	var pureExclude []string
	var ordered []orderedGlobEntry
	var firstLine []*regexp.Regexp

	addFilter := func(f typeFilter, forceExclude bool) {
		switch f.kind {
		case filterIsName:
			exact[f.arg] = struct{}{}
		case filterExt:
			for _, e := range strings.Split(f.arg, ",") {
				e = strings.TrimSpace(e)
				if e != "" {
					extSet[e] = struct{}{}
				}
			}
		case filterGlobInclude:
			if forceExclude {
				pureExclude = append(pureExclude, f.arg)
			} else {
				ordered = append(ordered, orderedGlobEntry{pattern: f.arg, include: true})
			}
		case filterGlobExclude:
			// Only the ordered vector, never pureExclude: pureExclude
			// short-circuits ShouldScan before the ordered vector ever
			// runs, which would make a later glob-include for the same
			// type permanently dead code. pureExclude is reserved for the
			// anonymous --ignore-file path below, which is meant to be
			// an unconditional block.
			ordered = append(ordered, orderedGlobEntry{pattern: f.arg, include: false})
		case filterFirstLine:
			firstLine = append(firstLine, f.first)
		}
	}

	for _, name := range tm.order {
		ft := tm.types[name]
		if !ft.enabled {
			continue
		}
		for _, f := range ft.filters {
			addFilter(f, false)
		}
	}
	for _, f := range tm.anonInclude.filters {
		addFilter(f, false)
	}
	for _, f := range tm.anonIgnore.filters {
		// Anonymous ignore filters always exclude, regardless of the kind
		// they were parsed with.
		pureExclude = append(pureExclude, f.arg)
	}
	// Layered on top of the named-type ordered filters, in their own call
	// order, so interleaved --include/--exclude flags override each other
	// the same way they'd override a type's own glob filters.
	ordered = append(ordered, tm.anonOrdered...)

	extsSorted := make([]string, 0, len(extSet))
	for e := range extSet {
		extsSorted = append(extsSorted, e)
	}
	sort.Strings(extsSorted)

	tm.tableExact = exact
	tm.tableExt = extsSorted
	tm.pureExclude = pureExclude
	tm.ordered = ordered
	tm.firstLine = firstLine
	tm.compiled = true
}

// ShouldScan reports whether baseName passes the compiled filter tables
// (spec §4.2). Compile must have been called first. firstLineOpener, if
// non-nil, is used to satisfy any firstlinematch filters; pass nil to skip
// first-line filters entirely. An opener that returns ok=false (as
// ReadFirstLine does for a zero-length file) leaves every firstlinematch
// filter unmatched.
func (tm *TypeManager) ShouldScan(baseName string, firstLineOpener func() (string, bool)) bool {
	if !tm.compiled {
		tm.Compile()
	}

	// firstlinematch is one more alternative a type can claim a file by
	// (spec §4.2 "any of which can match"), not an extra requirement
	// layered on top of name-based filters: a file already matched by an
	// ext/is/glob filter must not be rejected just because it also fails
	// some unrelated type's firstline regex. Only consult it when nothing
	// else already included the file.
	included := tm.matchesIncludeByName(baseName)
	if !included && len(tm.firstLine) > 0 && firstLineOpener != nil {
		if line, ok := firstLineOpener(); ok {
			for _, re := range tm.firstLine {
				if re.MatchString(line) {
					included = true
					break
				}
			}
		}
	}
	if !included {
		return false
	}

	for _, pat := range tm.pureExclude {
		if globMatch(pat, baseName) {
			return false
		}
	}

	// Ordered include/exclude vector: later entries override earlier ones
	// for the same name (spec §4.2).
	decision := true
	for _, e := range tm.ordered {
		if globMatch(e.pattern, baseName) {
			decision = e.include
		}
	}
	return decision
}

// HasFirstLineFilters reports whether any enabled type carries a
// firstlinematch filter, so callers can skip opening a file to satisfy
// ShouldScan's firstLineOpener parameter when it would never be used.
func (tm *TypeManager) HasFirstLineFilters() bool {
	if !tm.compiled {
		tm.Compile()
	}
	return len(tm.firstLine) > 0
}

// MatchesGitIgnore reports whether relPath is excluded by any
// gitignore-syntax file registered via --ignore-file=gitignore:PATH.
func (tm *TypeManager) MatchesGitIgnore(relPath string, isDir bool) bool {
	for _, gi := range tm.gitIgnores {
		if m := gi.Relative(relPath, isDir); m != nil && m.Ignore() {
			return true
		}
	}
	return false
}

// matchesIncludeByName reports whether baseName alone (no file content)
// satisfies any exact-name, extension, or include-glob filter. It
// deliberately says nothing about firstlinematch filters, which need the
// file's content and are evaluated separately by ShouldScan.
func (tm *TypeManager) matchesIncludeByName(baseName string) bool {
	if _, ok := tm.tableExact[baseName]; ok {
		return true
	}
	if ext, ok := extensionOf(baseName); ok && binarySearchString(tm.tableExt, ext) {
		return true
	}
	for _, e := range tm.anonInclude.filters {
		if globMatch(e.arg, baseName) {
			return true
		}
	}
	for _, e := range tm.ordered {
		if e.include && globMatch(e.pattern, baseName) {
			return true
		}
	}
	return false
}

func extensionOf(baseName string) (string, bool) {
	idx := strings.LastIndexByte(baseName, '.')
	if idx < 0 || idx == len(baseName)-1 {
		return "", false
	}
	return baseName[idx+1:], true
}

func binarySearchString(sorted []string, needle string) bool {
	i := sort.SearchStrings(sorted, needle)
	return i < len(sorted) && sorted[i] == needle
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// ReadFirstLine reads up to maxFirstLineBytes of path and returns its
// first line (without the trailing newline). ok is false on open/read
// failure.
func ReadFirstLine(path string) (line string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, maxFirstLineBytes)
	b, err := r.ReadSlice('\n')
	if err != nil && len(b) == 0 {
		return "", false
	}
	if len(b) > maxFirstLineBytes {
		b = b[:maxFirstLineBytes]
	}
	return strings.TrimRight(string(b), "\r\n"), true
}
