package fastgrep

import "runtime"

// Option configures [Run]. Options are applied in order.
type Option func(*config)

// WithIgnoreCase makes the pattern match case-insensitively (spec §6 "-i").
func WithIgnoreCase() Option {
	return func(c *config) {
		c.IgnoreCase = true
	}
}

// WithWholeWord restricts matches to word boundaries (spec §6 "-w").
func WithWholeWord() Option {
	return func(c *config) {
		c.WholeWord = true
	}
}

// WithLiteral treats the pattern as a literal string rather than a regex
// (spec §6 "-Q").
func WithLiteral() Option {
	return func(c *config) {
		c.Literal = true
	}
}

// WithRegexEngine selects the Matcher backend (spec §6 "--regex-engine").
// The zero value uses [EngineBuiltin].
func WithRegexEngine(name EngineName) Option {
	return func(c *config) {
		c.Engine = name
	}
}

// WithRecurse enables descending into subdirectories (spec §4.1, §6 "-r").
func WithRecurse() Option {
	return func(c *config) {
		c.Recurse = true
	}
}

// WithFollowSymlink makes the Traverser follow symlinks instead of
// skipping them (spec §4.3, §6 "--follow").
func WithFollowSymlink() Option {
	return func(c *config) {
		c.FollowSymlink = true
	}
}

// WithDirWorkers sets the Traverser's directory worker count
// (spec §6 "--dirjobs").
//
// # Default
//
// max(2, NumCPU/4), clamped to [2, 8]. Directory walking is I/O-bound on
// readdir/lstat syscalls; unlike the scan pool, more than a handful of
// workers rarely helps because most trees have far fewer directories than
// files, so there's little parallelism to extract before the scan pool
// becomes the bottleneck.
//
// Values <= 0 use the default.
func WithDirWorkers(n int) Option {
	return func(c *config) {
		c.DirWorkers = n
	}
}

// WithScanWorkers sets the scanner pool's worker count
// (spec §6 "--jobs", §5 "Thread counts").
//
// # Default
//
// NumCPU, clamped to [1, 32].
//
// # Tuning guidance
//
//   - Small files, many of them: I/O dominates; NumCPU is usually optimal,
//     going higher adds scheduling overhead without added syscall
//     throughput.
//   - Large files, complex patterns: CPU time in the matcher can dominate;
//     scaling past NumCPU rarely helps since there's no more parallelism
//     to extract from the host.
//
// Values <= 0 use the default.
func WithScanWorkers(n int) Option {
	return func(c *config) {
		c.ScanWorkers = n
	}
}

// WithQueueCapacity sets the bounded queue capacity shared by every stage
// boundary (spec "bounded sync queue"). Larger capacities smooth out
// bursty producers at the cost of memory; smaller capacities apply
// back-pressure sooner.
//
// Values <= 0 use the default of 256.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		c.QueueCapacity = n
	}
}

// WithTypes supplies a pre-populated TypeManager (spec §4.2). If nil or
// never set, Run builds one from [NewTypeManager] with no user filters.
func WithTypes(tm *TypeManager) Option {
	return func(c *config) {
		c.Types = tm
	}
}

// WithDirFilter supplies a pre-populated DirectoryInclusionFilter
// (spec §4.1). If nil or never set, Run builds one from
// [NewDirectoryInclusionFilter] with no extra exclusions.
func WithDirFilter(df *DirectoryInclusionFilter) Option {
	return func(c *config) {
		c.DirFilter = df
	}
}

// WithSink overrides the default TerminalSink (spec §4.6). Useful for
// tests or for embedding Run in a larger program that wants structured
// results instead of formatted text.
func WithSink(sink Sink) Option {
	return func(c *config) {
		c.Sink = sink
	}
}

// WithColor controls whether the default TerminalSink styles its output.
// Has no effect if [WithSink] is also set. The zero value is
// [ColorAuto].
func WithColor(mode ColorMode) Option {
	return func(c *config) {
		c.Color = mode
	}
}

// WithStatsFile appends a JSON Snapshot line to path when Run finishes,
// guarded by an advisory file lock so concurrent invocations sharing the
// same stats file don't interleave writes (spec §7, SPEC_FULL.md §B).
func WithStatsFile(path string) Option {
	return func(c *config) {
		c.StatsFile = path
	}
}

// WithProgName sets the program name used to prefix per-file error
// reports (spec §7). Defaults to "fastgrep".
func WithProgName(name string) Option {
	return func(c *config) {
		c.ProgName = name
	}
}

// WithErrReporter overrides how per-file scan errors are reported.
// Defaults to writing "<progname>: <error>\n" to stderr.
func WithErrReporter(fn func(error)) Option {
	return func(c *config) {
		c.ReportErr = fn
	}
}

const (
	defaultQueueCapacity = 256
	maxDirWorkers        = 8
	maxScanWorkers       = 32
)

// config holds the resolved settings Run acts on, built from an Options
// slice the same way a functional-options constructor merges overrides
// onto a zero-value struct before applying defaults.
type config struct {
	IgnoreCase bool
	WholeWord  bool
	Literal    bool
	Engine     EngineName

	Recurse       bool
	FollowSymlink bool
	DirWorkers    int
	ScanWorkers   int
	QueueCapacity int

	Types     *TypeManager
	DirFilter *DirectoryInclusionFilter

	Sink      Sink
	Color     ColorMode
	StatsFile string

	ProgName  string
	ReportErr func(error)
}

func applyOptions(opts []Option) config {
	cfg := config{ProgName: "fastgrep"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.DirWorkers <= 0 {
		cfg.DirWorkers = defaultDirWorkers()
	}
	if cfg.DirWorkers > maxDirWorkers {
		cfg.DirWorkers = maxDirWorkers
	}

	if cfg.ScanWorkers <= 0 {
		cfg.ScanWorkers = defaultScanWorkers()
	}
	if cfg.ScanWorkers > maxScanWorkers {
		cfg.ScanWorkers = maxScanWorkers
	}

	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}

	if cfg.Types == nil {
		cfg.Types = NewTypeManager()
	}
	if cfg.DirFilter == nil {
		cfg.DirFilter = NewDirectoryInclusionFilter(nil)
	}
	if cfg.ReportErr == nil {
		cfg.ReportErr = defaultErrReporter(cfg.ProgName)
	}

	return cfg
}

func defaultDirWorkers() int {
	n := runtime.NumCPU() / 4
	return min(max(n, 2), maxDirWorkers)
}

func defaultScanWorkers() int {
	n := runtime.NumCPU()
	return min(max(n, 1), maxScanWorkers)
}
