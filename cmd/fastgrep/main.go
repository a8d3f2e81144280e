// Command fastgrep searches file trees in parallel for lines matching a
// regular expression (spec §1, §6).
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastgrep/fastgrep"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	cmd.SilenceErrors = true

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.As(err, new(errNoMatch)):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "fastgrep: %v\n", err)
		return 2
	}
}

type cliFlags struct {
	ignoreCase bool
	wholeWord  bool
	literal    bool
	recurse    bool
	follow     bool
	jobs       int
	dirJobs    int
	engine     string
	types      []string
	notypes    []string
	typeAdd    []string
	typeSet    []string
	typeDel    []string
	// globs holds --include/--exclude arguments in the exact order they
	// appeared on the command line, regardless of which of the two flags
	// each came from (see globFlag below).
	globs      []orderedGlobArg
	ignoreFile []string
	ignoreDir  []string
	colorMode  string
	statsFile  string
	configFile string
}

// orderedGlobArg is one --include or --exclude argument, tagged with
// which flag it came from.
type orderedGlobArg struct {
	pattern string
	include bool
}

// globFlag is a pflag.Value shared by the --include and --exclude flag
// definitions, both appending to the same backing slice. pflag calls
// Set once per occurrence in the order flags appear on the command
// line regardless of flag name, so binding --include and --exclude to
// the same slice (via two globFlag values that differ only in
// "include") is what lets fastgrep resolve an interleaved
// "--exclude=X --include=Y" the way it resolves an equivalent pair of
// type filters: later wins.
type globFlag struct {
	dst     *[]orderedGlobArg
	include bool
}

func (g *globFlag) String() string { return "" }

func (g *globFlag) Set(v string) error {
	*g.dst = append(*g.dst, orderedGlobArg{pattern: v, include: g.include})
	return nil
}

func (g *globFlag) Type() string { return "glob" }

func newRootCmd() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:   "fastgrep PATTERN [PATH...]",
		Short: "Search file trees in parallel for lines matching PATTERN",
		Long: `fastgrep walks one or more paths concurrently, classifies each file by
name and type, and scans it for lines matching PATTERN.

PATTERN is a regular expression unless -Q/--literal is given. With no
PATH, the current directory is searched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFastgrep(cmd, args, &f)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.BoolVarP(&f.ignoreCase, "ignore-case", "i", false, "case-insensitive match")
	flags.BoolVarP(&f.wholeWord, "word-regexp", "w", false, "match on word boundaries only")
	flags.BoolVarP(&f.literal, "literal", "Q", false, "treat PATTERN as a literal string")
	flags.BoolVarP(&f.recurse, "recurse", "r", true, "descend into subdirectories")
	flags.BoolVar(&f.follow, "follow", false, "follow symbolic links")
	flags.IntVarP(&f.jobs, "jobs", "j", 0, "scan worker count (0 = auto)")
	flags.IntVar(&f.dirJobs, "dirjobs", 0, "directory worker count (0 = auto)")
	flags.StringVar(&f.engine, "regex-engine", "builtin", `regex backend: "builtin" or "regexp2"`)
	flags.StringSliceVar(&f.types, "type", nil, "only search files of this type (repeatable)")
	flags.StringSliceVar(&f.notypes, "notype", nil, "skip files of this type (repeatable)")
	flags.StringSliceVar(&f.typeAdd, "type-add", nil, `add a filter to a type, "NAME:KIND:ARGS"`)
	flags.StringSliceVar(&f.typeSet, "type-set", nil, `replace a type's filters, "NAME:KIND:ARGS"`)
	flags.StringSliceVar(&f.typeDel, "type-del", nil, "delete a type by name")
	flags.Var(&globFlag{dst: &f.globs, include: true}, "include", "only search files matching this glob (repeatable, interleaves with --exclude in the order given)")
	flags.Var(&globFlag{dst: &f.globs, include: false}, "exclude", "skip files matching this glob (repeatable, interleaves with --include in the order given)")
	flags.StringSliceVar(&f.ignoreFile, "ignore-file", nil, `skip files matching this glob, or "gitignore:PATH"`)
	flags.StringSliceVar(&f.ignoreDir, "ignore-dir", nil, "never descend into this directory name (repeatable)")
	flags.StringVar(&f.colorMode, "color", "auto", `"auto", "always", or "never"`)
	flags.StringVar(&f.statsFile, "stats-file", "", "append a JSON stats line to this file on completion")
	flags.StringVar(&f.configFile, "config", "", "path to a fastgrep config file (default .fastgrep.yaml)")

	cmd.Version = "0.1.0"
	return cmd
}

func runFastgrep(cmd *cobra.Command, args []string, f *cliFlags) error {
	if err := loadConfigFile(cmd, f); err != nil {
		return err
	}

	pattern, roots := args[0], args[1:]
	if len(roots) == 0 {
		roots = []string{"."}
	}

	types, err := buildTypeManager(f)
	if err != nil {
		return err
	}
	dirFilter := fastgrep.NewDirectoryInclusionFilter(f.ignoreDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []fastgrep.Option{
		fastgrep.WithTypes(types),
		fastgrep.WithDirFilter(dirFilter),
		fastgrep.WithColor(parseColorMode(f.colorMode)),
	}
	if f.recurse {
		opts = append(opts, fastgrep.WithRecurse())
	}
	if f.ignoreCase {
		opts = append(opts, fastgrep.WithIgnoreCase())
	}
	if f.wholeWord {
		opts = append(opts, fastgrep.WithWholeWord())
	}
	if f.literal {
		opts = append(opts, fastgrep.WithLiteral())
	}
	if f.follow {
		opts = append(opts, fastgrep.WithFollowSymlink())
	}
	if f.jobs > 0 {
		opts = append(opts, fastgrep.WithScanWorkers(f.jobs))
	}
	if f.dirJobs > 0 {
		opts = append(opts, fastgrep.WithDirWorkers(f.dirJobs))
	}
	if f.statsFile != "" {
		opts = append(opts, fastgrep.WithStatsFile(f.statsFile))
	}
	opts = append(opts, fastgrep.WithRegexEngine(fastgrep.EngineName(f.engine)))

	result, err := fastgrep.Run(ctx, pattern, roots, opts...)
	if err != nil {
		return err
	}
	if !result.Matched {
		return errNoMatch{}
	}
	return nil
}

// errNoMatch signals the "no lines matched" outcome (spec §6: exit 1, not
// an error the user needs reported).
type errNoMatch struct{}

func (errNoMatch) Error() string { return "" }

func buildTypeManager(f *cliFlags) (*fastgrep.TypeManager, error) {
	tm := fastgrep.NewTypeManager()

	for _, spec := range f.typeAdd {
		name, kindArgs, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, &fastgrep.ConfigError{Context: "type-add", Msg: fmt.Sprintf("malformed %q", spec)}
		}
		if err := tm.AddFilterSpec(name, kindArgs, false); err != nil {
			return nil, err
		}
	}
	for _, spec := range f.typeSet {
		name, kindArgs, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, &fastgrep.ConfigError{Context: "type-set", Msg: fmt.Sprintf("malformed %q", spec)}
		}
		if err := tm.AddFilterSpec(name, kindArgs, true); err != nil {
			return nil, err
		}
	}
	for _, name := range f.typeDel {
		tm.DeleteType(name)
	}
	for _, name := range f.types {
		if err := tm.Enable(name); err != nil {
			return nil, err
		}
	}
	for _, name := range f.notypes {
		if err := tm.Disable(name); err != nil {
			return nil, err
		}
	}
	for _, g := range f.globs {
		tm.AddOrderedGlob(g.pattern, g.include)
	}
	for _, g := range f.ignoreFile {
		if err := tm.AddAnonymousIgnore(g); err != nil {
			return nil, err
		}
	}

	return tm, nil
}

func parseColorMode(s string) fastgrep.ColorMode {
	switch s {
	case "always":
		return fastgrep.ColorAlways
	case "never":
		return fastgrep.ColorNever
	default:
		return fastgrep.ColorAuto
	}
}

// loadConfigFile merges .fastgrep.yaml (or --config) into any flag the
// user did not set explicitly, with the usual viper-backed config
// layering (defaults < file < explicit flags).
func loadConfigFile(cmd *cobra.Command, f *cliFlags) error {
	v := viper.New()
	v.SetConfigType("yaml")

	if f.configFile != "" {
		v.SetConfigFile(f.configFile)
	} else {
		v.SetConfigName(".fastgrep")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || f.configFile == "" {
			return nil
		}
		return &fastgrep.ConfigError{Context: "config", Msg: err.Error()}
	}

	apply := func(flagName string, dst interface{}) {
		if cmd.Flags().Changed(flagName) || !v.IsSet(flagName) {
			return
		}
		switch d := dst.(type) {
		case *bool:
			*d = v.GetBool(flagName)
		case *int:
			*d = v.GetInt(flagName)
		case *string:
			*d = v.GetString(flagName)
		case *[]string:
			*d = v.GetStringSlice(flagName)
		}
	}

	apply("ignore-case", &f.ignoreCase)
	apply("word-regexp", &f.wholeWord)
	apply("literal", &f.literal)
	apply("recurse", &f.recurse)
	apply("follow", &f.follow)
	apply("jobs", &f.jobs)
	apply("dirjobs", &f.dirJobs)
	apply("regex-engine", &f.engine)
	apply("type", &f.types)
	apply("notype", &f.notypes)
	apply("type-add", &f.typeAdd)

	// include/exclude share one ordered slice to preserve CLI interleave
	// order (see globFlag); a config file's "include"/"exclude" lists have
	// no such cross-key ordering to preserve, so they're only consulted
	// when the user set neither flag, and applied include-then-exclude.
	if !cmd.Flags().Changed("include") && !cmd.Flags().Changed("exclude") {
		for _, g := range v.GetStringSlice("include") {
			f.globs = append(f.globs, orderedGlobArg{pattern: g, include: true})
		}
		for _, g := range v.GetStringSlice("exclude") {
			f.globs = append(f.globs, orderedGlobArg{pattern: g, include: false})
		}
	}

	apply("ignore-file", &f.ignoreFile)
	apply("ignore-dir", &f.ignoreDir)
	apply("color", &f.colorMode)
	apply("stats-file", &f.statsFile)

	return nil
}
