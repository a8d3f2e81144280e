package fastgrep

import "fmt"

// ConfigError covers malformed regexes, unknown types, ambiguous type
// prefixes, malformed filter specs, and malformed CLI input (spec §7).
// ConfigErrors are fatal: the process is expected to report them and
// exit 2 before any worker is launched.
type ConfigError struct {
	Context string // which subsystem raised it: "type", "filter-spec", "regex", ...
	Msg     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Context, e.Msg)
}

// FileOpenError reports a failure to open a file for scanning. It is
// always handled at the scanner worker boundary and never propagates past
// it (spec §7 "Propagation policy").
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("cannot open %s: %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error { return e.Err }

// FileReadError reports a failure reading an already-open file.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// InternalInvariantError marks a broken invariant (spec §7): these are
// treated as fatal, never caught and continued past.
type InternalInvariantError struct {
	Msg string
}

func (e *InternalInvariantError) Error() string {
	return "internal invariant violated: " + e.Msg
}
