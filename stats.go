package fastgrep

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Stats aggregates the telemetry spec §4.3 and §7 call for as shared
// atomic counters that every traversal and scan worker updates directly;
// there is no per-worker accumulation and no merge at shutdown. The mutex
// guards only the start time and the elapsed duration Finish records — a
// cumulative-counter struct with a snapshot accessor.
//
// RunID (github.com/google/uuid, grounded on blueman82-conductor) tags a
// single invocation's telemetry so a shared --stats-file can distinguish
// concurrent runs appending to it.
type Stats struct {
	RunID string

	DirsFound       atomic.Int64
	DirsRejected    atomic.Int64
	DotDirsFound    atomic.Int64
	DotDirsRejected atomic.Int64

	FilesFound    atomic.Int64
	FilesRejected atomic.Int64
	FilesScanned  atomic.Int64

	StatCallsRequired atomic.Int64
	StatCallsAvoided  atomic.Int64

	BytesRead  atomic.Int64
	IOErrors   atomic.Int64
	ScanTimeNs atomic.Int64

	mu        sync.Mutex
	startedAt time.Time
	elapsed   time.Duration
}

// NewStats creates a Stats stamped with a fresh run ID.
func NewStats() *Stats {
	return &Stats{RunID: uuid.NewString(), startedAt: time.Now()}
}

func (s *Stats) addDirFound(dot bool) {
	s.DirsFound.Add(1)
	if dot {
		s.DotDirsFound.Add(1)
	}
}

func (s *Stats) addDirRejected(dot bool) {
	s.DirsRejected.Add(1)
	if dot {
		s.DotDirsRejected.Add(1)
	}
}

func (s *Stats) addFileFound()    { s.FilesFound.Add(1) }
func (s *Stats) addFileRejected() { s.FilesRejected.Add(1) }

func (s *Stats) addFileScanned(bytesRead int64, elapsed time.Duration) {
	s.FilesScanned.Add(1)
	s.BytesRead.Add(bytesRead)
	s.ScanTimeNs.Add(elapsed.Nanoseconds())
}

func (s *Stats) addIOError() { s.IOErrors.Add(1) }

func (s *Stats) addStatRequired() { s.StatCallsRequired.Add(1) }
func (s *Stats) addStatAvoided()  { s.StatCallsAvoided.Add(1) }

// Finish stamps the wall-clock elapsed time for the run. Call once, after
// every stage has finished.
func (s *Stats) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = time.Since(s.startedAt)
}

// Elapsed returns the wall-clock duration recorded by Finish.
func (s *Stats) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Snapshot is an immutable copy of Stats' counters, suitable for
// formatting or JSON-encoding into a --stats-file line.
type Snapshot struct {
	RunID             string        `json:"run_id"`
	DirsFound         int64         `json:"dirs_found"`
	DirsRejected      int64         `json:"dirs_rejected"`
	DotDirsFound      int64         `json:"dot_dirs_found"`
	DotDirsRejected   int64         `json:"dot_dirs_rejected"`
	FilesFound        int64         `json:"files_found"`
	FilesRejected     int64         `json:"files_rejected"`
	FilesScanned      int64         `json:"files_scanned"`
	StatCallsRequired int64         `json:"stat_calls_required"`
	StatCallsAvoided  int64         `json:"stat_calls_avoided"`
	BytesRead         int64         `json:"bytes_read"`
	IOErrors          int64         `json:"io_errors"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		RunID:             s.RunID,
		DirsFound:         s.DirsFound.Load(),
		DirsRejected:      s.DirsRejected.Load(),
		DotDirsFound:      s.DotDirsFound.Load(),
		DotDirsRejected:   s.DotDirsRejected.Load(),
		FilesFound:        s.FilesFound.Load(),
		FilesRejected:     s.FilesRejected.Load(),
		FilesScanned:      s.FilesScanned.Load(),
		StatCallsRequired: s.StatCallsRequired.Load(),
		StatCallsAvoided:  s.StatCallsAvoided.Load(),
		BytesRead:         s.BytesRead.Load(),
		IOErrors:          s.IOErrors.Load(),
		Elapsed:           s.Elapsed(),
	}
}
