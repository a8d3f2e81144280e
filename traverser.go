package fastgrep

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// dirTask is one unit of work on the Traverser's internal directory
// queue (spec §4.3 step 1) — distinct from the bounded inter-stage
// queue[T] primitive: this one is intra-stage, unbounded, and drained by
// the Traverser's own worker pool only.
type dirTask struct {
	path string
	rel  string // root-relative path, "" at a root
}

// symlinkCacheSize bounds the resolved-symlink-target cache (spec §9
// "Global exclusion table" sibling note does not apply here directly;
// this is its own small bounded cache, grounded on Aman-CERP-amanmcp's
// use of hashicorp/golang-lru for exactly this kind of repeated-lookup
// avoidance).
const symlinkCacheSize = 4096

// TraverserOptions configures a Traverser (spec §4.3).
type TraverserOptions struct {
	Recurse       bool
	FollowSymlink bool
	DirWorkers    int
	DirFilter     *DirectoryInclusionFilter
	Types         *TypeManager
	Stats         *Stats
}

// Traverser walks one or more root paths, applying the directory and
// file filters, and emits accepted files onto Out (spec §4.3).
type Traverser struct {
	opts TraverserOptions
	Out  *queue[FileIdentity]

	visited *visitedSet
	linkLRU *lru.Cache[string, resolvedLink]

	dq dirQueue
	wg sync.WaitGroup
}

type resolvedLink struct {
	target string
	dev    uint64
	ino    uint64
	isDir  bool
	ok     bool
}

// NewTraverser builds a Traverser ready for Run.
func NewTraverser(opts TraverserOptions, out *queue[FileIdentity]) *Traverser {
	if opts.DirWorkers < 1 {
		opts.DirWorkers = 4
	}
	cache, _ := lru.New[string, resolvedLink](symlinkCacheSize)
	t := &Traverser{
		opts:    opts,
		Out:     out,
		visited: newVisitedSet(),
		linkLRU: cache,
	}
	t.dq.init()
	return t
}

// Run walks roots to completion, closing Out when every directory has
// been drained and no worker is still producing (spec §4.3 step 3,
// DESIGN.md Open Question (c)).
func (t *Traverser) Run(ctx context.Context, roots []string) {
	for _, root := range roots {
		t.seed(root)
	}

	var workers sync.WaitGroup
	for i := 0; i < t.opts.DirWorkers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			t.worker(ctx)
		}()
	}

	go func() {
		t.wg.Wait()
		t.dq.closeQueue()
	}()

	workers.Wait()
	t.Out.Close()
}

func (t *Traverser) seed(root string) {
	info, err := os.Lstat(root)
	if err != nil {
		return
	}

	dev, ino := statIdentity(root, info)
	if info.IsDir() {
		if !t.visited.TryMark(DeviceInodePair{Dev: dev, Ino: ino}) {
			return
		}
		t.wg.Add(1)
		t.dq.push(dirTask{path: root, rel: ""})
		return
	}

	// A root that is itself a file: emit it directly without a directory
	// listing. filepath.Base keeps Name consistent with directory-derived
	// entries.
	if t.opts.Types.ShouldScan(filepath.Base(root), firstLineOpenerFor(t.opts.Types, root)) {
		t.Out.Push(FileIdentity{
			Path:            root,
			Name:            filepath.Base(root),
			Kind:            KindFile,
			DeviceInodePair: DeviceInodePair{Dev: dev, Ino: ino},
			Size:            info.Size(),
			SizeKnown:       true,
		})
		t.opts.Stats.addFileFound()
	} else {
		t.opts.Stats.addFileRejected()
	}
}

func (t *Traverser) worker(ctx context.Context) {
	for {
		task, ok := t.dq.pop()
		if !ok {
			return
		}
		t.processDir(ctx, task)
		t.wg.Done()
	}
}

func (t *Traverser) processDir(ctx context.Context, task dirTask) {
	entries, err := os.ReadDir(task.path)
	if err != nil {
		t.opts.Stats.addIOError()
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		t.processEntry(task, entry)
	}
}

func (t *Traverser) processEntry(task dirTask, entry os.DirEntry) {
	name := entry.Name()
	absPath := filepath.Join(task.path, name)
	relPath := name
	if task.rel != "" {
		relPath = task.rel + string(filepath.Separator) + name
	}
	dot := strings.HasPrefix(name, ".")

	typ := entry.Type()
	kindKnown := typ&os.ModeSymlink != 0 || typ.IsDir() || typ.IsRegular()
	if kindKnown {
		t.opts.Stats.addStatAvoided()
	} else {
		t.opts.Stats.addStatRequired()
	}

	switch {
	case typ&os.ModeSymlink != 0:
		t.processSymlink(task, absPath, relPath, name)
	case typ.IsDir():
		t.processSubdir(task, entry, absPath, relPath, name, dot)
	case typ.IsRegular():
		t.processFile(absPath, relPath, name, entry, dot)
	default:
		info, err := entry.Info()
		if err != nil {
			t.opts.Stats.addIOError()
			return
		}
		if info.IsDir() {
			t.processSubdir(task, entry, absPath, relPath, name, dot)
		} else if info.Mode().IsRegular() {
			t.processFile(absPath, relPath, name, entry, dot)
		}
		// Other kinds (fifo, socket, device) are silently skipped.
	}
}

func (t *Traverser) processSubdir(task dirTask, entry os.DirEntry, absPath, relPath, name string, dot bool) {
	t.opts.Stats.addDirFound(dot)

	if !t.opts.Recurse {
		t.opts.Stats.addDirRejected(dot)
		return
	}
	if t.opts.DirFilter.ShouldExclude(name) {
		t.opts.Stats.addDirRejected(dot)
		return
	}
	if t.opts.Types.MatchesGitIgnore(relPath, true) {
		t.opts.Stats.addDirRejected(dot)
		return
	}

	info, err := entry.Info()
	if err != nil {
		t.opts.Stats.addIOError()
		return
	}
	dev, ino := statIdentity(absPath, info)
	if !t.visited.TryMark(DeviceInodePair{Dev: dev, Ino: ino}) {
		return
	}

	t.wg.Add(1)
	t.dq.push(dirTask{path: absPath, rel: relPath})
}

func (t *Traverser) processFile(absPath, relPath, name string, entry os.DirEntry, dot bool) {
	if t.opts.Types.MatchesGitIgnore(relPath, false) {
		t.opts.Stats.addFileRejected()
		return
	}
	if !t.opts.Types.ShouldScan(name, firstLineOpenerFor(t.opts.Types, absPath)) {
		t.opts.Stats.addFileRejected()
		return
	}

	info, err := entry.Info()
	if err != nil {
		t.opts.Stats.addIOError()
		return
	}
	dev, ino := statIdentity(absPath, info)

	t.opts.Stats.addFileFound()
	t.Out.Push(FileIdentity{
		Path:            absPath,
		Name:            name,
		Kind:            KindFile,
		DeviceInodePair: DeviceInodePair{Dev: dev, Ino: ino},
		Size:            info.Size(),
		SizeKnown:       true,
	})
}

func (t *Traverser) processSymlink(task dirTask, absPath, relPath, name string) {
	if !t.opts.FollowSymlink {
		return
	}

	link := t.resolveSymlink(absPath)
	if !link.ok {
		t.opts.Stats.addIOError()
		return
	}

	pair := DeviceInodePair{Dev: link.dev, Ino: link.ino}

	if link.isDir {
		dot := strings.HasPrefix(name, ".")
		t.opts.Stats.addDirFound(dot)
		if !t.opts.Recurse || t.opts.DirFilter.ShouldExclude(name) {
			t.opts.Stats.addDirRejected(dot)
			return
		}
		if !t.visited.TryMark(pair) {
			return
		}
		t.wg.Add(1)
		t.dq.push(dirTask{path: absPath, rel: relPath})
		return
	}

	// Resolved to a regular (or other) file: still goes through the
	// visited set so two symlinks pointing at the same target don't get
	// scanned twice.
	if !t.visited.TryMark(pair) {
		return
	}
	if !t.opts.Types.ShouldScan(name, firstLineOpenerFor(t.opts.Types, absPath)) {
		t.opts.Stats.addFileRejected()
		return
	}
	t.opts.Stats.addFileFound()
	t.Out.Push(FileIdentity{
		Path:            absPath,
		Name:            name,
		Kind:            KindFile,
		DeviceInodePair: pair,
		SizeKnown:       false,
	})
}

func (t *Traverser) resolveSymlink(absPath string) resolvedLink {
	if cached, ok := t.linkLRU.Get(absPath); ok {
		return cached
	}

	target, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		link := resolvedLink{ok: false}
		t.linkLRU.Add(absPath, link)
		return link
	}
	info, err := os.Stat(target)
	if err != nil {
		link := resolvedLink{ok: false}
		t.linkLRU.Add(absPath, link)
		return link
	}

	dev, ino := statIdentity(target, info)
	link := resolvedLink{target: target, dev: dev, ino: ino, isDir: info.IsDir(), ok: true}
	t.linkLRU.Add(absPath, link)
	return link
}

// firstLineOpenerFor returns a closure satisfying TypeManager.ShouldScan's
// firstLineOpener parameter, or nil when the manager has no
// firstlinematch filters to satisfy (avoids opening files unnecessarily).
func firstLineOpenerFor(tm *TypeManager, path string) func() (string, bool) {
	if !tm.HasFirstLineFilters() {
		return nil
	}
	return func() (string, bool) {
		return ReadFirstLine(path)
	}
}
