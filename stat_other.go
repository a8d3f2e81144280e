//go:build !unix

package fastgrep

import (
	"io/fs"

	"github.com/zeebo/xxh3"
)

// statIdentity has no portable device/inode equivalent on this platform.
// Falling back to 0,0 for every entry would make the visited set treat
// every directory as a repeat of the first one it ever saw, so instead
// we derive a stable identity from the entry's resolved path: real
// hard-link/bind-mount cycles won't be caught, but ordinary recursion
// and symlink-loop guarding (where the resolved path repeats) still
// work correctly.
func statIdentity(path string, info fs.FileInfo) (dev, ino uint64) {
	return 0, xxh3.HashString(path)
}
