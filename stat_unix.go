//go:build unix

package fastgrep

import (
	"io/fs"
	"syscall"
)

// statIdentity extracts the device and inode pair from a fs.FileInfo on
// unix-family platforms, where it backs the DeviceInodePair cycle guard
// (spec §3, §4.3). path is unused here; it exists so the non-unix
// fallback (stat_other.go) has something to derive an identity from.
func statIdentity(path string, info fs.FileInfo) (dev, ino uint64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return uint64(st.Dev), uint64(st.Ino)
}
