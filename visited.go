package fastgrep

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// visitedSet tracks (device, inode) pairs already queued for descent, so a
// directory reachable via two paths (symlink cycle, hard link, bind mount)
// is only ever walked once (spec §3 "DeviceInodePair", §3 invariants).
//
// Sharded by hash to keep insert/lookup lock contention low across the
// directory-worker pool.
type visitedSet struct {
	shards []visitedShard
	mask   uint64
}

type visitedShard struct {
	mu   sync.Mutex
	seen map[DeviceInodePair]struct{}
}

const defaultVisitedShards = 16

func newVisitedSet() *visitedSet {
	n := nextPow2(defaultVisitedShards)
	vs := &visitedSet{
		shards: make([]visitedShard, n),
		mask:   uint64(n - 1),
	}
	for i := range vs.shards {
		vs.shards[i].seen = make(map[DeviceInodePair]struct{})
	}
	return vs
}

// TryMark atomically checks whether pair has been seen and, if not, marks
// it seen. Returns true iff this call is the one that marked it (i.e. the
// caller "won" and should descend into the directory).
func (vs *visitedSet) TryMark(pair DeviceInodePair) bool {
	h := hashDeviceInode(pair)
	shard := &vs.shards[h&vs.mask]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, ok := shard.seen[pair]; ok {
		return false
	}
	shard.seen[pair] = struct{}{}
	return true
}

// Len returns the total number of distinct pairs marked, for telemetry.
func (vs *visitedSet) Len() int {
	n := 0
	for i := range vs.shards {
		vs.shards[i].mu.Lock()
		n += len(vs.shards[i].seen)
		vs.shards[i].mu.Unlock()
	}
	return n
}

func hashDeviceInode(pair DeviceInodePair) uint64 {
	var buf [16]byte
	putUint64(buf[0:8], pair.Dev)
	putUint64(buf[8:16], pair.Ino)
	return xxh3.Hash(buf[:])
}

func putUint64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// nextPow2 rounds n up to the next power of two, minimum 1.
func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
