package fastgrep

import (
	"bytes"
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// literal.go implements the literal fast path and newline counting
// described in spec §4.4/§4.5 and §9 "Multiversioned SIMD".
//
// Both fast paths are expressed as a pair of plain functions (a scalar
// fallback and a bulk/vectorized variant) with a one-time capability
// probe at init time that installs the chosen implementation behind a
// package-level function value, so the hot scan loop pays no per-call
// dispatch overhead (spec §9).

// findLiteralPrefix and countNewlines are resolved once at package init
// by probing CPU feature flags. Both candidate implementations for each
// must return identical results on every input; tests in literal_test.go
// assert this directly rather than trusting it by construction.
var (
	findLiteralPrefix func(data []byte, from int, prefix []byte) int
	countNewlines     func(data []byte) int
)

func init() {
	installDispatch(cpuid.CPU)
}

// installDispatch picks the scalar or bulk implementation for this CPU
// and installs it behind the package function values. Factored out of
// init so tests can force either path regardless of the host CPU.
func installDispatch(cpu cpuid.CPUInfo) {
	if cpu.Supports(cpuid.SSE2) || cpu.Supports(cpuid.ASIMD) {
		// stdlib's bytes.Index already dispatches to an
		// architecture-specific assembly routine that processes many
		// bytes per step; that is the "SIMD variant" for prefix search.
		findLiteralPrefix = findLiteralPrefixVectorized
		countNewlines = countNewlinesBulk
	} else {
		findLiteralPrefix = findLiteralPrefixScalar
		countNewlines = countNewlinesScalar
	}
}

func findLiteralPrefixVectorized(data []byte, from int, prefix []byte) int {
	if from >= len(data) {
		return -1
	}
	idx := bytes.Index(data[from:], prefix)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// findLiteralPrefixScalar is the portable fallback: a direct
// byte-by-byte search, used on platforms where the probe finds no
// wide-register support worth routing through.
func findLiteralPrefixScalar(data []byte, from int, prefix []byte) int {
	if len(prefix) == 0 {
		if from >= len(data) {
			return -1
		}
		return from
	}
	n, m := len(data), len(prefix)
	for i := from; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			if data[i+j] != prefix[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// countNewlinesScalar counts '\n' bytes one at a time.
func countNewlinesScalar(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

// countNewlinesBulk counts '\n' bytes 8 at a time using a SWAR
// (SIMD-within-a-register) bit trick: XOR each word against a
// newline-repeated pattern so matching bytes become zero, then count the
// zero bytes with countZeroBytes. This has no architecture-specific
// assembly, but it is the vectorized counterpart to the plain byte loop:
// 8 bytes examined per loop iteration instead of 1, selected only when
// the CPU probe confirms the host has the wide-register support to make
// that worthwhile.
func countNewlinesBulk(data []byte) int {
	const pattern = 0x0A0A0A0A0A0A0A0A // '\n' repeated 8 times

	n := 0
	i := 0
	for ; i+8 <= len(data); i += 8 {
		w := uint64(data[i]) | uint64(data[i+1])<<8 | uint64(data[i+2])<<16 | uint64(data[i+3])<<24 |
			uint64(data[i+4])<<32 | uint64(data[i+5])<<40 | uint64(data[i+6])<<48 | uint64(data[i+7])<<56
		n += countZeroBytes(w ^ pattern)
	}
	for ; i < len(data); i++ {
		if data[i] == '\n' {
			n++
		}
	}
	return n
}

// countZeroBytes returns how many of w's 8 bytes are zero.
//
// This deliberately avoids the classic "haszero" trick
// ((w-0x01..)&^w&0x80..), which only proves at least one zero byte
// exists: subtracting 1 from a zero byte borrows into the next byte up,
// which can flip that neighbor's high bit and make it look zero too,
// over-counting whenever a zero byte is immediately followed by a
// near-zero one. Instead, OR each byte's bits down into its own low bit
// (masking off what the shift pulls in from the byte above, so nothing
// crosses a byte boundary), leaving bit 0 of every byte set iff that
// byte is non-zero.
func countZeroBytes(w uint64) int {
	v := w
	v |= (v >> 1) & 0x7F7F7F7F7F7F7F7F
	v |= (v >> 2) & 0x3F3F3F3F3F3F3F3F
	v |= (v >> 4) & 0x0F0F0F0F0F0F0F0F
	nonZero := v & 0x0101010101010101
	zero := 0x0101010101010101 ^ nonZero
	return bits.OnesCount64(zero)
}
