package fastgrep

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindLiteralPrefixScalarAndVectorizedAgree(t *testing.T) {
	cases := []struct {
		data, prefix string
		from         int
	}{
		{"the quick brown fox", "quick", 0},
		{"the quick brown fox", "quick", 5},
		{"aaaaaaaaaaaaaaaab", "aab", 0},
		{"no match here", "zzz", 0},
		{"", "x", 0},
		{"exact", "exact", 0},
	}
	for _, c := range cases {
		scalar := findLiteralPrefixScalar([]byte(c.data), c.from, []byte(c.prefix))
		vectorized := findLiteralPrefixVectorized([]byte(c.data), c.from, []byte(c.prefix))
		assert.Equal(t, scalar, vectorized, "data=%q prefix=%q from=%d", c.data, c.prefix, c.from)
	}
}

func TestCountNewlinesScalarAndBulkAgree(t *testing.T) {
	cases := []string{
		"",
		"no newlines",
		"\n",
		"one\ntwo\nthree\n",
		strings.Repeat("x", 7) + "\n",
		strings.Repeat("a\n", 100),
		strings.Repeat("x", 1023) + "\n" + strings.Repeat("y", 1),
		// A newline immediately followed by a near-zero byte: borrow from
		// the zero byte produced by the XOR can corrupt a neighbor's high
		// bit if the zero-counting trick isn't borrow-safe.
		"\n\x0b\x00\x00\x00\x00\x00\x00",
		strings.Repeat("\n\x0b", 4),
		strings.Repeat("\n\x0b", 37) + "tail",
	}
	for _, data := range cases {
		scalar := countNewlinesScalar([]byte(data))
		bulk := countNewlinesBulk([]byte(data))
		assert.Equal(t, scalar, bulk, "data=%q", data)
	}
}

// TestCountNewlinesScalarAndBulkAgreeOnRandomBuffers guards against
// regressions that hand-picked cases could miss by accident: it compares
// the two implementations over many buffers with randomized length,
// newline density, and neighboring bytes (including runs of zero and
// near-zero bytes around each newline).
func TestCountNewlinesScalarAndBulkAgreeOnRandomBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(20260806))
	alphabet := []byte{'\n', 0x0a, 0x0b, 0x00, 0x01, 'x', 'y', ' '}

	for trial := 0; trial < 500; trial++ {
		n := rng.Intn(200)
		data := make([]byte, n)
		for i := range data {
			data[i] = alphabet[rng.Intn(len(alphabet))]
		}
		scalar := countNewlinesScalar(data)
		bulk := countNewlinesBulk(data)
		assert.Equal(t, scalar, bulk, "trial=%d data=%q", trial, data)
	}
}

func TestInstalledDispatchMatchesScalarBehavior(t *testing.T) {
	// findLiteralPrefix/countNewlines are installed once at package init by
	// probing the host CPU (installDispatch); whichever variant won, it
	// must agree with the scalar reference implementation.
	data := []byte("needle in the haystack\nsecond line\n")

	assert.Equal(t, findLiteralPrefixScalar(data, 0, []byte("haystack")), findLiteralPrefix(data, 0, []byte("haystack")))
	assert.Equal(t, countNewlinesScalar(data), countNewlines(data))
}
