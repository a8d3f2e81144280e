package fastgrep

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalSinkPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, false)

	group := MatchGroup{
		Path: "main.go",
		Matches: []Match{
			{Line: 3, Text: []byte("fmt.Println(x)"), Highlights: []MatchOffset{{Start: 0, End: 3}}},
		},
	}
	require.NoError(t, sink.Emit(group))

	out := buf.String()
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "3:fmt.Println(x)")
}

func TestOutputCollectorDrainsAndReportsMatched(t *testing.T) {
	q := newQueue[MatchGroup](4)
	var buf bytes.Buffer
	sink := NewTerminalSink(&buf, false)
	collector := NewOutputCollector(q, sink)

	q.Push(MatchGroup{Path: "a.go", Matches: []Match{{Line: 1, Text: []byte("x")}}})
	q.Close()

	collector.Run()

	assert.True(t, collector.MatchedAny())
	assert.NoError(t, collector.Err())
	assert.Contains(t, buf.String(), "a.go")
}

func TestOutputCollectorNoMatchesWhenQueueEmpty(t *testing.T) {
	q := newQueue[MatchGroup](1)
	q.Close()

	var buf bytes.Buffer
	collector := NewOutputCollector(q, NewTerminalSink(&buf, false))
	collector.Run()

	assert.False(t, collector.MatchedAny())
}
