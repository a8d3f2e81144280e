package fastgrep

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsAccumulatesCounters(t *testing.T) {
	s := NewStats()
	s.addDirFound(true)
	s.addDirFound(false)
	s.addDirRejected(true)
	s.addFileFound()
	s.addFileFound()
	s.addFileRejected()
	s.addFileScanned(1024, 5*time.Millisecond)
	s.addIOError()
	s.addStatRequired()
	s.addStatAvoided()

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap.DirsFound)
	assert.Equal(t, int64(1), snap.DotDirsFound)
	assert.Equal(t, int64(1), snap.DirsRejected)
	assert.Equal(t, int64(1), snap.DotDirsRejected)
	assert.Equal(t, int64(2), snap.FilesFound)
	assert.Equal(t, int64(1), snap.FilesRejected)
	assert.Equal(t, int64(1), snap.FilesScanned)
	assert.Equal(t, int64(1024), snap.BytesRead)
	assert.Equal(t, int64(1), snap.IOErrors)
	assert.Equal(t, int64(1), snap.StatCallsRequired)
	assert.Equal(t, int64(1), snap.StatCallsAvoided)
	assert.NotEmpty(t, snap.RunID)
}

func TestStatsFinishRecordsElapsed(t *testing.T) {
	s := NewStats()
	time.Sleep(time.Millisecond)
	s.Finish()
	assert.Greater(t, s.Elapsed(), time.Duration(0))
}
