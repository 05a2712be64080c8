package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/momentum/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore(10, time.Hour)

	j := s.Create("yahoo")
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, "yahoo", j.Source)

	require.NoError(t, s.Start(j.ID))
	got, err := s.Get(j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.False(t, got.Done())

	require.NoError(t, s.Complete(j.ID, "scan-42"))
	got, _ = s.Get(j.ID)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, "scan-42", got.ReportID)
	assert.True(t, got.Done())
}

func TestStore_Fail(t *testing.T) {
	s := NewStore(10, time.Hour)
	j := s.Create("")

	require.NoError(t, s.Fail(j.ID, errors.New("source down")))
	got, _ := s.Get(j.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "source down", got.Error)
}

func TestStore_NotFound(t *testing.T) {
	s := NewStore(10, time.Hour)

	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, core.ErrNoData))
	assert.True(t, errors.Is(s.Start("missing"), core.ErrNoData))
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	s := NewStore(2, 0)
	first := s.Create("a")
	s.Create("b")
	s.Create("c")

	_, err := s.Get(first.ID)
	assert.Error(t, err)
	assert.Len(t, s.List(), 2)
}

func TestStore_EvictsExpiredFinished(t *testing.T) {
	now := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	s := NewStore(10, time.Minute)
	s.now = func() time.Time { return now }

	done := s.Create("a")
	require.NoError(t, s.Complete(done.ID, "r1"))
	running := s.Create("b")
	require.NoError(t, s.Start(running.ID))

	now = now.Add(2 * time.Minute)
	s.Create("c")

	_, err := s.Get(done.ID)
	assert.Error(t, err, "finished job past ttl is evicted")
	_, err = s.Get(running.ID)
	assert.NoError(t, err, "running jobs are kept")

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Source)
}
