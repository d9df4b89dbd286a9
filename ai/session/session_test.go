package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGet(t *testing.T) {
	s := NewStore(time.Minute)

	s.Put("sess", State{LastIntent: "navigate", LastAlias: "센터소개"})

	st, ok := s.Get("sess")
	require.True(t, ok)
	assert.Equal(t, "navigate", st.LastIntent)
	assert.Equal(t, "센터소개", st.LastAlias)
	assert.False(t, st.UpdatedAt.IsZero())

	_, ok = s.Get("unknown")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Put("sess", State{LastIntent: "ask_info"})

	// Still alive just inside the TTL.
	s.now = func() time.Time { return base.Add(59 * time.Second) }
	_, ok := s.Get("sess")
	assert.True(t, ok)

	// Gone past it.
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = s.Get("sess")
	assert.False(t, ok)
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(time.Minute)

	s.Update("sess", func(st State) State {
		st.LastTag = "투어"
		return st
	})
	s.Update("sess", func(st State) State {
		st.NavigationMode = true
		return st
	})

	st, ok := s.Get("sess")
	require.True(t, ok)
	assert.Equal(t, "투어", st.LastTag)
	assert.True(t, st.NavigationMode)
}

func TestCleanupJobDefaults(t *testing.T) {
	j := NewCleanupJob(NewStore(0), CleanupConfig{})
	assert.Equal(t, DefaultCleanupInterval, j.config.Interval)

	j = NewCleanupJob(NewStore(0), CleanupConfig{Interval: time.Hour})
	assert.Equal(t, time.Hour, j.config.Interval)
}

func TestCleanupJobRunOnce(t *testing.T) {
	s := NewStore(time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Put("old-1", State{})
	s.Put("old-2", State{})
	s.now = func() time.Time { return base.Add(30 * time.Second) }
	s.Put("fresh", State{})

	s.now = func() time.Time { return base.Add(90 * time.Second) }
	j := NewCleanupJob(s, CleanupConfig{})
	assert.Equal(t, 2, j.RunOnce())
	assert.Equal(t, 1, s.Len())

	// Nothing left to sweep.
	assert.Equal(t, 0, j.RunOnce())
}

func TestCleanupJobContextCancellation(t *testing.T) {
	s := NewStore(time.Minute)
	j := NewCleanupJob(s, CleanupConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup job did not stop on cancellation")
	}
}
