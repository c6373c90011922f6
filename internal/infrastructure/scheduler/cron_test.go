package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	assert.Error(t, s.Schedule("broken", "not a spec", func(context.Context) {}))
	assert.Error(t, s.Schedule("nil", "@hourly", nil))
	assert.NoError(t, s.Schedule("hourly", "0 0 * * * *", func(context.Context) {}))
}

func TestJobsRunAndStop(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	var runs atomic.Int32
	require.NoError(t, s.Schedule("tick", "@every 1s", func(ctx context.Context) {
		runs.Add(1)
	}))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

func TestStopCancelsRunningJob(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	require.NoError(t, s.Schedule("slow", "@every 1s", func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
	}))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.True(t, cancelled.Load())
}

func TestNextRunsByName(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	require.NoError(t, s.Schedule("trending", "@hourly", func(context.Context) {}))
	require.NoError(t, s.Schedule("retention", "0 30 4 * * *", func(context.Context) {}))

	before := s.NextRuns()
	require.Len(t, before, 2)
	assert.True(t, before["trending"].IsZero())

	now := time.Now()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	next := s.NextRuns()
	require.Len(t, next, 2)
	assert.True(t, next["trending"].After(now))
	assert.True(t, next["trending"].Before(now.Add(time.Hour+time.Second)))
	assert.True(t, next["retention"].After(now))
}
