package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/mileusna/crontab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"menlo.ai/query-cache/app/domain/querycache"
)

type fakeSweeper struct {
	calls   int
	removed int
	err     error
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	f.calls++
	return f.removed, f.err
}

type fakeLock struct {
	held     bool
	released int
	err      error
}

func (l *fakeLock) TryLock(ctx context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, querycache.ErrSweepLockHeld
	}
	l.held = true
	return func() {
		l.held = false
		l.released++
	}, nil
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	sweeper := &fakeSweeper{removed: 3}
	lock := &fakeLock{}
	cs := &CronService{Sweeper: sweeper, Lock: lock}

	removed, err := cs.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, lock.released)
}

func TestSweep_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	sweeper := &fakeSweeper{removed: 3}
	cs := &CronService{Sweeper: sweeper, Lock: &fakeLock{held: true}}

	removed, err := cs.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, sweeper.calls)
}

func TestSweep_ReturnsLockFailure(t *testing.T) {
	ctx := context.Background()
	sweeper := &fakeSweeper{removed: 3}
	down := querycache.Unavailable("lock", errors.New("connection refused"))
	cs := &CronService{Sweeper: sweeper, Lock: &fakeLock{err: down}}

	removed, err := cs.Sweep(ctx)
	assert.ErrorIs(t, err, querycache.ErrStoreUnavailable)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, sweeper.calls)
}

func TestSweep_ReturnsSweeperError(t *testing.T) {
	ctx := context.Background()
	lock := &fakeLock{}
	cs := &CronService{Sweeper: &fakeSweeper{err: errors.New("down")}, Lock: lock}

	_, err := cs.Sweep(ctx)
	assert.Error(t, err)
	assert.False(t, lock.held)
}

func TestStart(t *testing.T) {
	ctab := crontab.New()
	defer ctab.Shutdown()

	cs := &CronService{Sweeper: &fakeSweeper{}, Schedule: "*/10 * * * *"}
	assert.NoError(t, cs.Start(context.Background(), ctab))

	cs.Schedule = "not a schedule"
	assert.Error(t, cs.Start(context.Background(), ctab))

	var disabled *CronService
	assert.NoError(t, disabled.Start(context.Background(), ctab))
}
