package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/JonMunkholm/tcgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore holds every Get until gate is closed.
type gatedStore struct {
	store.Store
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   store.NewMemStore(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, id int64) (schema.StoredRecord, bool, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return g.Store.Get(ctx, id)
}

func newGatedService(t *testing.T, opts Options) (*Service, *gatedStore) {
	t.Helper()
	st := newGatedStore()
	opts.OutputDir = t.TempDir()
	return NewService(st, render.New(render.Assets{}), opts), st
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out")
	}
}

func TestLimiter_BusyErrorAfterWait(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond, ErrTooManyJobs)
	require.True(t, l.TryAcquire())

	start := time.Now()
	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTooManyJobs)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, "JOB002", MapError(err).Code)

	l.Release()
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestLimiter_NilBusyMeansImports(t *testing.T) {
	l := NewLimiter(1, 10*time.Millisecond, nil)
	require.True(t, l.TryAcquire())
	defer l.Release()

	assert.ErrorIs(t, l.Acquire(context.Background()), ErrTooManyImports)
}

func TestLimiter_CancelledCallerIsNotBusy(t *testing.T) {
	l := NewLimiter(1, time.Minute, ErrTooManyJobs)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTooManyJobs))
}

func TestService_StartBatchBusyWhileJobRuns(t *testing.T) {
	s, st := newGatedService(t, Options{MaxJobs: 1, MaxWait: 20 * time.Millisecond})
	ids := seed(t, s, "One", "Two")
	ctx := context.Background()

	first, err := s.StartBatch(ctx, ids, "")
	require.NoError(t, err)
	waitClosed(t, st.entered)

	_, err = s.StartBatch(ctx, ids, "")
	assert.ErrorIs(t, err, ErrTooManyJobs)
	assert.Equal(t, LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, s.JobLimiter().Status())

	close(st.gate)
	res := waitResult(t, s, first)
	assert.Equal(t, 2, res.Summary.Succeeded)

	assert.Eventually(t, func() bool { return s.JobLimiter().ActiveCount() == 0 },
		2*time.Second, 5*time.Millisecond)
	second, err := s.StartBatch(ctx, ids, "")
	require.NoError(t, err)
	waitResult(t, s, second)
}

func TestService_ImportBusyWhileImportRuns(t *testing.T) {
	s, _ := newTestService(t, Options{MaxImports: 1, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()

	pr, pw := io.Pipe()
	type outcome struct {
		res ImportResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.ImportSpreadsheet(ctx, "first.csv", pr)
		done <- outcome{res, err}
	}()

	require.Eventually(t, func() bool { return s.ImportLimiter().ActiveCount() == 1 },
		2*time.Second, 5*time.Millisecond)

	res, err := s.ImportSpreadsheet(ctx, "second.csv", io.MultiReader())
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, "second.csv", res.FileName)
	assert.Zero(t, res.Imported)

	_, err = io.WriteString(pw, "Student Name,Register No\nAnitha 1,R1\n")
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, 1, first.res.Imported)
	assert.Equal(t, 0, s.ImportLimiter().ActiveCount())
}

func TestService_ShutdownWaitsForRunningUnit(t *testing.T) {
	s, st := newGatedService(t, Options{})
	ids := seed(t, s, "One", "Two", "Three")

	jobID, err := s.StartBatch(context.Background(), ids, "")
	require.NoError(t, err)
	waitClosed(t, st.entered)

	shutdown := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdown <- s.Shutdown(ctx)
	}()

	select {
	case err := <-shutdown:
		t.Fatalf("Shutdown returned while a unit was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(st.gate)
	select {
	case err := <-shutdown:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	assert.Equal(t, 0, s.JobLimiter().ActiveCount())
	res := waitResult(t, s, jobID)
	assert.True(t, res.Summary.Cancelled)
	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.Empty(t, res.Summary.Failed)
}

func TestService_ShutdownTimesOutWithHeldSlot(t *testing.T) {
	s, _ := newTestService(t, Options{})
	require.True(t, s.ImportLimiter().TryAcquire())
	defer s.ImportLimiter().Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "wait for imports")
}
