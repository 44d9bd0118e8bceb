package core

// batch.go runs one render per record id with continue-on-error semantics.
//
// Units run sequentially by default or on a bounded errgroup pool when
// Workers > 1. Either way the progress callback is invoked under a lock, once
// per finished unit, with a strictly increasing done count. Cancellation is
// checked before each unit is started; a unit that has started always runs
// to completion.

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RenderFunc produces the output for one record id.
type RenderFunc func(ctx context.Context, id int64) error

// ProgressFunc receives the running count of finished units.
type ProgressFunc func(done, total int)

// UnitFailure records one failed unit.
type UnitFailure struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
	Code   string `json:"code"`
	Err    error  `json:"-"`
}

// BatchSummary is the outcome of a batch run. When Cancelled is set it covers
// only the units that ran.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    []UnitFailure `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Done returns how many units finished, successfully or not.
func (s BatchSummary) Done() int {
	return s.Succeeded + len(s.Failed)
}

// BatchRunner executes batches. The zero value runs units sequentially.
type BatchRunner struct {
	Workers int
}

// Run renders every id in order. See the file comment for semantics.
func (b BatchRunner) Run(ctx context.Context, ids []int64, render RenderFunc, onProgress ProgressFunc) BatchSummary {
	start := time.Now()

	t := &tally{
		total:      len(ids),
		onProgress: onProgress,
		failed:     make(map[int]UnitFailure),
	}

	if b.Workers > 1 {
		b.runPooled(ctx, ids, render, t)
	} else {
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			t.record(i, id, render(context.WithoutCancel(ctx), id))
		}
	}

	sum := t.summary()
	sum.Cancelled = ctx.Err() != nil && sum.Done() < len(ids)
	sum.Duration = time.Since(start)
	return sum
}

func (b BatchRunner) runPooled(ctx context.Context, ids []int64, render RenderFunc, t *tally) {
	var g errgroup.Group
	g.SetLimit(b.Workers)

	unitCtx := context.WithoutCancel(ctx)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The unit may have waited for a slot while the batch was cancelled.
			if ctx.Err() != nil {
				return nil
			}
			t.record(i, id, render(unitCtx, id))
			return nil
		})
	}
	_ = g.Wait()
}

// tally accumulates unit results and serializes progress delivery.
type tally struct {
	mu         sync.Mutex
	total      int
	done       int
	succeeded  int
	failed     map[int]UnitFailure
	onProgress ProgressFunc
}

func (t *tally) record(index int, id int64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.failed[index] = UnitFailure{ID: id, Reason: err.Error(), Code: MapError(err).Code, Err: err}
	} else {
		t.succeeded++
	}
	t.done++
	if t.onProgress != nil {
		t.onProgress(t.done, t.total)
	}
}

func (t *tally) summary() BatchSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := make([]int, 0, len(t.failed))
	for i := range t.failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	failed := make([]UnitFailure, 0, len(idx))
	for _, i := range idx {
		failed = append(failed, t.failed[i])
	}
	return BatchSummary{Total: t.total, Succeeded: t.succeeded, Failed: failed}
}
