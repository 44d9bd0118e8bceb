package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/google/uuid"
)

type activeBatch struct {
	ID     string
	Dir    string
	Cancel context.CancelFunc
	Result *BatchJobResult
	Done   chan struct{}

	mu        sync.Mutex
	progress  BatchProgress
	listeners []chan BatchProgress
}

// StartBatch begins rendering ids into dir in the background and returns the
// job id immediately. An empty dir uses the configured batch directory. Use
// SubscribeBatch for progress and BatchResult for the outcome.
//
// Returns ErrTooManyJobs if every job slot stays busy past the wait time.
func (s *Service) StartBatch(ctx context.Context, ids []int64, dir string) (string, error) {
	if err := s.jobLimiter.Acquire(ctx); err != nil {
		return "", err
	}

	if dir == "" {
		dir = s.BatchDir()
	}
	jobID := uuid.New().String()

	// The job outlives the request that started it but keeps its log fields.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.JobTimeout)

	job := &activeBatch{
		ID:     jobID,
		Dir:    dir,
		Cancel: cancel,
		Done:   make(chan struct{}),
		progress: BatchProgress{
			JobID: jobID,
			Phase: PhaseStarting,
			Dir:   dir,
			Total: len(ids),
		},
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	go func() {
		defer s.jobLimiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logging.FromContext(jobCtx).Error("panic in batch job", "job_id", jobID, "panic", r)
				job.update(func(p *BatchProgress) {
					p.Phase = PhaseFailed
					p.Error = fmt.Sprintf("internal error: %v", r)
				})
				job.Result = &BatchJobResult{JobID: jobID, Dir: dir, Error: job.snapshot().Error}
				s.finish(job)
			}
		}()
		s.processBatch(jobCtx, job, ids)
	}()

	return jobID, nil
}

func (s *Service) processBatch(ctx context.Context, job *activeBatch, ids []int64) {
	logger := logging.WithFields(ctx, "job_id", job.ID, "dir", job.Dir)
	logger.Info("batch started", "records", len(ids))

	job.update(func(p *BatchProgress) { p.Phase = PhaseRendering })

	sum := s.GenerateBatch(ctx, ids, job.Dir, func(done, total int) {
		job.update(func(p *BatchProgress) {
			p.Done = done
			p.Total = total
		})
	})

	job.update(func(p *BatchProgress) {
		p.Done = sum.Done()
		p.Succeeded = sum.Succeeded
		p.Failed = len(sum.Failed)
		if sum.Cancelled {
			p.Phase = PhaseCancelled
		} else {
			p.Phase = PhaseComplete
		}
	})
	job.Result = &BatchJobResult{JobID: job.ID, Dir: job.Dir, Summary: sum}
	if sum.Cancelled {
		job.Result.Error = ErrCancelled.Error()
	}
	s.finish(job)
}

// finish releases listeners and schedules the job for removal.
func (s *Service) finish(job *activeBatch) {
	job.closeListeners()
	close(job.Done)
	s.cleanup(job.ID, s.opts.JobRetention)
}

// SubscribeBatch returns a channel that receives progress updates. The
// current state is sent immediately; the channel is closed when the job ends.
func (s *Service) SubscribeBatch(jobID string) (<-chan BatchProgress, error) {
	job, err := s.job(jobID)
	if err != nil {
		return nil, err
	}

	ch := make(chan BatchProgress, 16)

	job.mu.Lock()
	defer job.mu.Unlock()

	ch <- job.progress
	if job.progress.Finished() {
		close(ch)
		return ch, nil
	}
	job.listeners = append(job.listeners, ch)
	return ch, nil
}

// CancelBatch asks a running job to stop before its next unit.
func (s *Service) CancelBatch(jobID string) error {
	job, err := s.job(jobID)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

// BatchResult returns the outcome of a job, blocking until it completes or
// ctx is done.
func (s *Service) BatchResult(ctx context.Context, jobID string) (*BatchJobResult, error) {
	job, err := s.job(jobID)
	if err != nil {
		return nil, err
	}

	select {
	case <-job.Done:
		return job.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetBatchProgress returns the current progress without blocking.
func (s *Service) GetBatchProgress(jobID string) (BatchProgress, error) {
	job, err := s.job(jobID)
	if err != nil {
		return BatchProgress{}, err
	}
	return job.snapshot(), nil
}

// ActiveJobs returns the progress of every tracked job.
func (s *Service) ActiveJobs() []BatchProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]BatchProgress, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.snapshot())
	}
	return out
}

func (s *Service) job(jobID string) (*activeBatch, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// cleanup removes the job from tracking after a delay.
func (s *Service) cleanup(jobID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
	})
}

// update applies fn to the progress and sends the result to all listeners.
func (job *activeBatch) update(fn func(*BatchProgress)) {
	job.mu.Lock()
	defer job.mu.Unlock()

	fn(&job.progress)
	for _, ch := range job.listeners {
		select {
		case ch <- job.progress:
		default:
			// Listener is slow: skip intermediate updates, but make room
			// for the terminal one.
			if job.progress.Finished() {
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- job.progress:
				default:
				}
			}
		}
	}
}

func (job *activeBatch) snapshot() BatchProgress {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.progress
}

// closeListeners closes all listener channels.
func (job *activeBatch) closeListeners() {
	job.mu.Lock()
	defer job.mu.Unlock()

	for _, ch := range job.listeners {
		close(ch)
	}
	job.listeners = nil
}
