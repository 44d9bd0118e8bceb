package core

import "time"

// BatchPhase indicates the current stage of a batch job.
type BatchPhase string

const (
	PhaseStarting  BatchPhase = "starting"
	PhaseRendering BatchPhase = "rendering"
	PhaseComplete  BatchPhase = "complete"
	PhaseFailed    BatchPhase = "failed"
	PhaseCancelled BatchPhase = "cancelled"
)

// BatchProgress represents the current state of a batch job.
type BatchProgress struct {
	JobID     string     `json:"jobId"`
	Phase     BatchPhase `json:"phase"`
	Dir       string     `json:"dir"`
	Total     int        `json:"total"`
	Done      int        `json:"done"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Error     string     `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed
}

// Percent returns the progress as a percentage (0-100).
func (p BatchProgress) Percent() int {
	if p.Total <= 0 {
		if p.Phase == PhaseComplete {
			return 100
		}
		return 0
	}
	return (p.Done * 100) / p.Total
}

// Finished reports whether the job has reached a terminal phase.
func (p BatchProgress) Finished() bool {
	switch p.Phase {
	case PhaseComplete, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// BatchJobResult is the final outcome of an asynchronous batch.
type BatchJobResult struct {
	JobID   string       `json:"jobId"`
	Dir     string       `json:"dir"`
	Summary BatchSummary `json:"summary"`
	Error   string       `json:"error,omitempty"`
}

// Options tunes a Service. Zero values fall back to the defaults noted on
// each field.
type Options struct {
	OutputDir   string // Single certificates and reports; default "."
	BatchDir    string // Batch output under OutputDir; default "batch_print"
	MaxFileSize int64  // Import size limit; default DefaultMaxFileSize
	Workers     int    // Batch render workers; default 1 (sequential)

	MaxImports int           // Concurrent imports; default DefaultMaxConcurrent
	MaxJobs    int           // Concurrent batch jobs; default 2
	MaxWait    time.Duration // Slot wait before rejecting; default DefaultMaxWaitTime

	ImportTimeout time.Duration // Per import; default 10m
	JobTimeout    time.Duration // Per batch job; default 30m
	JobRetention  time.Duration // How long finished jobs stay queryable; default 5m
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.BatchDir == "" {
		o.BatchDir = "batch_print"
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MaxImports <= 0 {
		o.MaxImports = DefaultMaxConcurrent
	}
	if o.MaxJobs <= 0 {
		o.MaxJobs = 2
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWaitTime
	}
	if o.ImportTimeout <= 0 {
		o.ImportTimeout = 10 * time.Minute
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Minute
	}
	if o.JobRetention <= 0 {
		o.JobRetention = 5 * time.Minute
	}
	return o
}
