package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/expscan/expscan/internal/common"
	"github.com/expscan/expscan/internal/pipeline"
)

// FileProcessor is what a worker runs per job.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.ProcessResult, error)
}

// ProcessorQueue fans jobs out to a fixed worker pool. Each worker runs
// the whole pipeline for its document; there is no concurrency inside a
// single document's pass.
type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					var wait time.Duration
					if !job.SubmittedAt.IsZero() {
						wait = time.Since(job.SubmittedAt)
					}

					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					if job.TraceID != "" {
						ctx = common.WithTraceID(ctx, job.TraceID)
					}
					res, err := q.proc.ProcessFile(ctx, job.Path)
					cancel()

					switch {
					case err != nil:
						q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path,
							"wait_ms", wait.Milliseconds(), "error", err)
					case res.IsDuplicate && !job.Force:
						q.logger.Warn("queue.job.duplicate", "worker_id", workerID, "path", job.Path,
							"wait_ms", wait.Milliseconds(), "confidence", res.DuplicateConfidence)
					default:
						q.logger.Info("queue.job.ok", "worker_id", workerID, "path", job.Path,
							"wait_ms", wait.Milliseconds(),
							"vendor", res.Extraction.Vendor, "amount", res.Extraction.Amount)
					}
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueued", "path", job.Path, "force", job.Force)
	default:
		q.logger.Warn("queue.full", "path", job.Path)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs to drain, bounded
// by the caller's context.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
