package async

import (
	"context"
	"time"
)

// Job is one document waiting for the pipeline.
type Job struct {
	Path        string
	Force       bool // process even when a duplicate is expected
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
