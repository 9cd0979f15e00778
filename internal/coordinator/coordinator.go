package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mbingest/internal/fetcher"
	"mbingest/internal/writer"
)

// Sink persists fetched payloads
type Sink interface {
	Write(data any) error
	Filename() string
}

// Job pairs a bound request with the sink its payload goes to
type Job struct {
	Fetcher fetcher.Fetcher
	Sink    Sink
}

// NewJob binds f to a fresh writer for its coin and API under rootDir
func NewJob(f fetcher.Fetcher, rootDir string) Job {
	return Job{
		Fetcher: f,
		Sink:    writer.New(f.Coin(), string(f.Type()), writer.WithRootDir(rootDir)),
	}
}

// Result is the outcome of one job.
// Path is set once the sink was written to, so it is empty when the fetch
// failed. A failed write keeps the path since earlier rows may be on disk.
type Result struct {
	Coin string
	API  fetcher.APIType
	Path string
	Err  error
}

// Coordinator runs ingestion jobs one after another
type Coordinator struct {
	jobs []Job
}

// New creates a new Coordinator with the given jobs
func New(jobs []Job) *Coordinator {
	return &Coordinator{
		jobs: jobs,
	}
}

// Run executes every job in order and returns one Result per job started.
// A failed job is logged and recorded; the run continues with the next one.
// Only a cancelled context stops the run early.
func (c *Coordinator) Run(ctx context.Context) ([]Result, error) {
	if len(c.jobs) == 0 {
		return nil, fmt.Errorf("no jobs configured")
	}

	runID := uuid.New().String()
	log := slog.With("run_id", runID)
	log.Info("ingestion started", "jobs", len(c.jobs))

	results := make([]Result, 0, len(c.jobs))
	for _, job := range c.jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := Result{
			Coin: job.Fetcher.Coin(),
			API:  job.Fetcher.Type(),
		}
		result.Path, result.Err = run(ctx, job)

		if result.Err != nil {
			log.Error("ingestion job failed",
				"coin", result.Coin,
				"api", result.API,
				"error", result.Err)
		} else {
			log.Info("ingestion job done",
				"coin", result.Coin,
				"api", result.API,
				"path", result.Path)
		}
		results = append(results, result)

		if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
			return results, result.Err
		}
	}

	log.Info("ingestion finished", "failed", Failed(results))
	return results, nil
}

// run returns the sink's file once a write was attempted
func run(ctx context.Context, job Job) (string, error) {
	data, err := job.Fetcher.Fetch(ctx)
	if err != nil {
		return "", err
	}

	path := job.Sink.Filename()
	if err := job.Sink.Write(data); err != nil {
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Failed counts the results that carry an error
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
