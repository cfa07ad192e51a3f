package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eleven-am/hlsladder/internal/domain"
	"github.com/eleven-am/hlsladder/internal/metrics"
)

// BatchResult partitions the settled outcomes of one batch, each side in
// submission order.
type BatchResult struct {
	BatchID   string
	Successes []domain.EncodeOutcome
	Failures  []domain.EncodeOutcome
}

func (b BatchResult) Failed() bool {
	return len(b.Failures) > 0
}

// Orchestrator fans a batch of encode jobs out to the engine and waits for
// every one of them to settle. A failing job never cancels its siblings.
type Orchestrator struct {
	engine   domain.Engine
	limit    int
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// NewOrchestrator runs at most limit jobs at once; limit <= 0 runs the whole
// batch concurrently.
func NewOrchestrator(engine domain.Engine, limit int, logger *slog.Logger, recorder *metrics.Recorder) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		engine:   engine,
		limit:    limit,
		logger:   logger,
		recorder: recorder,
	}
}

// Run settles every job. When any job failed the result is still returned
// alongside a *domain.BatchError.
func (o *Orchestrator) Run(ctx context.Context, jobs []domain.EncodeJob) (BatchResult, error) {
	if len(jobs) == 0 {
		return BatchResult{}, domain.ErrNoRenditionsPlanned
	}

	batchID := uuid.NewString()
	logger := o.logger.With("batch_id", batchID)
	logger.Info("encode batch started", "jobs", len(jobs), "limit", o.limit)

	outcomes := make([]domain.EncodeOutcome, len(jobs))

	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = o.runJob(ctx, logger, job)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{BatchID: batchID}
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			result.Successes = append(result.Successes, outcome)
		} else {
			result.Failures = append(result.Failures, outcome)
		}
	}

	logger.Info("encode batch settled", "successes", len(result.Successes), "failures", len(result.Failures))

	if result.Failed() {
		return result, &domain.BatchError{Count: len(result.Failures), Failures: result.Failures}
	}
	return result, nil
}

func (o *Orchestrator) runJob(ctx context.Context, logger *slog.Logger, job domain.EncodeJob) (outcome domain.EncodeOutcome) {
	outcome = domain.EncodeOutcome{JobID: job.ID, Rendition: job.Rendition}
	logger = logger.With("job_id", job.ID, "rendition", job.Rendition.Name, "mode", string(job.Mode))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = &domain.EncodeJobError{Rendition: job.Rendition.Name, Cause: fmt.Errorf("engine panic: %v", r)}
		}

		elapsed := time.Since(start)
		o.recorder.EncodeJob(string(job.Mode), outcome.Succeeded(), elapsed)

		switch {
		case outcome.Succeeded():
			logger.Info("encode job finished", "bandwidth", outcome.Bandwidth, "duration", elapsed)
		case isInterrupted(outcome.Err):
			logger.Warn("encode job interrupted", "duration", elapsed, "error", outcome.Err)
		default:
			logger.Error("encode job failed", "duration", elapsed, "error", outcome.Err)
		}
	}()

	logger.Debug("encode job started")

	res, err := o.engine.Encode(ctx, job)
	if err != nil {
		outcome.Err = &domain.EncodeJobError{Rendition: job.Rendition.Name, Cause: err}
		return outcome
	}

	outcome.Bandwidth = res.Bandwidth
	outcome.VariantPath = res.VariantPath
	return outcome
}
