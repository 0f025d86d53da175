package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/crawlchunk/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one reading and filling the same run.
type Step interface {
	// Do executes the pipeline step.
	// Non-critical problems (a page that failed to fetch, a document
	// without chunks) are recorded in the run and Do returns nil.
	Do(ctx context.Context, run *model.CrawlRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The error of the failed step is recorded in
// the run and subsequent steps still execute.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order against run.
// Cancellation is checked between steps. A step that is already running
// must watch ctx itself. run.FinishedAt is refreshed after every step, so
// a store step saves the time at which the preceding work ended.
//
// Without WithContinueOnError the first step error is returned. Otherwise
// failures are only recorded in run.Error and Execute returns nil.
func (p *Pipeline) Execute(ctx context.Context, run *model.CrawlRun) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			run.TimedOut = true
			run.FinishedAt = time.Now()
			return err
		}

		if err := p.runStep(ctx, step, run); err != nil && !p.continueOnError {
			return err
		}
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}
	return nil
}

// runStep executes one step and records its outcome in run.
func (p *Pipeline) runStep(ctx context.Context, step Step, run *model.CrawlRun) error {
	logger := p.logger.With("step", step.Name(), "run", run.ID)
	logger.Info("executing step")

	start := time.Now()
	err := step.Do(ctx, run)
	run.FinishedAt = time.Now()
	elapsed := run.FinishedAt.Sub(start)

	if err != nil {
		logger.Error("step failed", "error", err, "duration", elapsed)
		run.Error = err.Error()
		return err
	}
	logger.Debug("step completed", "duration", elapsed)
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
