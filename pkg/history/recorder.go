package history

import (
	"context"
	"time"

	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/interpreter"
	"github.com/oarkflow/bella/pkg/events"
)

// Recorder executes programs and saves every attempt to a Store.
type Recorder struct {
	store  Store
	logger *log.Logger
	bus    *events.EventBus
	now    func() time.Time
}

func NewRecorder(store Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// UseEvents makes the recorder publish a run_completed or run_failed event
// after every saved run.
func (r *Recorder) UseEvents(bus *events.EventBus) *Recorder {
	r.bus = bus
	return r
}

// Record parses and runs source. Program failures are reported in the
// returned Run; the error is only set when the run could not be saved.
func (r *Recorder) Record(ctx context.Context, source string, opts ...interpreter.Option) (Run, error) {
	return r.record(ctx, source, func() (interpreter.Output, error) {
		return bella.Run(ctx, source, opts...)
	})
}

// RecordProgram runs an already parsed program; source is stored as given.
func (r *Recorder) RecordProgram(ctx context.Context, source string, program *interpreter.Program, opts ...interpreter.Option) (Run, error) {
	return r.record(ctx, source, func() (interpreter.Output, error) {
		return bella.RunProgram(ctx, program, opts...)
	})
}

// RecordError stores a run that failed before it could execute, such as a
// source that does not parse.
func (r *Recorder) RecordError(ctx context.Context, source string, err error) (Run, error) {
	return r.record(ctx, source, func() (interpreter.Output, error) {
		return nil, err
	})
}

func (r *Recorder) record(ctx context.Context, source string, exec func() (interpreter.Output, error)) (Run, error) {
	run := Run{
		ID:        xid.New().String(),
		Source:    source,
		StartedAt: r.now().UTC(),
	}
	start := time.Now()
	out, err := exec()
	run.Duration = time.Since(start)
	run.Output = interpreter.OutputToHost(out)
	if err != nil {
		run.Error = err.Error()
		run.ErrorCode = string(bella.CodeOf(err))
	}
	if saveErr := r.store.Save(ctx, run); saveErr != nil {
		r.logger.Error().Err(saveErr).Str("run_id", run.ID).Msg("failed to save run")
		return run, saveErr
	}
	r.logger.Debug().
		Str("run_id", run.ID).
		Str("code", run.ErrorCode).
		Int("printed", len(run.Output)).
		Dur("duration", run.Duration).
		Msg("run recorded")
	r.publish(ctx, run)
	return run, nil
}

func (r *Recorder) publish(ctx context.Context, run Run) {
	if r.bus == nil {
		return
	}
	eventType := events.EventRunCompleted
	if run.Failed() {
		eventType = events.EventRunFailed
	}
	r.bus.Publish(ctx, events.Event{
		Type:   eventType,
		Source: run.ID,
		Payload: map[string]any{
			"id":          run.ID,
			"code":        run.ErrorCode,
			"printed":     len(run.Output),
			"duration_ms": float64(run.Duration) / float64(time.Millisecond),
		},
	})
}
