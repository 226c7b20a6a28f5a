package history

import (
	"context"
	"testing"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/pkg/events"
)

func TestRecorderSavesSuccessfulRun(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	rec := NewRecorder(store, nil)

	run, err := rec.Record(ctx, "let x = 2; print x * 21; print [x, x > 1];")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if run.Failed() || run.ID == "" {
		t.Fatalf("unexpected run %+v", run)
	}
	if len(run.Output) != 2 || run.Output[0] != float64(42) {
		t.Fatalf("unexpected output %v", run.Output)
	}
	nested, ok := run.Output[1].([]any)
	if !ok || len(nested) != 2 || nested[1] != true {
		t.Fatalf("unexpected nested output %v", run.Output[1])
	}
	stored, err := store.Get(ctx, run.ID)
	if err != nil || stored.Source != run.Source {
		t.Fatalf("run was not stored: %v", err)
	}
}

func TestRecorderSavesFailedRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	rec := NewRecorder(store, nil)

	run, err := rec.Record(ctx, "print 1; print nope;")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if !run.Failed() || run.ErrorCode != string(bella.ErrCodeRuntime) {
		t.Fatalf("expected runtime failure, got %+v", run)
	}
	if len(run.Output) != 0 {
		t.Fatalf("failed runs carry no output, got %v", run.Output)
	}

	run, _ = rec.Record(ctx, "print 1 +;")
	if run.ErrorCode != string(bella.ErrCodeParse) {
		t.Fatalf("expected parse failure, got %+v", run)
	}
	runs, _ := store.List(ctx, 0)
	if len(runs) != 2 {
		t.Fatalf("expected both failures stored, got %d", len(runs))
	}
}

func TestRecordProgram(t *testing.T) {
	ctx := context.Background()
	program, err := bella.Parse("print sqrt(81);")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	rec := NewRecorder(NewMemoryStore(0), nil)
	run, err := rec.RecordProgram(ctx, "print sqrt(81);", program)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if len(run.Output) != 1 || run.Output[0] != float64(9) {
		t.Fatalf("unexpected output %v", run.Output)
	}
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()
	_, parseErr := bella.Parse("let = 1;")
	rec := NewRecorder(NewMemoryStore(0), nil)
	run, err := rec.RecordError(ctx, "let = 1;", parseErr)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if run.ErrorCode != string(bella.ErrCodeParse) || len(run.Output) != 0 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestRecorderPublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	got := make(chan events.Event, 2)
	bus.Subscribe(events.EventRunCompleted, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})
	bus.Subscribe(events.EventRunFailed, func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})
	rec := NewRecorder(NewMemoryStore(0), nil).UseEvents(bus)
	ok, _ := rec.Record(context.Background(), "print 1;")
	bad, _ := rec.Record(context.Background(), "print x;")
	bus.Wait()
	close(got)

	types := map[string]events.EventType{}
	for e := range got {
		types[e.Source] = e.Type
	}
	if types[ok.ID] != events.EventRunCompleted || types[bad.ID] != events.EventRunFailed {
		t.Fatalf("unexpected events %v", types)
	}
}
