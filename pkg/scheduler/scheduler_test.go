package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/oarkflow/bella/pkg/history"
)

func newScheduler() (*Scheduler, *history.MemoryStore) {
	store := history.NewMemoryStore(0)
	return New(history.NewRecorder(store, nil), nil), store
}

func TestAddAndRunNow(t *testing.T) {
	s, store := newScheduler()
	if err := s.Add("squares", "@every 1h", "let i = 1; while i <= 3 { print i * i; i = i + 1; }"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	run, err := s.RunNow(context.Background(), "squares")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(run.Output) != 3 || run.Output[2] != float64(9) {
		t.Fatalf("unexpected output %v", run.Output)
	}
	runs, _ := store.List(context.Background(), 0)
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("expected the run to be recorded, got %v", runs)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s, _ := newScheduler()
	if err := s.Add("bad-source", "@every 1m", "print ;"); err == nil || !strings.Contains(err.Error(), "PARSE_ERROR") {
		t.Fatalf("expected parse error, got %v", err)
	}
	if err := s.Add("bad-spec", "every minute", "print 1;"); err == nil {
		t.Fatalf("expected cron error")
	}
	if err := s.Add("tick", "*/5 * * * *", "print 1;"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.Add("tick", "@hourly", "print 2;"); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if names := s.Names(); len(names) != 1 || names[0] != "tick" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRemove(t *testing.T) {
	s, _ := newScheduler()
	if err := s.Add("tick", "@every 1m", "print 1;"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !s.Remove("tick") || s.Remove("tick") {
		t.Fatalf("remove should succeed exactly once")
	}
	if _, err := s.RunNow(context.Background(), "tick"); err == nil {
		t.Fatalf("expected missing schedule error")
	}
}

func TestStartStop(t *testing.T) {
	s, _ := newScheduler()
	s.Start()
	s.Stop()
}
