package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oarkflow/bella/pkg/config"
)

func sampleRun(i int) Run {
	return Run{
		ID:        fmt.Sprintf("run-%d", i),
		Source:    fmt.Sprintf("print %d;", i),
		Output:    []any{float64(i)},
		StartedAt: time.Unix(int64(1700000000+i), 0).UTC(),
		Duration:  time.Millisecond,
	}
}

func TestMemoryStoreKeepsNewestRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)
	for i := 1; i <= 5; i++ {
		if err := store.Save(ctx, sampleRun(i)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-5" || runs[2].ID != "run-3" {
		t.Fatalf("unexpected runs %v", runs)
	}
	if _, err := store.Get(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected evicted run to be gone, got %v", err)
	}
	run, err := store.Get(ctx, "run-4")
	if err != nil || run.Source != "print 4;" {
		t.Fatalf("unexpected run %v %v", run, err)
	}
	limited, _ := store.List(ctx, 2)
	if len(limited) != 2 || limited[0].ID != "run-5" {
		t.Fatalf("unexpected limited list %v", limited)
	}
}

func TestFileStorePersistsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := store.Save(ctx, sampleRun(i)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Save(ctx, sampleRun(4)); err != nil {
		t.Fatalf("save after reopen failed: %v", err)
	}
	runs, err := reopened.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 4 || runs[0].ID != "run-4" || runs[3].ID != "run-1" {
		t.Fatalf("unexpected runs %v", runs)
	}
	run, err := reopened.Get(ctx, "run-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(run.Output) != 1 || run.Output[0] != float64(2) || !run.StartedAt.Equal(sampleRun(2).StartedAt) {
		t.Fatalf("run did not round trip: %+v", run)
	}
	if _, err := reopened.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRejectsNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	if err := os.WriteFile(path, []byte(`{"id":"x"}`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatalf("expected invalid file error")
	}
}

func TestSQLStatements(t *testing.T) {
	pg := insertStatement(config.HistoryPostgres)
	if !strings.Contains(pg, "VALUES ($1, $2, $3, $4, $5, $6, $7)") {
		t.Fatalf("unexpected postgres insert %q", pg)
	}
	my := insertStatement(config.HistoryMySQL)
	if !strings.Contains(my, "VALUES (?, ?, ?, ?, ?, ?, ?)") {
		t.Fatalf("unexpected mysql insert %q", my)
	}
	if got := selectByIDStatement(config.HistoryPostgres); !strings.HasSuffix(got, "WHERE id = $1") {
		t.Fatalf("unexpected select %q", got)
	}
	if got := listStatement(5); !strings.HasSuffix(got, "ORDER BY started_at DESC, id DESC LIMIT 5") {
		t.Fatalf("unexpected list %q", got)
	}
	if strings.Contains(listStatement(0), "LIMIT") {
		t.Fatalf("unbounded list should not carry a LIMIT")
	}
	if !strings.Contains(createTableStatement(config.HistoryMySQL), "LONGTEXT") {
		t.Fatalf("mysql table should use LONGTEXT")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.HistoryConfig{Driver: config.HistoryMemory, Limit: 1})
	if err != nil {
		t.Fatalf("open memory failed: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
	fileStore, err := Open(ctx, config.HistoryConfig{Driver: config.HistoryFile, Path: filepath.Join(t.TempDir(), "h.json")})
	if err != nil {
		t.Fatalf("open file failed: %v", err)
	}
	defer fileStore.Close()
	if _, err := Open(ctx, config.HistoryConfig{Driver: "redis"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMongoDocumentMapping(t *testing.T) {
	run := sampleRun(3)
	run.Output = []any{float64(1), []any{true, float64(2)}}
	run.Error = "RUNTIME_ERROR: program failed"
	run.ErrorCode = "RUNTIME_ERROR"
	doc, err := toDocument(run)
	if err != nil {
		t.Fatalf("to document failed: %v", err)
	}
	if doc.ID != run.ID || doc.Output != "[1,[true,2]]" || doc.Duration != int64(time.Millisecond) {
		t.Fatalf("unexpected document %+v", doc)
	}
	back, err := fromDocument(doc)
	if err != nil {
		t.Fatalf("from document failed: %v", err)
	}
	nested, ok := back.Output[1].([]any)
	if !ok || nested[0] != true || back.ErrorCode != run.ErrorCode || !back.StartedAt.Equal(run.StartedAt) {
		t.Fatalf("unexpected run %+v", back)
	}
}
