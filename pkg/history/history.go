// Package history records executed Bella programs and their results.
package history

import (
	"context"
	sterrors "errors"
	"fmt"
	"time"

	"github.com/oarkflow/bella/pkg/config"
)

var ErrNotFound = sterrors.New("run not found")

// Run is one execution of a program.
type Run struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Output    []any         `json:"output"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the run ended with an error.
func (r Run) Failed() bool {
	return r.Error != ""
}

type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns up to limit runs, newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.HistoryMemory:
		return NewMemoryStore(cfg.Limit), nil
	case config.HistoryFile:
		return NewFileStore(cfg.Path)
	case config.HistoryMySQL, config.HistoryPostgres:
		return NewSQLStore(ctx, cfg)
	case config.HistoryMongo:
		return NewMongoStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}

func clampList(runs []Run, limit int) []Run {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}
