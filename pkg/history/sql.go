package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
	"github.com/oarkflow/squealx"
	"github.com/oarkflow/squealx/connection"

	"github.com/oarkflow/bella/pkg/config"
)

const runsTable = "bella_runs"

// SQLStore keeps runs in a MySQL or PostgreSQL table.
type SQLStore struct {
	db     *squealx.DB
	driver string
}

// NewSQLStore connects with cfg and creates the runs table when missing.
func NewSQLStore(ctx context.Context, cfg config.HistoryConfig) (*SQLStore, error) {
	db, _, err := connection.FromConfig(squealx.Config{
		Driver:      cfg.Driver,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Database:    cfg.Database,
		MaxIdleCons: 2,
		MaxOpenCons: 10,
	})
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStoreFromDB(ctx, db, cfg.Driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreFromDB wraps an open connection.
func NewSQLStoreFromDB(ctx context.Context, db *squealx.DB, driver string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("history database is nil")
	}
	s := &SQLStore{db: db, driver: driver}
	if _, err := db.ExecContext(ctx, createTableStatement(driver)); err != nil {
		return nil, err
	}
	return s, nil
}

func createTableStatement(driver string) string {
	textType := "TEXT"
	if driver == config.HistoryMySQL {
		textType = "LONGTEXT"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(32) PRIMARY KEY,
	source %s NOT NULL,
	output %s NOT NULL,
	error %s,
	error_code VARCHAR(64),
	started_at BIGINT NOT NULL,
	duration BIGINT NOT NULL
)`, runsTable, textType, textType, textType)
}

// placeholders returns n bind markers in the driver's syntax.
func placeholders(driver string, n int) []string {
	marks := make([]string, n)
	for i := range marks {
		if driver == config.HistoryPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return marks
}

const runColumns = "id, source, output, error, error_code, started_at, duration"

func insertStatement(driver string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		runsTable, runColumns, strings.Join(placeholders(driver, 7), ", "))
}

func selectByIDStatement(driver string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", runColumns, runsTable, placeholders(driver, 1)[0])
}

func listStatement(limit int) string {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY started_at DESC, id DESC", runColumns, runsTable)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}

func (s *SQLStore) Save(ctx context.Context, run Run) error {
	output, err := json.Marshal(run.Output)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, insertStatement(s.driver),
		run.ID,
		run.Source,
		string(output),
		run.Error,
		run.ErrorCode,
		run.StartedAt.UnixNano(),
		int64(run.Duration),
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		output    string
		runErr    sql.NullString
		code      sql.NullString
		startedAt int64
		duration  int64
	)
	if err := row.Scan(&run.ID, &run.Source, &output, &runErr, &code, &startedAt, &duration); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(output), &run.Output); err != nil {
		return Run{}, err
	}
	run.Error = runErr.String
	run.ErrorCode = code.String
	run.StartedAt = time.Unix(0, startedAt).UTC()
	run.Duration = time.Duration(duration)
	return run, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, selectByIDStatement(s.driver), id)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, err
		}
		return Run{}, ErrNotFound
	}
	return scanRun(rows)
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, listStatement(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
