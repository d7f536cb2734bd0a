package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/achille-roussel/sqlrange"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"modernc.org/sqlite"

	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/migrations"
)

// MemoryOnlyDSN keeps the store in memory. The store holds a single
// connection, so the database lives as long as the Store.
const MemoryOnlyDSN = ":memory:"

// Store persists cache entries in SQLite so they survive restarts. The total
// size of stored results is bounded; the least recently written rows go
// first.
type Store struct {
	db     *sql.DB
	budget int
	now    func() time.Time
}

type row struct {
	Entry []byte `sql:"entry"`
}

// OpenStore opens (creating if needed) the store at dsn, a file path or
// MemoryOnlyDSN. In debug mode every statement is logged.
func OpenStore(ctx context.Context, dsn string, budget int, log *logging.Logger, debug bool) (*Store, error) {
	var db *sql.DB
	if debug {
		db = sqldblogger.OpenDriver(dsn, &sqlite.Driver{}, zerologadapter.New(log.Zerolog()),
			sqldblogger.WithMinimumLevel(sqldblogger.LevelDebug))
	} else {
		var err error
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
	}

	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open cache %s: %w", dsn, err)
	}
	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, budget: budget, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry stored for the root with namespace key key.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool, error) {
	for r, err := range sqlrange.QueryContext[row](ctx, s.db, `SELECT entry FROM compile_results WHERE root = ?`, key) {
		if err != nil {
			return nil, false, err
		}
		var e Entry
		if err := json.Unmarshal(r.Entry, &e); err != nil {
			return nil, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
		}
		return &e, true, nil
	}
	return nil, false, nil
}

// Put replaces the entry for key and prunes old rows over the budget.
func (s *Store) Put(ctx context.Context, key string, e *Entry) error {
	bs, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return tx1(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO compile_results (root, hash, entry, size, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (root) DO UPDATE SET hash = excluded.hash, entry = excluded.entry, size = excluded.size, updated_at = excluded.updated_at`,
			key, e.Key, bs, e.size(), s.now().UnixNano()); err != nil {
			return err
		}
		return s.prune(ctx, tx)
	})
}

// prune deletes the oldest rows until the stored results fit the budget.
func (s *Store) prune(ctx context.Context, tx *sql.Tx) error {
	var total sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT SUM(size) FROM compile_results`).Scan(&total); err != nil {
		return err
	}
	if int(total.Int64) <= s.budget {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT root, size FROM compile_results ORDER BY updated_at ASC, rowid ASC`)
	if err != nil {
		return err
	}

	over := int(total.Int64) - s.budget
	var victims []string
	for rows.Next() && over > 0 {
		var root string
		var size int
		if err := rows.Scan(&root, &size); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, root)
		over -= size
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return err
	}

	for _, root := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM compile_results WHERE root = ?`, root); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compile_results`).Scan(&n)
	return n, err
}

func tx1(ctx context.Context, db *sql.DB, f func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := f(tx); err != nil {
		return err
	}

	return tx.Commit()
}
