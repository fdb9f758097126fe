// Package audit keeps a host-side archive of device event logs. The device
// log holds only the newest few entries; batches copied here survive
// overwrites and log clears.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/audit/migrations"
	"github.com/dmitrijs2005/safekeeper/internal/dbx"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Record is one archived event.
type Record struct {
	ID       string
	BatchID  string
	Position int
	models.Event
}

// Batch describes one archive run.
type Batch struct {
	ID         string
	ArchivedAt time.Time
	Entries    int
}

// Repository is the archive contract.
type Repository interface {
	Archive(ctx context.Context, evs []models.Event) (string, error)
	Batches(ctx context.Context) ([]Batch, error)
	Records(ctx context.Context, batchID string) ([]Record, error)
	Close() error
}

// RunMigrations brings the schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the archive at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate audit archive: %w", err)
	}
	return NewSQLiteRepository(db), nil
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Archive stores evs as one batch in a single transaction and returns the
// batch ID.
func (r *SQLiteRepository) Archive(ctx context.Context, evs []models.Event) (string, error) {
	batch := uuid.NewString()
	at := r.now().UTC().Format(time.RFC3339Nano)

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO audit_batches (id, archived_at, entries) VALUES (?, ?, ?)`,
			batch, at, len(evs))
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		for i, ev := range evs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO audit_events (id, batch_id, position, sequence, event_type, user_index)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), batch, i, ev.Sequence, uint8(ev.Type), ev.UserIndex)
			if err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return batch, nil
}

// Batches lists archive runs, oldest first.
func (r *SQLiteRepository) Batches(ctx context.Context) ([]Batch, error) {
	out, err := dbx.QueryAll(ctx, r.db, scanBatch,
		`SELECT id, archived_at, entries FROM audit_batches ORDER BY archived_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select batches: %w", err)
	}
	return out, nil
}

// Records returns the events of one batch in log order.
func (r *SQLiteRepository) Records(ctx context.Context, batchID string) ([]Record, error) {
	out, err := dbx.QueryAll(ctx, r.db, scanRecord,
		`SELECT id, batch_id, position, sequence, event_type, user_index
		FROM audit_events WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to select events: %w", err)
	}
	return out, nil
}

func scanBatch(rows *sql.Rows) (Batch, error) {
	var (
		b  Batch
		at string
	)
	if err := rows.Scan(&b.ID, &at, &b.Entries); err != nil {
		return b, err
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return b, fmt.Errorf("batch %s: bad timestamp %q: %w", b.ID, at, err)
	}
	b.ArchivedAt = t
	return b, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec            Record
		seq, typ, user int64
	)
	if err := rows.Scan(&rec.ID, &rec.BatchID, &rec.Position, &seq, &typ, &user); err != nil {
		return rec, err
	}
	rec.Event = models.Event{Type: models.EventType(typ), UserIndex: uint8(user), Sequence: uint8(seq)}
	return rec, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

var _ Repository = (*SQLiteRepository)(nil)
