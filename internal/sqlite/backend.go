package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// Backend stores per-day availability of properties. It implements
// types.AvailabilityResolver.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach initializes the backend with the given configuration. It creates
// DataDir if needed, builds a fresh SQLite database, and loads
// availability.jsonl into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %q is not served by the sqlite store", types.ErrBackendUnknown, config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The JSONL file is authoritative; start from an empty database.
	dbPath := filepath.Join(dataDir, databaseFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	jsonlPath := filepath.Join(dataDir, availabilityJSONL)
	if err := ensureJSONL(jsonlPath); err != nil {
		db.Close()
		return err
	}
	n, skipped, err := loadJSONL(db, jsonlPath)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	b.logger.Debug("availability store attached", zap.String("data_dir", dataDir), zap.Int("days", n))
	if skipped > 0 {
		b.logger.Warn("skipped unusable availability lines", zap.String("file", jsonlPath), zap.Int("lines", skipped))
	}
	return nil
}

// Detach closes the SQLite connection. After Detach, all operations return
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Resolve returns the calendar of propRef. A property with no stored days
// yields an empty calendar.
func (b *Backend) Resolve(ctx context.Context, propRef string) (types.AvailabilitySource, error) {
	days, err := b.Days(ctx, propRef)
	if err != nil {
		return nil, err
	}
	return types.NewCalendar(days), nil
}

// Days returns the stored days of propRef in date order.
func (b *Backend) Days(ctx context.Context, propRef string) ([]types.DayAvailability, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	if propRef == "" {
		return nil, types.ErrInvalidPropRef
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT date, available, code, changeover FROM availability WHERE prop_ref = ? ORDER BY date`, propRef)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	var days []types.DayAvailability
	for rows.Next() {
		var (
			date, code            string
			available, changeover int
		)
		if err := rows.Scan(&date, &available, &code, &changeover); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		days = append(days, types.DayAvailability{
			Date:       types.ParseDate(date),
			Available:  available != 0,
			Code:       types.RateCode(code),
			Changeover: changeover != 0,
		})
	}
	return days, rows.Err()
}

// Properties returns the references of every property with stored days.
func (b *Backend) Properties(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT prop_ref FROM availability ORDER BY prop_ref`)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SetDay stores one day of propRef, replacing any previous entry, and
// rewrites availability.jsonl.
func (b *Backend) SetDay(propRef string, day types.DayAvailability) error {
	return b.Import(propRef, []types.DayAvailability{day})
}

// Import stores days of propRef in one transaction and rewrites
// availability.jsonl once. Every day must carry a valid date.
func (b *Backend) Import(propRef string, days []types.DayAvailability) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	if propRef == "" {
		return types.ErrInvalidPropRef
	}
	for _, d := range days {
		if !d.Date.IsValid() {
			return fmt.Errorf("%w: day without a valid date", types.ErrInvalidValue)
		}
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertDaySQL)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(dayArgs(propRef, d)...); err != nil {
			return fmt.Errorf("import %s %s: %w", propRef, d.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	b.logger.Debug("imported availability", zap.String("prop_ref", propRef), zap.Int("days", len(days)))
	return b.persistLocked()
}

// persistLocked rewrites availability.jsonl from the database. The caller
// holds b.mu.
func (b *Backend) persistLocked() error {
	rows, err := b.db.Query(
		`SELECT prop_ref, date, available, code, changeover FROM availability ORDER BY prop_ref, date`)
	if err != nil {
		return fmt.Errorf("query for persist: %w", err)
	}
	defer rows.Close()

	var records []dayRecord
	for rows.Next() {
		var (
			rec                   dayRecord
			available, changeover int
			code                  string
		)
		if err := rows.Scan(&rec.PropRef, &rec.Date, &available, &code, &changeover); err != nil {
			return fmt.Errorf("scan for persist: %w", err)
		}
		rec.Available = available != 0
		rec.Code = types.RateCode(code)
		rec.Changeover = changeover != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeDays(filepath.Join(b.config.DataDir, availabilityJSONL), records)
}
