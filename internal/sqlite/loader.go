// This file implements JSONL loading for startup.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

const upsertDaySQL = `INSERT INTO availability (prop_ref, date, available, code, changeover)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (prop_ref, date) DO UPDATE SET
    available = excluded.available,
    code = excluded.code,
    changeover = excluded.changeover`

// loadJSONL reads path and upserts its days into the availability table
// in one transaction: all days load or none do. It returns the number of
// days loaded and of lines skipped as unusable.
func loadJSONL(db *sql.DB, path string) (int, int, error) {
	days, skipped, err := readDays(path)
	if err != nil {
		return 0, 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertDaySQL)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(dayArgs(d.propRef, d.day)...); err != nil {
			return 0, 0, fmt.Errorf("inserting %s %s: %w", d.propRef, d.day.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return len(days), skipped, nil
}

// dayArgs returns the upsert arguments of one day.
func dayArgs(propRef string, d types.DayAvailability) []any {
	return []any{propRef, d.Date.String(), boolToInt(d.Available), string(d.Code), boolToInt(d.Changeover)}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
