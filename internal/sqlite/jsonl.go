// This file reads and writes availability.jsonl, one day per line.
package sqlite

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// maxLineSize bounds one availability line.
const maxLineSize = 1 << 20

// dayRecord is one line of availability.jsonl. Unknown fields are ignored
// so that files written by newer versions still load.
type dayRecord struct {
	PropRef    string         `json:"prop_ref"`
	Date       string         `json:"date"`
	Available  bool           `json:"available"`
	Code       types.RateCode `json:"code"`
	Changeover bool           `json:"changeover"`
}

// day converts the record, and reports false when it names no property or
// no valid date.
func (r dayRecord) day() (types.DayAvailability, bool) {
	d := types.ParseDate(r.Date)
	if !d.IsValid() || r.PropRef == "" {
		return types.DayAvailability{}, false
	}
	return types.DayAvailability{
		Date:       d,
		Available:  r.Available,
		Code:       r.Code,
		Changeover: r.Changeover,
	}, true
}

// storedDay is a validated line: its property and its day.
type storedDay struct {
	propRef string
	day     types.DayAvailability
}

// readDays returns the usable days of the file at path in file order, and
// the number of non-blank lines it skipped because they did not decode or
// named no property or valid date. Later lines for the same day are kept;
// the loader's upsert lets them win.
func readDays(path string) ([]storedDay, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		days    []storedDay
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec dayRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		day, ok := rec.day()
		if !ok {
			skipped++
			continue
		}
		days = append(days, storedDay{propRef: rec.PropRef, day: day})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return days, skipped, nil
}

// writeDays replaces the file at path with records, one per line. The new
// content is written to a temp file in the same directory, synced, and
// renamed over path, so readers see either the old or the new file.
func writeDays(path string, records []dayRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".availability-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing %s %s: %w", rec.PropRef, rec.Date, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}

// ensureJSONL creates an empty file at path if none exists.
func ensureJSONL(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return os.WriteFile(path, nil, 0o644)
}
