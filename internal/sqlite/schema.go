// Package sqlite implements the SQLite availability store.
// availability.jsonl in the data directory is the source of truth; SQLite
// is the query engine, rebuilt from the file on every Attach.
package sqlite

// Schema DDL.
const (
	createAvailability = `CREATE TABLE availability (
    prop_ref TEXT NOT NULL,
    date TEXT NOT NULL,
    available INTEGER NOT NULL,
    code TEXT NOT NULL,
    changeover INTEGER NOT NULL,
    PRIMARY KEY (prop_ref, date)
);`

	idxAvailabilityProp = `CREATE INDEX idx_availability_prop ON availability(prop_ref);`
)

// schemaDDL lists all statements run on a fresh database, in order.
var schemaDDL = []string{
	createAvailability,
	idxAvailabilityProp,
}

// availabilityJSONL is the file name of the source of truth.
const availabilityJSONL = "availability.jsonl"

// databaseFile is the SQLite file created in the data directory.
const databaseFile = "availability.db"
