package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Receipts are stored as the same JSON record the file store writes, keyed by id.
// id_sequence keeps the greatest id ever saved so deleted ids are never handed out again.
const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    id INTEGER PRIMARY KEY,
    record TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS id_sequence (
    name TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
