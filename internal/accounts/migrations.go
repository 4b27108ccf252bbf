package accounts

import (
	"context"
	"database/sql"
)

// Migration is one schema change to the accounts database. IDs are
// unique and ascending; each Up runs at most once per database file.
type Migration struct {
	ID int
	Up func(db *sql.DB) error
}

// The base accounts schema lives in createTables; only later changes to
// it belong here. For example:
//
//	{
//	 ID: 1,
//	 Up: func(db *sql.DB) error {
//	   _, err := db.Exec(`ALTER TABLE accounts ADD COLUMN currency TEXT;`)
//	   return err
//	 },
//	}
var migrations = []Migration{}

// ApplyMigrations runs every migration not yet recorded in the ledger
// table, recording each one as it lands.
func ApplyMigrations(ctx context.Context, db *sql.DB, logger func(msg string, args ...interface{})) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM migrations`)
	if err != nil {
		return err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		applied[id] = true
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		logger("Applying migration %d", m.ID)
		if err := m.Up(db); err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT INTO migrations (id) VALUES (?)`, m.ID); err != nil {
			return err
		}
		logger("Migration %d applied", m.ID)
	}

	return nil
}
