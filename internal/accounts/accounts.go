// Package accounts persists the accounts discovered across statement
// imports, so a second statement for the same card lands on the same
// account instead of creating a duplicate.
package accounts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/charmbracelet/log"
	"github.com/lox/bank-statement-importer/internal/types"
)

// Store is a SQLite-backed account registry.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// New opens (creating if needed) the account database under dataDir.
func New(dataDir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataDir, "accounts.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("failed to set database pragmas: %v", err)
	}

	s := &Store{db: db, logger: logger}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}
	if err := ApplyMigrations(context.Background(), db, logger.Debugf); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %v", err)
	}
	return s, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			institution_name TEXT,
			account_name TEXT,
			account_type TEXT,
			account_subtype TEXT,
			account_number TEXT,
			holder_name TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
		CREATE INDEX IF NOT EXISTS idx_accounts_number ON accounts(user_id, account_number);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GenerateAccountID derives a stable ID from the identifying fields of a
// detected account, so re-importing the same statement is idempotent.
func GenerateAccountID(userID string, acct types.DetectedAccount) string {
	h := sha256.New()
	h.Write([]byte(userID))
	for _, f := range []*string{acct.InstitutionName, acct.AccountType, acct.AccountSubtype, acct.AccountNumber} {
		h.Write([]byte{0})
		if f != nil {
			h.Write([]byte(strings.ToLower(*f)))
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Upsert stores acct for userID and returns its ID. An account that
// already exists keeps its ID and gains any newly detected fields.
func (s *Store) Upsert(ctx context.Context, userID string, acct types.DetectedAccount) (string, error) {
	id := GenerateAccountID(userID, acct)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, institution_name, account_name, account_type, account_subtype, account_number, holder_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			institution_name = COALESCE(excluded.institution_name, accounts.institution_name),
			account_name     = COALESCE(excluded.account_name, accounts.account_name),
			account_type     = COALESCE(excluded.account_type, accounts.account_type),
			account_subtype  = COALESCE(excluded.account_subtype, accounts.account_subtype),
			account_number   = COALESCE(excluded.account_number, accounts.account_number),
			holder_name      = COALESCE(excluded.holder_name, accounts.holder_name)
	`, id, userID, acct.InstitutionName, acct.AccountName, acct.AccountType, acct.AccountSubtype, acct.AccountNumber, acct.HolderName)
	if err != nil {
		return "", fmt.Errorf("failed to upsert account: %v", err)
	}

	s.logger.Debug("upserted account", "id", id, "user", userID)
	return id, nil
}

// Get returns the stored account with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*types.DetectedAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT institution_name, account_name, account_type, account_subtype, account_number, holder_name
		FROM accounts WHERE id = ?
	`, id)

	var acct types.DetectedAccount
	err := row.Scan(&acct.InstitutionName, &acct.AccountName, &acct.AccountType, &acct.AccountSubtype, &acct.AccountNumber, &acct.HolderName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %v", err)
	}
	return &acct, nil
}

// List returns the IDs and details of all accounts stored for userID.
func (s *Store) List(ctx context.Context, userID string) (map[string]types.DetectedAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, institution_name, account_name, account_type, account_subtype, account_number, holder_name
		FROM accounts WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %v", err)
	}
	defer rows.Close()

	out := make(map[string]types.DetectedAccount)
	for rows.Next() {
		var id string
		var acct types.DetectedAccount
		if err := rows.Scan(&id, &acct.InstitutionName, &acct.AccountName, &acct.AccountType, &acct.AccountSubtype, &acct.AccountNumber, &acct.HolderName); err != nil {
			return nil, fmt.Errorf("failed to scan account: %v", err)
		}
		out[id] = acct
	}
	return out, rows.Err()
}

// MatchExistingAccount finds a stored account for userID that the
// detected account plausibly refers to. An account number match wins
// outright; failing that, institution plus account type plus holder name
// must all agree. Fields the statement never revealed do not count
// against a match.
func (s *Store) MatchExistingAccount(ctx context.Context, userID string, acct types.DetectedAccount) (string, bool, error) {
	existing, err := s.List(ctx, userID)
	if err != nil {
		return "", false, err
	}

	if acct.AccountNumber != nil {
		for id, e := range existing {
			if e.AccountNumber != nil && lastFour(*e.AccountNumber) == lastFour(*acct.AccountNumber) &&
				optionalEqualFold(e.InstitutionName, acct.InstitutionName) {
				s.logger.Debug("matched account by number", "id", id)
				return id, true, nil
			}
		}
	}

	for id, e := range existing {
		if acct.InstitutionName == nil || e.InstitutionName == nil {
			continue
		}
		if !strings.EqualFold(*e.InstitutionName, *acct.InstitutionName) {
			continue
		}
		if !optionalEqualFold(e.AccountType, acct.AccountType) {
			continue
		}
		if !optionalEqualFold(e.HolderName, acct.HolderName) {
			continue
		}
		s.logger.Debug("matched account by institution", "id", id)
		return id, true, nil
	}

	return "", false, nil
}

func lastFour(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

// optionalEqualFold treats a nil on either side as compatible: an absent
// field cannot contradict a present one.
func optionalEqualFold(a, b *string) bool {
	if a == nil || b == nil {
		return true
	}
	return strings.EqualFold(*a, *b)
}
