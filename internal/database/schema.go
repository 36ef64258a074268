package database

import (
	"context"
	"fmt"
	"log/slog"
)

// DDLRequest represents one DDL statement of the catalog schema
type DDLRequest struct {
	Type      string // "table" or "index"
	TableName string
	DDL       string
}

// catalogSchema lists the catalog DDL in creation order
var catalogSchema = []DDLRequest{
	{
		Type:      "table",
		TableName: "archive",
		DDL: `CREATE TABLE archive (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	},
	{
		Type:      "table",
		TableName: "files",
		DDL: `CREATE TABLE files (
    path              TEXT PRIMARY KEY,
    dir               TEXT NOT NULL,
    name              TEXT NOT NULL,
    "offset"          INTEGER NOT NULL,
    compressed_size   INTEGER NOT NULL,
    uncompressed_size INTEGER NOT NULL,
    compressed        INTEGER NOT NULL,
    xxhash            TEXT
)`,
	},
	{
		Type:      "index",
		TableName: "files",
		DDL:       `CREATE INDEX files_dir ON files(dir)`,
	},
}

// DDLManager creates and resets the catalog schema
type DDLManager struct {
	db *Database
}

// NewDDLManager creates a new DDL manager
func NewDDLManager(db *Database) *DDLManager {
	return &DDLManager{db: db}
}

// CreateSchema drops any previous catalog tables and creates them again in a single
// transaction
func (dm *DDLManager) CreateSchema(ctx context.Context) error {
	if dm.db == nil {
		return fmt.Errorf("database cannot be nil")
	}

	tx, err := dm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	dropped := map[string]bool{}
	for _, req := range catalogSchema {
		if dropped[req.TableName] {
			continue
		}
		dropped[req.TableName] = true

		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteSQLIdentifier(req.TableName)); err != nil {
			return fmt.Errorf("dropping table %s: %w", req.TableName, err)
		}
	}

	for _, req := range catalogSchema {
		if _, err := tx.ExecContext(ctx, req.DDL); err != nil {
			return fmt.Errorf("executing %s DDL for %s: %w", req.Type, req.TableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	slog.Debug("Created catalog schema", "statements", len(catalogSchema))
	return nil
}

// quoteSQLIdentifier quotes SQL identifiers to prevent conflicts with reserved words
func quoteSQLIdentifier(identifier string) string {
	// In SQLite, identifiers can be quoted with double quotes
	return fmt.Sprintf(`"%s"`, identifier)
}
