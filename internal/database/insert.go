package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// FileRow is one catalog row describing an archived file
type FileRow struct {
	Path             string
	Dir              string
	Name             string
	Offset           int64
	CompressedSize   int64
	UncompressedSize int64
	Compressed       bool
	// XXHash is the hex xxhash64 digest of the uncompressed contents, empty when not computed
	XXHash string
}

// BulkInserter handles efficient batch insertion of catalog rows
type BulkInserter struct {
	db        *Database
	batchSize int
}

// BulkInsertOptions configures bulk insertion behavior
type BulkInsertOptions struct {
	// BatchSize determines how many rows to insert per transaction
	BatchSize int
}

// DefaultBulkInsertOptions returns sensible defaults for bulk insertion
func DefaultBulkInsertOptions() *BulkInsertOptions {
	return &BulkInsertOptions{
		BatchSize: 1000,
	}
}

// NewBulkInserter creates a new bulk inserter with the given database and options
func NewBulkInserter(db *Database, options *BulkInsertOptions) *BulkInserter {
	if options == nil || options.BatchSize <= 0 {
		options = DefaultBulkInsertOptions()
	}

	return &BulkInserter{
		db:        db,
		batchSize: options.BatchSize,
	}
}

const insertFileSQL = `INSERT INTO files (path, dir, name, "offset", compressed_size, uncompressed_size, compressed, xxhash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// InsertFiles inserts rows in transactions of at most batchSize rows each
func (bi *BulkInserter) InsertFiles(ctx context.Context, rows []FileRow) error {
	if len(rows) == 0 {
		slog.Debug("No file rows to insert")
		return nil
	}

	for i := 0; i < len(rows); i += bi.batchSize {
		end := min(i+bi.batchSize, len(rows))

		if err := bi.insertBatch(ctx, rows[i:end]); err != nil {
			return fmt.Errorf("inserting batch %d-%d: %w", i, end-1, err)
		}
	}

	return nil
}

// insertBatch inserts a single batch of rows within a transaction
func (bi *BulkInserter) insertBatch(ctx context.Context, batch []FileRow) error {
	tx, err := bi.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	stmt, err := tx.PrepareContext(ctx, insertFileSQL)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range batch {
		var digest any
		if row.XXHash != "" {
			digest = row.XXHash
		}

		_, err := stmt.ExecContext(ctx,
			row.Path, row.Dir, row.Name,
			row.Offset, row.CompressedSize, row.UncompressedSize,
			row.Compressed, digest)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", row.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// SetMetadata replaces archive key/value metadata in one transaction
func (bi *BulkInserter) SetMetadata(ctx context.Context, metadata map[string]string) error {
	tx, err := bi.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO archive (key, value) VALUES (?, ?)`, key, metadata[key]); err != nil {
			return fmt.Errorf("writing metadata %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing metadata: %w", err)
	}

	return nil
}
