package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/jchantrell/bfstool/internal/bfs"
)

// CatalogOptions configures catalog creation
type CatalogOptions struct {
	// Source is recorded in the archive metadata table
	Source string

	// Hash computes an xxhash64 digest of every file's uncompressed contents
	Hash bool

	// Workers bounds concurrent hashing. Defaults to GOMAXPROCS
	Workers int

	// OnFile is called after each file is hashed, possibly from several goroutines
	OnFile func(path string, size int64)
}

// CatalogSummary reports what a catalog run wrote
type CatalogSummary struct {
	Files            int
	UncompressedSize int64
	Duration         time.Duration
}

// BuildCatalog replaces the catalog tables in db with the contents of archive
func BuildCatalog(ctx context.Context, db *Database, archive *bfs.Archive, opts CatalogOptions) (*CatalogSummary, error) {
	start := time.Now()

	var rows []FileRow
	var total int64
	err := archive.Walk(func(p string, fi bfs.FileInfo) error {
		dir, name := path.Split(p)
		rows = append(rows, FileRow{
			Path:             p,
			Dir:              strings.TrimSuffix(dir, "/"),
			Name:             name,
			Offset:           fi.Offset,
			CompressedSize:   fi.CompressedSize,
			UncompressedSize: fi.UncompressedSize,
			Compressed:       fi.Compressed(),
		})
		total += fi.UncompressedSize
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking archive: %w", err)
	}

	if opts.Hash {
		if err := hashFiles(ctx, archive, rows, opts); err != nil {
			return nil, err
		}
	}

	if err := NewDDLManager(db).CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}

	inserter := NewBulkInserter(db, nil)
	if err := inserter.InsertFiles(ctx, rows); err != nil {
		return nil, fmt.Errorf("inserting files: %w", err)
	}

	header := archive.Header()
	metadata := map[string]string{
		"source":         opts.Source,
		"magic":          string(header.Magic[:]),
		"declared_files": strconv.FormatUint(uint64(header.FileCount), 10),
		"indexed_files":  strconv.Itoa(archive.Len()),
		"header_size":    strconv.FormatUint(uint64(header.HeaderSize()), 10),
		"flag":           strconv.FormatBool(header.Flag()),
		"hashed":         strconv.FormatBool(opts.Hash),
	}
	if err := inserter.SetMetadata(ctx, metadata); err != nil {
		return nil, fmt.Errorf("writing archive metadata: %w", err)
	}

	summary := &CatalogSummary{
		Files:            len(rows),
		UncompressedSize: total,
		Duration:         time.Since(start),
	}

	slog.Debug("Catalog written",
		"database", db.Path(),
		"files", summary.Files,
		"bytes", summary.UncompressedSize,
		"duration", summary.Duration)

	return summary, nil
}

// hashFiles fills in XXHash for every row using a pool of workers, each reading
// through its own archive file handle
func hashFiles(ctx context.Context, archive *bfs.Archive, rows []FileRow, opts CatalogOptions) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range min(workers, len(rows)) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			buf := make([]byte, 64*1024)
			for i := range tasks {
				digest, err := hashFile(archive, rows[i].Path, buf)
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("hashing %s: %w", rows[i].Path, err)
						cancel()
					})
					return
				}

				rows[i].XXHash = digest
				if opts.OnFile != nil {
					opts.OnFile(rows[i].Path, rows[i].UncompressedSize)
				}
			}
		}()
	}

feed:
	for i := range rows {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}

func hashFile(archive *bfs.Archive, name string, buf []byte) (string, error) {
	f, err := archive.OpenFile(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", err
	}
	if n != f.Size() {
		return "", fmt.Errorf("read %d of %d bytes: %w", n, f.Size(), io.ErrUnexpectedEOF)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// QueryResult holds a query result with every value rendered as text
type QueryResult struct {
	Columns []string
	Rows    [][]string
}

// RunQuery executes query and collects all rows as strings. NULL is rendered as
// "NULL" and binary values as hex
func (d *Database) RunQuery(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return result, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("%x", v)
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
