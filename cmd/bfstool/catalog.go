package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jchantrell/bfstool/internal/bfs"
	"github.com/jchantrell/bfstool/internal/database"
	"github.com/jchantrell/bfstool/internal/utils"
	"github.com/spf13/cobra"
)

var catalogHash bool

var catalogCmd = &cobra.Command{
	Use:   "catalog <archive>",
	Short: "Write the archive index into a SQLite database",
	Long: `Catalog records every file of an archive (path, offset, sizes and compression) in
the files table of the catalog database, replacing any previous catalog. Header fields
go into the archive table. With --hash each file is also read in full and its xxhash64
digest stored, which lets two archives be compared with plain SQL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		archive, err := openArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		source, err := filepath.Abs(args[0])
		if err != nil {
			source = args[0]
		}

		opts := database.CatalogOptions{
			Source:  source,
			Hash:    catalogHash,
			Workers: cfg.Workers,
		}

		var progress *utils.Progress
		if catalogHash {
			var total int64
			if err := archive.Walk(func(_ string, fi bfs.FileInfo) error {
				total += fi.UncompressedSize
				return nil
			}); err != nil {
				return fmt.Errorf("sizing archive: %w", err)
			}

			progress = utils.NewProgress(total, progressEnabled())
			opts.OnFile = func(path string, size int64) {
				progress.Add(size, path)
			}
		}

		slog.Info("Building catalog", "archive", args[0], "database", cfg.Database, "hash", catalogHash)

		summary, err := database.BuildCatalog(ctx, db, archive, opts)
		if progress != nil {
			progress.Finish()
		}
		if err != nil {
			return fmt.Errorf("building catalog: %w", err)
		}

		slog.Info("Catalog complete",
			"files", utils.Number(int64(summary.Files)),
			"size", utils.Bytes(summary.UncompressedSize),
			"duration", utils.Duration(summary.Duration),
			"files/s", utils.Rate(float64(summary.Files)/max(summary.Duration.Seconds(), 0.001)))

		return nil
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogHash, "hash", false, "store an xxhash64 digest of each file's contents")
}
