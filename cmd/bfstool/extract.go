package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jchantrell/bfstool/internal/export"
	"github.com/jchantrell/bfstool/internal/utils"
	"github.com/spf13/cobra"
)

var (
	extractInclude []string
	extractExclude []string
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive> [prefix]",
	Short: "Extract archived files to the output directory",
	Long: `Extract writes every file below prefix (the whole archive by default) into the
output directory, recreating the archive's directory layout. Deflate-compressed files
are inflated on the way out.

--include and --exclude take gitignore-style patterns matched case-insensitively.
When any --include is given only matching files are extracted; --exclude always wins.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		archive, err := openArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}

		exporter, err := export.NewExporter(archive, cfg.Output, export.Options{
			Workers: cfg.Workers,
			Include: extractInclude,
			Exclude: extractExclude,
		})
		if err != nil {
			return fmt.Errorf("preparing export: %w", err)
		}

		entries, err := exporter.Select(prefix)
		if err != nil {
			return fmt.Errorf("selecting files: %w", err)
		}

		if len(entries) == 0 {
			slog.Info("No files matched", "archive", args[0], "prefix", prefix)
			return nil
		}

		var total int64
		for _, e := range entries {
			total += e.Info.UncompressedSize
		}

		slog.Info("Extracting files",
			"archive", args[0],
			"files", len(entries),
			"size", utils.Bytes(total),
			"output", cfg.Output)

		progress := utils.NewProgress(total, progressEnabled())
		err = exporter.ExportFiles(ctx, entries, func(path string, written int64) {
			progress.Add(written, path)
			slog.Debug("Extracted file", "path", path, "bytes", written)
		})
		progress.Finish()
		if err != nil {
			return fmt.Errorf("extracting files: %w", err)
		}

		elapsed := time.Since(start)
		slog.Info("Extraction complete",
			"files", utils.Number(int64(len(entries))),
			"size", utils.Bytes(total),
			"duration", utils.Duration(elapsed),
			"throughput", utils.Bytes(int64(float64(total)/max(elapsed.Seconds(), 0.001)))+"/s")

		return nil
	},
}

func init() {
	extractCmd.Flags().StringArrayVar(&extractInclude, "include", nil, "only extract paths matching this pattern (repeatable)")
	extractCmd.Flags().StringArrayVar(&extractExclude, "exclude", nil, "skip paths matching this pattern (repeatable)")
}
