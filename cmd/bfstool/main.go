package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jchantrell/bfstool/internal/bfs"
	"github.com/jchantrell/bfstool/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	dbPath       string
	outputDir    string
	workers      int
	cacheEntries int
	logLevel     string
	logFormat    string
	noProgress   bool
)

var rootCmd = &cobra.Command{
	Use:   "bfstool",
	Short: "Inspect and extract BFS game archives",
	Long: `bfstool reads BFS archives (magic "bfs1"), a read-only container used to package
game assets. It lists and extracts archived files, streams single files to stdout,
and can write a queryable SQLite catalog of an archive's index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("database") {
			cfg.Database = dbPath
		}
		if cmd.Flags().Changed("output") {
			cfg.Output = outputDir
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		if cmd.Flags().Changed("cache-entries") {
			cfg.CacheEntries = cacheEntries
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if cmd.Flags().Changed("no-progress") {
			cfg.NoProgress = noProgress
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))

		slog.Debug("Configuration",
			"database", cfg.Database,
			"output", cfg.Output,
			"workers", cfg.Workers,
			"cache_entries", cfg.CacheEntries,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

// newLogger builds the process logger: tint for text output, the JSON handler otherwise
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level: level,
		})
	}

	return slog.New(handler)
}

// openArchive opens the archive at path with the configured cache and logger
func openArchive(path string) (*bfs.Archive, error) {
	archive, err := bfs.Open(path, bfs.Options{
		Logger:       slog.Default(),
		CacheEntries: cfg.CacheEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	slog.Debug("Opened archive", "path", path, "files", archive.Len())
	return archive, nil
}

// progressEnabled reports whether progress bars may be drawn
func progressEnabled() bool {
	return !(cfg.NoProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is bfstool.yaml in home or pwd)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "catalog database file path")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "extraction output directory")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "concurrent workers for extraction and hashing")
	rootCmd.PersistentFlags().IntVar(&cacheEntries, "cache-entries", 0, "number of decompressed files kept in memory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")

	rootCmd.AddCommand(lsCmd, statCmd, catCmd, extractCmd, catalogCmd, queryCmd)
}
