package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jchantrell/bfstool/internal/database"
	"github.com/spf13/cobra"
)

var (
	queryTables bool
	querySchema string
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Query the catalog database",
	Long: `Query runs SQL against a catalog written by the catalog command, lists its
tables, or shows a table's columns. The database is opened read-only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		slog.Debug("Query parameters",
			"database", cfg.Database,
			"tables", queryTables,
			"schema", querySchema)

		opts := database.DefaultDatabaseOptions(cfg.Database)
		opts.ReadOnly = true

		db, err := database.NewDatabase(opts)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		out := cmd.OutOrStdout()

		switch {
		case queryTables:
			tables, err := db.Tables(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Available tables:")
			for _, name := range tables {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil

		case querySchema != "":
			result, err := db.RunQuery(ctx,
				`SELECT name, type, "notnull", COALESCE(dflt_value, 'NULL'), pk FROM pragma_table_info(?)`,
				querySchema)
			if err != nil {
				return fmt.Errorf("getting schema for table %s: %w", querySchema, err)
			}
			if len(result.Rows) == 0 {
				return fmt.Errorf("table %s not found", querySchema)
			}

			fmt.Fprintf(out, "Schema for table '%s':\n", querySchema)
			fmt.Fprintf(out, "%-20s %-15s %-10s %-10s %-5s\n", "Column", "Type", "NotNull", "Default", "Primary")
			fmt.Fprintln(out, strings.Repeat("-", 64))
			for _, row := range result.Rows {
				fmt.Fprintf(out, "%-20s %-15s %-10s %-10s %-5s\n",
					row[0], row[1], yesNo(row[2]), row[3], yesNo(row[4]))
			}
			return nil

		case len(args) == 1:
			slog.Debug("Executing SQL query", "query", args[0])

			result, err := db.RunQuery(ctx, args[0])
			if err != nil {
				return fmt.Errorf("executing query: %w", err)
			}

			printResult(out, result)
			return nil

		default:
			return fmt.Errorf("provide a SQL query, --tables, or --schema <table>")
		}
	},
}

// printResult writes result as tab-separated rows under a header line
func printResult(w io.Writer, result *database.QueryResult) {
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, row := range result.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	fmt.Fprintf(w, "\n(%d rows)\n", len(result.Rows))
}

func yesNo(flag string) string {
	if flag == "0" {
		return "NO"
	}
	return "YES"
}

func init() {
	queryCmd.Flags().BoolVar(&queryTables, "tables", false, "list available tables")
	queryCmd.Flags().StringVar(&querySchema, "schema", "", "show the columns of a table")
}
