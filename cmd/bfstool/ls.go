package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jchantrell/bfstool/internal/bfs"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <archive> [dir]",
	Short: "List archive contents recursively",
	Long: `List prints every directory and file below dir (the archive root by default),
one entry per line, indented by depth. Files show their uncompressed size.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		dir := ""
		if len(args) > 1 {
			dir = args[1]
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Files in %s:\n", args[0])
		return listDir(out, archive, dir, 1)
	},
}

// listDir prints the entries of dir and recurses into subdirectories
func listDir(w io.Writer, archive *bfs.Archive, dir string, indent int) error {
	return archive.Enumerate(dir, func(name string, isDir bool) error {
		full := strings.TrimPrefix(strings.TrimSuffix(dir, "/")+"/"+name, "/")

		if isDir {
			fmt.Fprintf(w, "%s%s <directory>\n", strings.Repeat(" ", indent), name)
			return listDir(w, archive, full, indent+1)
		}

		info, err := archive.FileInfo(full)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s <file, %d bytes>\n", strings.Repeat(" ", indent), name, info.UncompressedSize)
		return nil
	})
}
