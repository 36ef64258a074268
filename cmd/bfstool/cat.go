package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	catOffset int64
	catLength int64
)

var catCmd = &cobra.Command{
	Use:   "cat <archive> <path>",
	Short: "Write an archived file to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		f, err := archive.OpenFile(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		if catOffset > 0 {
			if _, err := f.Seek(catOffset, io.SeekStart); err != nil {
				return fmt.Errorf("seeking to %d: %w", catOffset, err)
			}
		}

		var src io.Reader = f
		if catLength >= 0 {
			src = io.LimitReader(f, catLength)
		}

		if _, err := io.Copy(cmd.OutOrStdout(), src); err != nil {
			return fmt.Errorf("reading %s: %w", args[1], err)
		}

		return nil
	},
}

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "start at this uncompressed byte offset")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "write at most this many bytes")
}
