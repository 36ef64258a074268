package main

import (
	"fmt"

	"github.com/jchantrell/bfstool/internal/utils"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <archive> [path]",
	Short: "Show archive header or entry details",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		out := cmd.OutOrStdout()

		if len(args) == 1 {
			h := archive.Header()
			fmt.Fprintf(out, "Magic:        %s\n", h.Magic[:])
			fmt.Fprintf(out, "Flag:         %t\n", h.Flag())
			fmt.Fprintf(out, "Header size:  %d\n", h.HeaderSize())
			fmt.Fprintf(out, "Hash size:    0x%x\n", h.HashSize)
			fmt.Fprintf(out, "Declared:     %s files\n", utils.Number(int64(h.FileCount)))
			fmt.Fprintf(out, "Indexed:      %s files\n", utils.Number(int64(archive.Len())))
			return nil
		}

		st, err := archive.Stat(args[1])
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Name:         %s\n", st.Name)
		if st.IsDir {
			fmt.Fprintf(out, "Type:         directory\n")
			return nil
		}

		info, err := archive.FileInfo(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Type:         file\n")
		fmt.Fprintf(out, "Size:         %d (%s)\n", st.Size, utils.Bytes(st.Size))
		fmt.Fprintf(out, "Compression:  %s\n", info.Compression)
		fmt.Fprintf(out, "Stored size:  %d\n", info.CompressedSize)
		fmt.Fprintf(out, "Offset:       0x%x\n", info.Offset)
		return nil
	},
}
