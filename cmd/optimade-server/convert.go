package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/optimade-go/internal/dataset"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a dataset between JSON and MessagePack, optionally zstd-compressed",
		Long: "The formats are picked by file extension: .json, .msgpack or .mpk, " +
			"each optionally followed by .zst.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			format, err := dataset.DetectFormat(args[1])
			if err != nil {
				return err
			}
			data, err := dataset.Encode(docs, format)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d documents to %s\n", len(docs), args[1])
			return nil
		},
	}
}
