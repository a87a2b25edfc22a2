package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mla/mla/chart-go/internal/chart"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a chart file for invalid objects and overlapping versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readSaveFile(args[0])
			if err != nil {
				return err
			}
			for i, e := range file.Entities {
				if err := chart.Validate(e); err != nil {
					return fmt.Errorf("entity %d: %w", i, err)
				}
			}
			for i, l := range file.Links {
				if err := chart.Validate(l); err != nil {
					return fmt.Errorf("link %d: %w", i, err)
				}
			}
			for i, sh := range file.Shapes {
				if err := chart.Validate(sh); err != nil {
					return fmt.Errorf("shape %d: %w", i, err)
				}
			}
			if _, err := loadStore(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entity versions, %d link versions, %d shapes\n",
				len(file.Entities), len(file.Links), len(file.Shapes))
			return nil
		},
	}
}
