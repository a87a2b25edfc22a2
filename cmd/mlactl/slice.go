package main

import (
	"github.com/spf13/cobra"
)

func newSliceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slice FILE",
		Short: "Print the entities and links current on --date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStore(args[0])
			if err != nil {
				return err
			}
			date, err := dateFlag(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st.Slice(date))
		},
	}
}
