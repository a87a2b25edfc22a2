package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/plugin"
	"github.com/mla/mla/chart-go/internal/store"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE INPUT",
		Short: "Merge INPUT into the chart FILE with an importer",
		Long: "Runs the --importer transform over INPUT and merges the batch into FILE. " +
			"Incoming versions replace the versions they overlap. The result is written to --output, or back to FILE.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("importer")
			im, err := plugin.NewDefaultRegistry().Get(name)
			if err != nil {
				return err
			}
			st, err := loadStore(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			batch, err := im.Import(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[1], err)
			}
			if batch.ErrorMessage != "" {
				return errors.New(batch.ErrorMessage)
			}
			if err := chart.ValidateBatch(batch); err != nil {
				return err
			}
			if err := st.Apply(store.MergeBatch{Batch: batch}); err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = args[0]
			}
			data, err := json.MarshalIndent(st.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %d entities, %d links, %d events into %s\n",
				len(batch.Entities), len(batch.Links), len(batch.Events), out)
			return nil
		},
	}
	cmd.Flags().String("importer", "csv", "importer name (csv or json)")
	cmd.Flags().StringP("output", "o", "", "output chart path (default FILE)")
	return cmd
}
