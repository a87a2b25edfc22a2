package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/config"
	"github.com/mla/mla/chart-go/internal/history"
	"github.com/mla/mla/chart-go/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlactl",
		Short:         "Inspect and render link-analysis charts",
		Long:          "mlactl reads chart save files and renders, slices, imports into and analyses them without a server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	root.PersistentFlags().String("date", "", "chart date as YYYY-MM-DD (default today)")

	root.AddCommand(newRenderCmd(), newSliceCmd(), newImportCmd(), newAnalyzeCmd(), newValidateCmd())
	return root
}

func readSaveFile(path string) (chart.SaveFile, error) {
	var file chart.SaveFile
	data, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("decode %s: %w", path, err)
	}
	return file, nil
}

func loadStore(path string) (*store.Store, error) {
	file, err := readSaveFile(path)
	if err != nil {
		return nil, err
	}
	st := store.New()
	if err := st.Apply(store.Load{File: file}); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return st, nil
}

func dateFlag(cmd *cobra.Command) (time.Time, error) {
	v, _ := cmd.Flags().GetString("date")
	if v == "" {
		return history.StartOfDay(time.Now()), nil
	}
	d, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", v, err)
	}
	return d, nil
}

// catalogFlag loads --types, or an empty catalog when it is unset.
func catalogFlag(cmd *cobra.Command) (*config.Catalog, error) {
	path, _ := cmd.Flags().GetString("types")
	if path == "" {
		return config.EmptyCatalog(), nil
	}
	return config.LoadCatalog(path)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
