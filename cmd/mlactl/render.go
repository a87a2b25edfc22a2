package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mla/mla/chart-go/internal/engine"
	"github.com/mla/mla/chart-go/internal/store"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a chart to PNG as it looked on --date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readSaveFile(args[0])
			if err != nil {
				return err
			}
			date, err := dateFlag(cmd)
			if err != nil {
				return err
			}
			catalog, err := catalogFlag(cmd)
			if err != nil {
				return err
			}
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			out, _ := cmd.Flags().GetString("output")

			e, err := engine.New(store.New(), engine.Options{
				Width:   float64(width),
				Height:  float64(height),
				Catalog: catalog,
			})
			if err != nil {
				return err
			}
			defer e.Close()

			e.SetDate(date)
			if err := e.Load(file); err != nil {
				return err
			}
			if layout, _ := cmd.Flags().GetString("layout"); layout != "" {
				root, _ := cmd.Flags().GetString("root")
				if err := e.StartLayout(layout, root, 1, ""); err != nil {
					return err
				}
				e.Tick()
				e.FitView()
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := e.RenderPNG(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, width, height)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "chart.png", "output PNG path")
	cmd.Flags().Int("width", 1200, "image width in pixels")
	cmd.Flags().Int("height", 800, "image height in pixels")
	cmd.Flags().String("types", "", "TOML type catalog")
	cmd.Flags().String("layout", "", "apply a layout first: circular, tree or force")
	cmd.Flags().String("root", "", "root node key for the tree layout")
	return cmd
}
