package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mla/mla/chart-go/internal/analysis"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run graph analysis on the chart as of --date",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "degree FILE",
			Short: "Rank nodes by degree centrality",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := loadGraph(cmd, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), analysis.Degree(g))
			},
		},
		&cobra.Command{
			Use:   "path FILE FROM TO",
			Short: "Print the shortest path between two node keys",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := loadGraph(cmd, args[0])
				if err != nil {
					return err
				}
				path, err := analysis.ShortestPath(g, args[1], args[2])
				if err != nil {
					return err
				}
				for _, key := range path {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", key, g.Label(key))
				}
				return nil
			},
		},
		newReachableCmd(),
		&cobra.Command{
			Use:   "communities FILE",
			Short: "Group nodes into communities by label propagation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := loadGraph(cmd, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), analysis.Groups(analysis.Communities(g, analysis.DefaultIterations)))
			},
		},
	)
	return cmd
}

func newReachableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reachable FILE KEY",
		Short: "List nodes within --hops of KEY with their distance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(cmd, args[0])
			if err != nil {
				return err
			}
			hops, _ := cmd.Flags().GetInt("hops")
			dist, err := analysis.Reachable(g, args[1], hops)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dist)
		},
	}
	cmd.Flags().Int("hops", 2, "maximum number of hops")
	return cmd
}

func loadGraph(cmd *cobra.Command, path string) (*analysis.Graph, error) {
	st, err := loadStore(path)
	if err != nil {
		return nil, err
	}
	date, err := dateFlag(cmd)
	if err != nil {
		return nil, err
	}
	return analysis.FromSlice(st.Slice(date)), nil
}
