package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/export"
)

func pipelinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipelines",
		Short: "List the available pipelines and their stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLEVELS\tJOIN")
			for _, def := range a.registry.Definitions() {
				var levels []string
				for _, level := range def.Levels() {
					ids := make([]string, len(level))
					for i, id := range level {
						ids[i] = string(id)
					}
					levels = append(levels, strings.Join(ids, ","))
				}
				join := string(def.Terminal())
				if join == "" {
					join = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", def.ID(), def.Name(), strings.Join(levels, " → "), join)
			}
			return w.Flush()
		},
	}
}

func diagramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagram <pipeline>",
		Short: "Print a Mermaid flowchart of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			def, err := a.definition(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), export.GenerateMermaid(def, nil))
			return err
		},
	}
}
