package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/status"
)

func showCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireArchive(); err != nil {
				return err
			}

			run, err := a.archive.Get(args[0])
			if err != nil {
				return err
			}
			def, ok := a.registry.Lookup(run.DefinitionID)
			if !ok {
				if format != "text" {
					return fmt.Errorf("pipeline %q is no longer registered; only text output is available", run.DefinitionID)
				}
				status.Write(cmd.OutOrStdout(), status.Summarize(nil, run))
				return nil
			}
			return render(cmd.OutOrStdout(), format, def, run)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, markdown or html")
	return cmd
}

func historyCmd() *cobra.Command {
	var filter orchestrator.RunFilter
	var outcome string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireArchive(); err != nil {
				return err
			}

			filter.Outcome = orchestrator.RunOutcome(outcome)
			page, err := a.archive.List(filter)
			if err != nil {
				return err
			}
			status.WriteList(cmd.OutOrStdout(), page.Runs)
			if page.NextPageToken != "" {
				cmd.PrintErrf("more runs: --page-token %s\n", page.NextPageToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.DefinitionID, "pipeline", "", "only runs of this pipeline")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only runs with this outcome")
	cmd.Flags().IntVar(&filter.PageSize, "limit", 20, "maximum runs to list")
	cmd.Flags().StringVar(&filter.PageToken, "page-token", "", "continue after this run")
	return cmd
}
