package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/server"
)

func followCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "follow <run-id>",
		Short: "Stream the progress of a run from a genpipe server",
		Long: `Connects to the event stream of a run started on a running 'genpipe serve'
and prints each stage transition until the run finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			url := strings.TrimRight(serverURL, "/") + "/runs/" + args[0] + "/events"
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "text/event-stream")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("follow: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				defer resp.Body.Close()
				var body struct {
					Error string `json:"error"`
				}
				_ = json.NewDecoder(resp.Body).Decode(&body)
				if body.Error == "" {
					body.Error = resp.Status
				}
				return fmt.Errorf("follow: %s", body.Error)
			}

			var final *orchestrator.ProgressEvent
			for ev := range server.ReadEvents(ctx, resp.Body) {
				if ev.Err != nil {
					cmd.PrintErrf("WARNING: %v\n", ev.Err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), orchestrator.FormatProgress(ev.Event))
				if ev.Event.Final {
					e := ev.Event
					final = &e
				}
			}
			if final == nil {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return fmt.Errorf("follow: stream ended before run %s finished", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of a genpipe server")
	return cmd
}
