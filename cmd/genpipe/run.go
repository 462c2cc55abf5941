package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/export"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/status"
)

type runOptions struct {
	Idea         string
	Industry     string
	TargetMarket string
	TechStack    string
	Features     []string
	Format       string
	Output       string
	Quiet        bool
}

func (o runOptions) params() map[string]any {
	params := map[string]any{"idea": o.Idea}
	if o.Industry != "" {
		params["industry"] = o.Industry
	}
	if o.TargetMarket != "" {
		params["targetMarket"] = o.TargetMarket
	}
	if o.TechStack != "" {
		params["techStack"] = o.TechStack
	}
	if len(o.Features) > 0 {
		params["features"] = o.Features
	}
	return params
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <pipeline>",
		Short: "Run a pipeline to completion and print its result",
		Long: `Runs business-plan or mvp-build for an idea, streaming stage progress to
stderr. The finished run is printed in the chosen format and archived when an
archive is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Idea == "" {
				return fmt.Errorf("--idea is required")
			}
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			def, err := a.definition(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run := execute(ctx, a, def, opts)

			if a.archive != nil {
				if err := a.archive.Put(run); err != nil {
					return fmt.Errorf("archive run: %w", err)
				}
			}

			if opts.Output == "" {
				return render(cmd.OutOrStdout(), opts.Format, def, run)
			}
			return writeFile(opts.Output, func(w io.Writer) error {
				return render(w, opts.Format, def, run)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Idea, "idea", "", "the business or product idea")
	cmd.Flags().StringVar(&opts.Industry, "industry", "", "industry (AI/ML, FinTech, HealthTech, EdTech, E-commerce, SaaS)")
	cmd.Flags().StringVar(&opts.TargetMarket, "target-market", "", "target market (B2B SMB, B2B Enterprise, B2C Consumer, ...)")
	cmd.Flags().StringVar(&opts.TechStack, "tech-stack", "", "tech stack for mvp-build")
	cmd.Flags().StringSliceVar(&opts.Features, "features", nil, "comma-separated feature list for mvp-build")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "output format: text, json, markdown or html")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print stage progress")
	return cmd
}

// execute runs def in the foreground, printing progress lines to stderr.
func execute(ctx context.Context, a *app, def *orchestrator.Definition, opts runOptions) *orchestrator.PipelineRun {
	if opts.Quiet {
		return a.executor.Run(ctx, def, opts.params())
	}

	reporter := orchestrator.NewProgressReporter(4*len(def.Stages()) + 4)
	done := make(chan struct{})
	go func() {
		status.Follow(os.Stderr, reporter.Subscribe())
		close(done)
	}()

	run := a.executor.Run(ctx, def, opts.params(), reporter.Emit)
	reporter.Close()
	<-done
	return run
}

var formats = []string{"text", "json", "markdown", "md", "html"}

func checkFormat(format string) error {
	if slices.Contains(formats, format) {
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json, markdown or html)", format)
}

// writeFile creates path and hands it to write, reporting the close error
// when write itself succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func render(w io.Writer, format string, def *orchestrator.Definition, run *orchestrator.PipelineRun) error {
	switch format {
	case "text":
		status.Write(w, status.Summarize(def, run))
		return nil
	case "json":
		return export.WriteJSON(w, export.ExportRun(def, run))
	case "markdown", "md":
		_, err := io.WriteString(w, export.RenderMarkdown(def, run))
		return err
	case "html":
		html, err := export.RenderHTML(export.RenderMarkdown(def, run))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return checkFormat(format)
	}
}
