package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/catalog"
	"github.com/dusk-indust/genpipe/internal/config"
	"github.com/dusk-indust/genpipe/internal/launcher"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/store"
)

// version is set by goreleaser at build time.
var version = "dev"

var (
	projectDir string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genpipe",
		Short: "Run multi-stage generation pipelines",
		Long: `genpipe orchestrates the business-plan and mvp-build generation pipelines.
Independent stages run concurrently, failed stages fall back to defaults when
they can, and the business plan is synthesized from the research stages.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&projectDir, "dir", ".", "directory containing genpipe.yml and .env")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(runCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(serveMCPCmd())
	root.AddCommand(pipelinesCmd())
	root.AddCommand(diagramCmd())
	root.AddCommand(showCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(followCmd())
	return root
}

// app bundles the wiring shared by every subcommand.
type app struct {
	cfg      *config.ProjectConfig
	registry *orchestrator.Registry
	executor *orchestrator.Executor
	archive  *store.SQLiteStore
	logger   *log.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}

	logger := log.New(io.Discard, "", 0)
	if verbose || cfg.Verbose {
		logger = log.New(os.Stderr, "genpipe: ", log.LstdFlags)
	}

	agents := agent.NewRegistry()
	agents.SetLatency(cfg.Latency())

	reg := orchestrator.NewRegistry()
	if err := catalog.NewBuilder(agents, cfg).Register(reg); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		registry: reg,
		executor: orchestrator.NewExecutor(
			orchestrator.WithMaxParallel(cfg.MaxParallel),
			orchestrator.WithLogger(logger),
		),
		logger: logger,
	}
	if cfg.ArchivePath != "" {
		a.archive, err = store.OpenSQLite(cfg.ArchivePath)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// service builds a launcher over the app's registry and archive.
func (a *app) service() *launcher.Service {
	opts := []launcher.Option{launcher.WithLogger(a.logger)}
	if a.archive != nil {
		opts = append(opts, launcher.WithArchive(a.archive))
	}
	return launcher.NewService(a.registry, a.executor, opts...)
}

func (a *app) definition(id string) (*orchestrator.Definition, error) {
	def, ok := a.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", id)
	}
	return def, nil
}

func (a *app) requireArchive() error {
	if a.archive == nil {
		return fmt.Errorf("no run archive configured: set archivePath in genpipe.yml or GENPIPE_ARCHIVE")
	}
	return nil
}

func (a *app) Close() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Printf("WARNING: close archive: %v", err)
		}
	}
}
