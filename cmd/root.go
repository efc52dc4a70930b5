package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/logger"
	"promptgrid/internal/provider"
	"promptgrid/internal/provider/factory"
)

const rootLongDesc = `promptgrid generates marketing product descriptions with an OpenAI-compatible
chat completion API and compares how sampling parameters change the output.

Commands:
  promptgrid serve       Run the web form and JSON API
  promptgrid generate    Generate a single description
  promptgrid grid        Run the fixed five-row comparison grid
  promptgrid sweep       Run a parameter sweep
  promptgrid models      List the selectable models

The API key is read from OPENAI_API_KEY, either from the environment or from
the .env file in the working directory.`

const rootShortDesc = "Product description generator and parameter comparison grid"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	debug      bool
	logJSON    bool
}

// app holds the components built once per command invocation.
type app struct {
	cfg       config.Config
	registry  *provider.Registry
	generator *generator.Generator
	logger    *slog.Logger
}

// Execute runs the CLI with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "promptgrid",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Dotenv file to load before reading the environment")
	cmd.PersistentFlags().BoolVarP(&g.debug, "debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Emit logs as JSON")

	// Add subcommands
	cmd.AddCommand(
		newServeCmd(g),
		newGenerateCmd(g),
		newGridCmd(g),
		newSweepCmd(g),
		newModelsCmd(g),
	)

	return cmd
}

func (g *globalFlags) newLogger(w io.Writer) *slog.Logger {
	return logger.New(
		logger.WithDebug(g.debug),
		logger.WithJSON(g.logJSON),
		logger.WithPretty(!g.logJSON),
		logger.WithSource(g.debug),
		logger.WithWriter(w),
	)
}

// newApp loads configuration and builds the registry, the completion client
// and the generator. The client is created exactly once and shared.
func (g *globalFlags) newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(g.configPath, g.envFile)
	if err != nil {
		return nil, err
	}

	registry, err := factory.NewRegistry(cfg.Provider)
	if err != nil {
		return nil, err
	}

	completer, err := factory.NewCompleter(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	log := g.newLogger(cmd.ErrOrStderr())
	return &app{
		cfg:       cfg,
		registry:  registry,
		generator: generator.New(registry, completer, generator.WithLogger(log)),
		logger:    log,
	}, nil
}
