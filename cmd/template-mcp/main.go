package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/template-tools-mcp/internal/cluster"
	"github.com/ironsheep/template-tools-mcp/internal/decompose"
	"github.com/ironsheep/template-tools-mcp/internal/imaging"
	"github.com/ironsheep/template-tools-mcp/internal/infra"
	"github.com/ironsheep/template-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	envFile string

	cfg *infra.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "template-mcp",
	Short: "MCP server turning design assets into parameterized templates",
	Long: `template-mcp decomposes layered design documents and flat images into
zone trees, extracts their customizable parameters, and renders per-team
variants.

Without a subcommand it serves MCP over stdin/stdout. Configure it in your
MCP client (e.g., Claude Desktop).

Environment variables override the config file, e.g.:
  TEMPLATE_MCP_LOG_LEVEL=debug      Enable debug logging
  TEMPLATE_MCP_BATCH_WORKERS=8      Concurrent variant renders
  TEMPLATE_MCP_ASSETS_ROOT=/assets  Confine image paths to a directory`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

// setup loads .env, the config file and the environment, then builds the
// logger. Logs go to stderr; stdout is for MCP protocol.
func setup(cmd *cobra.Command, _ []string) error {
	if err := infra.LoadDotEnv(envFile); err != nil {
		return err
	}
	var err error
	if cfg, err = infra.LoadConfig(cfgFile); err != nil {
		return err
	}
	if log, err = infra.NewLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	log.Debug().Str("command", cmd.Name()).Str("config", cfgFile).Msg("configuration loaded")
	return nil
}

func assetCache() *imaging.AssetCache {
	return imaging.NewAssetCache(imaging.CacheOptions{
		Root:       cfg.AssetRoot,
		MaxBytes:   cfg.CacheMaxBytes,
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     log,
	})
}

func limits() decompose.Limits {
	return decompose.Limits{MaxFileBytes: cfg.MaxFileBytes, MaxPixelArea: cfg.MaxPixelArea}
}

func serverOptions() server.Options {
	return server.Options{
		Version: Version,
		Limits:  limits(),
		Cluster: cluster.ExtractOptions{
			Stride:  cfg.ClusterStride,
			Options: cluster.Options{Iterations: cfg.ClusterIterations, Seed: cfg.ClusterSeed},
		},
		MaxCanvasPixels: cfg.MaxCanvasPixels,
		Workers:         cfg.BatchWorkers,
		TargetTimeout:   cfg.BatchTargetTimeout,
		Assets:          assetCache(),
		Logger:          log,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting template MCP server")

	srv := server.New(serverOptions())
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdin/stdout (the default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config needed to print the version.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "template-mcp %s\n", Version)
		fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(serveCmd, versionCmd, paletteCmd, decomposeCmd, renderCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
