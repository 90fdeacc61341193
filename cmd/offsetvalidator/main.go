package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/app"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/config"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/mcp"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/seed"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/server"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "offsetvalidator",
	Short:   "Carbon offset project analysis",
	Long:    "offsetvalidator serves carbon offset project records and answers questions about them from stored documents.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		return logging.Init(level, cfg.Logging.File)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("offsetvalidator", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/offsetvalidator/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the stores and LLM provider, then run 'offsetvalidator seed'.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		projects, err := a.Service.ListProjects(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Relational store:")
		fmt.Printf("  DSN: %s\n", cfg.RelationalDSN())
		fmt.Printf("  Projects: %d\n", len(projects))

		fmt.Println("\nDocument store:")
		switch {
		case docstore.IsNoop(a.Documents):
			fmt.Println("  disabled")
		case a.Documents.Ping(ctx) != nil:
			fmt.Printf("  %s: unavailable\n", cfg.Retrieval.Backend)
		default:
			fmt.Printf("  %s: ok\n", cfg.Retrieval.Backend)
		}

		fmt.Println("\nGeneration:")
		if a.Provider.IsConfigured() {
			fmt.Printf("  %s (%s): ok\n", cfg.Generation.Provider, cfg.Generation.Model)
		} else {
			fmt.Println("  disabled, fallback narratives in use")
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample projects and their documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		res, err := seed.Load(ctx, a.Store, a.Documents)
		if err != nil {
			return err
		}
		fmt.Println("Seeding complete:")
		fmt.Printf("  Projects inserted: %d\n", res.Projects)
		fmt.Printf("  Already present: %d\n", res.Skipped)
		fmt.Printf("  Documents stored: %d\n", res.Documents)
		return nil
	},
}

var (
	docType    string
	docVersion string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [project-code] [file|url]...",
	Short: "Add files or web pages to a project's documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if docstore.IsNoop(a.Documents) {
			return fmt.Errorf("no document store configured; set retrieval.backend")
		}

		code := args[0]
		ok, err := store.Exists(ctx, a.Store, code)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("project %q: %w", code, project.ErrNotFound)
		}

		source := project.DocumentSource{Type: docType, Version: docVersion}
		docs, err := a.Fetcher.Documents(ctx, code, source, args[1:])
		if err != nil {
			return err
		}
		ids, err := a.Documents.Add(ctx, docs)
		if err != nil {
			return fmt.Errorf("adding documents: %w", err)
		}
		fmt.Printf("Stored %d passage(s) for %s\n", len(ids), code)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&docType, "type", "pdd", "Document type (pdd, risk_analysis, ...)")
	ingestCmd.Flags().StringVar(&docVersion, "version", "1.0", "Document version")
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, addr, a.Server())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve project tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		return mcp.NewServer(a.Service, version).Run(ctx, &sdk.StdioTransport{})
	},
}
