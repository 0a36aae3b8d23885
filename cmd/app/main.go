package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/saga/internal"
	pkgconfig "github.com/starford/saga/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); err != nil && cmd.IsSet("config") {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	} else if err != nil {
		// No config file: defaults plus environment.
		if err := pkgconfig.LoadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func importBundles(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Import(ctx, cmd.Args().First(),
		internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func exportBundle(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Export(ctx, cmd.String("series"), cmd.String("out"),
		internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func compileContext(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Compile(ctx, cmd.String("series"), int(cmd.Int("book")),
		internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func seriesFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "series",
		Aliases:  []string{"s"},
		Usage:    "Series ID",
		Required: true,
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "saga",
		Usage:  "Persistent narrative context engine for long-running book series",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API, SSE events and bundle watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import one bundle, or every changed bundle when no path is given",
				ArgsUsage: "[path]",
				Action:    importBundles,
			},
			{
				Name:  "export",
				Usage: "Write a series to a bundle file under the bundle root",
				Flags: []cli.Flag{
					seriesFlag(),
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Bundle path relative to the bundle root",
						Required: true,
					},
				},
				Action: exportBundle,
			},
			{
				Name:  "compile",
				Usage: "Print the generation context for a target book",
				Flags: []cli.Flag{
					seriesFlag(),
					&cli.IntFlag{
						Name:     "book",
						Aliases:  []string{"b"},
						Usage:    "Target book number",
						Required: true,
					},
				},
				Action: compileContext,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
