package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/openpecha/catalog/internal"
	pkgconfig "github.com/openpecha/catalog/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// stdout is where client commands print results.
var stdout io.Writer = os.Stdout

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if _, err := os.Stat(path); err == nil {
		opts = append(opts, internal.WithConfigFile(path))
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Usage:   "OpenPecha catalog gateway, MCP server and command-line client",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "server",
				Usage:   "Gateway base URL used by client commands",
				Value:   "http://localhost:3000",
				Sources: cli.EnvVars("VITE_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for a gateway with auth enabled",
				Sources: cli.EnvVars("APP_AUTH_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP gateway (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server over stdio",
				Action: serveMCP,
			},
			textCommand(),
			instanceCommand(),
			personCommand(),
			searchCommand(),
			publishCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
