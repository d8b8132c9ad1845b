// Command train-rush starts the Train Rush game server.
//
// Commands:
//  1. "serve" (default) – runs the UDP game server plus the admin HTTP server
//     (REST API, spectator WebSocket, and an /mcp HTTP endpoint)
//  2. "mcp" – runs an MCP stdio server against a running admin API
//  3. "validate-config" – checks YAML configuration files
//
// Every flag can also be set through a TRAINS_* environment variable, and a .env file
// in the working directory is loaded first. Optional ngrok tunneling exposes the admin
// HTTP server during development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/train-rush/game/config"
	"github.com/wricardo/train-rush/transport/mcp"
	"github.com/wricardo/train-rush/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Train Rush Server"
)

// main loads .env, then runs the command line application.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "train-rush",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file (overrides --profile)",
				Sources: cli.EnvVars("TRAINS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing configuration profiles",
				Sources: cli.EnvVars("TRAINS_CONFIG_DIR", "CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Profile name inside --config-dir (default: classic)",
				Sources: cli.EnvVars("TRAINS_PROFILE"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("TRAINS_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			validateCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the UDP game server and the admin HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "UDP listen address",
				Sources: cli.EnvVars("TRAINS_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "http",
				Usage:   "Admin HTTP listen address (empty disables it)",
				Sources: cli.EnvVars("TRAINS_HTTP_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "scores-file",
				Usage:   "JSON file holding best scores",
				Sources: cli.EnvVars("TRAINS_SCORES_FILE"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory for the match archive and index",
				Sources: cli.EnvVars("TRAINS_DATA_DIR"),
			},
			&cli.BoolFlag{
				Name:    "no-history",
				Usage:   "Do not record finished matches",
				Sources: cli.EnvVars("TRAINS_NO_HISTORY"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Expose the admin HTTP server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, profiles, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			applyServeOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}

			log.Printf("Starting %s v%s", AppName, Version)
			return runServe(ctx, cfg, profiles, ngrokOptions{
				enabled:   cmd.Bool("ngrok"),
				authToken: cmd.String("ngrok-auth"),
				domain:    cmd.String("ngrok-domain"),
			})
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP stdio server against a running admin API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "Base URL of the admin API",
				Sources: cli.EnvVars("TRAINS_API_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			baseURL := cmd.String("api-url")
			if err := checkAPI(ctx, baseURL); err != nil {
				log.Printf("Warning: admin API not reachable at %s: %v", baseURL, err)
			}

			// stdout carries the protocol
			log.SetOutput(os.Stderr)
			log.Printf("MCP stdio server ready (API: %s)", baseURL)

			mcpClient := mcp.NewClient(baseURL)
			if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
				return fmt.Errorf("MCP stdio server error: %w", err)
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-config",
		Usage:     "Validate YAML configuration files (defaults to every profile in --config-dir)",
		ArgsUsage: "[file.yaml ...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = validate.Files(cmd.String("config-dir")); err != nil {
					return err
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files found")
			}

			invalid := 0
			for _, file := range files {
				result := validate.File(file)
				printResult(result)
				if !result.Valid {
					invalid++
				}
			}

			fmt.Printf("\n%s\n", strings.Repeat("=", 40))
			if invalid > 0 {
				return fmt.Errorf("%d of %d configuration files are invalid", invalid, len(files))
			}
			fmt.Println("All configurations are valid")
			return nil
		},
	}
}

func printResult(result validate.Result) {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)
	if result.Valid {
		fmt.Println("VALID")
		for _, info := range result.Info {
			fmt.Println("  " + info)
		}
	} else {
		fmt.Println("INVALID")
		for _, err := range result.Errors {
			fmt.Println("  error: " + err)
		}
	}
	for _, w := range result.Warnings {
		fmt.Println("  warning: " + w)
	}
}

// resolveConfig picks the configuration: an explicit file, a named profile, the default
// profile of --config-dir, or the built-in defaults when no profile directory exists.
func resolveConfig(cmd *cli.Command) (*config.Config, *config.Manager, error) {
	var profiles *config.Manager
	if dir := cmd.String("config-dir"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if profiles, err = config.NewManager(dir); err != nil {
				return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
			}
		} else if cmd.IsSet("config-dir") {
			return nil, nil, fmt.Errorf("config directory does not exist: %s", dir)
		}
	}

	switch {
	case cmd.String("config") != "":
		cfg, err := config.Load(cmd.String("config"))
		return cfg, profiles, err
	case cmd.String("profile") != "":
		if profiles == nil {
			return nil, nil, fmt.Errorf("profile %q requested but no config directory is available", cmd.String("profile"))
		}
		cfg, err := profiles.LoadConfig(cmd.String("profile"))
		if err != nil {
			return nil, nil, err
		}
		return clone(cfg), profiles, nil
	case profiles != nil:
		return clone(profiles.GetDefault()), profiles, nil
	default:
		return config.Defaults(), nil, nil
	}
}

// clone copies a cached profile so flag overrides never leak into the profile cache
func clone(cfg *config.Config) *config.Config {
	c := *cfg
	return &c
}

func applyServeOverrides(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("listen") {
		cfg.Server.Listen = cmd.String("listen")
	}
	if cmd.IsSet("http") {
		cfg.Server.HTTPListen = cmd.String("http")
	}
	if cmd.IsSet("scores-file") {
		cfg.Server.ScoresFile = cmd.String("scores-file")
	}
	if cmd.IsSet("data-dir") {
		cfg.Server.DataDir = cmd.String("data-dir")
	}
	if cmd.Bool("no-history") {
		cfg.Server.HistoryEnabled = false
	}
}

// checkAPI probes the admin API health endpoint
func checkAPI(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return mcp.NewClient(baseURL).Ping(ctx)
}
