package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/linktitle/internal"
	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/metrics"
	pkgconfig "github.com/starford/linktitle/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// cliResolver builds a title resolver that logs to stderr only.
func cliResolver(cfg *internal.Config) linkfmt.TitleResolver {
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	return internal.NewTitleResolver(cfg.Titles, nil, metrics.NoopRecorder{}, logger)
}

func format(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	syntax := cmd.String("syntax")
	if syntax == "" {
		syntax = cfg.Format.Default
	}
	spec, ok := linkfmt.LookupFormat(syntax)
	if !ok {
		return fmt.Errorf("unsupported syntax %q, expected one of %s", syntax, strings.Join(linkfmt.FormatNames(), ", "))
	}

	text := cmd.String("text")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}

	out := linkfmt.Rewrite(ctx, text, spec, cliResolver(cfg).Resolve, nil)
	fmt.Println(out.Text)
	for _, c := range out.Children {
		fmt.Println("\t" + c.Content)
	}
	return nil
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	url := cmd.Args().First()
	if url == "" {
		return fmt.Errorf("usage: %s resolve <url>", cmd.Root().Name)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	t := cliResolver(cfg).Resolve(ctx, url)
	if t == "" {
		return fmt.Errorf("no title found for %s", url)
	}
	fmt.Println(t)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "linktitle",
		Usage:   "Replace bare URLs in outline notes with links titled after the page they point to",
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
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, change feed and page file sync",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the link tools over MCP on stdio",
				Action: serveMCP,
			},
			{
				Name:      "format",
				Usage:     "Rewrite bare URLs in text from --text or stdin",
				ArgsUsage: "[--text TEXT]",
				Action:    format,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "syntax",
						Aliases: []string{"s"},
						Usage:   "Link syntax: markdown or org (defaults to format.default)",
					},
					&cli.StringFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Text to rewrite instead of reading stdin",
					},
				},
			},
			{
				Name:      "resolve",
				Usage:     "Print the title of a URL",
				ArgsUsage: "<url>",
				Action:    resolve,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
