package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "docpage",
		Usage: "Render documentation pages from markdown sources",
		Commands: []*cli.Command{
			renderCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Load a document and print it",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "anchor", Usage: "Heading to scroll to, e.g. #install"},
			&cli.StringFlag{Name: "base", Value: "./content", Usage: "Content directory or http(s) base URL", Sources: cli.EnvVars("CONTENT_BASE")},
			&cli.StringFlag{Name: "ext", Value: ".md", Usage: "Extension appended to document paths", Sources: cli.EnvVars("CONTENT_EXT")},
			&cli.StringFlag{Name: "page-class", Value: "docs-page", Usage: "Class passed through to the page", Sources: cli.EnvVars("PAGE_CLASS")},
			&cli.StringFlag{Name: "site-title", Value: "Docs", Usage: "Site name used in the page title", Sources: cli.EnvVars("SITE_TITLE")},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatHTML, Usage: "Output format: html, json or yaml"},
			&cli.DurationFlag{Name: "loading-timeout", Value: defaultLoadingTimeout, Usage: "Delay before the loading indicator is shown"},
			&cli.DurationFlag{Name: "fetch-timeout", Value: defaultFetchTimeout, Usage: "HTTP fetch timeout"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log pipeline progress to stderr"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			docPath := cmd.Args().First()
			if docPath == "" {
				return fmt.Errorf("path argument is required")
			}

			level := slog.LevelWarn
			if cmd.Bool("verbose") {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			return render(ctx, os.Stdout, renderOptions{
				Path:           docPath,
				Anchor:         cmd.String("anchor"),
				Base:           cmd.String("base"),
				Ext:            cmd.String("ext"),
				PageClass:      cmd.String("page-class"),
				SiteTitle:      cmd.String("site-title"),
				Format:         cmd.String("format"),
				LoadingTimeout: cmd.Duration("loading-timeout"),
				FetchTimeout:   cmd.Duration("fetch-timeout"),
				Log:            log,
			})
		},
	}
}
