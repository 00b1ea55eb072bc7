// Command zvfs manages single-file zvfs images.
//
//	zvfs mkfs disk
//	zvfs addfs disk notes.txt
//	zvfs lsfs disk
//	zvfs catfs disk notes.txt
//	zvfs rmfs disk notes.txt
//	zvfs dfrgfs disk
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "zvfs",
		Usage:   "Store named blobs in a single-file image",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Set log level (debug, info, warn, error)", EnvVars: []string{"ZVFS_LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", c.String("log-level"), err)
			}
			c.App.Metadata = map[string]any{
				"logger": slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})),
			}
			return nil
		},
		Commands: commands(),
	}
}
