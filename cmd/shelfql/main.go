// Package main is the entry point for the shelfql server and tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"shelfql/config"
	"shelfql/internal/logging"
)

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "shelfql",
		Short:         "Annotated bookstore queries and rendered pages over SQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			logging.Setup(logging.Options{
				Level:  logLevel(cfg.Logging.Level),
				Format: cfg.Logging.Format,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(loadFixturesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
