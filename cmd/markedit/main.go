// Package main is the entry point for markedit, which edits a Markdown file
// in a terminal editor while markview shows a live preview of it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/razvandimescu/markview/internal/config"
	"github.com/razvandimescu/markview/internal/launcher"
	"github.com/razvandimescu/markview/internal/logging"
)

// Build info (set via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errUsage marks a command line that could not be run.
var errUsage = errors.New("usage: markedit FILE")

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "markedit FILE",
		Short: "Edit a Markdown file with a live preview",
		Long: `markedit opens FILE in your editor and starts markview on it in the
background. Every save reloads the preview; quitting the editor closes it.

The editor is launcher.editor, $VISUAL, $EDITOR or vim, in that order.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				_ = cmd.Usage()
				return errUsage
			}
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			return newLauncher(cfg, cmd).Run(args[0])
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: ./markview.yaml or ~/.config/markview/markview.yaml)")
	root.Flags().Bool("strict", false, "fail instead of creating a missing file")
	root.Flags().String("editor", "", "editor command (default: $VISUAL, $EDITOR or vim)")
	root.Flags().String("viewer", "", "viewer binary (default: markview next to markedit or on PATH)")

	_ = v.BindPFlag("launcher.editor", root.Flags().Lookup("editor"))
	_ = v.BindPFlag("launcher.viewer", root.Flags().Lookup("viewer"))

	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		v.Set("launcher.create_missing", false)
	}
	return config.Load(v)
}

func newLauncher(cfg *config.Config, cmd *cobra.Command) *launcher.Launcher {
	// The editor owns the terminal; only warnings and errors get through.
	logCfg := cfg.Log
	if lvl, err := logCfg.SlogLevel(); err != nil || lvl < slog.LevelWarn {
		logCfg.Level = "warn"
	}

	return launcher.New(
		launcher.WithLogger(logging.New(cmd.ErrOrStderr(), logCfg)),
		launcher.WithOutput(cmd.OutOrStdout()),
		launcher.WithEditor(launcher.ResolveEditor(cfg.Launcher.Editor, os.Getenv)),
		launcher.WithViewer(cfg.Launcher.Viewer),
		launcher.WithCreateMissing(cfg.Launcher.CreateMissing),
		launcher.WithDebounce(cfg.Launcher.Debounce),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of markedit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "markedit %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "markedit: %v\n", err)
		}
		os.Exit(1)
	}
}
