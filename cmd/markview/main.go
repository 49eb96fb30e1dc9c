// Package main is the entry point for markview, a live Markdown preview
// window for a single file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/razvandimescu/markview/internal/apperr"
	"github.com/razvandimescu/markview/internal/config"
	"github.com/razvandimescu/markview/internal/logging"
	"github.com/razvandimescu/markview/internal/render"
	"github.com/razvandimescu/markview/internal/session"
	"github.com/razvandimescu/markview/internal/viewer"
	"github.com/razvandimescu/markview/internal/window"
)

// Build info (set via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:   "markview FILE",
		Short: "Render a Markdown file and reload it on SIGHUP",
		Long: `markview renders one Markdown file into a browser window and keeps it
there. Sending SIGHUP re-renders the file; SIGINT, SIGTERM or closing the
page ends the viewer.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("%w: %s", apperr.ErrNotFound, args[0])
			}
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			return runView(cmd.Context(), cfg, args[0], cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: ./markview.yaml or ~/.config/markview/markview.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.Flags().Int("port", 0, "port of the preview server (0 picks a free port)")
	root.Flags().String("host", "", "interface of the preview server")
	root.Flags().Bool("no-browser", false, "do not open the browser")

	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("viewer.port", root.Flags().Lookup("port"))
	_ = v.BindPFlag("viewer.host", root.Flags().Lookup("host"))

	root.AddCommand(newVersionCmd(), newConfigCmd(v))
	return root
}

// loadConfig reads the config file selected by --config and applies flags.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("no-browser"); f != nil && f.Changed {
		noBrowser, _ := cmd.Flags().GetBool("no-browser")
		v.Set("viewer.open_browser", !noBrowser)
	}
	return config.Load(v)
}

func runView(ctx context.Context, cfg *config.Config, path string, stderr io.Writer) error {
	logger := logging.New(stderr, cfg.Log)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrIO, err)
	}

	r, err := render.New()
	if err != nil {
		return err
	}
	browser, err := window.NewBrowser(window.Options{
		Logger:     logger,
		CloseGrace: cfg.Viewer.CloseGrace,
		Open:       cfg.Viewer.OpenBrowser,
	})
	if err != nil {
		return err
	}

	sess := session.New()
	stop := sess.Notify(ctx, logger)
	defer stop()

	view := viewer.New(abs, sess, browser, r, logger)
	browser.OnCloseRequest(view.OnClose)
	// A failed first load leaves the placeholder page up until a reload succeeds.
	_ = view.Load()

	ln, err := net.Listen("tcp", cfg.Viewer.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Viewer.Address(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return browser.Serve(gctx, ln)
	})
	g.Go(func() error {
		return view.Run(gctx, cfg.Viewer.PollInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "markview: %v\n", err)
		os.Exit(1)
	}
}
