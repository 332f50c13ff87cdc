package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbor-ui/arbor/examples/theme"
	"github.com/arbor-ui/arbor/pkg/config"
	"github.com/arbor-ui/arbor/pkg/metrics"
	"github.com/arbor-ui/arbor/pkg/runtime"
	"github.com/arbor-ui/arbor/pkg/server"
	"github.com/arbor-ui/arbor/pkg/tree"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Serve the demo application. Each browser session gets its own
component tree; the theme provider is shared across sessions and follows
the theme file configured via theme_file, so editing that file restyles
every connected client live.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, configPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")

	return cmd
}

func runServe(ctx context.Context, addr, configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Address = addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	initialTheme := config.DefaultTheme()
	if cfg.ThemeFile != "" {
		loaded, err := config.LoadTheme(cfg.ThemeFile)
		if err != nil {
			return err
		}
		initialTheme = loaded
	}

	// One provider handle backs every session's tree; a Set re-renders the
	// subscribed components in all of them.
	themeProvider := theme.ThemeContext.NewProvider(initialTheme)

	m := metrics.Enable()

	srv, err := server.New(&server.Config{
		Address: cfg.Address,
		Logger:  logger,
		Metrics: m,
		Root: func() tree.Component {
			return theme.App(themeProvider)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.ThemeFile != "" {
		go func() {
			err := config.WatchTheme(ctx, cfg.ThemeFile, logger, func(t config.Theme) {
				srv.Broadcast(func(rt *runtime.Session) {
					themeProvider.Set(t)
				})
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("theme watch stopped", "error", err)
			}
		}()
	}

	fmt.Printf("arbor serving on %s\n", cfg.Address)
	return srv.ListenAndServe(ctx)
}
