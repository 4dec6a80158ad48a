package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/observability/metrics"
	"github.com/matzehuels/depotview/pkg/server"
)

type serveOpts struct {
	addr    string
	fps     int
	metrics bool
	watch   bool
}

// serveCommand hosts depot scenes for browsers.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve depot scenes and the pointer websocket over HTTP",
		Long: `Start the HTTP server.

Browsers load a depot with GET /api/depots/{depot}/scene and stream pointer
events over GET /api/depots/{depot}/ws; the server answers with tooltip,
menu and frame updates. Prometheus metrics are served on /metrics.`,
		Example: `  depotview serve --path layouts/ --addr :8080
  depotview serve --path layouts/ --watch
  depotview serve -c depotview.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.fps > 0 {
				cfg.Server.FPS = opts.fps
			}
			return c.runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&opts.fps, "fps", 0, "frame rate per connection (default from config, 30)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", true, "serve Prometheus metrics on /metrics")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "refetch depots when their layout files change (file provider)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	cam := cfg.Camera.Build(cfg.Viewport.Width / cfg.Viewport.Height)
	sopts := []server.Option{
		server.WithGrid(cfg.Grid),
		server.WithViewport(cfg.Viewport.Width, cfg.Viewport.Height),
		server.WithCamera(*cam),
		server.WithFPS(cfg.Server.FPS),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		server.WithSessionTTL(cfg.Server.SessionTTL.Duration),
		server.WithRefreshInterval(cfg.Provider.RefreshInterval.Duration),
		server.WithLogger(logger),
	}
	if cfg.Interaction.EnableMutations {
		sopts = append(sopts, server.WithDispatcherFactory(func(depot string, refresh func()) interact.Dispatcher {
			return b.dispatcher(cfg, depot, logger, refresh)
		}))
	}
	if opts.metrics {
		m, err := metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "register metrics")
		}
		m.Install()
		sopts = append(sopts, server.WithMetrics(m.Handler()))
	}

	srv, err := server.New(b, sopts...)
	if err != nil {
		return err
	}
	defer srv.Close()

	if opts.watch {
		if b.file == nil {
			printWarning("--watch needs the file provider, ignoring it")
		} else {
			go func() {
				if err := b.file.Watch(ctx, srv.Changed); err != nil {
					logger.Warn("layout watch stopped", "path", b.file.Path(), "err", err)
				}
			}()
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.ListenAndServe() }()
	printSuccess("Serving on %s", StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
	printDetail("provider %s, cache %s, %d fps", cfg.Provider.Kind, cfg.Cache.Backend, cfg.Server.FPS)
	if opts.watch && b.file != nil {
		printDetail("watching %s", b.file.Path())
	}
	if cfg.Depot != "" {
		printNextStep("Scene", "curl http://"+displayAddr(cfg.Server.Addr)+"/api/depots/"+cfg.Depot+"/scene")
	}

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(errors.ErrCodeNetwork, err, "listen on %s", cfg.Server.Addr)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
