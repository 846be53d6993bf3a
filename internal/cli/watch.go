package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWatchCmd(e *env) *cobra.Command {
	var (
		schedule    string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Collect and analyze on a schedule until interrupted",
		Long: `Watch runs a collect-then-analyze cycle immediately and then on the cron
schedule (default from config, e.g. "@every 1h" or "0 * * * *"). The config
file is re-read before every cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.open(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if schedule == "" {
				schedule = e.cfg.Schedule.Cron
			}

			if metricsAddr != "" {
				stop, err := e.serveMetrics(metricsAddr)
				if err != nil {
					return err
				}
				defer stop()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching on schedule %q. Press Ctrl+C to stop.\n", schedule)
			return e.app.Watch(ctx, schedule, e.cfg.Schedule.Timezone)
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "", "cron schedule for cycles")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// serveMetrics exposes the registry on addr until the returned func is called.
func (e *env) serveMetrics(addr string) (func(), error) {
	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return nil, fmt.Errorf("metrics server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}
	e.log.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
