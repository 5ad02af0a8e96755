package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/clambin/energyua-monitor/internal/api"
	"github.com/clambin/energyua-monitor/internal/collector"
	"github.com/clambin/energyua-monitor/internal/configuration"
	"github.com/clambin/energyua-monitor/internal/fetcher"
	"github.com/clambin/energyua-monitor/internal/health"
	"github.com/clambin/energyua-monitor/internal/parser"
	"github.com/clambin/energyua-monitor/internal/publisher"
	"github.com/clambin/energyua-monitor/internal/resolver"
	"github.com/clambin/go-common/charmer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var Cmd = cobra.Command{
	Use:   "monitor",
	Short: "Monitor the outage schedule and export it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, viper.GetViper(), cmd.Root().Version, charmer.GetLogger(cmd))
	},
}

// A Task runs until its context is done.
type Task interface {
	Run(ctx context.Context) error
}

func run(ctx context.Context, v *viper.Viper, version string, logger *slog.Logger) error {
	cfg, err := configuration.FromViper(v)
	if err != nil {
		return err
	}
	logger.Info("energyua monitoring starting", "version", version, "url", cfg.Source.URL)
	defer logger.Info("energyua monitoring stopped")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	requestMetrics := fetcher.NewRequestMetrics("energyua", "fetcher", nil)
	registry.MustRegister(requestMetrics)

	targets, err := connectTargets(cfg, logger.With("component", "publisher"))
	if err != nil {
		return err
	}

	tasks, err := makeTasks(cfg, fetcher.New(requestMetrics), targets, registry, logger)
	if err != nil {
		return err
	}
	return runTasks(ctx, tasks)
}

func connectTargets(cfg configuration.Configuration, logger *slog.Logger) (map[string]publisher.Publisher, error) {
	targets := make(map[string]publisher.Publisher)
	if cfg.MQTT.Enabled() {
		p, err := publisher.NewMQTTPublisher(cfg.MQTT.URL, cfg.MQTT.Topic, "energyua")
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		targets["mqtt"] = p
	}
	if cfg.NATS.Enabled() {
		p, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		targets["nats"] = p
	}
	if cfg.Slack.Enabled() {
		targets["slack"] = publisher.NewSlackPublisher(cfg.Slack.Token, logger.With("target", "slack"))
	}
	return targets, nil
}

func makeTasks(cfg configuration.Configuration, f resolver.Fetcher, targets map[string]publisher.Publisher, registry *prometheus.Registry, l *slog.Logger) ([]Task, error) {
	p, err := parser.New(cfg.ParserMode)
	if err != nil {
		return nil, err
	}

	var tasks []Task

	// Resolver
	r := resolver.New(f, p, resolver.Config{
		URL:           cfg.Source.URL,
		FetchInterval: cfg.Fetch.Interval,
		Pretrigger:    cfg.Pretrigger,
		Location:      cfg.Location,
		OnFetchError:  cfg.Fetch.OnError,
	}, l.With("component", "resolver"))
	tasks = append(tasks, r)

	// Collector
	coll := &collector.Collector{Publisher: r, Logger: l.With("component", "collector")}
	registry.MustRegister(coll)
	tasks = append(tasks, coll)

	// Prometheus Server
	tasks = append(tasks, &httpServer{
		addr:    cfg.Exporter.Addr,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		logger:  l.With("component", "exporter"),
	})

	// Health & API Endpoints
	h := health.New(r, l.With("component", "health"))
	tasks = append(tasks, h)
	tasks = append(tasks, &httpServer{
		addr:    cfg.API.Addr,
		handler: api.New(r, h, cfg.DumpDir, l.With("component", "api")),
		logger:  l.With("component", "api"),
	})

	// Brokers
	if len(targets) > 0 {
		tasks = append(tasks, &publisher.Forwarder{Source: r, Targets: targets, Logger: l.With("component", "publisher")})
	}

	return tasks, nil
}

func runTasks(ctx context.Context, tasks []Task) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task.Run(ctx) })
	}
	return g.Wait()
}
