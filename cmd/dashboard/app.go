package main

import (
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/client-dashboard/internal/apiclient"
	"github.com/jwalitptl/client-dashboard/internal/config"
	"github.com/jwalitptl/client-dashboard/internal/dashboard"
	"github.com/jwalitptl/client-dashboard/pkg/circuitbreaker"
	"github.com/jwalitptl/client-dashboard/pkg/logger"
	"github.com/jwalitptl/client-dashboard/pkg/metrics"
)

const metricsNamespace = "dashboard"

// app holds what both the web server and the terminal UI are built from.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	api      *apiclient.Client
}

func newApp(cfg *config.Config, logOutput io.Writer) (*app, error) {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     logOutput,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry, metricsNamespace)

	apiLog := log.WithComponent("apiclient")
	breaker := apiclient.NewBreaker(circuitbreaker.Settings{
		Name:             "client-api",
		MaxFailures:      cfg.Breaker.MaxFailures,
		Timeout:          cfg.Breaker.OpenTimeout,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}, apiLog)

	api, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout,
		apiclient.WithLogger(apiLog),
		apiclient.WithMetrics(m),
		apiclient.WithBreaker(breaker),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		api:      api,
	}, nil
}

func (a *app) newController() *dashboard.Controller {
	d := a.cfg.Dashboard
	return dashboard.New(a.api,
		dashboard.WithLogger(a.log.WithComponent("dashboard")),
		dashboard.WithMetrics(a.metrics),
		dashboard.WithAgeBrackets(d.AgeBrackets),
		dashboard.WithSequentialCounts(d.SequentialCounts),
		dashboard.WithCompactLayout(d.CompactLayout),
		dashboard.WithUserName(d.UserName),
	)
}

// openLog returns the writer for the terminal UI's log: a file when one is
// given, otherwise nothing, since stdout belongs to the UI.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
