package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oeffimonitor.org/internal/app"
	"oeffimonitor.org/internal/appconf"
	"oeffimonitor.org/internal/disruption"
	"oeffimonitor.org/internal/gtfs"
	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/monitor"
	"oeffimonitor.org/internal/restapi"
	"oeffimonitor.org/internal/trias"
	"oeffimonitor.org/internal/walk"
)

const shutdownTimeout = 10 * time.Second

// flags are the command line overrides of the configuration file.
type flags struct {
	configPath string
	port       int
	env        string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger := logging.NewStructuredLogger(stdout, logLevel(cfg.Env))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "failed to initialize", err)
		return err
	}
	defer components.Close()

	api := restapi.NewRestAPI(components.application)
	defer api.Shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ListenPort),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CycleTimeout() + 5*time.Second,
		IdleTimeout:       time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("env", string(cfg.Env)),
			slog.Int("stops", len(cfg.Stops)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logging.LogError(logger, "server error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "server shutdown error", err)
		return err
	}
	logger.Info("server shut down successfully")
	return nil
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("oeffimonitor", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "config.yaml", "Path to the YAML or TOML configuration file")
	fs.IntVar(&f.port, "port", 0, "API server port (overrides listen_port)")
	fs.StringVar(&f.env, "env", "", "Environment (development|test|production), overrides env")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// loadConfig reads the configuration file and applies the flag overrides.
func loadConfig(f flags) (appconf.Config, error) {
	cfg, err := appconf.Load(f.configPath)
	if err != nil {
		return appconf.Config{}, err
	}
	if f.port > 0 {
		cfg.ListenPort = f.port
	}
	if f.env != "" {
		env, err := appconf.EnvFlagToEnvironment(f.env)
		if err != nil {
			return appconf.Config{}, err
		}
		cfg.Env = env
	}
	return cfg, appconf.Validate(cfg)
}

func logLevel(env appconf.Environment) slog.Level {
	if env == appconf.Development {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// components are the long-lived parts of the monitor that hold resources.
type components struct {
	application *app.Application
	resolver    *walk.Resolver
}

func (c *components) Close() {
	c.resolver.Close()
}

func buildComponents(ctx context.Context, cfg appconf.Config, logger *slog.Logger) (*components, error) {
	client := trias.NewClient(trias.Config{
		URL:            cfg.Trias.URL,
		RequestorRef:   cfg.Trias.RequestorRef,
		ResultsPerStop: cfg.Trias.ResultsPerStop,
		Timeout:        cfg.Trias.Timeout(),
		Retries:        cfg.Trias.Retries,
	}, logger)

	resolver := walk.NewResolver(walk.Config{
		BaseURL:   cfg.OSRMURL,
		CacheSize: cfg.WalkCache.Size,
		CacheTTL:  cfg.WalkCache.TTL(),
		Timeout:   cfg.Trias.Timeout(),
		UserAgent: app.UserAgent(),
	}, logger)

	opts := []monitor.Option{
		monitor.WithLogger(logger),
		monitor.WithWalkResolver(resolver),
	}

	if cfg.Disruptions.URL != "" {
		scraper := disruption.NewScraper(cfg.Disruptions.URL, cfg.Disruptions.Region, cfg.Trias.Timeout(), logger)
		opts = append(opts, monitor.WithWarningSource(scraper))
	}

	if cfg.GTFSPath != "" {
		index, err := gtfs.LoadStopIndex(ctx, cfg.GTFSPath, logger)
		if err != nil {
			resolver.Close()
			return nil, fmt.Errorf("loading GTFS stop index: %w", err)
		}
		opts = append(opts, monitor.WithCoordinateFallback(index))
	}

	m := monitor.New(monitor.Config{
		Stops:        cfg.MonitoredStops(),
		Filters:      cfg.FilterRules(),
		Notice:       cfg.NoticeWarning(),
		CycleTimeout: cfg.CycleTimeout(),
	}, client, opts...)

	return &components{
		application: &app.Application{
			Config:     cfg,
			Logger:     logger,
			Departures: m,
		},
		resolver: resolver,
	}, nil
}
