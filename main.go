package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "", "override database path")
	maxFetch := flag.Int("max-fetch", 0, "cap the remote monitor listing (0 = no cap)")
	forceRefresh := flag.Bool("force-refresh", false, "refresh every monitor regardless of staleness")
	once := flag.Bool("once", false, "run one refresh and exit instead of running on the configured interval")
	listMetrics := flag.Bool("list-metrics", false, "print active metric names and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "monitorsync:", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	setupLogging(cfg.Logging)
	log.Info().Str("site", cfg.Datadog.Site).Str("db", cfg.Database.Path).Msg("[Main] Starting monitorsync")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := NewDatadogClient(cfg.Datadog)

	if *listMetrics {
		runMetricsReport(ctx, client)
		return
	}

	store, err := OpenStore(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to open store")
	}
	defer store.Close()

	refresher := NewRefresher(client, store, RefreshOptions{
		MaxFetch:     *maxFetch,
		ForceRefresh: *forceRefresh,
		Staleness:    time.Duration(cfg.Refresh.StalenessMinutes) * time.Minute,
	})

	if *once {
		report, err := refresher.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("[Main] Refresh run failed")
		}
		logSummary(report)
		return
	}

	interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := refresher.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("[Main] Refresh run failed")
				return
			}
			logSummary(report)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to schedule refresh job")
	}

	scheduler.Start()
	log.Info().Dur("interval", interval).Msg("[Main] Refresh scheduler started")

	<-ctx.Done()
	log.Info().Msg("[Main] Shutting down")
	if err := scheduler.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("[Main] Scheduler shutdown failed")
	}
}

// runMetricsReport is the legacy report: list the names of metrics active
// in the last day and print them.
func runMetricsReport(ctx context.Context, source MonitorSource) {
	names, err := source.ListMetricNames(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to list metrics")
	}
	log.Info().Int("count", len(names)).Msg("[Main] Found active metrics")
	for _, name := range names {
		fmt.Println(name)
	}
}
