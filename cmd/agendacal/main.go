package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agendacal/internal/agenda"
	"agendacal/internal/broadcast"
	"agendacal/internal/calprop"
	"agendacal/internal/config"
	"agendacal/internal/ics"
	appLog "agendacal/internal/log"
	"agendacal/internal/refresh"
	"agendacal/internal/store"
	"agendacal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := conf.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("agendacal starting", "version", version)

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"refresh", conf.RefreshCron,
		"maximum_entries", conf.MaximumEntries,
		"maximum_number_of_days", conf.MaximumNumberOfDays,
		"slice_multi_day_events", conf.SliceMultiDayEvents,
		"calendar_count", len(conf.Calendars),
		"broadcast", conf.BroadcastEvents,
		"once", flags.once,
	)

	urls := make([]string, 0, len(conf.Calendars))
	for _, c := range conf.Calendars {
		urls = append(urls, c.URL)
	}

	props := calprop.New(conf)
	ag := agenda.New(conf, props)
	st := store.New(urls)
	ingestor := ics.NewIngestor(conf, props, st, ics.NewFetcher(conf.CacheDir, nil), loc)

	var pub broadcast.Publisher = broadcast.LogPublisher{}
	if conf.BroadcastEvents {
		pub, err = broadcast.New(conf.Broadcast)
		if err != nil {
			appLog.Error("broadcast unavailable; logging only", err)
			pub = broadcast.LogPublisher{}
		}
	}
	defer pub.Close()

	runner := refresh.New(refresh.Options{
		Ingester:  ingestor,
		Agenda:    ag,
		Store:     st,
		Publisher: pub,
		Broadcast: conf.BroadcastEvents,
		Location:  loc,
	})

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		code := runOnce(ctx, runner, ag, st, loc)
		pub.Close()
		stop()
		os.Exit(code)
	}

	// Initial refresh so the API has data before the first cron tick.
	if _, err := runner.RunOnce(ctx); err != nil {
		appLog.Error("initial refresh incomplete", err)
	}

	sched, err := runner.Start(ctx, conf.RefreshCron)
	if err != nil {
		appLog.Error("failed to start scheduler", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr: conf.Listen,
		Handler: web.NewServer(conf, web.Deps{
			Agenda:    ag,
			Props:     props,
			Store:     st,
			Refresher: runner,
			Location:  loc,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	<-sched.Stop().Done()

	appLog.Info("agendacal exiting")
}

// runOnce runs a single cycle and prints the resulting view to stdout.
func runOnce(ctx context.Context, runner *refresh.Runner, ag *agenda.Agenda, st *store.Store, loc *time.Location) int {
	_, runErr := runner.RunOnce(ctx)
	if runErr != nil {
		appLog.Error("refresh incomplete", runErr)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ag.View(st.Snapshot(), time.Now().In(loc))); err != nil {
		appLog.Error("failed to write view", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/agendacal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle, print the agenda as JSON and exit")

	flag.Parse()

	return cfg
}
