package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voyagelog/internal/api"
	"voyagelog/pkg/config"
	"voyagelog/pkg/core"
	"voyagelog/pkg/db"
	"voyagelog/pkg/logging"
	"voyagelog/pkg/pipeline"
	"voyagelog/pkg/probe"
	"voyagelog/pkg/store"
	"voyagelog/pkg/tracker"
	"voyagelog/pkg/version"
	"voyagelog/pkg/watcher"
)

const defaultConfigPath = "configs/voyagelog.yaml"

var (
	initConfig  = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath  = flag.String("config", defaultConfigPath, "Path to the config file")
	serve       = flag.Bool("serve", false, "Run the scheduler and HTTP server (also enabled by server.enabled)")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *serve); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, serve bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("voyagelog started", "version", version.Version, "logbook", appCfg.Logbook.Dir)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	prov := config.NewProvider(appCfg, st)
	runner := pipeline.NewRunner(prov, st, tracker.New())
	serve = serve || appCfg.Server.Enabled

	probes := []probe.Probe{
		{Name: "Database", Check: probe.Database(dbConn), Critical: true},
		// A server may start before the first log is written.
		{Name: "Logbook", Check: probe.LogbookDir(appCfg.Logbook.Dir, appCfg.Logbook.Patterns), Critical: !serve},
		{Name: "Voyages output", Check: probe.Writable(appCfg.Output.Voyages)},
		{Name: "Polar output", Check: probe.Writable(appCfg.Output.Polar)},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if !serve {
		_, err := runner.Run(ctx)
		return err
	}

	hub := api.NewHub()
	defer hub.Close()
	runner.OnRun(hub.NotifyRun)

	regen := &regenerator{
		runner:  runner,
		watcher: watcher.NewService(appCfg.Logbook.Dir, appCfg.Logbook.Patterns),
		cfg:     prov,
		state:   st,
	}

	sched := setupScheduler(appCfg, regen, dbConn)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Start(ctx)
	}()

	err = runServer(ctx, appCfg, runner, prov, st, hub, regen)
	cancel()
	<-schedDone
	return err
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// regenerator runs the pipeline unless neither the log files nor the
// effective settings changed since the last successful run.
type regenerator struct {
	runner  *pipeline.Runner
	watcher *watcher.Service
	cfg     config.Provider
	state   store.StateStore
}

func (g *regenerator) fingerprint(ctx context.Context) (string, error) {
	files, err := g.watcher.Fingerprint()
	if err != nil {
		return "", err
	}
	settings, err := yaml.Marshal(g.cfg.Effective(ctx))
	if err != nil {
		return "", err
	}
	h := sha1.New()
	h.Write([]byte(files))
	h.Write(settings)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (g *regenerator) run(ctx context.Context, force bool) error {
	fp, err := g.fingerprint(ctx)
	if err != nil {
		slog.Warn("Regenerate: fingerprint unavailable", "error", err)
	}
	if !force && fp != "" {
		if prev, ok := g.state.GetState(ctx, store.StateLogFingerprint); ok && prev == fp {
			slog.Info("Regenerate: logbook unchanged, skipping")
			return nil
		}
	}

	if _, err := g.runner.Run(ctx); err != nil {
		return err
	}
	if fp != "" {
		if err := g.state.SetState(ctx, store.StateLogFingerprint, fp); err != nil {
			slog.Warn("Regenerate: failed to store fingerprint", "error", err)
		}
	}
	return nil
}

func setupScheduler(cfg *config.Config, regen *regenerator, dbConn *db.DB) *core.Scheduler {
	sched := core.NewScheduler(time.Duration(cfg.Ticker.Interval))

	sched.AddJob(core.NewRegenerateJob(regen.watcher, func(ctx context.Context) error {
		return regen.run(ctx, false)
	}))

	sched.AddJob(core.NewTimeJob("FullRefresh", time.Duration(cfg.Ticker.FullRefresh), false, func(ctx context.Context) {
		if err := regen.run(ctx, true); err != nil {
			slog.Error("FullRefresh: run failed", "error", err)
		}
	}))

	retention := time.Duration(cfg.DB.RunRetention)
	sched.AddJob(core.NewTimeJob("PruneRuns", 24*time.Hour, retention > 0, func(ctx context.Context) {
		if retention <= 0 {
			return
		}
		n, err := dbConn.PruneRuns(retention)
		if err != nil {
			slog.Warn("PruneRuns: failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("PruneRuns: removed old runs", "count", n)
		}
	}))

	return sched
}

func runServer(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, prov config.Provider, st *store.SQLiteStore, hub *api.Hub, regen *regenerator) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	onSettingsChange := func() {
		go func() {
			if err := regen.run(context.WithoutCancel(ctx), true); err != nil {
				slog.Error("Settings: regeneration failed", "error", err)
			}
		}()
	}

	srv := api.NewServer(cfg.Server.Address,
		api.NewDatasetHandler(st, runner, cfg.Output.Voyages),
		api.NewStatsHandler(runner, st),
		api.NewConfigHandler(prov, onSettingsChange),
		api.NewRegenerateHandler(runner),
		hub,
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
