package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"staylens/config"
	"staylens/details"
	"staylens/httputil"
	"staylens/logging"
	"staylens/models"
	"staylens/obs"
	"staylens/scheduler"
	"staylens/scraper"
	"staylens/server"
	"staylens/storage"
	"staylens/workers"
)

var (
	refreshNow = flag.Bool("refresh", false, "Run one price discovery pass and exit")
	siteID     = flag.String("site", "booking", "Site profile to use")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting staylens...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d site configs", len(cfg.Sites))
	for id, site := range cfg.Sites {
		log.Printf("  - %s (%s)", site.Name, id)
	}
	site := cfg.Sites[*siteID]
	if site == nil {
		log.Printf("No config for site %q, using built-in defaults", *siteID)
	}

	clients := httputil.NewClients()

	registry := prometheus.NewRegistry()
	metrics := obs.New(registry)

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator, err := scraper.NewOrchestrator(cfg, site, sqliteStore, clients, metrics)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	// Price history is optional and only wired when configured.
	if cfg.Postgres.ConnString != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Postgres.ConnString)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		orchestrator.SetHistory(pgStore)
		log.Println("Price history store connected")
	}

	if *refreshNow {
		log.Println("Running discovery pass...")
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		go orchestrator.Scheduler().Run(ctx)
		for orchestrator.Scheduler().QueueDepth() > 0 || orchestrator.Scheduler().InFlight() > 0 {
			time.Sleep(200 * time.Millisecond)
		}
		log.Println("Discovery complete!")
		return
	}

	go orchestrator.Scheduler().Run(ctx)

	renderer := details.NewBrowserRenderer(cfg.Browser.Headless)
	defer renderer.Close()
	pipeline := orchestrator.NewDetailPipeline(renderer)

	detailWorker := workers.NewDetailWorker(pipeline, orchestrator.Comparer)
	detailWorker.SetLogger(runLogger(sqliteStore))
	go detailWorker.Run(ctx, 15*time.Minute)
	orchestrator.SetDetailWorker(detailWorker)
	log.Println("Detail worker started")

	livenessWorker := workers.NewLivenessWorker(orchestrator.Comparer, clients)
	livenessWorker.SetLogger(runLogger(sqliteStore))
	go livenessWorker.Run(ctx, 30*time.Minute)
	log.Println("Liveness worker started")

	sched := scheduler.New(cfg, orchestrator, sqliteStore)
	sched.SetWorkers(detailWorker, livenessWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := server.New(orchestrator, sqliteStore, metrics, registry)
	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Mux()}
	go func() {
		log.Printf("HTTP API listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("Goodbye!")
}

func runLogger(store *storage.SQLiteStore) workers.LogFunc {
	return func(level models.LogLevel, source, message string) {
		if err := store.Log(nil, level, message, source); err != nil {
			log.Printf("run log: %v", err)
		}
	}
}
