// Package main starts the reference Activities API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"activityboard/internal/adapters/email"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/adapters/httpapi"
	"activityboard/internal/adapters/storage"
	activityStore "activityboard/internal/adapters/storage/activity"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/config"
	"activityboard/internal/platform/otel"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.SetPrefix("[API] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.API) error {
	shutdownTracing, err := otel.Setup(ctx, "activityapi", cfg.OTelEndpoint, version)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	// Transactions begin IMMEDIATE; concurrent roster writes wait on busy_timeout.
	dsn := cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.InitDB(db); err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	store := activityStore.NewSQLiteStore(storage.NewTimedDB(db, collector, cfg.SlowQuery))

	if err := orchestrators.ExecuteSeedActivities(ctx, orchestrators.SeedActivitiesDeps{Store: store}); err != nil {
		return err
	}

	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: ACTIVITYAPI_RESEND_KEY is not set, signup confirmations are not delivered")
		} else {
			log.Println("Email sender configured (noop, set ACTIVITYAPI_RESEND_KEY for real delivery)")
		}
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewMux(httpapi.Config{
			Store:       store,
			Sender:      sender,
			Collector:   collector,
			BoardURL:    cfg.BoardURL,
			SlowRequest: cfg.SlowRequest,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Activities API %s starting on %s (env=%s, schema=%d)", version, cfg.Addr, cfg.Env, storage.LatestSchemaVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Println("shutting down")
	return srv.Shutdown(shutdownCtx)
}
