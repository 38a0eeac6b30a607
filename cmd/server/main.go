// Package main starts the activity board.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activityboard/internal/adapters/activityapi"
	web "activityboard/internal/adapters/http"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/config"
	"activityboard/internal/platform/otel"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadBoard()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.SetPrefix("[BOARD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(ctx context.Context, cfg config.Board) error {
	shutdownTracing, err := otel.Setup(ctx, "activityboard", cfg.OTelEndpoint, version)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	csrfKey, err := cfg.CSRFAuthKey()
	if err != nil {
		return err
	}
	if csrfKey == nil {
		csrfKey = make([]byte, 32)
		rand.Read(csrfKey)
		log.Println("CSRF key generated for this process (set ACTIVITYBOARD_CSRF_KEY to keep tokens across restarts)")
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	client, err := activityapi.NewClient(cfg.APIURL, nil, collector)
	if err != nil {
		return err
	}

	board, err := web.NewMux(web.Config{
		API:                client,
		Collector:          collector,
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.IsProduction(),
		TrustedOrigins:     cfg.TrustedOrigins,
		RateLimitPerSecond: cfg.RateLimit,
		SlowRequest:        cfg.SlowRequest,
		SessionTTL:         cfg.SessionTTL,
	})
	if err != nil {
		return err
	}

	janitorStop := make(chan struct{})
	go board.Janitor(time.Minute, janitorStop)
	defer close(janitorStop)

	// No WriteTimeout: a reply waits as long as its Activities API call.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           board,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Activity board %s starting on %s (env=%s, api=%s)", version, cfg.Addr, cfg.Env, cfg.APIURL)
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
