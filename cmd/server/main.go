package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	appauth "github.com/jw6ventures/henboard/internal/auth"
	"github.com/jw6ventures/henboard/internal/config"
	"github.com/jw6ventures/henboard/internal/hen"
	httpserver "github.com/jw6ventures/henboard/internal/http"
	"github.com/jw6ventures/henboard/internal/http/ratelimit"
	"github.com/jw6ventures/henboard/internal/ui"
)

func main() {
	log.Println("Starting henboard server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := hen.New(hen.Options{
		BaseURL:      cfg.HEN.BaseURL,
		CalendarPath: cfg.HEN.CalendarPath,
		LoginPath:    cfg.HEN.LoginPath,
		Timeout:      cfg.HEN.Timeout,
	})
	if err != nil {
		log.Fatalf("failed to configure HEN backend: %v", err)
	}
	experiments := hen.NewCachedSource(backend.Experiments, cfg.HEN.CacheTTL)

	sessionManager := appauth.NewSessionManager(cfg)
	authService, err := appauth.NewService(ctx, cfg, backend.Logins, sessionManager)
	if err != nil {
		log.Fatalf("failed to initialize auth service: %v", err)
	}

	// Login: 5 requests per second, burst of 10. API: 20 per second, burst of 50.
	loginLimiter := ratelimit.New(rate.Limit(5), 10, 10*time.Minute, cfg.TrustedProxies)
	apiLimiter := ratelimit.New(rate.Limit(20), 50, 10*time.Minute, cfg.TrustedProxies)
	calendars := ui.NewRegistry(cfg.Session.IdleTTL)

	sched := cron.New()
	if _, err := experiments.ScheduleRefresh(sched, cfg.HEN.RefreshSpec, cfg.HEN.Timeout); err != nil {
		log.Fatalf("invalid APP_HEN_REFRESH schedule %q: %v", cfg.HEN.RefreshSpec, err)
	}
	if _, err := calendars.Schedule(sched, "@every 1m"); err != nil {
		log.Fatalf("failed to schedule calendar sweep: %v", err)
	}
	if _, err := sched.AddFunc("@every 5m", func() {
		loginLimiter.Sweep()
		apiLimiter.Sweep()
	}); err != nil {
		log.Fatalf("failed to schedule rate limiter sweep: %v", err)
	}
	sched.Start()

	r := httpserver.NewRouter(cfg, httpserver.Deps{
		Source:       experiments,
		Health:       backend,
		Auth:         authService,
		Calendars:    calendars,
		LoginLimiter: loginLimiter,
		APILimiter:   apiLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HEN.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s (backend %s)", cfg.ListenAddr, cfg.HEN.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	<-sched.Stop().Done()
}
