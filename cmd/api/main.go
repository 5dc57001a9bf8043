package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/padalah/interviewflow/internal/config"
	"github.com/padalah/interviewflow/internal/handler"
	"github.com/padalah/interviewflow/internal/service/conn"
	"github.com/padalah/interviewflow/internal/service/document"
	"github.com/padalah/interviewflow/internal/service/interviewer"
	"github.com/padalah/interviewflow/internal/service/ratelimit"
	"github.com/padalah/interviewflow/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	engine, err := interviewer.New(cfg.Engine.Name)
	if err != nil {
		log.Fatalf("failed to initialize interviewer engine: %v", err)
	}
	log.Printf("interviewer engine: %s", cfg.Engine.Name)

	registry := session.NewRegistry()
	manager := conn.NewManager()
	limiter := ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.AudioChunksPerMinute)
	extractor := document.NewExtractor()

	router := handler.NewRouter(cfg, registry, manager, limiter, engine, extractor)

	startServer(ctx, cfg.Server, router, manager)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, manager *conn.Manager) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("InterviewFlow AI API listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv, manager); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server, manager *conn.Manager) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Drain live channels first so clients see a going-away frame
		// instead of a dropped TCP connection.
		manager.CloseAll("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
