package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"aireporter/internal/app"
	"aireporter/internal/config"
	"aireporter/internal/middleware"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging, teed to a rotated file when LOG_DIR is set
	var logFile io.Writer
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	logger := config.NewLogger(cfg, logFile)
	slog.SetDefault(logger)
	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"backend", cfg.StorageBackend,
		"data_dir", cfg.DataDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	origins := splitOrigins(cfg.CORSOrigins)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	application.Handlers(originHosts(origins)).Register(mux)

	// Build middleware chain
	// Order: CORS → RequestLog → LocalOnly → Recovery → Routes
	var handler http.Handler = mux
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.LocalOnly(allowedHosts(cfg.Port, origins), origins, logger)(handler)
	handler = middleware.RequestLog(logger)(handler)

	// CORS - outermost so OPTIONS pre-flight requests never reach the routes
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	server := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled so model calls and the event socket are not cut off
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// End event streams first so Shutdown does not wait on open sockets
	application.Events.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("failed to close store", "error", err)
	}
	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// originHosts turns CORS origins into the host patterns the websocket
// upgrade checks
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// allowedHosts lists the Host values the loopback listener answers to: its
// own address plus the hosts of the configured frontend origins, which a dev
// proxy may forward unchanged.
func allowedHosts(port string, origins []string) []string {
	return append([]string{"127.0.0.1:" + port, "localhost:" + port}, originHosts(origins)...)
}
