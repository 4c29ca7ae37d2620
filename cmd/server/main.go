package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kubedeck/kubedeck-backend/internal/api/middleware"
	"github.com/kubedeck/kubedeck-backend/internal/api/rest"
	"github.com/kubedeck/kubedeck-backend/internal/api/websocket"
	"github.com/kubedeck/kubedeck-backend/internal/config"
	"github.com/kubedeck/kubedeck-backend/internal/k8s"
	"github.com/kubedeck/kubedeck-backend/internal/pkg/logger"
	"github.com/kubedeck/kubedeck-backend/internal/pkg/tracing"
	"github.com/kubedeck/kubedeck-backend/internal/repository"
	"github.com/kubedeck/kubedeck-backend/internal/scaling"
	"github.com/kubedeck/kubedeck-backend/internal/service"
)

func main() {
	log := logger.StdLogger()
	log.Info("kubedeck backend starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	log.Info("configuration loaded", "port", cfg.Port, "db", cfg.DatabasePath)

	// Tracing (disabled when no OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init("kubedeck-backend", cfg.OTLPEndpoint, cfg.TraceSamplingRate)
	if err != nil {
		log.Warn("failed to initialize tracing", "error", err)
	} else {
		defer shutdownTracing()
	}

	// Scaling history store
	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Kubernetes client
	client, err := k8s.NewClient(cfg.KubeconfigPath, cfg.KubeContext)
	if err != nil {
		log.Error("failed to connect to cluster", "error", err)
		os.Exit(1)
	}
	log.Info("connected to cluster", "context", client.Context)

	// WebSocket hub
	hub := websocket.NewHub(ctx)
	go hub.Run()

	// Services
	window := time.Duration(cfg.ScaleTimeoutSec) * time.Second
	onScaled := func(ref scaling.ResourceRef, replicas int32) {
		if err := hub.BroadcastScaled(ref, replicas); err != nil {
			log.Warn("failed to broadcast scaled event", "error", err)
		}
	}
	scalingService := service.NewScalingService(client, repo, window, onScaled, log)
	logsService := service.NewLogsService(client.Clientset)

	// Replica status feed: the informer pushes each workload snapshot to the
	// scaling coordinator and to connected frontends.
	watcher := k8s.NewStatusWatcher(client.Clientset, func(ref scaling.ResourceRef, status scaling.ReplicaStatus) {
		scalingService.HandleStatusUpdate(ref, status)
		if err := hub.BroadcastReplicaStatus(ref, status); err != nil {
			log.Warn("failed to broadcast replica status", "error", err)
		}
	})
	if err := watcher.Start(); err != nil {
		log.Error("failed to start status watcher", "error", err)
		os.Exit(1)
	}
	defer watcher.Stop()

	// Timeout sweep for in-flight scale sessions
	go scalingService.Run(ctx, time.Duration(cfg.ScaleCheckIntervalSec)*time.Second)

	// HTTP router
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.StructuredLog)
	router.Use(middleware.Recover)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"kubedeck-backend"}`))
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	handler := rest.NewHandler(scalingService, logsService, int64(cfg.LogTailDefault))
	rest.SetupRoutes(apiRouter, handler)

	wsHandler := websocket.NewHandler(ctx, hub)
	router.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      otelhttp.NewHandler(c.Handler(router), "kubedeck-backend"),
		ReadTimeout:  time.Duration(cfg.RequestTimeoutSec) * time.Second,
		WriteTimeout: 0, // log streaming holds the response open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", "error", err)
	}
	log.Info("server exited")
}
