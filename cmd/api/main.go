//	@title			fbain API
//	@version		1.0
//	@description	Anonymous end-to-end encrypted file hosting.
//
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Revocation or admin token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/fbain/service/internal/admin"
	"github.com/fbain/service/internal/auth"
	"github.com/fbain/service/internal/blob"
	"github.com/fbain/service/internal/config"
	"github.com/fbain/service/internal/file"
	"github.com/fbain/service/internal/gc"
	"github.com/fbain/service/internal/ident"
	kvredis "github.com/fbain/service/internal/kvstore/redis"
	appMiddleware "github.com/fbain/service/internal/middleware"
	"github.com/fbain/service/internal/upload"
	"github.com/fbain/service/web"

	_ "github.com/fbain/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kvredis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("metadata store connection failed", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	blobs, err := blob.NewDiskStore(cfg.DataDir)
	if err != nil {
		logger.Fatal("blob storage init failed", zap.Error(err))
	}

	defaultMax, err := admin.ParseSize(cfg.MaxFileSize)
	if err != nil {
		logger.Fatal("invalid MAX_FILE_SIZE", zap.String("value", cfg.MaxFileSize), zap.Error(err))
	}

	// Wire dependencies: repository → service → handler
	gate := auth.NewGate(cfg.AdminToken)
	ids := ident.NewAllocator(ident.DefaultAlphabet, cfg.IDSize)

	shared := admin.NewService(store, blobs, logger.Named("admin"))
	if err := shared.EnsureDefaults(ctx, defaultMax); err != nil {
		logger.Fatal("shared state init failed", zap.Error(err))
	}
	adminHandler := admin.NewHandler(shared, gate, cfg.StatusToken, logger.Named("admin"))

	fileRepo := file.NewRepository(store)
	fileSvc := file.NewService(fileRepo, blobs, gate, shared, logger.Named("file"))
	fileHandler := file.NewHandler(fileSvc, logger.Named("file"))

	sessionRepo := upload.NewRepository(store)
	uploadSvc := upload.NewService(sessionRepo, fileRepo, blobs, ids, shared, logger.Named("upload"), cfg.SessionTTL, cfg.DefaultFileTTL)
	uploadHandler := upload.NewHandler(uploadSvc, logger.Named("upload"))

	worker := gc.NewWorker(blobs, fileRepo, sessionRepo, logger.Named("gc"), cfg.GCInterval)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Viewer assets
	r.Handle("/static/*", http.FileServer(http.FS(web.Assets)))

	r.Post("/upload", uploadHandler.Open)
	r.Get("/upload/{session_token}", uploadHandler.Transfer)

	r.Get("/status", adminHandler.Status)
	r.Head("/status", adminHandler.HeadStatus)
	r.Get("/max-filesize", adminHandler.MaxFileSize)
	r.Post("/max-filesize/{value}", adminHandler.SetMaxFileSize)

	r.Get("/{uuid}", fileHandler.Page)
	r.Delete("/{uuid}", fileHandler.Delete)
	r.Get("/{uuid}/meta", fileHandler.Meta)
	r.Get("/{uuid}/raw", fileHandler.Raw)
	r.Head("/{uuid}/raw", fileHandler.Raw)
	r.Get("/{uuid}/expire", fileHandler.GetExpiry)
	r.Put("/{uuid}/expire", fileHandler.SetExpiry)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
		// no WriteTimeout: transfers hold their connection for as long as
		// the upload takes
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("env", cfg.AppEnv),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	<-workerDone

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
