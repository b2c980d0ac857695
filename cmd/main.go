package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/storyreels/internal/config"
	"github.com/Vovarama1992/storyreels/internal/delivery"
	ws "github.com/Vovarama1992/storyreels/internal/delivery/ws"
	"github.com/Vovarama1992/storyreels/internal/domain"
	"github.com/Vovarama1992/storyreels/internal/infra"
	"github.com/Vovarama1992/storyreels/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	defer zcore.Sync()
	zl := logger.NewZapLogger(zcore.Sugar())

	// CONFIG
	cfg, err := config.Load()
	if err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "config", Error: err})
		os.Exit(1)
	}
	if cfg.AdminPasswordBcrypt == "" && cfg.AdminPassword == config.DefaultAdminPassword {
		zl.Log(logger.LogEntry{Level: "warn", Message: "ADMIN_PASSWORD not set, using the default"})
	}
	if cfg.LogStoreURL == "" {
		zl.Log(logger.LogEntry{Level: "warn", Message: "LOG_STORE_URL not set, events are kept in the local projection only"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PROJECTION
	proj, closeProj, err := newProjection(ctx, cfg)
	if err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "projection init", Error: err})
		os.Exit(1)
	}
	defer closeProj()

	// REMOTE MEDIA STORE
	store, err := newMediaStore(ctx, cfg)
	if err != nil {
		// uploads still work, served from the stage
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "media store init, falling back to local serving",
			Error:   err,
			Fields:  map[string]any{"backend": cfg.MediaBackend},
		})
		store = nil
	}

	// SERVICES
	stage, err := domain.NewStage(cfg.StageDir, zl)
	if err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "stage init", Error: err})
		os.Exit(1)
	}

	logStore := infra.NewHTTPLogStore(cfg.LogStoreURL, &http.Client{Timeout: cfg.LogStoreTimeout})
	reader := domain.NewLatestReader(logStore, proj, zl, cfg.LogStoreTimeout)

	// without an external log the projection is the only record of uploads
	var sink ports.LogStore
	if cfg.LogStoreURL != "" {
		sink = logStore
	} else {
		reader.MarkHydrated()
	}

	events := domain.NewEventLogger(sink, reader, zl, cfg.LogQueueSize, cfg.LogStoreTimeout)
	events.Start()
	defer events.Stop()

	authService := domain.NewAuthService(cfg.AdminPassword, cfg.AdminPasswordBcrypt)
	mediaService := domain.NewMediaService(stage, store, authService, events, zl, cfg.RemoteUploadTimeout)

	// WS HUB
	hub := ws.NewHub(zl, cfg.CORSOrigins)

	// HANDLERS
	authHandler := delivery.NewAuthHandler(mediaService, zl)
	mediaHandler := delivery.NewMediaHandler(mediaService, reader, stage, zl, cfg.PublicBaseURL, cfg.MaxUploadBytes)

	// ROUTER
	r := chi.NewRouter()
	r.Use(delivery.ProxyHeaders(cfg.TrustProxyHeaders))
	r.Use(middleware.Recoverer)
	r.Use(delivery.AccessLog(zl))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	delivery.RegisterRoutes(r, authHandler, mediaHandler, hub)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "server started",
			Fields: map[string]any{
				"port":       cfg.Port,
				"stage":      stage.Dir(),
				"media":      cfg.MediaBackend,
				"projection": cfg.ProjectionBackend,
			},
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server crashed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		stage.RunJanitor(gctx, cfg.StageRetention, cfg.StageJanitorInterval)
		return nil
	})

	g.Go(func() error {
		if reader.Hydrated() {
			return nil
		}
		reader.HydrateLoop(gctx, cfg.ProjectionHydrateInterval)
		return nil
	})

	g.Go(func() error {
		ws.Broadcast(gctx, hub, mediaService.Events(), zl)
		return nil
	})

	if err := g.Wait(); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "server stopped", Error: err})
		return
	}
	zl.Log(logger.LogEntry{Level: "info", Message: "server stopped"})
}

func newProjection(ctx context.Context, cfg config.Config) (ports.ProjectionRepository, func(), error) {
	switch cfg.ProjectionBackend {
	case config.ProjectionPostgres:
		pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := infra.MigrateProjection(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return infra.NewPostgresProjectionRepo(pool), pool.Close, nil

	case config.ProjectionRedis:
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return infra.NewRedisProjectionRepo(rdb), func() { _ = rdb.Close() }, nil
	}
	return infra.NewMemoryProjectionRepo(), func() {}, nil
}

func newMediaStore(ctx context.Context, cfg config.Config) (ports.MediaStore, error) {
	switch cfg.MediaBackend {
	case config.MediaCloudinary:
		return infra.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)

	case config.MediaMinio:
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := infra.NewMinioClient(initCtx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioSecure)
		if err != nil {
			return nil, err
		}
		publicURL := cfg.MinioPublicURL
		if publicURL == "" {
			scheme := "http://"
			if cfg.MinioSecure {
				scheme = "https://"
			}
			publicURL = scheme + strings.TrimSuffix(cfg.MinioEndpoint, "/")
		}
		return infra.NewMinioStore(client, cfg.MinioBucket, publicURL), nil
	}
	// MediaNone: every upload is served from the stage
	return nil, nil
}
