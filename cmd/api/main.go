package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombook/internal/api"
	"roombook/internal/clock"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/logging"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/repository"
	"roombook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

const (
	housekeepingInterval = time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

type flags struct {
	configPath string
	roomsPath  string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() flags {
	var f flags
	pflag.StringVarP(&f.configPath, "config", "c", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the config file")
	pflag.StringVar(&f.roomsPath, "rooms", os.Getenv("ROOMS_PATH"), "optional YAML file with extra rooms")
	pflag.Parse()
	return f
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run() error {
	f := parseFlags()

	cfg, logger, closer, err := loadConfigAndLogger(f.configPath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	rooms, err := loadRooms(cfg.Rooms, f.roomsPath, &logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, rooms, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	memoryQuota := repository.NewMemoryQuotaStore()
	quota := initQuotaStore(redisClient, memoryQuota, &logger)

	eventBus := initEventBus(&logger)

	svc := service.NewBookingService(
		db,
		quota,
		eventBus,
		clock.Real{},
		service.Options{
			Retry:            service.DefaultRetryPolicy(cfg.Booking.UpdateRetries),
			WriteQuota:       cfg.Booking.WriteQuota,
			WriteQuotaWindow: cfg.Booking.QuotaWindow(),
		},
		logging.Component(&logger, "booking"),
	)

	auth := api.NewAuthenticator(cfg.API)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, svc, auth, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}
	httpServer := api.NewHTTPServer(cfg.API, svc, auth, clock.Real{}, &logger)

	startMetrics(ctx, cfg, &logger)
	go database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup")).Start(ctx)
	go startHousekeeping(ctx, memoryQuota, auth, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger(configPath string) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadRooms merges the rooms of the main config with an optional rooms file.
// Rooms from the file win on id clashes.
func loadRooms(configured []models.Room, roomsPath string, logger *zerolog.Logger) ([]models.Room, error) {
	if roomsPath == "" {
		return configured, nil
	}

	data, err := os.ReadFile(roomsPath)
	if err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("read rooms")
		return nil, err
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(data, &roomsConfig); err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("parse rooms")
		return nil, err
	}

	byID := make(map[int64]int, len(configured))
	merged := append([]models.Room(nil), configured...)
	for i, r := range merged {
		byID[r.ID] = i
	}
	for _, r := range roomsConfig.Rooms {
		if i, ok := byID[r.ID]; ok {
			merged[i] = r
			continue
		}
		byID[r.ID] = len(merged)
		merged = append(merged, r)
	}

	if err := config.ValidateRooms(merged); err != nil {
		return nil, fmt.Errorf("rooms file %s: %w", roomsPath, err)
	}
	return merged, nil
}

func initDatabase(cfg *config.Config, rooms []models.Room, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SyncRooms(context.Background(), rooms); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("sync rooms")
		return nil, err
	}
	logger.Info().Int("rooms", len(rooms)).Msg("rooms synced")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, write quota falls back to memory")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initQuotaStore(client *redis.Client, memory *repository.MemoryQuotaStore, logger *zerolog.Logger) domain.QuotaStore {
	if client == nil {
		return memory
	}
	return repository.NewFailoverQuotaStore(repository.NewRedisQuotaStore(client), memory, logging.Component(logger, "quota"))
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	audit := events.AuditLogger(logging.Component(logger, "audit"))
	for _, eventType := range events.BookingEvents {
		bus.Subscribe(eventType, audit)
	}
	bus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	})
	return bus
}

func startHousekeeping(ctx context.Context, quota *repository.MemoryQuotaStore, auth *api.Authenticator, logger *zerolog.Logger) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			windows := quota.Sweep()
			limiters := auth.SweepLimiters(limiterIdleTimeout)
			if windows > 0 || limiters > 0 {
				logger.Debug().Int("quota_windows", windows).Int("limiters", limiters).Msg("housekeeping")
			}
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Int("grpc_port", cfg.API.GRPC.Port).
		Bool("http", cfg.API.HTTP.Enabled).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
