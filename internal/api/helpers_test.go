package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"roombook/internal/clock"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/events"
	"roombook/internal/models"
	"roombook/internal/repository"
	"roombook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	userU = int64(1)
	userV = int64(2)
)

var testNow = time.Date(2024, 10, 24, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	cfg   config.APIConfig
	clock *clock.Fixed
	db    *database.DB
	svc   *service.BookingService
	auth  *Authenticator
}

func openCfg() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		GRPC:    config.APIGRPCConfig{Enabled: true},
	}
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncRooms(context.Background(), []models.Room{
		{ID: 1, Name: "Blue", Capacity: 8},
		{ID: 2, Name: "Green", Capacity: 4},
	}))

	clk := clock.NewFixed(testNow)
	svc := service.NewBookingService(
		db,
		repository.NewMemoryQuotaStore(),
		events.NewEventBus(),
		clk,
		service.Options{WriteQuota: 100},
		&logger,
	)

	return &testEnv{cfg: cfg, clock: clk, db: db, svc: svc, auth: NewAuthenticator(cfg)}
}

// at returns a time on 2024-10-25, the day after testNow.
func at(hour, min int) string {
	return models.FormatTime(time.Date(2024, 10, 25, hour, min, 0, 0, time.UTC))
}
