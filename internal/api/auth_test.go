package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"roombook/internal/config"
	"roombook/internal/domain"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authCfg() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			HeaderExtra:  "x-api-extra",
			APIKeys: []config.APIClientKey{
				{Key: "valid-key", Extra: "valid-extra", Permissions: []string{permReadRooms}},
				{Key: "admin-key", Extra: "admin-extra"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
}

func TestAuthInterceptor(t *testing.T) {
	auth := NewAuthenticator(authCfg())
	interceptor := auth.Unary()

	handler := func(_ context.Context, _ any) (any, error) {
		return "ok", nil
	}
	listRooms := &grpc.UnaryServerInfo{FullMethod: "/" + bookingServiceName + "/ListRooms"}
	createBooking := &grpc.UnaryServerInfo{FullMethod: "/" + bookingServiceName + "/CreateBooking"}

	tests := []struct {
		name string
		md   metadata.MD
		info *grpc.UnaryServerInfo
		code codes.Code
	}{
		{"Success", metadata.Pairs("x-api-key", "valid-key", "x-api-extra", "valid-extra"), listRooms, codes.OK},
		{"MissingMetadata", nil, listRooms, codes.Unauthenticated},
		{"MissingHeaders", metadata.Pairs(), listRooms, codes.Unauthenticated},
		{"InvalidKey", metadata.Pairs("x-api-key", "nope", "x-api-extra", "valid-extra"), listRooms, codes.Unauthenticated},
		{"InvalidExtra", metadata.Pairs("x-api-key", "valid-key", "x-api-extra", "nope"), listRooms, codes.Unauthenticated},
		{"PermissionDenied", metadata.Pairs("x-api-key", "valid-key", "x-api-extra", "valid-extra"), createBooking, codes.PermissionDenied},
		{"EmptyPermissionsAllowAll", metadata.Pairs("x-api-key", "admin-key", "x-api-extra", "admin-extra"), createBooking, codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			resp, err := interceptor(ctx, "req", tt.info, handler)
			assert.Equal(t, tt.code, status.Code(err))
			if tt.code == codes.OK {
				assert.Equal(t, "ok", resp)
			}
		})
	}
}

func TestAuthInterceptor_RateLimit(t *testing.T) {
	cfg := authCfg()
	cfg.Auth.Enabled = false
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	interceptor := NewAuthenticator(cfg).Unary()

	handler := func(_ context.Context, _ any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/" + bookingServiceName + "/ListRooms"}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", "client"))

	_, err := interceptor(ctx, "req", info, handler)
	assert.NoError(t, err)
	_, err = interceptor(ctx, "req", info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestHTTPAuth_Wrap(t *testing.T) {
	auth := NewAuthenticator(authCfg())
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Wrap(next)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		extra  string
		status int
	}{
		{"Health", http.MethodGet, healthPath, "", "", http.StatusOK},
		{"MissingKey", http.MethodGet, "/api/v1/rooms", "", "", http.StatusUnauthorized},
		{"InvalidKey", http.MethodGet, "/api/v1/rooms", "bad", "valid-extra", http.StatusUnauthorized},
		{"InvalidExtra", http.MethodGet, "/api/v1/rooms", "valid-key", "bad", http.StatusUnauthorized},
		{"Allowed", http.MethodGet, "/api/v1/rooms/1", "valid-key", "valid-extra", http.StatusOK},
		{"ReadBookingsDenied", http.MethodGet, "/api/v1/bookings", "valid-key", "valid-extra", http.StatusForbidden},
		{"WriteDenied", http.MethodPost, "/api/v1/bookings", "valid-key", "valid-extra", http.StatusForbidden},
		{"AdminWrite", http.MethodPatch, "/api/v1/bookings/1", "admin-key", "admin-extra", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			if tt.extra != "" {
				req.Header.Set("X-API-Extra", tt.extra)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHTTPAuth_RateLimitByRemoteAddr(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 2}}
	handler := NewAuthenticator(cfg).Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	got := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		got = append(got, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseRequesterID(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"7", 7},
		{" 42 ", 42},
		{"", 0},
		{"0", 0},
		{"-1", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		id, err := parseRequesterID(tt.raw)
		assert.Equal(t, tt.want, id, tt.raw)
		if tt.want == 0 {
			assert.ErrorIs(t, err, domain.ErrUnauthenticated, tt.raw)
		} else {
			assert.NoError(t, err, tt.raw)
		}
	}
}

func TestRequesterFromContext_CustomHeader(t *testing.T) {
	cfg := config.APIConfig{Auth: config.APIAuthConfig{HeaderUserID: "X-Account"}}
	auth := NewAuthenticator(cfg)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-account", "9"))
	id, err := auth.requesterFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = auth.requesterFromContext(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
