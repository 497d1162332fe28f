package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roombook/internal/config"
	"roombook/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	userIDHeaderDefault   = "x-user-id"
	clientKeyUnknown      = "unknown"

	permReadRooms     = "read:rooms"
	permReadBookings  = "read:bookings"
	permWriteBookings = "write:bookings"
)

var (
	errMissingAPIKey     = errors.New("missing api key headers")
	errInvalidAPIKey     = errors.New("invalid api key")
	errInvalidExtra      = errors.New("invalid extra header")
	errPermissionDenied  = errors.New("permission denied")
	errRateLimitExceeded = errors.New("rate limit exceeded")
)

// Authenticator checks API-key credentials, client permissions and per-client rate limits.
// It is shared by the HTTP and gRPC transports.
type Authenticator struct {
	cfg          config.APIConfig
	apiKeyHeader string
	extraHeader  string
	userIDHeader string
	clients      map[string]config.APIClientKey
	limiter      *rateLimiter
}

func NewAuthenticator(cfg config.APIConfig) *Authenticator {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &Authenticator{
		cfg:          cfg,
		apiKeyHeader: headerName(cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault),
		extraHeader:  headerName(cfg.Auth.HeaderExtra, apiExtraHeaderDefault),
		userIDHeader: headerName(cfg.Auth.HeaderUserID, userIDHeaderDefault),
		clients:      m,
		limiter:      newRateLimiter(cfg.RateLimit),
	}
}

func headerName(configured, fallback string) string {
	h := strings.ToLower(strings.TrimSpace(configured))
	if h == "" {
		return fallback
	}
	return h
}

// authenticate validates the key pair and that the client holds the required permission.
func (a *Authenticator) authenticate(apiKey, extra, required string) error {
	if !a.cfg.Auth.Enabled {
		return nil
	}
	if apiKey == "" || extra == "" {
		return errMissingAPIKey
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}

	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func (a *Authenticator) allow(clientKey string) error {
	if !a.limiter.Allow(clientKey) {
		return errRateLimitExceeded
	}
	return nil
}

// SweepLimiters forgets rate limiters of idle clients.
func (a *Authenticator) SweepLimiters(idle time.Duration) int {
	return a.limiter.Sweep(idle)
}

// parseRequesterID reads the authenticated user id set by the upstream identity provider.
func parseRequesterID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrUnauthenticated
	}
	return id, nil
}

// Unary returns the gRPC interceptor enforcing credentials and rate limits.
func (a *Authenticator) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		apiKey := first(md.Get(a.apiKeyHeader))

		if a.cfg.Auth.Enabled {
			if md == nil {
				return nil, status.Error(codes.Unauthenticated, "missing metadata")
			}
			err := a.authenticate(apiKey, first(md.Get(a.extraHeader)), grpcPermission(info.FullMethod))
			if errors.Is(err, errPermissionDenied) {
				return nil, status.Error(codes.PermissionDenied, err.Error())
			}
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		if err := a.allow(grpcClientKey(ctx, apiKey)); err != nil {
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		}
		return handler(ctx, req)
	}
}

func grpcPermission(fullMethod string) string {
	switch strings.TrimPrefix(fullMethod, "/"+bookingServiceName+"/") {
	case "CreateBooking", "UpdateBooking":
		return permWriteBookings
	case "GetBooking", "ListMyBookings":
		return permReadBookings
	case "GetRoom", "ListRooms":
		return permReadRooms
	default:
		return ""
	}
}

func grpcClientKey(ctx context.Context, apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

// requesterFromContext extracts the caller's user id from gRPC metadata.
func (a *Authenticator) requesterFromContext(ctx context.Context) (int64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	return parseRequesterID(first(md.Get(a.userIDHeader)))
}

// Wrap enforces credentials and rate limits on HTTP requests. Health checks pass through.
func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == healthPath {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader))
		if a.cfg.Auth.Enabled {
			err := a.authenticate(apiKey, strings.TrimSpace(r.Header.Get(a.extraHeader)), httpPermission(r))
			if errors.Is(err, errPermissionDenied) {
				writeJSON(w, http.StatusForbidden, errorBody{Message: err.Error()})
				return
			}
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: err.Error()})
				return
			}
		}

		if err := a.allow(httpClientKey(r, apiKey)); err != nil {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func httpPermission(r *http.Request) string {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v1/rooms"):
		return permReadRooms
	case strings.HasPrefix(r.URL.Path, "/api/v1/bookings"):
		if r.Method == http.MethodGet {
			return permReadBookings
		}
		return permWriteBookings
	default:
		return ""
	}
}

func httpClientKey(r *http.Request, apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// requesterFromRequest extracts the caller's user id from the identity header.
func (a *Authenticator) requesterFromRequest(r *http.Request) (int64, error) {
	return parseRequesterID(r.Header.Get(a.userIDHeader))
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
