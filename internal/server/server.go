package server

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/usermanager/api/usersv1/usersv1connect"
	"github.com/wolfeidau/usermanager/internal/logger"
	"github.com/wolfeidau/usermanager/internal/models"
	"github.com/wolfeidau/usermanager/internal/store"
	"github.com/wolfeidau/usermanager/internal/telemetry"
)

var (
	_ usersv1connect.UsersServiceHandler         = (*UsersServer)(nil)
	_ usersv1connect.UsersInternalServiceHandler = (*InternalServer)(nil)
)

// KeyObserver is told about API key changes after they commit, so caches of
// resolved keys can be dropped.
type KeyObserver interface {
	APIKeyDeleted(key *models.APIKey)
	APIKeyUpdated(key *models.APIKey)
}

type noopKeyObserver struct{}

func (noopKeyObserver) APIKeyDeleted(*models.APIKey) {}
func (noopKeyObserver) APIKeyUpdated(*models.APIKey) {}

// Option configures a UsersServer.
type Option func(*UsersServer)

// WithKeyObserver registers o to receive API key changes.
func WithKeyObserver(o KeyObserver) Option {
	return func(s *UsersServer) { s.keys = o }
}

// WithClock overrides the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *UsersServer) { s.now = now }
}

// UsersServer implements the public users service over a store.Store. It holds
// no state of its own; every request re-reads memberships from the store.
type UsersServer struct {
	store   store.Store
	keys    KeyObserver
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewUsersServer creates a users service backed by st.
func NewUsersServer(st store.Store, opts ...Option) *UsersServer {
	s := &UsersServer{
		store:   st,
		keys:    noopKeyObserver{},
		metrics: telemetry.GetMetrics(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InternalServer implements the internal tenant gateway. It shares the store and
// bootstrap logic with the public service but performs no caller authorization.
type InternalServer struct {
	*UsersServer
}

// NewInternalServer returns the internal service view of s.
func NewInternalServer(s *UsersServer) *InternalServer {
	return &InternalServer{UsersServer: s}
}

// Handler returns the public HTTP handler: connect procedures, the REST gateway
// and a health check. Authentication middleware is applied by the caller.
func (s *UsersServer) Handler(log zerolog.Logger, opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	opts = append([]connect.HandlerOption{
		connect.WithInterceptors(logger.NewConnectRequests(log)),
	}, opts...)

	usersPath, usersHandler := usersv1connect.NewUsersServiceHandler(s, opts...)
	mux.Handle(usersPath, usersHandler)

	NewGateway(s).Register(mux)

	return mux
}

// Handler returns the internal HTTP handler serving both the current and the
// legacy service names.
func (s *InternalServer) Handler(log zerolog.Logger, opts ...connect.HandlerOption) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	opts = append([]connect.HandlerOption{
		connect.WithInterceptors(logger.NewConnectRequests(log)),
	}, opts...)

	path, handler := usersv1connect.NewUsersInternalServiceHandler(s, opts...)
	mux.Handle(path, handler)

	legacyPath, legacyHandler := usersv1connect.NewLegacyUsersInternalServiceHandler(s, opts...)
	mux.Handle(legacyPath, legacyHandler)

	return mux
}
