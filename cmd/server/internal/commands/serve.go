package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"connectrpc.com/otelconnect"
	"github.com/alecthomas/kong"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/usermanager/internal/auth"
	"github.com/wolfeidau/usermanager/internal/bootstrap"
	"github.com/wolfeidau/usermanager/internal/config"
	httpmiddleware "github.com/wolfeidau/usermanager/internal/http"
	"github.com/wolfeidau/usermanager/internal/logger"
	"github.com/wolfeidau/usermanager/internal/server"
	"github.com/wolfeidau/usermanager/internal/store"
	"github.com/wolfeidau/usermanager/internal/telemetry"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	// Listeners
	Listen         string `help:"public listen address" default:"0.0.0.0:8080" env:"USERS_LISTEN"`
	InternalListen string `help:"internal listen address, never expose publicly" default:"127.0.0.1:8081" env:"USERS_INTERNAL_LISTEN"`
	Cert           string `help:"path to TLS cert file for the public listener" default:"" env:"USERS_TLS_CERT"`
	Key            string `help:"path to TLS key file for the public listener" default:"" env:"USERS_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"USERS_CORS_ORIGINS"`

	// Seed data
	Config string `help:"YAML file with the default organization, project and API keys" type:"existingfile" env:"USERS_CONFIG"`

	// Authentication
	SessionPublicKey     string               `help:"PEM encoded ECDSA public key that verifies session tokens" env:"USERS_SESSION_PUBLIC_KEY" xor:"session-key"`
	SessionPublicKeyFile kong.FileContentFlag `help:"file holding the session public key" env:"USERS_SESSION_PUBLIC_KEY_FILE" xor:"session-key"`
	APIKeyCacheSize      int                  `help:"number of resolved API keys cached" default:"1024" env:"USERS_API_KEY_CACHE_SIZE"`
	APIKeyCacheTTL       time.Duration        `help:"how long a resolved API key is cached" default:"30s" env:"USERS_API_KEY_CACHE_TTL"`

	// Development and operational modes
	NoAuth      bool    `help:"disable authentication for API endpoints (development only)" default:"false" env:"USERS_NO_AUTH"`
	DevUserID   string  `help:"user id assumed when authentication is disabled" default:"admin" env:"USERS_DEV_USER_ID"`
	DevTenantID string  `help:"tenant id assumed when authentication is disabled" default:"default-tenant-id" env:"USERS_DEV_TENANT_ID"`
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"USERS_TRACING"`
	SampleRatio float64 `help:"fraction of traces recorded" default:"1" env:"USERS_TRACE_SAMPLE_RATIO"`

	ShutdownTimeout time.Duration `help:"time allowed for in-flight requests on shutdown" default:"15s"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"USERS_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	// Telemetry must be initialised before the server registers its instruments.
	interceptors := []connect.Interceptor{}
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
			ServiceName: "usermanager-server",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return fmt.Errorf("failed to create OTEL interceptor: %w", err)
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	st, closeStore, err := openStore(ctx, c.StoreType, &c.PostgresStore)
	if err != nil {
		return err
	}
	defer closeStore()

	public, internal, err := c.handlers(ctx, st, log, interceptors...)
	if err != nil {
		return err
	}

	publicSrv := configureHTTPServer(c.Listen, public)
	internalSrv := configureHTTPServer(c.InternalListen, internal)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Bool("auth", !c.NoAuth).Msg("Starting public server")
		var err error
		if c.Cert != "" {
			err = publicSrv.ListenAndServeTLS(c.Cert, c.Key)
		} else {
			err = publicSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("public server: %w", err)
	})
	g.Go(func() error {
		log.Info().Str("addr", c.InternalListen).Msg("Starting internal server")
		if err := internalSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		return errors.Join(publicSrv.Shutdown(shutdownCtx), internalSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// handlers seeds st and builds the public and internal handlers.
func (c *ServeCmd) handlers(ctx context.Context, st store.Store, log zerolog.Logger, interceptors ...connect.Interceptor) (http.Handler, http.Handler, error) {
	if c.Cert != "" && c.Key == "" || c.Cert == "" && c.Key != "" {
		return nil, nil, errors.New("TLS certificate and key must be given together (--cert and --key)")
	}

	resolver := auth.NewAPIKeyResolver(st, auth.APIKeyResolverConfig{
		CacheSize: c.APIKeyCacheSize,
		CacheTTL:  c.APIKeyCacheTTL,
	})
	usersServer := server.NewUsersServer(st, server.WithKeyObserver(resolver))

	if c.Config != "" {
		cfg, err := config.Load(c.Config)
		if err != nil {
			return nil, nil, err
		}
		resources, err := bootstrap.Bootstrap(ctx, usersServer, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info().
			Str("organization_id", resources.OrganizationID).
			Str("project_id", resources.ProjectID).
			Int("api_keys", len(resources.APIKeyIDs)).
			Msg("Seeded default resources")
	}

	authn := &auth.Authenticator{
		Keys:          resolver,
		Disabled:      c.NoAuth,
		DevUserID:     c.DevUserID,
		DevTenantID:   c.DevTenantID,
		PublicPaths:   []string{"/health"},
		FailureMetric: telemetry.GetMetrics(),
	}
	if key := c.sessionKey(); key != "" {
		sessions, err := auth.NewSessionVerifierFromPEM(key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load session public key: %w", err)
		}
		authn.Sessions = sessions
		log.Info().Msg("Session tokens accepted")
	}
	if c.NoAuth {
		log.Warn().
			Str("user_id", c.DevUserID).
			Str("tenant_id", c.DevTenantID).
			Msg("Authentication is disabled (--no-auth). This should only be used in development!")
	}

	opts := []connect.HandlerOption{connect.WithInterceptors(interceptors...)}

	var public http.Handler = usersServer.Handler(log, opts...)
	public = authn.Middleware(public)
	public = withCORS(c.CORSOrigins, public)
	public = logger.AccessLog(log, "/health")(public)
	public = httpmiddleware.ClientIPMiddleware()(public)
	public = httpmiddleware.RequestIDMiddleware()(public)

	var internal http.Handler = server.NewInternalServer(usersServer).Handler(log, opts...)
	internal = logger.AccessLog(log, "/health")(internal)
	internal = httpmiddleware.RequestIDMiddleware()(internal)
	// gRPC clients inside the cluster speak HTTP/2 without TLS.
	internal = h2c.NewHandler(internal, &http2.Server{})

	return public, internal, nil
}

func (c *ServeCmd) sessionKey() string {
	if len(c.SessionPublicKeyFile) > 0 {
		return string(c.SessionPublicKeyFile)
	}
	return c.SessionPublicKey
}

// withCORS adds CORS support to a Connect HTTP handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: append(connectcors.AllowedMethods(), http.MethodPatch, http.MethodDelete),
		AllowedHeaders: append(connectcors.AllowedHeaders(), "Authorization", httpmiddleware.RequestIDHeader),
		ExposedHeaders: append(connectcors.ExposedHeaders(), httpmiddleware.RequestIDHeader),
	})
	return middleware.Handler(h)
}
