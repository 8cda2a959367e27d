package logger

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/felixge/httpsnoop"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/usermanager/internal/auth"
	httpmiddleware "github.com/wolfeidau/usermanager/internal/http"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

var _ connect.Interceptor = (*ConnectRequests)(nil)

// ConnectRequests logs every rpc with its procedure, caller and outcome.
type ConnectRequests struct {
	logger zerolog.Logger
}

func NewConnectRequests(logger zerolog.Logger) *ConnectRequests {
	return &ConnectRequests{logger: logger}
}

func (c *ConnectRequests) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return connect.UnaryFunc(func(
		ctx context.Context,
		req connect.AnyRequest,
	) (connect.AnyResponse, error) {
		started := time.Now()

		lctx := c.logger.With().
			Str("procedure", req.Spec().Procedure).
			Str("protocol", req.Peer().Protocol).
			Str("addr", req.Peer().Addr)
		if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
			lctx = lctx.Str("request_id", id)
		}
		if p := auth.PrincipalFromContext(ctx); p != nil {
			lctx = lctx.Str("user_id", p.UserID).Str("tenant_id", p.TenantID)
		}
		ctx = lctx.Logger().WithContext(ctx)

		resp, err := next(ctx, req)

		if err != nil {
			ev := zerolog.Ctx(ctx).Warn()
			code := connect.CodeOf(err)
			if code == connect.CodeInternal || code == connect.CodeUnknown {
				ev = zerolog.Ctx(ctx).Error()
			}
			ev.Err(err).
				Str("code", code.String()).
				Dur("duration", time.Since(started)).
				Msg("rpc call")

			return resp, err
		}

		zerolog.Ctx(ctx).Info().
			Dur("duration", time.Since(started)).
			Msg("rpc call")

		return resp, err
	})
}

func (c *ConnectRequests) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler passes streams through; the users services are unary only.
func (c *ConnectRequests) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// AccessLog logs REST requests. Connect procedures are logged by ConnectRequests
// and skipped here.
func AccessLog(logger zerolog.Logger, skipPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			m := httpsnoop.CaptureMetrics(next, w, r)

			ev := logger.Info()
			if m.Code >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", m.Code).
				Int64("bytes", m.Written).
				Dur("duration", m.Duration).
				Str("client_ip", httpmiddleware.ClientIPFromContext(r.Context())).
				Str("request_id", httpmiddleware.RequestIDFromContext(r.Context())).
				Msg("http request")
		})
	}
}
