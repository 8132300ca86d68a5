package loggingmw

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/user_management/pkg/logging"
)

type Config struct {
	Logger *slog.Logger
	// Skipper requests still get a request id and a context logger but no
	// completion line.
	Skipper middleware.Skipper
	// SlowThreshold raises successful requests slower than this to WARN.
	// Zero disables it.
	SlowThreshold time.Duration
}

// RequestLogger logs every request with base.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(Config{Logger: base})
}

// SkipPaths matches requests by registered route.
func SkipPaths(paths ...string) middleware.Skipper {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c echo.Context) bool {
		_, ok := set[c.Path()]
		return ok
	}
}

// RequestLoggerWithConfig puts a request-scoped logger into the request
// context and logs one line per request. Handler errors are rendered here so
// the logged status is the one the client sees.
func RequestLoggerWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			l := cfg.Logger.With(
				"request_id", rid,
				"method", c.Request().Method,
				"route", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			if cfg.Skipper(c) {
				return nil
			}

			status := c.Response().Status
			attrs := []any{"status", status, "duration_ms", dur.Milliseconds()}
			switch {
			case status >= 500:
				l.Error("request completed", append(attrs, "error", errStr(err))...)
			case status >= 400:
				l.Warn("request completed", append(attrs, "error", errStr(err))...)
			case cfg.SlowThreshold > 0 && dur > cfg.SlowThreshold:
				l.Warn("slow request", append(attrs, "bytes", c.Response().Size)...)
			default:
				l.Info("request completed", append(attrs, "bytes", c.Response().Size)...)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
		return he.Internal.Error()
	}
	return err.Error()
}
