// File: pkg/logger/echo_logger.go
package logger

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	pkgerrors "github.com/wekeepgrowing/medvoa-backend/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 로그에 남길 때 값을 가리는 헤더
var maskedHeaders = map[string]bool{
	"Authorization":    true,
	"Stripe-Signature": true,
}

// NewEchoRequestLogger HTTP 요청 1건당 로그 1줄을 남기는 미들웨어를 생성합니다.
// 헬스 체크와 CORS pre-flight 요청은 제외합니다.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health" || c.Request().Method == http.MethodOptions
		},
		HandleError: true,

		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogURIPath:      true,
		LogRoutePath:    true,
		LogRequestID:    true,
		LogUserAgent:    true,
		LogStatus:       true,
		LogError:        true,
		LogResponseSize: true,
		LogHeaders:      []string{"Content-Type", "Origin", "Authorization", "Stripe-Signature"},

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.id", v.RequestID),
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.path", v.URIPath),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.Int("response.status", v.Status),
				zap.Int64("response.size", v.ResponseSize),
				zap.Duration("response.latency", v.Latency),
			}
			if headers := headerFields(v.Headers); len(headers) > 0 {
				fields = append(fields, zap.Any("request.headers", headers))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			level, msg := requestOutcome(v.Status, v.Error)
			logger.Check(level, msg).Write(fields...)
			return nil
		},
	})
}

func requestOutcome(status int, err error) (zapcore.Level, string) {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel, "Server error"
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel, "Client error"
	case err != nil:
		return zapcore.ErrorLevel, "Request failed"
	default:
		return zapcore.InfoLevel, "Request completed"
	}
}

func headerFields(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, values := range headers {
		if len(values) == 0 {
			continue
		}
		if maskedHeaders[k] {
			out[k] = maskSecret(values[0])
		} else {
			out[k] = values[0]
		}
	}
	return out
}

// maskSecret 토큰/서명 값의 앞뒤 일부만 남깁니다 (예: "Bearer eyJ...xxxxx")
func maskSecret(val string) string {
	if len(val) > 15 {
		return val[:10] + "..." + val[len(val)-5:]
	}
	return "[MASKED]"
}

// WithEchoLogger Echo 내장 로거를 zap으로 교체하고, 핸들러 밖에서 발생한
// 에러(라우트 없음, 메서드 불일치, 본문 크기 초과 등)를 {"error", "code"} 형태로 응답합니다.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		status := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}

		fields := []zap.Field{
			zap.Error(err),
			zap.Int("status", status),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("HTTP error", fields...)
		} else {
			logger.Debug("HTTP error", fields...)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{
				"error": http.StatusText(status),
				"code":  pkgerrors.CodeOf(pkgerrors.FromHTTPError(err)),
			})
		}
		if err != nil {
			logger.Error("Failed to send error response", zap.Error(err))
		}
	}
}

// EchoZapLogger echo.Logger 인터페이스의 zap 구현체.
// 출력 대상과 헤더는 zap 설정을 따르므로 SetOutput, SetHeader는 무시합니다.
type EchoZapLogger struct {
	sugar  *zap.SugaredLogger
	level  log.Lvl
	prefix string
}

// NewEchoZapLogger echo 로그를 "echo" 이름의 zap 로거로 전달합니다
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{sugar: logger.Named("echo").Sugar(), level: log.INFO}
}

func (l *EchoZapLogger) Output() io.Writer { return zapWriter{sugar: l.sugar} }
func (l *EchoZapLogger) SetOutput(io.Writer) {}
func (l *EchoZapLogger) Level() log.Lvl { return l.level }
func (l *EchoZapLogger) SetLevel(v log.Lvl) { l.level = v }
func (l *EchoZapLogger) SetHeader(string) {}
func (l *EchoZapLogger) Prefix() string { return l.prefix }
func (l *EchoZapLogger) SetPrefix(p string) { l.prefix = p }
func (l *EchoZapLogger) Print(i ...interface{}) { l.sugar.Info(i...) }
func (l *EchoZapLogger) Debug(i ...interface{}) { l.sugar.Debug(i...) }
func (l *EchoZapLogger) Info(i ...interface{}) { l.sugar.Info(i...) }
func (l *EchoZapLogger) Warn(i ...interface{}) { l.sugar.Warn(i...) }
func (l *EchoZapLogger) Error(i ...interface{}) { l.sugar.Error(i...) }
func (l *EchoZapLogger) Fatal(i ...interface{}) { l.sugar.Fatal(i...) }
func (l *EchoZapLogger) Panic(i ...interface{}) { l.sugar.Panic(i...) }
func (l *EchoZapLogger) Printj(j log.JSON) { l.sugar.Infow("echo", "json", j) }
func (l *EchoZapLogger) Debugj(j log.JSON) { l.sugar.Debugw("echo", "json", j) }
func (l *EchoZapLogger) Infoj(j log.JSON) { l.sugar.Infow("echo", "json", j) }
func (l *EchoZapLogger) Warnj(j log.JSON) { l.sugar.Warnw("echo", "json", j) }
func (l *EchoZapLogger) Errorj(j log.JSON) { l.sugar.Errorw("echo", "json", j) }
func (l *EchoZapLogger) Fatalj(j log.JSON) { l.sugar.Fatalw("echo", "json", j) }
func (l *EchoZapLogger) Panicj(j log.JSON) { l.sugar.Panicw("echo", "json", j) }
func (l *EchoZapLogger) Printf(f string, i ...interface{}) { l.sugar.Infof(f, i...) }
func (l *EchoZapLogger) Debugf(f string, i ...interface{}) { l.sugar.Debugf(f, i...) }
func (l *EchoZapLogger) Infof(f string, i ...interface{}) { l.sugar.Infof(f, i...) }
func (l *EchoZapLogger) Warnf(f string, i ...interface{}) { l.sugar.Warnf(f, i...) }
func (l *EchoZapLogger) Errorf(f string, i ...interface{}) { l.sugar.Errorf(f, i...) }
func (l *EchoZapLogger) Fatalf(f string, i ...interface{}) { l.sugar.Fatalf(f, i...) }
func (l *EchoZapLogger) Panicf(f string, i ...interface{}) { l.sugar.Panicf(f, i...) }

// zapWriter echo가 Output()에 직접 쓰는 로그를 zap으로 전달합니다
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Write(p []byte) (int, error) {
	w.sugar.Info(string(p))
	return len(p), nil
}
