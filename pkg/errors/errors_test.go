package errors

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCodeOf(t *testing.T) {
	base := QuotaExceeded("daily limit reached", nil)

	assert.Equal(t, ErrQuotaExceeded, CodeOf(base))
	assert.Equal(t, ErrQuotaExceeded, CodeOf(fmt.Errorf("consume: %w", base)))
	assert.Equal(t, ErrQuotaExceeded, CodeOf(Wrap(base, "outer")))
	assert.Equal(t, ErrInternal, CodeOf(New("plain")))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrQuotaExceeded))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrUnavailable))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("SOMETHING_ELSE"))
}

func TestFromHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusInternalServerError, ErrInternal},
		{http.StatusMethodNotAllowed, ErrInvalidArgument},
		{http.StatusRequestEntityTooLarge, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromHTTPError(echo.NewHTTPError(tt.status))
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}

	app := NotFound("missing", nil)
	assert.Same(t, app, FromHTTPError(app))
	assert.Nil(t, FromHTTPError(nil))
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "client error keeps message",
			err:        InvalidArgument("Invalid signature", New("bad hmac")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"INVALID_ARGUMENT","error":"Invalid signature"}`,
		},
		{
			name:       "server error hides message",
			err:        Unavailable("db down at 10.0.0.3", New("dial tcp")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNAVAILABLE","error":"Internal Server Error"}`,
		},
		{
			name:       "quota",
			err:        QuotaExceeded("limit reached for quiz:daily", nil),
			wantStatus: http.StatusTooManyRequests,
			wantBody:   `{"code":"QUOTA_EXCEEDED","error":"limit reached for quiz:daily"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, WriteJSON(c, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestLogError_LevelFollowsCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	LogError(logger, InvalidArgument("bad window", nil), "client")
	LogError(logger, Unavailable("store down", New("timeout")), "server", zap.String("user_id", "u1"))
	LogError(logger, nil, "ignored")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, ErrInvalidArgument, entries[0].ContextMap()["error_code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "u1", entries[1].ContextMap()["user_id"])
}
