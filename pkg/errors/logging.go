package errors

import (
	"net/http"

	"go.uber.org/zap"
)

// LogError 에러를 error_code 필드와 함께 기록합니다.
// 클라이언트 원인(4xx) 에러는 Warn, 그 외는 Error 레벨입니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}

	code := CodeOf(err)
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.Error(err), zap.String("error_code", code))
	all = append(all, fields...)

	if HTTPStatus(code) < http.StatusInternalServerError {
		logger.Warn(msg, all...)
		return
	}
	logger.Error(msg, all...)
}
