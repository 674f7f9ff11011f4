package errors

import "net/http"

// 공통 에러 코드 정의. 응답 본문의 "code" 필드 값으로 사용됩니다.
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	// 사용량 한도 초과 (무료 등급 일일/월간 한도)
	ErrQuotaExceeded = "QUOTA_EXCEEDED"
	// 외부 의존성(Stripe, Supabase, DB) 장애 - 재시도 가능
	ErrUnavailable = "UNAVAILABLE"
)

// 코드별 HTTP 상태. ErrUnavailable은 Stripe가 웹훅을 재전송하도록 500을 유지합니다.
var httpStatusByCode = map[string]int{
	ErrInternal:        http.StatusInternalServerError,
	ErrNotFound:        http.StatusNotFound,
	ErrInvalidArgument: http.StatusBadRequest,
	ErrUnauthenticated: http.StatusUnauthorized,
	ErrUnauthorized:    http.StatusForbidden,
	ErrConflict:        http.StatusConflict,
	ErrTimeout:         http.StatusGatewayTimeout,
	ErrNotImplemented:  http.StatusNotImplemented,
	ErrQuotaExceeded:   http.StatusTooManyRequests,
	ErrUnavailable:     http.StatusInternalServerError,
}

// HTTPStatus 에러 코드의 HTTP 상태를 반환합니다. 모르는 코드는 500
func HTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// codeForStatus HTTP 상태를 에러 코드로 되돌립니다.
// 표에 없는 4xx는 INVALID_ARGUMENT, 그 외는 INTERNAL
func codeForStatus(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return ErrUnavailable
	case http.StatusInternalServerError:
		return ErrInternal
	}
	for code, s := range httpStatusByCode {
		if s == status {
			return code
		}
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return ErrInvalidArgument
	}
	return ErrInternal
}
