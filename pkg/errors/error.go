package errors

import (
	"errors"
	"fmt"
)

// 표준 라이브러리 함수 재노출
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error는 기본 에러 인터페이스를 확장합니다
type Error interface {
	error
	Code() string  // 에러 코드 반환
	Unwrap() error // 내부 에러 반환
}

// AppError는 기본 에러 구현체입니다
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Unwrap() error {
	return e.err
}

// NewAppError는 새 애플리케이션 에러를 생성합니다
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Wrap은 기존 에러를 래핑합니다
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// 기존 AppError인 경우 코드를 유지합니다
	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf는 에러 체인에서 AppError 코드를 찾아 반환합니다. 없으면 ErrInternal
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}

// Unauthenticated는 인증 실패 에러를 생성합니다 (잘못된 토큰, 웹훅 서명 불일치)
func Unauthenticated(message string, err error) *AppError {
	return NewAppError(ErrUnauthenticated, message, err)
}

// InvalidArgument는 잘못된 입력 에러를 생성합니다
func InvalidArgument(message string, err error) *AppError {
	return NewAppError(ErrInvalidArgument, message, err)
}

// Unavailable은 재시도 가능한 외부 의존성 장애 에러를 생성합니다
func Unavailable(message string, err error) *AppError {
	return NewAppError(ErrUnavailable, message, err)
}

// NotFound는 리소스 없음 에러를 생성합니다
func NotFound(message string, err error) *AppError {
	return NewAppError(ErrNotFound, message, err)
}

// QuotaExceeded는 사용량 한도 초과 에러를 생성합니다
func QuotaExceeded(message string, err error) *AppError {
	return NewAppError(ErrQuotaExceeded, message, err)
}
