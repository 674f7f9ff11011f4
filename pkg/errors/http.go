package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WriteJSON 에러를 {"error", "code"} 형태의 JSON 응답으로 기록합니다.
// 5xx 응답에는 내부 에러 메시지 대신 상태 문구만 노출합니다.
func WriteJSON(c echo.Context, err error) error {
	code := CodeOf(err)
	status := HTTPStatus(code)

	message := http.StatusText(status)
	var appErr *AppError
	if status < http.StatusInternalServerError && As(err, &appErr) {
		message = appErr.message
	}

	return c.JSON(status, echo.Map{
		"error": message,
		"code":  code,
	})
}

// FromHTTPError echo 프레임워크 에러(라우트 없음, 본문 크기 초과 등)를 AppError로 변환합니다
func FromHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return err
	}

	var echoErr *echo.HTTPError
	if As(err, &echoErr) {
		msg, ok := echoErr.Message.(string)
		if !ok {
			msg = http.StatusText(echoErr.Code)
		}
		return NewAppError(codeForStatus(echoErr.Code), msg, echoErr.Internal)
	}

	return NewAppError(ErrInternal, err.Error(), err)
}
