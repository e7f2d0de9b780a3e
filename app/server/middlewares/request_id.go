package middlewares

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const RequestIDKey = "request_id"

// RequestID 为每个请求生成唯一标识，写入 context 和响应头
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()

			// 设置 context
			c.Set(RequestIDKey, requestID)

			// 写入响应头
			c.Response().Header().Set("X-Request-Id", requestID)

			// 继续处理
			return next(c)
		}
	}
}
