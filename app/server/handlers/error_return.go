package handlers

import (
	"blog-backend/app/server/types"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &types.ErrorMessage{
		Success: false,
		Message: http.StatusText(statusCode),
	})
}

func (a *App) erMsg(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, &types.ErrorMessage{
		Success: false,
		Message: message,
	})
}

func (a *App) erCode(c echo.Context, statusCode int, message string, code string) error {
	return c.JSON(statusCode, &types.ErrorMessage{
		Success: false,
		Message: message,
		Code:    code,
	})
}

// erAuth 渲染认证流水线的错误：401/403/404 带具体原因，
// 内部错误统一返回通用文案
func (a *App) erAuth(c echo.Context, statusCode int, err error) error {
	if statusCode == http.StatusInternalServerError {
		return a.er(c, statusCode)
	}
	return a.erMsg(c, statusCode, err.Error())
}

func (a *App) ok(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, &types.SuccessMessage{
		Success: true,
		Message: message,
	})
}
