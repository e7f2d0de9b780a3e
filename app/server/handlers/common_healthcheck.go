package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) CommonHealthCheck(c echo.Context) error {
	rctx := c.Request().Context()

	// 数据库
	sqlDB, err := a.db.DB()
	if err != nil {
		a.l.Error("failed to get sql db", zap.Error(err))
		return a.er(c, http.StatusServiceUnavailable)
	}
	if err := sqlDB.PingContext(rctx); err != nil {
		a.l.Error("database ping failed", zap.Error(err))
		return a.er(c, http.StatusServiceUnavailable)
	}

	// 会话缓存
	if err := a.sess.Ping(rctx); err != nil {
		a.l.Error("session cache ping failed", zap.Error(err))
		return a.er(c, http.StatusServiceUnavailable)
	}

	return a.ok(c, "ok")
}
