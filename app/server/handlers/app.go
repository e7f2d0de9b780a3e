package handlers

import (
	"blog-backend/app/server/config"
	"blog-backend/app/server/jwt"
	"blog-backend/app/server/sessions"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	l    *zap.Logger    // 日志
	db   *gorm.DB       // 数据库
	sess sessions.Store // 会话缓存
	jwt  *jwt.JWT       // JWT ，用于无状态验证
	cfg  *config.Config // 配置
}

func NewApp(l *zap.Logger, db *gorm.DB, sess sessions.Store, j *jwt.JWT, cfg *config.Config) *App {
	return &App{
		l:    l,
		db:   db,
		sess: sess,
		jwt:  j,
		cfg:  cfg,
	}
}
