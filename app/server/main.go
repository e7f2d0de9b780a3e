package main

import (
	"blog-backend/app/server/handlers"
	"blog-backend/app/server/inits"
	"blog-backend/app/server/jwt"
	"blog-backend/app/server/middlewares"
	"blog-backend/app/server/sessions"
	"blog-backend/app/server/validation"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// 加载 .env （不存在时忽略）
	_ = godotenv.Load()

	// 初始化配置
	cfg, err := inits.Config()
	if err != nil {
		log.Fatal(fmt.Errorf("error loading config: %w", err))
	}

	// 初始化日志
	l, err := inits.Logger(!cfg.System.IsProd)
	if err != nil {
		log.Fatal(fmt.Errorf("error initializing logger: %w", err))
	}

	// 切换日志系统
	l.Debug("logger initialized")

	// 初始化 redis 连接
	rdb, err := inits.Redis(cfg.System.RedisConnectionString)
	if err != nil {
		l.Fatal("error initializing Redis connection", zap.Error(err))
	}
	sess := sessions.NewRedis(rdb)

	// 数据库迁移加锁，避免多副本同时执行；拿不到锁就不能继续
	lockOwner, err := sessions.AcquireRetry(context.Background(), sess, "db-init", 30*time.Second, 10, 3*time.Second)
	if err != nil {
		l.Fatal("error acquiring db-init lock", zap.Error(err))
	}

	// 初始化数据库连接
	db, err := inits.DB(cfg)
	if err != nil {
		l.Fatal("error initializing DB connection", zap.Error(err))
	}

	if err := sess.Release(context.Background(), "db-init", lockOwner); err != nil {
		l.Error("error releasing db-init lock", zap.Error(err))
	}

	// 初始化 JWT
	j, err := jwt.New(cfg.Security.SignatureSecretKey)
	if err != nil {
		l.Fatal("error initializing JWT", zap.Error(err))
	}

	// 准备 handler app
	handlerApp := handlers.NewApp(l, db, sess, j, cfg)

	// 准备 echo 服务
	e := echo.New()
	e.Validator = validation.New()
	e.Use(middlewares.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			requestID, _ := c.Get(middlewares.RequestIDKey).(string)
			l.Info("request",
				zap.String("URI", v.URI),
				zap.Int("status", v.Status),
				zap.String("request_id", requestID),
			)

			return nil
		},
	}))
	e.Use(middleware.Recover())

	// 绑定路由
	handlers.RegisterRoutes(e, handlerApp)

	// 启动 echo 服务
	if err := e.Start(cfg.System.Listen); err != nil {
		l.Fatal("shutting down the server", zap.Error(err))
	}
}
