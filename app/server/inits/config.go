package inits

import (
	"blog-backend/app/server/config"
	"blog-backend/app/server/constants"
	"fmt"
	"os"
	"strings"
	"time"
)

func Config() (cfg *config.Config, err error) {
	cfg = &config.Config{}

	// 手动配置映射
	{
		mode, exist := os.LookupEnv("MODE")
		cfg.System.IsProd = exist && strings.HasPrefix(strings.ToLower(mode), "p")
	}

	if listen, exist := os.LookupEnv("LISTEN"); !exist {
		cfg.System.Listen = ":1323" // 默认监听地址
	} else {
		cfg.System.Listen = listen
	}

	if dbconn, exist := os.LookupEnv("DB_CONN"); !exist {
		return nil, fmt.Errorf("DB_CONN environment variable not set")
	} else {
		cfg.System.DBConnectionString = dbconn
	}

	if redisconn, exist := os.LookupEnv("REDIS_CONN"); !exist {
		return nil, fmt.Errorf("REDIS_CONN environment variable not set")
	} else {
		cfg.System.RedisConnectionString = redisconn
	}

	if sigsk, exist := os.LookupEnv("SIGNATURE_SECRET_KEY"); !exist {
		return nil, fmt.Errorf("SIGNATURE_SECRET_KEY environment variable not set")
	} else {
		cfg.Security.SignatureSecretKey = sigsk
	}

	// 令牌有效期，未设定时使用默认值
	if accessDuration, exist := os.LookupEnv("ACCESS_TOKEN_DURATION"); !exist {
		cfg.Security.AccessTokenDuration = constants.DefaultAccessTokenDuration
	} else if cfg.Security.AccessTokenDuration, err = time.ParseDuration(accessDuration); err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_DURATION: %w", err)
	}

	if refreshDuration, exist := os.LookupEnv("REFRESH_TOKEN_DURATION"); !exist {
		cfg.Security.RefreshTokenDuration = constants.DefaultRefreshTokenDuration
	} else if cfg.Security.RefreshTokenDuration, err = time.ParseDuration(refreshDuration); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_DURATION: %w", err)
	}

	// 初始超级管理员，数据库为空时使用
	if seedEmail, exist := os.LookupEnv("SEED_ADMIN_EMAIL"); !exist {
		cfg.Seed.AdminEmail = "admin@example.com"
	} else {
		cfg.Seed.AdminEmail = seedEmail
	}

	if seedPassword, exist := os.LookupEnv("SEED_ADMIN_PASSWORD"); !exist {
		cfg.Seed.AdminPassword = "password"
	} else {
		cfg.Seed.AdminPassword = seedPassword
	}

	return cfg, nil
}
