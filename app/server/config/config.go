package config

import "time"

type Config struct {
	System struct {
		IsProd                bool   // 是否为生产环境
		Listen                string // 监听地址
		DBConnectionString    string // Postgres 数据库的连接字符串
		RedisConnectionString string // Redis 数据库的连接字符串
	}
	Security struct {
		SignatureSecretKey   string        // 签名密钥，用于签发 JWT ，更新会导致旧有会话失效
		AccessTokenDuration  time.Duration // 访问令牌有效期
		RefreshTokenDuration time.Duration // 刷新令牌有效期（同时也是会话缓存的 TTL ）
	}
	Seed struct {
		AdminEmail    string // 初始超级管理员邮箱
		AdminPassword string // 初始超级管理员密码
	}
}
