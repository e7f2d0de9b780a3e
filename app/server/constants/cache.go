package constants

import "time"

const (
	CacheKeyRefreshToken  = "auth:refresh_token:%d"
	CacheKeyPasswordReset = "auth:password_reset:%d"
	CacheKeyLock          = "lock:%s"
)

const (
	CacheExpirePasswordReset = 1 * time.Hour
)
