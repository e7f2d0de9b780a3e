package constants

import "time"

// 令牌默认有效期，可以通过环境变量覆盖
const (
	DefaultAccessTokenDuration  = 30 * time.Minute
	DefaultRefreshTokenDuration = 7 * 24 * time.Hour

	PasswordResetTokenDuration     = 1 * time.Hour
	EmailVerificationTokenDuration = 24 * time.Hour
)
