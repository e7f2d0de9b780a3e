package handlers

import (
	"blog-backend/app/server/constants"
	"blog-backend/app/server/jwt"
	"blog-backend/app/server/models"
	"blog-backend/app/server/sessions"
	"blog-backend/app/server/types"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *App) AuthRegister(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.RegisterRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 邮箱和用户名统一小写储存，唯一性比较不区分大小写
	email := strings.ToLower(req.Email)
	username := strings.ToLower(req.Username)

	// 检查重复
	var counter int64
	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("email = ?", email).Count(&counter).Error; err != nil {
		a.l.Error("failed to check email", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if counter > 0 {
		return a.erCode(c, http.StatusBadRequest, "Email already registered", "duplicate_email")
	}
	if err := a.db.WithContext(rctx).Model(&models.User{}).Where("username = ?", username).Count(&counter).Error; err != nil {
		a.l.Error("failed to check username", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if counter > 0 {
		return a.erCode(c, http.StatusBadRequest, "Username already taken", "duplicate_username")
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 创建用户
	user := models.User{
		Email:    email,
		Username: username,
		FullName: req.FullName,
		Bio:      req.Bio,
		Password: passwordHash,
		IsActive: true,
		Role:     models.RoleUser,
	}
	if err := a.db.WithContext(rctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发注册时依然可能撞到唯一索引
			return a.erCode(c, http.StatusBadRequest, "Email or username already taken", "duplicate")
		}
		a.l.Error("failed to create user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 签出邮箱验证令牌
	// TODO: 接入邮件发送，现在只记录在日志里
	if verifyToken, err := a.jwt.Sign(user.ID, jwt.TypeEmailVerification, constants.EmailVerificationTokenDuration); err != nil {
		a.l.Error("failed to sign verification token", zap.Uint("id", user.ID), zap.Error(err))
	} else {
		a.l.Info("email verification token issued", zap.Uint("id", user.ID), zap.String("token", verifyToken))
	}

	return c.JSON(http.StatusCreated, a.userInfo(&user))
}

func (a *App) AuthLogin(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.LoginRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "email = ?", strings.ToLower(req.Email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusUnauthorized, "Invalid email or password")
		} else {
			a.l.Error("failed to find user", zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
	}

	// 提取密码 hash 并进行校验
	if match, _, err := argon2id.CheckHash(req.Password, user.Password); err != nil {
		a.l.Error("failed to check password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if !match {
		// 密码不一致
		return a.erMsg(c, http.StatusUnauthorized, "Invalid email or password")
	}

	if !user.IsActive {
		return a.erMsg(c, http.StatusForbidden, "User account is inactive")
	}

	// 签出令牌对并记录会话
	pair, err := a.issueTokenPair(c, user.ID)
	if err != nil {
		a.l.Error("failed to issue token pair", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 更新最后登录时间
	now := time.Now()
	if err := a.db.WithContext(rctx).Model(&user).Update("last_login_at", &now).Error; err != nil {
		a.l.Error("failed to update last login", zap.Uint("id", user.ID), zap.Error(err))
	}

	return c.JSON(http.StatusOK, pair)
}

// issueTokenPair 签出 access+refresh 令牌，并把刷新令牌写入会话缓存。
// 覆盖写入保证每个用户同时只有一个有效的刷新令牌。
func (a *App) issueTokenPair(c echo.Context, userID uint) (*types.TokenPair, error) {
	accessToken, err := a.jwt.Sign(userID, jwt.TypeAccess, a.cfg.Security.AccessTokenDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := a.jwt.Sign(userID, jwt.TypeRefresh, a.cfg.Security.RefreshTokenDuration)
	if err != nil {
		return nil, err
	}

	if err := a.sess.PutRefreshToken(c.Request().Context(), userID, refreshToken, a.cfg.Security.RefreshTokenDuration); err != nil {
		return nil, err
	}

	return &types.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (a *App) AuthRefresh(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.RefreshRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 验证 token （必须是 refresh 类型）
	claims, err := a.jwt.Parse(req.RefreshToken, jwt.TypeRefresh)
	if err != nil || claims.UserID == 0 {
		return a.erMsg(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	// 与缓存中的当前值比对：不一致（包括缺失）一律视为无效，
	// 从而保证旧令牌在被覆盖或登出后立即失效
	stored, err := a.sess.GetRefreshToken(rctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			a.l.Error("failed to query session cache", zap.Uint("id", claims.UserID), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
		return a.erMsg(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}
	if stored != req.RefreshToken {
		return a.erMsg(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	// 加载用户
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found or inactive")
		}
		a.l.Error("failed to load user", zap.Uint("id", claims.UserID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if !user.IsActive {
		return a.erMsg(c, http.StatusNotFound, "User not found or inactive")
	}

	// 轮换令牌对
	pair, err := a.issueTokenPair(c, user.ID)
	if err != nil {
		a.l.Error("failed to issue token pair", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, pair)
}

func (a *App) AuthLogout(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	// 删除会话缓存中的刷新令牌
	if err := a.sess.DeleteRefreshToken(c.Request().Context(), user.ID); err != nil {
		a.l.Error("failed to delete refresh token", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return a.ok(c, "Successfully logged out")
}

func (a *App) AuthMe(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	return c.JSON(http.StatusOK, a.userInfo(user))
}

func (a *App) AuthPasswordReset(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "email = ?", strings.ToLower(req.Email)).Error; err == nil {
		// 签出重置令牌并写入缓存标记，确认时比对并删除，保证只能使用一次
		if resetToken, err := a.jwt.Sign(user.ID, jwt.TypePasswordReset, constants.PasswordResetTokenDuration); err != nil {
			a.l.Error("failed to sign reset token", zap.Uint("id", user.ID), zap.Error(err))
		} else if err := a.sess.PutResetToken(rctx, user.ID, resetToken, constants.CacheExpirePasswordReset); err != nil {
			a.l.Error("failed to store reset token", zap.Uint("id", user.ID), zap.Error(err))
		} else {
			// TODO: 接入邮件发送，现在只记录在日志里
			a.l.Info("password reset token issued", zap.Uint("id", user.ID), zap.String("token", resetToken))
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		a.l.Error("failed to find user", zap.Error(err))
	}

	// 无论邮箱是否存在都返回成功，避免账号枚举
	return a.ok(c, "If the email exists, a password reset link has been sent")
}

func (a *App) AuthPasswordResetConfirm(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 验证 token （必须是 password_reset 类型）
	claims, err := a.jwt.Parse(req.Token, jwt.TypePasswordReset)
	if err != nil || claims.UserID == 0 {
		return a.erMsg(c, http.StatusBadRequest, "Invalid reset token")
	}

	// 与缓存标记比对，防止重置令牌被重复使用
	stored, err := a.sess.GetResetToken(rctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			a.l.Error("failed to query session cache", zap.Uint("id", claims.UserID), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
		return a.erMsg(c, http.StatusBadRequest, "Invalid reset token")
	}
	if stored != req.Token {
		return a.erMsg(c, http.StatusBadRequest, "Invalid reset token")
	}

	// 加载用户
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found")
		}
		a.l.Error("failed to load user", zap.Uint("id", claims.UserID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 更新密码
	newPasswordHash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&user).Update("password", newPasswordHash).Error; err != nil {
		a.l.Error("failed to update password", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 删除标记，令牌作废
	if err := a.sess.DeleteResetToken(rctx, user.ID); err != nil {
		a.l.Error("failed to delete reset token", zap.Uint("id", user.ID), zap.Error(err))
	}

	return a.ok(c, "Password successfully reset")
}

func (a *App) AuthVerifyEmail(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 验证 token （必须是 email_verification 类型）
	claims, err := a.jwt.Parse(req.Token, jwt.TypeEmailVerification)
	if err != nil || claims.UserID == 0 {
		return a.erMsg(c, http.StatusBadRequest, "Invalid verification token")
	}

	// 加载用户并标记为已验证
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found")
		}
		a.l.Error("failed to load user", zap.Uint("id", claims.UserID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if err := a.db.WithContext(rctx).Model(&user).Update("is_verified", true).Error; err != nil {
		a.l.Error("failed to update user", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return a.ok(c, "Email successfully verified")
}
