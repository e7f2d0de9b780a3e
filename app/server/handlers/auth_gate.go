package handlers

import (
	"blog-backend/app/server/jwt"
	"blog-backend/app/server/models"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// authOpts 控制认证流水线中可选的检查环节
type authOpts struct {
	RequireVerified bool     // 要求邮箱已验证
	Roles           []string // 非空时要求角色在集合内
}

func getBearerToken(c echo.Context) (string, error) {
	// 提取 token
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing auth token")
	}

	splits := strings.Split(authHeader, " ")
	if len(splits) != 2 {
		return "", fmt.Errorf("invalid auth header")
	}

	if strings.ToLower(splits[0]) != "bearer" {
		return "", fmt.Errorf("unknown auth method: %s", splits[0])
	}

	return splits[1], nil
}

// authUser 认证流水线：提取 token → 验证（access 类型）→ 加载用户 → 活跃检查
// → 可选的验证状态与角色检查。任何一步失败都直接短路返回。
func (a *App) authUser(c echo.Context, opts authOpts) (*models.User, error, int) {
	// 提取 token
	tokenString, err := getBearerToken(c)
	if err != nil {
		return nil, err, http.StatusUnauthorized
	}

	// 验证 token
	claims, err := a.jwt.Parse(tokenString, jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err), http.StatusUnauthorized
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("invalid token payload"), http.StatusUnauthorized
	}

	// 加载用户
	var user models.User
	if err := a.db.WithContext(c.Request().Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found"), http.StatusNotFound
		}
		// 内部错误只进日志，不透给客户端
		a.l.Error("failed to load user", zap.Uint("id", claims.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to load user"), http.StatusInternalServerError
	}

	// 活跃检查
	if !user.IsActive {
		return nil, fmt.Errorf("user account is inactive"), http.StatusForbidden
	}

	// 验证状态检查（可选）
	if opts.RequireVerified && !user.IsVerified {
		return nil, fmt.Errorf("user email is not verified"), http.StatusForbidden
	}

	// 角色检查（可选）
	if len(opts.Roles) > 0 {
		allowed := false
		for _, role := range opts.Roles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("required role: %s", strings.Join(opts.Roles, ", ")), http.StatusForbidden
		}
	}

	return &user, nil, http.StatusOK
}

// authUserOptional 匿名访问允许时使用：没有或无效的凭证按匿名处理（nil, nil），
// 基础设施故障则返回错误，不能降级成匿名
func (a *App) authUserOptional(c echo.Context) (*models.User, error) {
	tokenString, err := getBearerToken(c)
	if err != nil {
		return nil, nil
	}

	claims, err := a.jwt.Parse(tokenString, jwt.TypeAccess)
	if err != nil || claims.UserID == 0 {
		return nil, nil
	}

	var user models.User
	if err := a.db.WithContext(c.Request().Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	return &user, nil
}

// 常用角色集合
var (
	rolesAdmin      = []string{models.RoleAdmin, models.RoleSuperAdmin}
	rolesSuperAdmin = []string{models.RoleSuperAdmin}
)
