package handlers

import (
	"blog-backend/app/server/models"
	"blog-backend/app/server/types"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *App) userInfo(user *models.User) *types.UserInfo {
	return &types.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		FullName:    user.FullName,
		Bio:         user.Bio,
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

func parseIDParam(c echo.Context) (uint, error) {
	idUint64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(idUint64), nil
}

func (a *App) UserList(c echo.Context) error {
	// 抓取 user 信息（认证，仅管理员）
	_, err, statusCode := a.authUser(c, authOpts{Roles: rolesAdmin})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	var (
		users      []models.User
		usersCount int64
	)

	// 过滤条件
	queryBase := a.db.WithContext(rctx).Model(&models.User{})
	if isActive := c.QueryParam("is_active"); isActive != "" {
		queryBase = queryBase.Where("is_active = ?", isActive == "true")
	}
	if role := c.QueryParam("role"); role != "" {
		queryBase = queryBase.Where("role = ?", role)
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		queryBase = queryBase.Where(
			"email LIKE ? OR username LIKE ? OR LOWER(full_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if err := queryBase.Count(&usersCount).Error; err != nil {
		a.l.Error("failed to count user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	showAll, page, limit := a.parsePagination(c)
	query := queryBase.Order("id ASC")
	if !showAll {
		query = query.Limit(limit).Offset(page * limit)
	}
	if err := query.Find(&users).Error; err != nil {
		a.l.Error("failed to get user list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	resUsers := []types.UserInfo{}
	for i := range users {
		resUsers = append(resUsers, *a.userInfo(&users[i]))
	}

	return c.JSON(http.StatusOK, &types.UserListResponse{
		List:    resUsers,
		Total:   usersCount,
		Limit:   limit,
		PageMax: a.calcMaxPage(usersCount, showAll, limit),
	})
}

func (a *App) UserGetSelf(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	// 统计发文数量与总浏览量
	var stats struct {
		PostCount  int64
		TotalViews int64
	}
	if err := a.db.WithContext(rctx).Model(&models.Post{}).
		Select("COUNT(*) AS post_count, COALESCE(SUM(view_count), 0) AS total_views").
		Where("author_id = ?", user.ID).
		Scan(&stats).Error; err != nil {
		a.l.Error("failed to get post stats", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, &types.UserWithStats{
		UserInfo:   *a.userInfo(user),
		PostCount:  stats.PostCount,
		TotalViews: stats.TotalViews,
	})
}

func (a *App) UserUpdateSelf(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	// 绑定请求体
	var req types.UserUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	if handled, err := a.userApplyUpdate(c, user, req.Email, req.Username, req.FullName, req.Bio); handled {
		return err
	}

	return c.JSON(http.StatusOK, a.userInfo(user))
}

// userApplyUpdate 应用基础字段更新，包含邮箱 / 用户名的重复检查。
// handled 为 true 时响应已经写入，调用方直接返回 err 即可。
func (a *App) userApplyUpdate(c echo.Context, user *models.User, email, username, fullName, bio *string) (handled bool, err error) {
	rctx := c.Request().Context()

	updates := map[string]interface{}{}

	if email != nil {
		newEmail := strings.ToLower(*email)
		if newEmail != user.Email {
			var counter int64
			if err := a.db.WithContext(rctx).Model(&models.User{}).Where("email = ?", newEmail).Count(&counter).Error; err != nil {
				a.l.Error("failed to check email", zap.Error(err))
				return true, a.er(c, http.StatusInternalServerError)
			} else if counter > 0 {
				return true, a.erCode(c, http.StatusBadRequest, "Email already registered", "duplicate_email")
			}
			updates["email"] = newEmail
		}
	}

	if username != nil {
		newUsername := strings.ToLower(*username)
		if newUsername != user.Username {
			var counter int64
			if err := a.db.WithContext(rctx).Model(&models.User{}).Where("username = ?", newUsername).Count(&counter).Error; err != nil {
				a.l.Error("failed to check username", zap.Error(err))
				return true, a.er(c, http.StatusInternalServerError)
			} else if counter > 0 {
				return true, a.erCode(c, http.StatusBadRequest, "Username already taken", "duplicate_username")
			}
			updates["username"] = newUsername
		}
	}

	if fullName != nil {
		updates["full_name"] = *fullName
	}
	if bio != nil {
		updates["bio"] = *bio
	}

	if len(updates) == 0 {
		return false, nil
	}

	if err := a.db.WithContext(rctx).Model(user).Updates(updates).Error; err != nil {
		a.l.Error("failed to update user", zap.Uint("id", user.ID), zap.Error(err))
		return true, a.er(c, http.StatusInternalServerError)
	}

	return false, nil
}

func (a *App) UserPasswordUpdateSelf(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req types.UserPasswordUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 校验当前密码
	if match, _, err := argon2id.CheckHash(req.CurrentPassword, user.Password); err != nil {
		a.l.Error("failed to check password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if !match {
		return a.erMsg(c, http.StatusBadRequest, "Current password is incorrect")
	}

	newPasswordHash, err := argon2id.CreateHash(req.NewPassword, argon2id.DefaultParams)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	if err := a.db.WithContext(rctx).Model(user).Update("password", newPasswordHash).Error; err != nil {
		a.l.Error("failed to update password", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return a.ok(c, "Password successfully updated")
}

func (a *App) UserDeleteSelf(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	// 硬删除，关联内容由数据库级联清理
	if err := a.db.WithContext(rctx).Unscoped().Delete(&models.User{}, user.ID).Error; err != nil {
		a.l.Error("failed to delete user", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 清理会话
	if err := a.sess.DeleteRefreshToken(rctx, user.ID); err != nil {
		a.l.Error("failed to delete refresh token", zap.Uint("id", user.ID), zap.Error(err))
	}

	return a.ok(c, "Account successfully deleted")
}

func (a *App) UserInfoGet(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	// 公开资料：不存在或已停用都返回 404
	var user models.User
	if err := a.db.WithContext(rctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found")
		}
		a.l.Error("failed to get user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	if !user.IsActive {
		return a.erMsg(c, http.StatusNotFound, "User not found")
	}

	return c.JSON(http.StatusOK, a.userInfo(&user))
}

func (a *App) UserPostsGet(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	var (
		posts      []models.Post
		postsCount int64
	)

	// 公开接口只展示已发布的内容
	queryBase := a.db.WithContext(rctx).Model(&models.Post{}).
		Where("author_id = ? AND is_published = ?", id, true)

	if err := queryBase.Count(&postsCount).Error; err != nil {
		a.l.Error("failed to count posts", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	showAll, page, limit := a.parsePagination(c)
	query := queryBase.Order("published_at DESC")
	if !showAll {
		query = query.Limit(limit).Offset(page * limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		a.l.Error("failed to get posts", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, a.postListResponse(posts, postsCount, showAll, limit))
}

func (a *App) UserAdminUpdate(c echo.Context) error {
	// 抓取 user 信息（认证，仅管理员）
	current, err, statusCode := a.authUser(c, authOpts{Roles: rolesAdmin})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req types.UserAdminUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 从数据库中获得指定的用户
	var target models.User
	if err := a.db.WithContext(rctx).First(&target, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found")
		}
		a.l.Error("failed to get user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 超级管理员账号只有超级管理员能修改
	if target.IsSuperAdmin() && !current.IsSuperAdmin() {
		return a.erMsg(c, http.StatusForbidden, "Cannot modify super admin account")
	}

	// 角色变更只有超级管理员能做
	if req.Role != nil && *req.Role != target.Role && !current.IsSuperAdmin() {
		return a.erMsg(c, http.StatusForbidden, "Only super admins can change user roles")
	}

	if handled, err := a.userApplyUpdate(c, &target, req.Email, req.Username, req.FullName, req.Bio); handled {
		return err
	}

	// 管理员附加字段
	updates := map[string]interface{}{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsVerified != nil {
		updates["is_verified"] = *req.IsVerified
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if len(updates) > 0 {
		if err := a.db.WithContext(rctx).Model(&target).Updates(updates).Error; err != nil {
			a.l.Error("failed to update user", zap.Uint("id", id), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
	}

	return c.JSON(http.StatusOK, a.userInfo(&target))
}

func (a *App) UserAdminDelete(c echo.Context) error {
	// 抓取 user 信息（认证，仅超级管理员）
	current, err, statusCode := a.authUser(c, authOpts{Roles: rolesSuperAdmin})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	// 不允许通过管理接口删除自己
	if id == current.ID {
		return a.erMsg(c, http.StatusBadRequest, "Cannot delete your own account")
	}

	rctx := c.Request().Context()

	// 确认目标存在：删除不存在的用户返回 404
	var target models.User
	if err := a.db.WithContext(rctx).First(&target, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "User not found")
		}
		a.l.Error("failed to get user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 硬删除，关联内容由数据库级联清理
	if err := a.db.WithContext(rctx).Unscoped().Delete(&models.User{}, id).Error; err != nil {
		a.l.Error("failed to delete user", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 清理会话
	if err := a.sess.DeleteRefreshToken(rctx, id); err != nil {
		a.l.Error("failed to delete refresh token", zap.Uint("id", id), zap.Error(err))
	}

	return a.ok(c, "User successfully deleted")
}
