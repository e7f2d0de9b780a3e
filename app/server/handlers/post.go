package handlers

import (
	"blog-backend/app/server/models"
	"blog-backend/app/server/types"
	"blog-backend/app/server/utils"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *App) postInfo(post *models.Post) *types.PostInfo {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	return &types.PostInfo{
		ID:          post.ID,
		Title:       post.Title,
		Slug:        post.Slug,
		Content:     post.Content,
		Summary:     post.Summary,
		Tags:        tags,
		ViewCount:   post.ViewCount,
		IsPublished: post.IsPublished,
		IsFeatured:  post.IsFeatured,
		PublishedAt: post.PublishedAt,
		AuthorID:    post.AuthorID,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
}

func (a *App) postListResponse(posts []models.Post, count int64, showAll bool, limit int) *types.PostListResponse {
	resPosts := []types.PostInfo{}
	for i := range posts {
		resPosts = append(resPosts, *a.postInfo(&posts[i]))
	}
	return &types.PostListResponse{
		List:    resPosts,
		Total:   count,
		Limit:   limit,
		PageMax: a.calcMaxPage(count, showAll, limit),
	}
}

func parseLimitQuery(c echo.Context, fallback, max int) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}

func (a *App) PostCreate(c echo.Context) error {
	// 抓取 user 信息（认证，要求邮箱已验证）
	user, err, statusCode := a.authUser(c, authOpts{RequireVerified: true})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req types.PostCreateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 确定 slug ：显式给定时冲突报错，自动生成时冲突追加随机后缀
	explicitSlug := req.Slug != ""
	slug := req.Slug
	if !explicitSlug {
		slug = utils.Slugify(req.Title)
	}

	var counter int64
	if err := a.db.WithContext(rctx).Model(&models.Post{}).Where("slug = ?", slug).Count(&counter).Error; err != nil {
		a.l.Error("failed to check slug", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if counter > 0 {
		if explicitSlug {
			return a.erCode(c, http.StatusConflict, "Slug already exists", "duplicate_slug")
		}
		slug = slug + "-" + uuid.NewString()[:8]
	}

	// 创建文章
	post := models.Post{
		Title:       req.Title,
		Slug:        slug,
		Content:     req.Content,
		Summary:     req.Summary,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
		IsFeatured:  req.IsFeatured,
		AuthorID:    user.ID,
	}
	if post.IsPublished {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := a.db.WithContext(rctx).Create(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return a.erCode(c, http.StatusConflict, "Slug already exists", "duplicate_slug")
		}
		a.l.Error("failed to create post", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusCreated, a.postInfo(&post))
}

func (a *App) PostList(c echo.Context) error {
	rctx := c.Request().Context()

	var (
		posts      []models.Post
		postsCount int64
	)

	// 公开列表只包含已发布的内容
	queryBase := a.db.WithContext(rctx).Model(&models.Post{}).Where("is_published = ?", true)
	if isFeatured := c.QueryParam("is_featured"); isFeatured != "" {
		queryBase = queryBase.Where("is_featured = ?", isFeatured == "true")
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		queryBase = queryBase.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}
	if tag := c.QueryParam("tag"); tag != "" {
		// tags 以 JSON 数组储存，按带引号的元素匹配
		queryBase = queryBase.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	if err := queryBase.Count(&postsCount).Error; err != nil {
		a.l.Error("failed to count posts", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	showAll, page, limit := a.parsePagination(c)
	query := queryBase.Order("published_at DESC")
	if !showAll {
		query = query.Limit(limit).Offset(page * limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		a.l.Error("failed to get post list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, a.postListResponse(posts, postsCount, showAll, limit))
}

func (a *App) PostListMine(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	rctx := c.Request().Context()

	var (
		posts      []models.Post
		postsCount int64
	)

	// 本人视角：包含草稿
	queryBase := a.db.WithContext(rctx).Model(&models.Post{}).Where("author_id = ?", user.ID)
	if isPublished := c.QueryParam("is_published"); isPublished != "" {
		queryBase = queryBase.Where("is_published = ?", isPublished == "true")
	}

	if err := queryBase.Count(&postsCount).Error; err != nil {
		a.l.Error("failed to count posts", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	showAll, page, limit := a.parsePagination(c)
	query := queryBase.Order("created_at DESC")
	if !showAll {
		query = query.Limit(limit).Offset(page * limit)
	}
	if err := query.Find(&posts).Error; err != nil {
		a.l.Error("failed to get post list", zap.Uint("id", user.ID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, a.postListResponse(posts, postsCount, showAll, limit))
}

func (a *App) PostFeatured(c echo.Context) error {
	rctx := c.Request().Context()

	limit := parseLimitQuery(c, 10, 50)

	var posts []models.Post
	if err := a.db.WithContext(rctx).
		Where("is_published = ? AND is_featured = ?", true, true).
		Order("published_at DESC").Limit(limit).
		Find(&posts).Error; err != nil {
		a.l.Error("failed to get featured posts", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	resPosts := []types.PostInfo{}
	for i := range posts {
		resPosts = append(resPosts, *a.postInfo(&posts[i]))
	}
	return c.JSON(http.StatusOK, resPosts)
}

func (a *App) PostPopular(c echo.Context) error {
	rctx := c.Request().Context()

	limit := parseLimitQuery(c, 10, 50)

	var posts []models.Post
	if err := a.db.WithContext(rctx).
		Where("is_published = ?", true).
		Order("view_count DESC").Limit(limit).
		Find(&posts).Error; err != nil {
		a.l.Error("failed to get popular posts", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	resPosts := []types.PostInfo{}
	for i := range posts {
		resPosts = append(resPosts, *a.postInfo(&posts[i]))
	}
	return c.JSON(http.StatusOK, resPosts)
}

func (a *App) PostStats(c echo.Context) error {
	rctx := c.Request().Context()

	// 已认证用户看自己的统计，匿名看全局
	user, err := a.authUserOptional(c)
	if err != nil {
		a.l.Error("failed to load user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	queryBase := a.db.WithContext(rctx).Model(&models.Post{})
	if user != nil {
		queryBase = queryBase.Where("author_id = ?", user.ID)
	}

	var stats struct {
		TotalPosts     int64
		PublishedPosts int64
		TotalViews     int64
	}
	if err := queryBase.
		Select("COUNT(*) AS total_posts, COUNT(*) FILTER (WHERE is_published) AS published_posts, COALESCE(SUM(view_count), 0) AS total_views").
		Scan(&stats).Error; err != nil {
		a.l.Error("failed to get post stats", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, &types.PostStats{
		TotalPosts:     stats.TotalPosts,
		PublishedPosts: stats.PublishedPosts,
		TotalViews:     stats.TotalViews,
	})
}

// postVisible 未发布的内容只有作者和管理员可见
func (a *App) postVisible(c echo.Context, post *models.Post) (bool, error) {
	if post.IsPublished {
		return true, nil
	}
	user, err := a.authUserOptional(c)
	if err != nil {
		return false, err
	}
	return user != nil && (post.AuthorID == user.ID || user.IsAdmin()), nil
}

func (a *App) incrementViewCount(c echo.Context, post *models.Post) {
	if err := a.db.WithContext(c.Request().Context()).Model(post).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		a.l.Error("failed to increment view count", zap.Uint("id", post.ID), zap.Error(err))
	}
}

func (a *App) PostGet(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	var post models.Post
	if err := a.db.WithContext(rctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Post not found")
		}
		a.l.Error("failed to get post", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	if visible, err := a.postVisible(c, &post); err != nil {
		a.l.Error("failed to load user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if !visible {
		// 不暴露未发布内容的存在
		return a.erMsg(c, http.StatusNotFound, "Post not found")
	}

	if post.IsPublished {
		a.incrementViewCount(c, &post)
	}

	return c.JSON(http.StatusOK, a.postInfo(&post))
}

func (a *App) PostGetBySlug(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	var post models.Post
	if err := a.db.WithContext(rctx).First(&post, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Post not found")
		}
		a.l.Error("failed to get post", zap.String("slug", slug), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	if visible, err := a.postVisible(c, &post); err != nil {
		a.l.Error("failed to load user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if !visible {
		return a.erMsg(c, http.StatusNotFound, "Post not found")
	}

	if post.IsPublished {
		a.incrementViewCount(c, &post)
	}

	return c.JSON(http.StatusOK, a.postInfo(&post))
}

func (a *App) PostUpdate(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	// 绑定请求体
	var req types.PostUpdateRequest
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind request", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, err.Error())
	}

	// 从数据库中获得指定的文章
	var post models.Post
	if err := a.db.WithContext(rctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Post not found")
		}
		a.l.Error("failed to get post", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 权限：作者本人或管理员
	if !post.EditableBy(user) {
		return a.erMsg(c, http.StatusForbidden, "You don't have permission to edit this post")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Summary != nil {
		updates["summary"] = *req.Summary
	}
	if req.Tags != nil {
		post.Tags = *req.Tags
		updates["tags"] = post.Tags
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.IsPublished != nil {
		updates["is_published"] = *req.IsPublished
		if *req.IsPublished && post.PublishedAt == nil {
			// 首次发布时记录时间
			now := time.Now()
			updates["published_at"] = &now
		}
	}

	if len(updates) > 0 {
		if err := a.db.WithContext(rctx).Model(&post).Updates(updates).Error; err != nil {
			a.l.Error("failed to update post", zap.Uint("id", id), zap.Error(err))
			return a.er(c, http.StatusInternalServerError)
		}
	}

	return c.JSON(http.StatusOK, a.postInfo(&post))
}

func (a *App) PostDelete(c echo.Context) error {
	// 抓取 user 信息（认证）
	user, err, statusCode := a.authUser(c, authOpts{})
	if err != nil {
		return a.erAuth(c, statusCode, err)
	}

	id, err := parseIDParam(c)
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	rctx := c.Request().Context()

	// 从数据库中获得指定的文章
	var post models.Post
	if err := a.db.WithContext(rctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return a.erMsg(c, http.StatusNotFound, "Post not found")
		}
		a.l.Error("failed to get post", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 权限：作者本人或管理员
	if !post.EditableBy(user) {
		return a.erMsg(c, http.StatusForbidden, "You don't have permission to delete this post")
	}

	// 硬删除，slug 可以被重新使用
	if err := a.db.WithContext(rctx).Unscoped().Delete(&models.Post{}, id).Error; err != nil {
		a.l.Error("failed to delete post", zap.Uint("id", id), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return a.ok(c, "Post successfully deleted")
}
