package handlers

import "github.com/labstack/echo/v4"

// RegisterRoutes 绑定全部路由
func RegisterRoutes(e *echo.Echo, a *App) {
	api := e.Group("/api/v1")

	api.GET("/healthcheck", a.CommonHealthCheck)

	// 认证
	auth := api.Group("/auth")
	auth.POST("/register", a.AuthRegister)
	auth.POST("/login", a.AuthLogin)
	auth.POST("/refresh", a.AuthRefresh)
	auth.POST("/logout", a.AuthLogout)
	auth.GET("/me", a.AuthMe)
	auth.POST("/password-reset", a.AuthPasswordReset)
	auth.POST("/password-reset/confirm", a.AuthPasswordResetConfirm)
	auth.POST("/verify-email", a.AuthVerifyEmail)

	// 用户
	users := api.Group("/users")
	users.GET("", a.UserList)
	users.GET("/me", a.UserGetSelf)
	users.PUT("/me", a.UserUpdateSelf)
	users.PUT("/me/password", a.UserPasswordUpdateSelf)
	users.DELETE("/me", a.UserDeleteSelf)
	users.GET("/:id", a.UserInfoGet)
	users.GET("/:id/posts", a.UserPostsGet)
	users.PUT("/:id", a.UserAdminUpdate)
	users.DELETE("/:id", a.UserAdminDelete)

	// 文章
	posts := api.Group("/posts")
	posts.POST("", a.PostCreate)
	posts.GET("", a.PostList)
	posts.GET("/my", a.PostListMine)
	posts.GET("/featured", a.PostFeatured)
	posts.GET("/popular", a.PostPopular)
	posts.GET("/stats", a.PostStats)
	posts.GET("/slug/:slug", a.PostGetBySlug)
	posts.GET("/:id", a.PostGet)
	posts.PUT("/:id", a.PostUpdate)
	posts.DELETE("/:id", a.PostDelete)
}
