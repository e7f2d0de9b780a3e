package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"blog-backend/app/server/constants"
	"blog-backend/app/server/handlers"
	"blog-backend/app/server/inits"
	"blog-backend/app/server/jwt"
	"blog-backend/app/server/models"
	"blog-backend/app/server/sessions"
	"blog-backend/app/server/validation"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 集成测试：需要真实的 Postgres 和 Redis ，缺少环境变量时整体跳过
var (
	available  bool
	testServer *httptest.Server
	testDB     *gorm.DB
	testRDB    *redis.Client
	testJWT    *jwt.JWT
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../../.env")

	if os.Getenv("DB_CONN") == "" || os.Getenv("REDIS_CONN") == "" {
		os.Exit(m.Run())
	}
	if os.Getenv("SIGNATURE_SECRET_KEY") == "" {
		os.Setenv("SIGNATURE_SECRET_KEY", "integration-test-secret")
	}

	cfg, err := inits.Config()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}

	testDB, err = inits.DB(cfg)
	if err != nil {
		fmt.Println("db unavailable, skipping integration tests:", err)
		os.Exit(m.Run())
	}

	testRDB, err = inits.Redis(cfg.System.RedisConnectionString)
	if err != nil {
		fmt.Println("redis unavailable, skipping integration tests:", err)
		os.Exit(m.Run())
	}

	testJWT, err = jwt.New(cfg.Security.SignatureSecretKey)
	if err != nil {
		fmt.Println("jwt error:", err)
		os.Exit(1)
	}

	available = true

	// 和 main.go 相同的装配方式
	app := handlers.NewApp(zap.NewNop(), testDB, sessions.NewRedis(testRDB), testJWT, cfg)
	e := echo.New()
	e.Validator = validation.New()
	handlers.RegisterRoutes(e, app)

	testServer = httptest.NewServer(e)
	defer testServer.Close()

	os.Exit(m.Run())
}

func requireBackends(t *testing.T) {
	t.Helper()
	if !available {
		t.Skip("skipping integration test (requires DB_CONN and REDIS_CONN)")
	}
}

// doJSON 发送请求并解析 JSON 响应
func doJSON(t *testing.T, method, path string, body any, bearer string) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, testServer.URL+"/api/v1"+path, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal body %q: %v", raw, err)
		}
	}

	return resp.StatusCode, decoded
}

// registerUser 通过 API 注册一个唯一用户，测试结束后清理
func registerUser(t *testing.T) (email, username, password string, id uint) {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	email = fmt.Sprintf("it%s@example.com", suffix)
	username = "it" + suffix
	password = "Aa1!aaaa"

	status, body := doJSON(t, http.MethodPost, "/auth/register", map[string]any{
		"email":    email,
		"username": username,
		"password": password,
	}, "")
	if status != http.StatusCreated {
		t.Fatalf("register: got status %d, body %v", status, body)
	}
	id = uint(body["id"].(float64))

	t.Cleanup(func() { cleanupUser(id) })
	return email, username, password, id
}

func cleanupUser(id uint) {
	testDB.Unscoped().Where("author_id = ?", id).Delete(&models.Post{})
	testDB.Unscoped().Delete(&models.User{}, id)
	testRDB.Del(context.Background(), fmt.Sprintf(constants.CacheKeyRefreshToken, id))
	testRDB.Del(context.Background(), fmt.Sprintf(constants.CacheKeyPasswordReset, id))
}

// createUserWithRole 直接写库创建指定角色的用户（注册接口不允许选择角色）
func createUserWithRole(t *testing.T, role string) (email, password string, id uint) {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	email = fmt.Sprintf("it%s@example.com", suffix)
	password = "Aa1!aaaa"

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.User{
		Email:      email,
		Username:   "it" + suffix,
		Password:   hash,
		IsActive:   true,
		IsVerified: true,
		Role:       role,
	}
	if err := testDB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Cleanup(func() { cleanupUser(user.ID) })
	return email, password, user.ID
}

func login(t *testing.T, email, password string) (access, refresh string) {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("login: got status %d, body %v", status, body)
	}
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestLoginRefreshRotation(t *testing.T) {
	requireBackends(t)

	email, _, password, _ := registerUser(t)
	access1, refresh1 := login(t, email, password)

	// 刷新得到新的令牌对
	status, body := doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh1,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("refresh: got status %d, body %v", status, body)
	}
	access2 := body["access_token"].(string)
	refresh2 := body["refresh_token"].(string)
	if access2 == access1 || refresh2 == refresh1 {
		t.Fatal("expected rotated token pair to differ from the original")
	}

	// 旧的刷新令牌已经作废
	status, _ = doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh1,
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("stale refresh: got status %d, want 401", status)
	}

	// 登出后新的刷新令牌也作废
	status, _ = doJSON(t, http.MethodPost, "/auth/logout", nil, access2)
	if status != http.StatusOK {
		t.Fatalf("logout: got status %d", status)
	}
	status, _ = doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh2,
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: got status %d, want 401", status)
	}
}

func TestRefreshTypeConfusion(t *testing.T) {
	requireBackends(t)

	email, _, password, _ := registerUser(t)
	access, refresh := login(t, email, password)

	// 访问令牌不能用于刷新
	status, _ := doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": access,
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: got status %d, want 401", status)
	}

	// 刷新令牌不能用于访问
	status, _ = doJSON(t, http.MethodGet, "/auth/me", nil, refresh)
	if status != http.StatusUnauthorized {
		t.Fatalf("access with refresh token: got status %d, want 401", status)
	}
}

func TestSecondLoginInvalidatesFirst(t *testing.T) {
	requireBackends(t)

	email, _, password, _ := registerUser(t)
	_, refresh1 := login(t, email, password)
	_, refresh2 := login(t, email, password)

	// 第一次登录的刷新令牌已被第二次登录覆盖
	status, _ := doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh1,
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("first refresh token: got status %d, want 401", status)
	}

	status, _ = doJSON(t, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh2,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("second refresh token: got status %d, want 200", status)
	}
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	requireBackends(t)

	email, _, _, _ := registerUser(t)

	status, body := doJSON(t, http.MethodPost, "/auth/register", map[string]any{
		"email":    strings.ToUpper(email),
		"username": "other" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		"password": "Aa1!aaaa",
	}, "")
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate email: got status %d, body %v", status, body)
	}
	if body["code"] != "duplicate_email" {
		t.Fatalf("expected duplicate_email code, got %v", body["code"])
	}
}

func TestUnverifiedCannotCreatePost(t *testing.T) {
	requireBackends(t)

	email, _, password, id := registerUser(t)
	access, _ := login(t, email, password)

	post := map[string]any{
		"title":        "Hello World " + uuid.NewString()[:8],
		"content":      "This is long enough content.",
		"is_published": true,
	}

	// 未验证邮箱：拒绝发文
	status, _ := doJSON(t, http.MethodPost, "/posts", post, access)
	if status != http.StatusForbidden {
		t.Fatalf("unverified create post: got status %d, want 403", status)
	}

	// 但可以读取公开内容
	status, _ = doJSON(t, http.MethodGet, "/posts", nil, access)
	if status != http.StatusOK {
		t.Fatalf("unverified list posts: got status %d, want 200", status)
	}

	// 验证邮箱后可以发文
	verifyToken, err := testJWT.Sign(id, jwt.TypeEmailVerification, time.Hour)
	if err != nil {
		t.Fatalf("sign verification token: %v", err)
	}
	status, _ = doJSON(t, http.MethodPost, "/auth/verify-email", map[string]any{
		"token": verifyToken,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("verify email: got status %d, want 200", status)
	}

	status, body := doJSON(t, http.MethodPost, "/posts", post, access)
	if status != http.StatusCreated {
		t.Fatalf("verified create post: got status %d, body %v", status, body)
	}
}

func TestRoleGatedEndpoints(t *testing.T) {
	requireBackends(t)

	// 普通用户访问管理接口
	email, _, password, _ := registerUser(t)
	access, _ := login(t, email, password)

	status, body := doJSON(t, http.MethodGet, "/users", nil, access)
	if status != http.StatusForbidden {
		t.Fatalf("non-admin list users: got status %d, want 403", status)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, models.RoleAdmin) {
		t.Fatalf("expected forbidden message to name required roles, got %q", body["message"])
	}

	// 超级管理员访问管理接口
	saEmail, saPassword, _ := createUserWithRole(t, models.RoleSuperAdmin)
	saAccess, _ := login(t, saEmail, saPassword)

	status, _ = doJSON(t, http.MethodGet, "/users", nil, saAccess)
	if status != http.StatusOK {
		t.Fatalf("super admin list users: got status %d, want 200", status)
	}
}

func TestAdminUserManagementRules(t *testing.T) {
	requireBackends(t)

	adminEmail, adminPassword, _ := createUserWithRole(t, models.RoleAdmin)
	adminAccess, _ := login(t, adminEmail, adminPassword)

	saEmail, saPassword, saID := createUserWithRole(t, models.RoleSuperAdmin)
	saAccess, _ := login(t, saEmail, saPassword)

	_, _, _, targetID := registerUser(t)

	// 普通管理员不能改角色
	status, _ := doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", targetID), map[string]any{
		"role": models.RoleModerator,
	}, adminAccess)
	if status != http.StatusForbidden {
		t.Fatalf("admin role change: got status %d, want 403", status)
	}

	// 普通管理员不能动超级管理员
	status, _ = doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", saID), map[string]any{
		"is_active": false,
	}, adminAccess)
	if status != http.StatusForbidden {
		t.Fatalf("admin modify super admin: got status %d, want 403", status)
	}

	// 超级管理员可以改角色
	status, body := doJSON(t, http.MethodPut, fmt.Sprintf("/users/%d", targetID), map[string]any{
		"role": models.RoleModerator,
	}, saAccess)
	if status != http.StatusOK {
		t.Fatalf("super admin role change: got status %d, body %v", status, body)
	}
	if body["role"] != models.RoleModerator {
		t.Fatalf("expected role %q, got %v", models.RoleModerator, body["role"])
	}

	// 删除不存在的用户返回 404
	status, _ = doJSON(t, http.MethodDelete, "/users/999999999", nil, saAccess)
	if status != http.StatusNotFound {
		t.Fatalf("delete missing user: got status %d, want 404", status)
	}

	// 不能通过管理接口删除自己
	status, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("/users/%d", saID), nil, saAccess)
	if status != http.StatusBadRequest {
		t.Fatalf("self delete: got status %d, want 400", status)
	}

	// 管理员（非超级管理员）不能删除用户
	status, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("/users/%d", targetID), nil, adminAccess)
	if status != http.StatusForbidden {
		t.Fatalf("admin delete user: got status %d, want 403", status)
	}

	// 超级管理员可以删除
	status, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("/users/%d", targetID), nil, saAccess)
	if status != http.StatusOK {
		t.Fatalf("super admin delete user: got status %d, want 200", status)
	}
}

func TestPasswordResetSingleUse(t *testing.T) {
	requireBackends(t)

	email, _, password, id := registerUser(t)

	// 请求重置：无论邮箱是否存在都返回成功
	status, _ := doJSON(t, http.MethodPost, "/auth/password-reset", map[string]any{
		"email": email,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("password reset request: got status %d, want 200", status)
	}
	status, _ = doJSON(t, http.MethodPost, "/auth/password-reset", map[string]any{
		"email": "nobody-" + uuid.NewString()[:8] + "@example.com",
	}, "")
	if status != http.StatusOK {
		t.Fatalf("password reset for unknown email: got status %d, want 200", status)
	}

	// 从缓存中取出签发的重置令牌（正常流程里通过邮件送达）
	resetToken, err := testRDB.Get(context.Background(), fmt.Sprintf(constants.CacheKeyPasswordReset, id)).Result()
	if err != nil {
		t.Fatalf("get reset token from cache: %v", err)
	}

	newPassword := "Bb2!bbbb"
	status, _ = doJSON(t, http.MethodPost, "/auth/password-reset/confirm", map[string]any{
		"token":        resetToken,
		"new_password": newPassword,
	}, "")
	if status != http.StatusOK {
		t.Fatalf("password reset confirm: got status %d, want 200", status)
	}

	// 同一个令牌不能再次使用
	status, _ = doJSON(t, http.MethodPost, "/auth/password-reset/confirm", map[string]any{
		"token":        resetToken,
		"new_password": "Cc3!cccc",
	}, "")
	if status != http.StatusBadRequest {
		t.Fatalf("reused reset token: got status %d, want 400", status)
	}

	// 新密码生效，旧密码失效
	login(t, email, newPassword)
	status, _ = doJSON(t, http.MethodPost, "/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("login with old password: got status %d, want 401", status)
	}
}

func TestAuthMe(t *testing.T) {
	requireBackends(t)

	email, username, password, id := registerUser(t)
	access, _ := login(t, email, password)

	status, body := doJSON(t, http.MethodGet, "/auth/me", nil, access)
	if status != http.StatusOK {
		t.Fatalf("me: got status %d, body %v", status, body)
	}
	if uint(body["id"].(float64)) != id || body["username"] != username {
		t.Fatalf("unexpected me payload: %v", body)
	}

	status, _ = doJSON(t, http.MethodGet, "/auth/me", nil, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("me without token: got status %d, want 401", status)
	}
}
