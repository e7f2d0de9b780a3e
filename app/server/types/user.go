package types

import "time"

// UserInfo 对外返回的用户信息，不包含密码 hash
type UserInfo struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type UserWithStats struct {
	UserInfo
	PostCount  int64 `json:"post_count"`
	TotalViews int64 `json:"total_views"`
}

type UserUpdateRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

type UserPasswordUpdateRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
}

// UserAdminUpdateRequest 管理员可以额外修改状态与角色，角色变更需要超级管理员
type UserAdminUpdateRequest struct {
	UserUpdateRequest
	IsActive   *bool   `json:"is_active"`
	IsVerified *bool   `json:"is_verified"`
	Role       *string `json:"role" validate:"omitempty,oneof=user moderator admin super_admin"`
}

type UserListResponse struct {
	List    []UserInfo `json:"list"`
	Total   int64      `json:"total"`
	Limit   int        `json:"limit"`
	PageMax int64      `json:"page_max"`
}
