package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色，权限从低到高排序
const (
	RoleUser       = "user"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var roleLevels = map[string]int{
	RoleUser:       0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

type User struct {
	gorm.Model

	// 基础信息，邮箱和用户名全局唯一（统一以小写形式储存）
	Email    string `gorm:"column:email;uniqueIndex"`
	Username string `gorm:"column:username;uniqueIndex"`
	FullName string `gorm:"column:full_name"`
	Bio      string `gorm:"column:bio;type:text"`

	// 登录与授权认证相关
	Password string `gorm:"column:password"` // 密码，使用 argon2id 储存

	// 状态
	IsActive   bool   `gorm:"column:is_active;default:true"`
	IsVerified bool   `gorm:"column:is_verified"`
	Role       string `gorm:"column:role;default:user"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`

	// 关联内容，删除用户时级联删除
	Posts []Post `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// RoleLevel 返回角色权限等级，未知角色视为最低权限
func (u *User) RoleLevel() int {
	return roleLevels[u.Role]
}

func (u *User) IsAdmin() bool {
	return u.RoleLevel() >= roleLevels[RoleAdmin]
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}
