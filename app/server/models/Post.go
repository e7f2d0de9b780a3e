package models

import (
	"time"

	"gorm.io/gorm"
)

type Post struct {
	gorm.Model

	// 内容
	Title   string `gorm:"column:title;index"`
	Slug    string `gorm:"column:slug;uniqueIndex"` // URL 标识，全局唯一
	Content string `gorm:"column:content;type:text"`
	Summary string `gorm:"column:summary"`

	// 元数据
	Tags      []string `gorm:"column:tags;serializer:json"`
	ViewCount int64    `gorm:"column:view_count"`

	// 状态
	IsPublished bool       `gorm:"column:is_published;index"`
	IsFeatured  bool       `gorm:"column:is_featured"`
	PublishedAt *time.Time `gorm:"column:published_at"`

	// 作者
	AuthorID uint `gorm:"column:author_id;index"`
}

// EditableBy 作者本人或管理员可以编辑
func (p *Post) EditableBy(u *User) bool {
	return p.AuthorID == u.ID || u.IsAdmin()
}
