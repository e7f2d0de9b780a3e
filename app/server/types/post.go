package types

import "time"

type PostCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Slug        string   `json:"slug" validate:"omitempty,min=1,max=250"`
	Content     string   `json:"content" validate:"required,min=10"`
	Summary     string   `json:"summary" validate:"max=500"`
	Tags        []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
	IsPublished bool     `json:"is_published"`
	IsFeatured  bool     `json:"is_featured"`
}

type PostUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Content     *string   `json:"content" validate:"omitempty,min=10"`
	Summary     *string   `json:"summary" validate:"omitempty,max=500"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=50"`
	IsPublished *bool     `json:"is_published"`
	IsFeatured  *bool     `json:"is_featured"`
}

type PostInfo struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Summary     string     `json:"summary,omitempty"`
	Tags        []string   `json:"tags"`
	ViewCount   int64      `json:"view_count"`
	IsPublished bool       `json:"is_published"`
	IsFeatured  bool       `json:"is_featured"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    uint       `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PostListResponse struct {
	List    []PostInfo `json:"list"`
	Total   int64      `json:"total"`
	Limit   int        `json:"limit"`
	PageMax int64      `json:"page_max"`
}

type PostStats struct {
	TotalPosts     int64 `json:"total_posts"`
	PublishedPosts int64 `json:"published_posts"`
	TotalViews     int64 `json:"total_views"`
}
