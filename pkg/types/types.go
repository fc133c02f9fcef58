package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default blog categories
const (
	CategoryTechnology = "Technology"
	CategoryStartup    = "Startup"
	CategoryLifestyle  = "Lifestyle"
)

// DefaultCategories is the category set used when none is configured
var DefaultCategories = []string{CategoryTechnology, CategoryStartup, CategoryLifestyle}

// BlogPost represents a published blog entry and the image asset it references
type BlogPost struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	Title            string    `json:"title" gorm:"not null"`
	Description      string    `json:"description" gorm:"not null"`
	Category         string    `json:"category" gorm:"not null;index"`
	Author           string    `json:"author" gorm:"not null"`
	AuthorImg        string    `json:"authorImg" gorm:"not null"`
	Image            string    `json:"image" gorm:"not null"`
	ImageAssetID     string    `json:"imageAssetId,omitempty"`
	ImageContentType string    `json:"imageContentType"`
	ImageSize        int64     `json:"imageSize"`
	CreatedAt        time.Time `json:"date" gorm:"index"`
}

// BeforeCreate generates a UUID for the blog post ID
func (b *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// AssetRef returns the reference an asset store needs to delete the image
func (b *BlogPost) AssetRef() string {
	if b.ImageAssetID != "" {
		return b.ImageAssetID
	}
	return b.Image
}

// EmailSubscription represents a newsletter subscription
type EmailSubscription struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Email     string    `json:"email" gorm:"not null"`
	CreatedAt time.Time `json:"date"`
}

// BeforeCreate generates a UUID for the subscription ID
func (e *EmailSubscription) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// BlogFilter narrows a blog listing
type BlogFilter struct {
	Category string `json:"category" form:"category"`
}

// CreateBlogForm is the text part of a blog upload. Required fields are
// checked by the blog service so errors keep a fixed field order.
type CreateBlogForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Author      string `form:"author"`
	AuthorImg   string `form:"authorImg"`
}

// SubscribeForm represents a newsletter subscription request
type SubscribeForm struct {
	Email string `form:"email" json:"email" binding:"required,email"`
}

// APIResponse represents the JSON envelope returned by write endpoints
type APIResponse struct {
	Success bool        `json:"success"`
	Msg     string      `json:"msg"`
	Blog    *BlogPost   `json:"blog,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BlogListResponse is returned by GET /api/blog
type BlogListResponse struct {
	Blogs []*BlogPost `json:"blogs"`
}

// EmailListResponse is returned by GET /api/email
type EmailListResponse struct {
	Emails []*EmailSubscription `json:"emails"`
}
