package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" keeps the hash out of every response
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:191;not null" json:"name"`
	Slug        string    `gorm:"index;size:191" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// OwnerID is empty: categories have no owner and any authenticated user may manage them.
func (c *Category) OwnerID() string { return "" }

type Post struct {
	ID            string                      `gorm:"primaryKey;size:36" json:"id"`
	Title         string                      `gorm:"not null" json:"title"`
	Slug          string                      `gorm:"uniqueIndex;size:191;not null" json:"slug"`
	Content       string                      `gorm:"type:text;not null" json:"content"`
	Excerpt       string                      `gorm:"type:text" json:"excerpt,omitempty"`
	FeaturedImage string                      `json:"featuredImage,omitempty"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	CategoryID    string                      `gorm:"not null;index;size:36" json:"-"`
	Category      *Category                   `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	AuthorID      string                      `gorm:"not null;index;size:36" json:"-"`
	Author        *User                       `json:"author,omitempty"`
	IsPublished   bool                        `gorm:"default:false;index" json:"isPublished"`
	Comments      []Comment                   `gorm:"constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt     time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (p *Post) OwnerID() string { return p.AuthorID }

type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"not null;index;size:36" json:"post"`
	UserID    *string   `gorm:"index;size:36" json:"-"` // nil for anonymous comments
	User      *User     `json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
