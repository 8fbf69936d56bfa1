package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a forum post with its attached media, likes and comments.
type Post struct {
	ID      string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Author  string   `gorm:"size:30;not null;index" json:"author"`
	Content string   `gorm:"type:text" json:"content"`
	Images  []string `gorm:"serializer:json;type:text" json:"images"`
	Videos  []string `gorm:"serializer:json;type:text" json:"videos"`
	// Likes is loaded from post_likes; not a column.
	Likes    []string  `gorm:"-" json:"likes"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments"`
	// CommentCount is the length of the comment list and the source of the
	// next comment's position.
	CommentCount int       `gorm:"not null;default:0" json:"commentCount"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate assigns a UUID and normalizes nil lists so they serialize as [].
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Videos == nil {
		p.Videos = []string{}
	}
	return nil
}

// Normalize replaces nil slices with empty ones for JSON responses.
func (p *Post) Normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Videos == nil {
		p.Videos = []string{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		p.Comments[i].Normalize()
	}
}
