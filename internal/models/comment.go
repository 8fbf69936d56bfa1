package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply attached to a post. Position is the comment's index in
// the post's comment list, starting at 1.
type Comment struct {
	ID       string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID   string   `gorm:"type:varchar(36);not null;uniqueIndex:idx_comments_post_position" json:"postId"`
	Position int      `gorm:"not null;uniqueIndex:idx_comments_post_position" json:"position"`
	Author   string   `gorm:"size:30;not null" json:"author"`
	Content  string   `gorm:"type:text" json:"content"`
	Images   []string `gorm:"serializer:json;type:text" json:"images"`
	Videos   []string `gorm:"serializer:json;type:text" json:"videos"`
	// Likes is stored but no operation mutates it yet.
	Likes     []string  `gorm:"serializer:json;type:text" json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID and normalizes nil lists.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Normalize()
	return nil
}

// Normalize replaces nil slices with empty ones.
func (c *Comment) Normalize() {
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Videos == nil {
		c.Videos = []string{}
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
}
