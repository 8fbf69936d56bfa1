package models

import "time"

// PostLike records that Username liked PostID.
// The composite primary key makes the like set duplicate-free.
type PostLike struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey" json:"postId"`
	Username  string    `gorm:"size:30;primaryKey" json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
