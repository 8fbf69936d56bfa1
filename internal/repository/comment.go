package repository

import (
	"context"

	"forum/internal/cache"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	// Create appends comment to its post. The post's comment_count and the
	// comment row change together or not at all.
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock taken here serializes concurrent commenters on the post.
		result := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if result.Error != nil {
			return models.NewStoreUnavailableError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", comment.PostID)
		}

		var position int
		if err := tx.Model(&models.Post{}).
			Select("comment_count").
			Where("id = ?", comment.PostID).
			Row().Scan(&position); err != nil {
			return models.NewStoreUnavailableError(err)
		}
		comment.Position = position

		if err := tx.Create(comment).Error; err != nil {
			return models.NewStoreUnavailableError(err)
		}
		return nil
	})
	if err != nil {
		return storeError(err, "Post", comment.PostID)
	}

	cache.InvalidatePosts(ctx)
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	defer observability.TrackQuery("list_by_post", "comments")()

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	if n == 0 {
		return nil, models.NewNotFoundError("Post", postID)
	}

	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("position ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	for i := range comments {
		comments[i].Normalize()
	}
	return comments, nil
}
