package repository

import (
	"context"

	"forum/internal/cache"
	"forum/internal/models"
	"forum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines persistence operations for posts and their likes.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	Exists(ctx context.Context, id string) error
	// AddLike records username's like. It reports whether a new like was
	// stored; liking twice is not an error.
	AddLike(ctx context.Context, postID, username string) (bool, error)
	ListLikes(ctx context.Context, postID string) ([]string, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	cache.InvalidatePosts(ctx)
	post.Normalize()
	return nil
}

// GetByID returns the post with its likes and comments resolved.
func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get_by_id", "posts")()

	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Comments", orderByPosition).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, storeError(err, "Post", id)
	}

	posts := []*models.Post{&post}
	if err := r.attachLikes(ctx, posts); err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

// List returns every post newest first, served from the cache when possible.
func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.PostsAside(ctx, &posts, func() error {
		defer observability.TrackQuery("list", "posts")()

		if err := r.db.WithContext(ctx).
			Preload("Comments", orderByPosition).
			Order("created_at DESC").
			Order("id").
			Find(&posts).Error; err != nil {
			return models.NewStoreUnavailableError(err)
		}
		if err := r.attachLikes(ctx, posts); err != nil {
			return err
		}
		for _, p := range posts {
			p.Normalize()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

// Exists returns a NOT_FOUND AppError when no post has id.
func (r *postRepository) Exists(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	if n == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, username string) (bool, error) {
	if err := r.Exists(ctx, postID); err != nil {
		return false, err
	}

	defer observability.TrackQuery("add_like", "post_likes")()

	like := &models.PostLike{PostID: postID, Username: username}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like)
	if result.Error != nil {
		return false, models.NewStoreUnavailableError(result.Error)
	}

	added := result.RowsAffected > 0
	if added {
		cache.InvalidatePosts(ctx)
	}
	return added, nil
}

func (r *postRepository) ListLikes(ctx context.Context, postID string) ([]string, error) {
	if err := r.Exists(ctx, postID); err != nil {
		return nil, err
	}

	defer observability.TrackQuery("list_likes", "post_likes")()

	usernames := []string{}
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("username ASC").
		Pluck("username", &usernames).Error; err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	return usernames, nil
}

// attachLikes fills Likes for every post with one query.
func (r *postRepository) attachLikes(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, 0, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.Likes = []string{}
	}

	var likes []models.PostLike
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Order("username ASC").
		Find(&likes).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}

	for _, l := range likes {
		if p, ok := byID[l.PostID]; ok {
			p.Likes = append(p.Likes, l.Username)
		}
	}
	return nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
