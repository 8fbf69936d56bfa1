package service

import (
	"context"

	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
	"forum/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	Author  string
	Content string
	Images  []string
	Videos  []string
}

type LikePostInput struct {
	PostID   string
	Username string
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost stores a post with no likes and no comments. Empty content is allowed.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (_ *models.Post, err error) {
	ctx, end := observability.StartSpan(ctx, "post.create", attribute.String("post.author", in.Author))
	defer func() { end(err) }()

	if err := validation.ValidateContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		Author:  in.Author,
		Content: in.Content,
		Images:  nonNil(in.Images),
		Videos:  nonNil(in.Videos),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	observability.RecordDomainEvent(observability.EventPostCreated)
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.List(ctx)
}

// LikePost adds the user to the post's like set and returns the updated post.
// The boolean reports whether the like is new.
func (s *PostService) LikePost(ctx context.Context, in LikePostInput) (_ *models.Post, _ bool, err error) {
	ctx, end := observability.StartSpan(ctx, "post.like", attribute.String("post.id", in.PostID))
	defer func() { end(err) }()

	added, err := s.postRepo.AddLike(ctx, in.PostID, in.Username)
	if err != nil {
		return nil, false, err
	}
	if added {
		observability.RecordDomainEvent(observability.EventPostLiked)
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, false, err
	}
	return post, added, nil
}

// EnsureExists returns NOT_FOUND when no post has id.
func (s *PostService) EnsureExists(ctx context.Context, id string) error {
	return s.postRepo.Exists(ctx, id)
}

func (s *PostService) ListLikes(ctx context.Context, postID string) ([]string, error) {
	return s.postRepo.ListLikes(ctx, postID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
