package service

import (
	"context"

	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
	"forum/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	commentRepo repository.CommentRepository
}

type CreateCommentInput struct {
	PostID  string
	Author  string
	Content string
	Images  []string
	Videos  []string
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// CreateComment appends a comment to the post's list.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (_ *models.Comment, err error) {
	ctx, end := observability.StartSpan(ctx, "comment.create", attribute.String("post.id", in.PostID))
	defer func() { end(err) }()

	if err := validation.ValidateContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{
		PostID:  in.PostID,
		Author:  in.Author,
		Content: in.Content,
		Images:  nonNil(in.Images),
		Videos:  nonNil(in.Videos),
		Likes:   []string{},
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.RecordDomainEvent(observability.EventCommentCreated)
	return comment, nil
}

// ListComments returns the post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.commentRepo.ListByPost(ctx, postID)
}
