package server

import (
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /posts/:id/comment
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parsePostID(c)
	if err != nil {
		return nil
	}
	username, _ := middleware.CurrentUsername(c)

	ctx := c.UserContext()

	req, err := s.readContentRequest(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if err := s.postService.EnsureExists(ctx, id); err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if err := s.storeUploads(ctx, &req); err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	comment, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		PostID:  id,
		Author:  username,
		Content: req.Content,
		Images:  req.Images,
		Videos:  req.Videos,
	})
	if err != nil {
		s.discardUploads(ctx, req.saved)
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	s.publishBroadcastEvent(EventCommentCreated, comment)

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := s.parsePostID(c)
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return c.JSON(comments)
}
