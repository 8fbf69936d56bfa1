package server

import (
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	username, _ := middleware.CurrentUsername(c)

	ctx := c.UserContext()

	req, err := s.readContentRequest(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if err := s.storeUploads(ctx, &req); err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		Author:  username,
		Content: req.Content,
		Images:  req.Images,
		Videos:  req.Videos,
	})
	if err != nil {
		s.discardUploads(ctx, req.saved)
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	s.publishBroadcastEvent(EventPostCreated, post)

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(posts)
}

// LikePost handles POST /posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parsePostID(c)
	if err != nil {
		return nil
	}
	username, _ := middleware.CurrentUsername(c)

	post, added, err := s.postService.LikePost(c.UserContext(), service.LikePostInput{
		PostID:   id,
		Username: username,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	if added {
		s.publishBroadcastEvent(EventPostLiked, fiber.Map{
			"postId":   post.ID,
			"username": username,
			"likes":    len(post.Likes),
		})
	}

	return c.JSON(post)
}

// GetLikes handles GET /posts/:id/likes
func (s *Server) GetLikes(c *fiber.Ctx) error {
	id, err := s.parsePostID(c)
	if err != nil {
		return nil
	}

	likes, err := s.postService.ListLikes(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	if likes == nil {
		likes = []string{}
	}
	return c.JSON(likes)
}
