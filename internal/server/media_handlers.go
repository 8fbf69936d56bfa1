package server

import (
	"errors"
	"net/url"
	"path/filepath"

	"forum/internal/models"
	"forum/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ServeUpload handles GET /uploads/*
func (s *Server) ServeUpload(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		name = c.Params("*")
	}

	rc, err := s.storage.Open(c.UserContext(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Upload", name))
	}
	if err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewStoreUnavailableError(err))
	}

	// Object names carry a timestamp and are never rewritten.
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	if ext := filepath.Ext(name); ext != "" {
		c.Type(ext)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	return c.SendStream(rc)
}
