package server

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parsePostID reads the :id route parameter. Values that cannot name a post
// get a 404 without touching the store.
func (s *Server) parsePostID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Post", id))
		return "", errResponseWritten
	}
	return id, nil
}

// contentRequest is the body shared by posts and comments.
type contentRequest struct {
	Content string   `json:"content" form:"content"`
	Images  []string `json:"images" form:"images"`
	Videos  []string `json:"videos" form:"videos"`

	imageFiles []*multipart.FileHeader
	videoFiles []*multipart.FileHeader
	// saved lists references stored for this request, removed again if the
	// write fails.
	saved []string
}

// readContentRequest accepts multipart forms with "images"/"videos" file parts,
// or a JSON body whose media fields hold existing references. Nothing is
// stored yet; storeUploads does that once every check has passed.
func (s *Server) readContentRequest(c *fiber.Ctx) (contentRequest, error) {
	var req contentRequest

	switch {
	case strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return req, models.NewValidationError("Invalid multipart form")
		}
		req.Content = firstValue(form.Value, "content")
		req.imageFiles = formFiles(form, "images")
		req.videoFiles = formFiles(form, "videos")
	case len(c.Body()) == 0:
	default:
		if err := c.BodyParser(&req); err != nil {
			return req, models.NewValidationError("Invalid request body")
		}
	}

	if err := validation.ValidateContent(req.Content); err != nil {
		return req, models.NewValidationError(err.Error())
	}
	return req, nil
}

// storeUploads saves the request's files in order and appends their
// references to Images and Videos. On failure nothing stays stored.
func (s *Server) storeUploads(ctx context.Context, req *contentRequest) error {
	images, err := s.saveUploads(ctx, req, req.imageFiles)
	if err != nil {
		s.discardUploads(ctx, req.saved)
		return err
	}
	videos, err := s.saveUploads(ctx, req, req.videoFiles)
	if err != nil {
		s.discardUploads(ctx, req.saved)
		return err
	}
	req.Images = append(req.Images, images...)
	req.Videos = append(req.Videos, videos...)
	return nil
}

func (s *Server) saveUploads(ctx context.Context, req *contentRequest, files []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := s.saveUpload(ctx, fh)
		if err != nil {
			return nil, err
		}
		req.saved = append(req.saved, ref)
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Server) saveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	ref, err := s.storage.Save(ctx, fh.Filename, src, fh.Size)
	if err != nil {
		return "", models.NewStoreUnavailableError(err)
	}
	return ref, nil
}

// discardUploads removes media stored for a request that did not complete.
func (s *Server) discardUploads(ctx context.Context, refs []string) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.storage.Delete(ctx, ref); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to discard upload",
				slog.String("ref", ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

// formFiles accepts both "images" and "images[]" style field names.
func formFiles(form *multipart.Form, field string) []*multipart.FileHeader {
	files := form.File[field]
	return append(files, form.File[field+"[]"]...)
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
