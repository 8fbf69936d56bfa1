package service

import (
	"context"
	"strings"
	"testing"

	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost(t *testing.T) {
	t.Parallel()

	t.Run("empty content accepted with empty lists", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		var saved *models.Post
		repo.createFn = func(_ context.Context, p *models.Post) error {
			saved = p
			return nil
		}

		post, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{Author: "alice"})
		require.NoError(t, err)
		assert.Same(t, saved, post)
		assert.Equal(t, "alice", post.Author)
		assert.Equal(t, []string{}, post.Images)
		assert.Equal(t, []string{}, post.Videos)
	})

	t.Run("media references kept in order", func(t *testing.T) {
		t.Parallel()
		post, err := NewPostService(noopPostRepo()).CreatePost(context.Background(), CreatePostInput{
			Author: "alice",
			Images: []string{"uploads/2-b.png", "uploads/1-a.png"},
			Videos: []string{"uploads/3-c.mp4"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"uploads/2-b.png", "uploads/1-a.png"}, post.Images)
		assert.Equal(t, []string{"uploads/3-c.mp4"}, post.Videos)
	})

	t.Run("content too long", func(t *testing.T) {
		t.Parallel()
		_, err := NewPostService(noopPostRepo()).CreatePost(context.Background(), CreatePostInput{
			Author:  "alice",
			Content: strings.Repeat("x", 50001),
		})
		assertValidationError(t, err)
	})
}

func TestPostService_LikePost(t *testing.T) {
	t.Parallel()

	t.Run("returns updated post", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
			return &models.Post{ID: id, Likes: []string{"bob"}}, nil
		}

		post, added, err := NewPostService(repo).LikePost(context.Background(), LikePostInput{PostID: "p1", Username: "bob"})
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []string{"bob"}, post.Likes)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.addLikeFn = func(_ context.Context, id, _ string) (bool, error) {
			return false, models.NewNotFoundError("Post", id)
		}
		fetched := false
		repo.getByIDFn = func(_ context.Context, _ string) (*models.Post, error) {
			fetched = true
			return nil, nil
		}

		_, _, err := NewPostService(repo).LikePost(context.Background(), LikePostInput{PostID: "nope", Username: "bob"})
		assertCode(t, err, models.CodeNotFound)
		assert.False(t, fetched)
	})
}

func TestPostService_ListLikes(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.listLikesFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"bob", "carol"}, nil
	}

	likes, err := NewPostService(repo).ListLikes(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, likes)
}

func TestPostService_EnsureExists(t *testing.T) {
	repo := noopPostRepo()
	repo.existsFn = func(_ context.Context, id string) error {
		if id == "known" {
			return nil
		}
		return models.NewNotFoundError("Post", id)
	}
	svc := NewPostService(repo)

	assert.NoError(t, svc.EnsureExists(context.Background(), "known"))
	err := svc.EnsureExists(context.Background(), "unknown")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
