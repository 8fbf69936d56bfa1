package repository

import (
	"context"
	"testing"
	"time"

	"forum/internal/cache"
	"forum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateAndGetByID(t *testing.T) {
	t.Parallel()
	repo := NewPostRepository(setupSQLiteDB(t))
	ctx := context.Background()

	post := &models.Post{Author: "alice", Content: "hi", Images: []string{"uploads/1-a.png"}}
	require.NoError(t, repo.Create(ctx, post))
	assert.NotEmpty(t, post.ID)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, []string{"uploads/1-a.png"}, got.Images)
	assert.Equal(t, []string{}, got.Videos)
	assert.Equal(t, 0, got.CommentCount)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_ListNewestFirstWithDetails(t *testing.T) {
	t.Parallel()
	db := setupSQLiteDB(t)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	older := &models.Post{Author: "alice", Content: "first", CreatedAt: base}
	newer := &models.Post{Author: "bob", Content: "second", CreatedAt: base.Add(time.Minute)}
	require.NoError(t, posts.Create(ctx, older))
	require.NoError(t, posts.Create(ctx, newer))

	_, err := posts.AddLike(ctx, older.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: older.ID, Author: "bob", Content: "one"}))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: older.ID, Author: "carol", Content: "two"}))

	list, err := posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "second", list[0].Content)
	assert.Equal(t, []string{}, list[0].Likes)
	assert.Equal(t, []models.Comment{}, list[0].Comments)

	assert.Equal(t, "first", list[1].Content)
	assert.Equal(t, []string{"bob"}, list[1].Likes)
	require.Len(t, list[1].Comments, 2)
	assert.Equal(t, "one", list[1].Comments[0].Content)
	assert.Equal(t, "two", list[1].Comments[1].Content)
	assert.Equal(t, 2, list[1].CommentCount)
}

func TestPostRepository_ListEmpty(t *testing.T) {
	t.Parallel()
	repo := NewPostRepository(setupSQLiteDB(t))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPostRepository_AddLikeIdempotent(t *testing.T) {
	t.Parallel()
	repo := NewPostRepository(setupSQLiteDB(t))
	ctx := context.Background()

	post := &models.Post{Author: "alice"}
	require.NoError(t, repo.Create(ctx, post))

	added, err := repo.AddLike(ctx, post.ID, "bob")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddLike(ctx, post.ID, "bob")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.AddLike(ctx, post.ID, "alice")
	require.NoError(t, err)

	likes, err := repo.ListLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "alice"}, likes)
	assert.Len(t, likes, 2)
}

func TestPostRepository_MissingPost(t *testing.T) {
	t.Parallel()
	repo := NewPostRepository(setupSQLiteDB(t))
	ctx := context.Background()

	_, err := repo.AddLike(ctx, "nope", "bob")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = repo.ListLikes(ctx, "nope")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_AddLikeUsesOnConflict(t *testing.T) {
	t.Parallel()
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts" WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "post_likes" .* ON CONFLICT DO NOTHING`).
		WithArgs("p1", "alice", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	added, err := repo.AddLike(context.Background(), "p1", "alice")
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListCacheInvalidatedByLike(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	cache.SetClient(c)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = c.Close()
	})

	repo := NewPostRepository(setupSQLiteDB(t))
	ctx := context.Background()

	post := &models.Post{Author: "alice"}
	require.NoError(t, repo.Create(ctx, post))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists(cache.PostsListGenerationKey(1)))

	_, err = repo.AddLike(ctx, post.ID, "bob")
	require.NoError(t, err)
	gen, err := mr.Get(cache.PostsGenerationKey)
	require.NoError(t, err)
	assert.Equal(t, "2", gen)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list[0].Likes)
}
