// Package seed fills a database with fake users, posts, comments and likes
// for development and demos.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"time"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options controls how much data Run creates.
type Options struct {
	Users              int
	Posts              int
	MaxCommentsPerPost int
	MaxLikesPerPost    int
	// MaxDays spreads post timestamps over this many days back from now.
	MaxDays  int
	Password string
	// RandSeed makes output reproducible when non-zero.
	RandSeed int64
	// HashCost of zero means bcrypt.DefaultCost.
	HashCost int
}

func (o *Options) applyDefaults() {
	if o.Users <= 0 {
		o.Users = 10
	}
	if o.Posts < 0 {
		o.Posts = 0
	}
	if o.MaxCommentsPerPost < 0 {
		o.MaxCommentsPerPost = 0
	}
	if o.MaxLikesPerPost < 0 {
		o.MaxLikesPerPost = 0
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 30
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.RandSeed == 0 {
		o.RandSeed = time.Now().UnixNano()
	}
	if o.HashCost == 0 {
		o.HashCost = bcrypt.DefaultCost
	}
}

// Result counts what Run created.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	// TotalUsers counts every user in the store after seeding, including
	// users that existed before.
	TotalUsers int64
}

// Seeder writes through the repositories so seeded data obeys the same rules
// as data created over the API.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	opts     Options
	faker    *gofakeit.Faker
	rng      *rand.Rand
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts.applyDefaults()
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		opts:     opts,
		faker:    gofakeit.New(opts.RandSeed),
		rng:      rand.New(rand.NewSource(opts.RandSeed)),
	}
}

// ClearAll deletes every forum row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{&models.PostLike{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "Cleared forum data")
	return nil
}

// Run creates users, then posts by random authors, then comments and likes
// from random users.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	usernames, err := s.seedUsers(ctx)
	if err != nil {
		return res, err
	}
	res.Users = len(usernames)

	for i := 0; i < s.opts.Posts; i++ {
		post, err := s.seedPost(ctx, usernames)
		if err != nil {
			return res, err
		}
		res.Posts++

		n, err := s.seedComments(ctx, post, usernames)
		res.Comments += n
		if err != nil {
			return res, err
		}

		n, err = s.seedLikes(ctx, post, usernames)
		res.Likes += n
		if err != nil {
			return res, err
		}
	}

	res.TotalUsers, err = s.users.Count(ctx)
	if err != nil {
		return res, err
	}

	middleware.Logger.InfoContext(ctx, "Seeding complete",
		slog.Int64("total_users", res.TotalUsers),
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
		slog.Int("likes", res.Likes),
	)
	return res, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]string, error) {
	// Every seeded user shares one password, so hash it once.
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), s.opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	usernames := make([]string, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user := &models.User{
			Username:     s.username(i),
			PasswordHash: string(hash),
		}
		if err := s.users.Create(ctx, user); err != nil {
			if models.IsCode(err, models.CodeDuplicateUsername) {
				continue
			}
			return nil, err
		}
		usernames = append(usernames, user.Username)
	}
	if len(usernames) == 0 {
		return nil, fmt.Errorf("no users could be created")
	}
	return usernames, nil
}

var disallowedUsernameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// username derives a valid, unique username from a fake one.
func (s *Seeder) username(i int) string {
	base := disallowedUsernameChars.ReplaceAllString(s.faker.Username(), "")
	if len(base) > 20 {
		base = base[:20]
	}
	name := fmt.Sprintf("%s_%d", base, i)
	if validation.ValidateUsername(name) != nil {
		name = fmt.Sprintf("user_%d", i)
	}
	return name
}

func (s *Seeder) seedPost(ctx context.Context, usernames []string) (*models.Post, error) {
	post := &models.Post{
		Author:    s.pick(usernames),
		Content:   s.faker.Paragraph(1, 3, 12, " "),
		Images:    []string{},
		Videos:    []string{},
		CreatedAt: s.pastTime(),
	}
	if s.rng.Intn(3) == 0 {
		post.Images = append(post.Images, fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID()))
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Seeder) seedComments(ctx context.Context, post *models.Post, usernames []string) (int, error) {
	if s.opts.MaxCommentsPerPost == 0 {
		return 0, nil
	}
	n := s.rng.Intn(s.opts.MaxCommentsPerPost + 1)
	for i := 0; i < n; i++ {
		comment := &models.Comment{
			PostID:    post.ID,
			Author:    s.pick(usernames),
			Content:   s.faker.Sentence(s.rng.Intn(12) + 3),
			CreatedAt: post.CreatedAt.Add(time.Duration(i+1) * time.Minute),
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (s *Seeder) seedLikes(ctx context.Context, post *models.Post, usernames []string) (int, error) {
	limit := s.opts.MaxLikesPerPost
	if limit > len(usernames) {
		limit = len(usernames)
	}
	if limit == 0 {
		return 0, nil
	}

	count := 0
	for _, idx := range s.rng.Perm(len(usernames))[:s.rng.Intn(limit+1)] {
		added, err := s.posts.AddLike(ctx, post.ID, usernames[idx])
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}
	return count, nil
}

func (s *Seeder) pick(values []string) string {
	return values[s.rng.Intn(len(values))]
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.rng.Int63n(int64(s.opts.MaxDays) * int64(24*time.Hour)))
	return time.Now().Add(-back).UTC()
}
