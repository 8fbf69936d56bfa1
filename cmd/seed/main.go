// Command seed populates the database with fake forum data.
package main

import (
	"context"
	"flag"
	"log"

	"forum/internal/bootstrap"
	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	maxComments := flag.Int("comments", 5, "Maximum comments per post")
	maxLikes := flag.Int("likes", 10, "Maximum likes per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Seeding %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	bootstrap.InitLogging(cfg)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Writes invalidate the cached post list when Redis is configured.
	if rdb := cache.InitRedis(ctx, cfg.RedisURL); rdb != nil {
		defer rdb.Close()
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:              *numUsers,
		Posts:              *numPosts,
		MaxCommentsPerPost: *maxComments,
		MaxLikesPerPost:    *maxLikes,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d posts, %d comments, %d likes", res.Users, res.Posts, res.Comments, res.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
