// Command seed populates the database with demo users, posts and follows.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 150, "Number of posts to create")
	numFollows := flag.Int("follows", 60, "Number of follow relations to create")
	maxDays := flag.Int("days", 90, "Spread post dates over this many past days")
	rngSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated content")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, %d follows, clean=%v", *numUsers, *numPosts, *numFollows, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	res, err := seed.Run(ctx, db, seed.Options{
		NumUsers:   *numUsers,
		NumPosts:   *numPosts,
		NumFollows: *numFollows,
		MaxDays:    *maxDays,
		Seed:       *rngSeed,
		Clean:      *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d groups, %d users, %d posts, %d follows", res.Groups, res.Users, res.Posts, res.Follows)
	log.Printf("All generated users have the password: %s", seed.DefaultPassword)
}
