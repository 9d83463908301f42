package seed

import (
	"context"
	"fmt"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"gorm.io/gorm"
)

// Options controls how much demo content Run produces.
type Options struct {
	NumUsers   int
	NumPosts   int
	NumFollows int
	MaxDays    int
	Seed       int64
	// Clean removes users, posts, comments and follows before seeding. Groups are kept.
	Clean bool
}

// Result reports what Run created.
type Result struct {
	Groups  int
	Users   int
	Posts   int
	Follows int
}

// Run seeds built-in groups, then users, posts and follows.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	log := middleware.Logger
	log.InfoContext(ctx, "seeding database",
		"users", opts.NumUsers, "posts", opts.NumPosts, "follows", opts.NumFollows, "clean", opts.Clean)

	if opts.Clean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	if err := Groups(ctx, db); err != nil {
		return nil, err
	}
	groups, err := repository.NewGroupRepository(db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	res := &Result{Groups: len(groups)}

	factory, err := NewFactory(db, opts.Seed, opts.MaxDays)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := factory.CreateUser(ctx)
		if err != nil {
			return res, err
		}
		users = append(users, u)
	}
	res.Users = len(users)

	if res.Posts, err = factory.CreatePosts(ctx, users, groups, opts.NumPosts); err != nil {
		return res, err
	}
	if res.Follows, err = factory.CreateFollows(ctx, users, opts.NumFollows); err != nil {
		return res, err
	}

	log.InfoContext(ctx, "seeding completed",
		"groups", res.Groups, "users", res.Users, "posts", res.Posts, "follows", res.Follows)
	return res, nil
}

func clearData(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.WarnContext(ctx, "clearing existing content")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
