package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every generated user signs in with.
const DefaultPassword = "yatube-demo-pass"

// Factory builds demo users, posts and follows and persists them.
type Factory struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	now     func() time.Time
	maxDays int
	hash    string
	userSeq int
}

// NewFactory creates a Factory. A zero seed picks a time based one.
func NewFactory(db *gorm.DB, seed int64, maxDays int) (*Factory, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &Factory{
		db:      db,
		faker:   gofakeit.New(seed),
		now:     time.Now,
		maxDays: maxDays,
		hash:    string(hash),
	}, nil
}

// CreateUser persists a user with a fake name. Usernames get a numeric suffix so reruns do not collide.
func (f *Factory) CreateUser(ctx context.Context) (*models.User, error) {
	f.userSeq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return -1
	}, base)
	if base == "" {
		base = "user"
	}
	username := fmt.Sprintf("%s%d%d", base, f.userSeq, f.faker.Number(100, 999))

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
	}
	if err := repository.NewUserRepository(f.db).Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

// BuildPost returns an unsaved post by author with pub_date spread over the last maxDays.
// Roughly a third of posts land in no group.
func (f *Factory) BuildPost(author *models.User, groups []models.Group) *models.Post {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	post := &models.Post{
		Text:     f.faker.Paragraph(1, f.faker.Number(1, 4), 12, "\n"),
		AuthorID: author.ID,
		PubDate:  f.now().Add(-back),
	}
	if len(groups) > 0 && f.faker.Number(0, 2) > 0 {
		g := groups[f.faker.Number(0, len(groups)-1)]
		post.GroupID = &g.ID
	}
	return post
}

// CreatePosts persists count posts spread across authors in batches.
func (f *Factory) CreatePosts(ctx context.Context, authors []*models.User, groups []models.Group, count int) (int, error) {
	if len(authors) == 0 || count <= 0 {
		return 0, nil
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		posts = append(posts, f.BuildPost(authors[f.faker.Number(0, len(authors)-1)], groups))
	}
	if err := f.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(posts, 100).Error; err != nil {
		return 0, fmt.Errorf("create posts: %w", err)
	}
	return len(posts), nil
}

// CreateFollows adds up to count random follow edges, skipping self-follows and existing pairs.
func (f *Factory) CreateFollows(ctx context.Context, users []*models.User, count int) (int, error) {
	if len(users) < 2 || count <= 0 {
		return 0, nil
	}
	repo := repository.NewFollowRepository(f.db)
	created := 0
	for attempt := 0; created < count && attempt < count*4; attempt++ {
		follower := users[f.faker.Number(0, len(users)-1)]
		author := users[f.faker.Number(0, len(users)-1)]
		if follower.ID == author.ID {
			continue
		}
		isNew, err := repo.Create(ctx, follower.ID, author.ID)
		if err != nil {
			return created, fmt.Errorf("create follow %d->%d: %w", follower.ID, author.ID, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
