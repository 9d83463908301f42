package service

import (
	"context"
	"errors"
	"testing"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// stubImages accepts anything starting with "img" and names it after a counter.
type stubImages struct {
	saved int
}

func (s *stubImages) Validate(data []byte) (string, error) {
	if len(data) < 3 || string(data[:3]) != "img" {
		return "", models.NewFieldValidationError(map[string]string{"image": "Upload a valid image."})
	}
	return "png", nil
}

func (s *stubImages) Save(_ context.Context, data []byte) (string, error) {
	if _, err := s.Validate(data); err != nil {
		return "", err
	}
	s.saved++
	return "posts/" + string(rune('a'+s.saved-1)) + ".png", nil
}

type services struct {
	db       *gorm.DB
	feed     *FeedService
	follows  *FollowService
	posts    *PostService
	comments *CommentService
	users    *UserService
	images   *stubImages
}

func newServices(t *testing.T, pageSize int) *services {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	images := &stubImages{}
	return &services{
		db:       db,
		feed:     NewFeedService(postRepo, pageSize),
		follows:  NewFollowService(repository.NewFollowRepository(db), userRepo),
		posts:    NewPostService(postRepo, repository.NewGroupRepository(db), repository.NewCommentRepository(db), images),
		comments: NewCommentService(repository.NewCommentRepository(db), postRepo),
		users:    NewUserService(userRepo).WithCost(bcrypt.MinCost),
		images:   images,
	}
}

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
