package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post listing. Zero fields are ignored; set fields combine with AND.
type PostFilter struct {
	GroupID  uint
	AuthorID uint
	// FollowerID keeps posts whose author is followed by this user.
	FollowerID uint
}

func (f PostFilter) apply(db *gorm.DB) *gorm.DB {
	if f.GroupID != 0 {
		db = db.Where("posts.group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		db = db.Where("posts.author_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&models.Follow{}).
				Select("author_id").Where("user_id = ?", f.FollowerID))
	}
	return db
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Count(ctx context.Context, filter PostFilter) (int64, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		return nil, lookupErr(err, "Post", id)
	}
	return &post, nil
}

// Update writes the editable columns only. Author and publication date never change.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(post).
		Select("text", "group_id", "image").
		Omit(clause.Associations).
		Updates(post).Error
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	var n int64
	err := filter.apply(r.db.WithContext(ctx).Model(&models.Post{})).Count(&n).Error
	return n, err
}

// List returns a page of posts, newest first with id breaking ties.
func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := filter.apply(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Group").
		Order("posts.pub_date DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}
