package service

import (
	"context"
	"errors"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// ImageStore validates and persists uploaded post images.
type ImageStore interface {
	Validate(data []byte) (string, error)
	Save(ctx context.Context, data []byte) (string, error)
}

// PostService creates, edits and reads posts.
type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	commentRepo repository.CommentRepository
	images      ImageStore
}

// PostInput is the editable part of a post. A nil GroupID files the post under no group;
// empty Image keeps the current image on edit.
type PostInput struct {
	Text    string
	GroupID *uint
	Image   []byte
}

// PostDetail is a post with its comments and the author's post count.
type PostDetail struct {
	Post            *models.Post
	Comments        []*models.Comment
	AuthorPostCount int64
}

// NewPostService returns a new PostService.
func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	commentRepo repository.CommentRepository,
	images ImageStore,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		commentRepo: commentRepo,
		images:      images,
	}
}

// CreatePost validates in and publishes a post by authorID. The image is stored before the row.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, in PostInput) (*models.Post, error) {
	text, err := s.check(ctx, &in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{Text: text, AuthorID: authorID, GroupID: in.GroupID}
	if len(in.Image) > 0 {
		if post.Image, err = s.images.Save(ctx, in.Image); err != nil {
			return nil, err
		}
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.PostsWritten.WithLabelValues("create").Inc()
	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("author_id", uint64(authorID)),
	)
	return s.postRepo.GetByID(ctx, post.ID)
}

// EditPost rewrites text, group and (when given) image. Only the author may edit; the
// publication date and author never change.
func (s *PostService) EditPost(ctx context.Context, postID, editorID uint, in PostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != editorID {
		return nil, models.NewUnauthorizedError("Only the author can edit this post")
	}

	text, err := s.check(ctx, &in)
	if err != nil {
		return nil, err
	}

	post.Text = text
	post.GroupID = in.GroupID
	post.Group = nil
	if len(in.Image) > 0 {
		if post.Image, err = s.images.Save(ctx, in.Image); err != nil {
			return nil, err
		}
	}
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.PostsWritten.WithLabelValues("edit").Inc()
	return s.postRepo.GetByID(ctx, post.ID)
}

// check validates text, group and image together so the form shows every problem at once.
func (s *PostService) check(ctx context.Context, in *PostInput) (string, error) {
	form := validation.PostForm{Text: in.Text}
	fields := validation.CheckPost(&form)

	if in.GroupID != nil {
		if _, err := s.groupRepo.GetByID(ctx, *in.GroupID); err != nil {
			if !models.IsNotFound(err) {
				return "", err
			}
			fields = addField(fields, "group", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	if len(in.Image) > 0 {
		if _, err := s.images.Validate(in.Image); err != nil {
			msg := err.Error()
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Fields["image"] != "" {
				msg = appErr.Fields["image"]
			}
			fields = addField(fields, "image", msg)
		}
	}

	if len(fields) > 0 {
		return "", models.NewFieldValidationError(fields)
	}
	return form.Text, nil
}

func addField(fields map[string]string, name, msg string) map[string]string {
	if fields == nil {
		fields = map[string]string{}
	}
	fields[name] = msg
	return fields
}

// GetPost returns the post with author and group loaded.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// GetPostDetail loads the post, its comments oldest first, and how many posts its author has.
func (s *PostService) GetPostDetail(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	count, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPostCount: count}, nil
}

// ListGroups returns the groups a post can be filed under.
func (s *PostService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

// GetGroup resolves a group by slug.
func (s *PostService) GetGroup(ctx context.Context, slug string) (*models.Group, error) {
	return s.groupRepo.GetBySlug(ctx, slug)
}
