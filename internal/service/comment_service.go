package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// CommentService adds comments to posts.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

// NewCommentService returns a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// AddComment stores a comment by authorID on postID.
func (s *CommentService) AddComment(ctx context.Context, postID, authorID uint, text string) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	form := validation.CommentForm{Text: text}
	if fields := validation.CheckComment(&form); fields != nil {
		return nil, models.NewFieldValidationError(fields)
	}

	comment := &models.Comment{PostID: postID, AuthorID: authorID, Text: form.Text}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}
