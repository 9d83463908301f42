package service

import (
	"context"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

// FollowService manages the directed follower -> author graph.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow subscribes followerID to authorID. Following an already-followed author is a no-op;
// following yourself is a validation error.
func (s *FollowService) Follow(ctx context.Context, followerID, authorID uint) error {
	if followerID == authorID {
		observability.FollowChanges.WithLabelValues("follow", "rejected").Inc()
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, authorID); err != nil {
		return err
	}

	created, err := s.followRepo.Create(ctx, followerID, authorID)
	if err != nil {
		return models.NewInternalError(err)
	}

	outcome := "noop"
	if created {
		outcome = "created"
		middleware.Logger.InfoContext(ctx, "author followed",
			slog.Uint64("follower_id", uint64(followerID)),
			slog.Uint64("author_id", uint64(authorID)),
		)
	}
	observability.FollowChanges.WithLabelValues("follow", outcome).Inc()
	return nil
}

// Unfollow removes the edge. A missing edge is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerID, authorID uint) error {
	removed, err := s.followRepo.Delete(ctx, followerID, authorID)
	if err != nil {
		return models.NewInternalError(err)
	}
	outcome := "noop"
	if removed {
		outcome = "deleted"
	}
	observability.FollowChanges.WithLabelValues("unfollow", outcome).Inc()
	return nil
}

// IsFollowing reports whether followerID follows authorID. Anonymous viewers (id 0) follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	return s.followRepo.Exists(ctx, followerID, authorID)
}

// FollowedAuthors returns the ids of every author followerID follows.
func (s *FollowService) FollowedAuthors(ctx context.Context, followerID uint) ([]uint, error) {
	return s.followRepo.ListAuthorIDs(ctx, followerID)
}

// FollowStats holds the counters shown on a profile.
type FollowStats struct {
	Followers int64
	Following int64
}

// Stats counts userID's followers and followed authors.
func (s *FollowService) Stats(ctx context.Context, userID uint) (FollowStats, error) {
	var st FollowStats
	var err error
	if st.Followers, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return st, err
	}
	st.Following, err = s.followRepo.CountFollowing(ctx, userID)
	return st, err
}
