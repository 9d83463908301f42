package service

import (
	"context"
	"fmt"

	"yatube/internal/observability"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FeedService assembles paginated post feeds.
type FeedService struct {
	posts     repository.PostRepository
	paginator Paginator
}

// NewFeedService returns a FeedService serving pageSize posts per page.
func NewFeedService(posts repository.PostRepository, pageSize int) *FeedService {
	return &FeedService{posts: posts, paginator: NewPaginator(pageSize)}
}

// PageSize returns the configured number of posts per page.
func (s *FeedService) PageSize() int {
	return s.paginator.PageSize
}

// GetFeed returns the requested page of posts matching filter, newest first.
func (s *FeedService) GetFeed(ctx context.Context, filter repository.PostFilter, rawPage string) (page *Page, err error) {
	kind := feedKind(filter)
	defer observability.TrackFeed(kind)()
	ctx, finish := observability.StartSpan(ctx, "FeedService.GetFeed", attribute.String("feed.kind", kind))
	defer func() { finish(err) }()

	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count %s feed: %w", kind, err)
	}

	number, offset := s.paginator.Resolve(rawPage, total)
	page = &Page{
		Number:     number,
		TotalPages: s.paginator.TotalPages(total),
		Total:      total,
		PageSize:   s.paginator.PageSize,
	}
	if total == 0 {
		return page, nil
	}

	page.Items, err = s.posts.List(ctx, filter, s.paginator.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s feed: %w", kind, err)
	}
	return page, nil
}

// Global returns the all-posts feed.
func (s *FeedService) Global(ctx context.Context, rawPage string) (*Page, error) {
	return s.GetFeed(ctx, repository.PostFilter{}, rawPage)
}

// Group returns the feed of one group.
func (s *FeedService) Group(ctx context.Context, groupID uint, rawPage string) (*Page, error) {
	return s.GetFeed(ctx, repository.PostFilter{GroupID: groupID}, rawPage)
}

// Profile returns the feed of one author.
func (s *FeedService) Profile(ctx context.Context, authorID uint, rawPage string) (*Page, error) {
	return s.GetFeed(ctx, repository.PostFilter{AuthorID: authorID}, rawPage)
}

// Following returns posts by the authors followerID follows.
func (s *FeedService) Following(ctx context.Context, followerID uint, rawPage string) (*Page, error) {
	return s.GetFeed(ctx, repository.PostFilter{FollowerID: followerID}, rawPage)
}

func feedKind(f repository.PostFilter) string {
	switch {
	case f.FollowerID != 0:
		return "follow"
	case f.GroupID != 0:
		return "group"
	case f.AuthorID != 0:
		return "profile"
	default:
		return "index"
	}
}
