package server

import (
	"fmt"
	"net/url"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowIndex handles GET /follow/ with posts by every author the viewer follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Following(c.UserContext(), viewerFrom(c).ID, c.Query("page"))
	if err != nil {
		return s.fail(err)
	}
	return s.render(c, fiber.StatusOK, "posts/follow", fiber.Map{
		"Title": "Избранные авторы",
		"Page":  page,
	})
}

// ProfileFollow handles /profile/:username/follow/. Following yourself is silently ignored.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.fail(err)
	}
	if err := s.followService.Follow(c.UserContext(), viewerFrom(c).ID, author.ID); err != nil && !models.IsValidation(err) {
		return s.fail(err)
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// ProfileUnfollow handles /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.fail(err)
	}
	if err := s.followService.Unfollow(c.UserContext(), viewerFrom(c).ID, author.ID); err != nil {
		return s.fail(err)
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

func profileURL(username string) string {
	return fmt.Sprintf("/profile/%s/", url.PathEscape(username))
}
