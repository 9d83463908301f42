package server

import (
	"fmt"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET / with the global feed. The page carries no viewer data so it can be cached.
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.Global(c.UserContext(), c.Query("page"))
	if err != nil {
		return s.fail(err)
	}
	return s.renderAnonymous(c, fiber.StatusOK, "posts/index", fiber.Map{
		"Title": "Последние обновления на сайте",
		"Page":  page,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	group, err := s.postService.GetGroup(ctx, c.Params("slug"))
	if err != nil {
		return s.fail(err)
	}
	page, err := s.feedService.Group(ctx, group.ID, c.Query("page"))
	if err != nil {
		return s.fail(err)
	}
	return s.render(c, fiber.StatusOK, "posts/group_list", fiber.Map{
		"Title": group.Title,
		"Group": group,
		"Page":  page,
	})
}

// Profile handles GET /profile/:username/ with the author's posts, counters and follow state.
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.userService.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return s.fail(err)
	}
	page, err := s.feedService.Profile(ctx, author.ID, c.Query("page"))
	if err != nil {
		return s.fail(err)
	}
	stats, err := s.followService.Stats(ctx, author.ID)
	if err != nil {
		return s.fail(err)
	}

	var following, isSelf bool
	if v := viewerFrom(c); v != nil {
		isSelf = v.ID == author.ID
		if following, err = s.followService.IsFollowing(ctx, v.ID, author.ID); err != nil {
			return s.fail(err)
		}
	}

	return s.render(c, fiber.StatusOK, "posts/profile", fiber.Map{
		"Title":     "Профайл пользователя " + author.FullName(),
		"Author":    author,
		"Page":      page,
		"Stats":     stats,
		"Following": following,
		"IsSelf":    isSelf,
	})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return s.renderDetail(c, fiber.StatusOK, id, "", nil)
}

func (s *Server) renderDetail(c *fiber.Ctx, status int, id uint, text string, errs map[string]string) error {
	detail, err := s.postService.GetPostDetail(c.UserContext(), id)
	if err != nil {
		return s.fail(err)
	}
	v := viewerFrom(c)
	return s.render(c, status, "posts/post_detail", fiber.Map{
		"Title":   "Пост " + detail.Post.Excerpt(30),
		"Detail":  detail,
		"CanEdit": v != nil && v.ID == detail.Post.AuthorID,
		"Text":    text,
		"Errors":  errs,
	})
}

// CreatePostPage handles GET /create/
func (s *Server) CreatePostPage(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.StatusOK, postFormView{Action: "/create/"})
}

// CreatePost handles POST /create/. Success redirects to the author's profile.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	viewer := viewerFrom(c)
	in, selected, err := s.readPostInput(c)
	if err != nil {
		return err
	}

	if _, err := s.postService.CreatePost(c.UserContext(), viewer.ID, in); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderPostForm(c, fiber.StatusBadRequest, postFormView{
				Action: "/create/", Text: in.Text, SelectedGroup: selected, Errors: errs,
			})
		}
		return s.fail(err)
	}
	return c.Redirect(profileURL(viewer.Username), fiber.StatusFound)
}

// EditPostPage handles GET /posts/:id/edit/. Only the author sees the form.
func (s *Server) EditPostPage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.fail(err)
	}
	if post.AuthorID != viewerFrom(c).ID {
		return c.Redirect("/", fiber.StatusFound)
	}

	var selected uint
	if post.GroupID != nil {
		selected = *post.GroupID
	}
	return s.renderPostForm(c, fiber.StatusOK, postFormView{
		Action:        fmt.Sprintf("/posts/%d/edit/", post.ID),
		IsEdit:        true,
		Text:          post.Text,
		SelectedGroup: selected,
	})
}

// EditPost handles POST /posts/:id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	in, selected, err := s.readPostInput(c)
	if err != nil {
		return err
	}

	post, err := s.postService.EditPost(c.UserContext(), id, viewerFrom(c).ID, in)
	switch {
	case err == nil:
		return c.Redirect(fmt.Sprintf("/posts/%d/", post.ID), fiber.StatusFound)
	case models.IsUnauthorized(err):
		return c.Redirect("/", fiber.StatusFound)
	case models.IsValidation(err):
		return s.renderPostForm(c, fiber.StatusBadRequest, postFormView{
			Action:        fmt.Sprintf("/posts/%d/edit/", id),
			IsEdit:        true,
			Text:          in.Text,
			SelectedGroup: selected,
			Errors:        fieldErrors(err),
		})
	default:
		return s.fail(err)
	}
}

type postFormView struct {
	Action        string
	IsEdit        bool
	Text          string
	SelectedGroup uint
	Errors        map[string]string
}

func (s *Server) renderPostForm(c *fiber.Ctx, status int, form postFormView) error {
	groups, err := s.postService.ListGroups(c.UserContext())
	if err != nil {
		return s.fail(err)
	}
	title := "Новая запись"
	if form.IsEdit {
		title = "Редактировать запись"
	}
	return s.render(c, status, "posts/create_post", fiber.Map{
		"Title":         title,
		"Action":        form.Action,
		"IsEdit":        form.IsEdit,
		"Text":          form.Text,
		"SelectedGroup": form.SelectedGroup,
		"Groups":        groups,
		"Errors":        form.Errors,
	})
}

// AddComment handles POST /posts/:id/comment/ (and POST /posts/:id/).
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	text := c.FormValue("text")
	if _, err := s.commentService.AddComment(c.UserContext(), id, viewerFrom(c).ID, text); err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderDetail(c, fiber.StatusBadRequest, id, text, errs)
		}
		return s.fail(err)
	}
	return c.Redirect(fmt.Sprintf("/posts/%d/", id), fiber.StatusFound)
}

// AboutAuthor handles GET /about/author/
func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "about/author", fiber.Map{"Title": "Об авторе"})
}

// AboutTech handles GET /about/tech/
func (s *Server) AboutTech(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "about/tech", fiber.Map{"Title": "Технологии"})
}
