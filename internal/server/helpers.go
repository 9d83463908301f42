package server

import (
	"errors"
	"io"
	"log/slog"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

const baseLayout = "layouts/base"

// render executes a page template inside the base layout with the viewer attached.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if v := viewerFrom(c); v != nil {
		data["Viewer"] = v
	}
	return s.renderAnonymous(c, status, name, data)
}

// renderAnonymous renders without viewer data, for pages shared through the response cache.
func (s *Server) renderAnonymous(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	return c.Status(status).Render(name, data, baseLayout)
}

// fail maps a service error to the response for an HTML page: not-found renders the 404 page,
// anything else goes to the error handler as a 500.
func (s *Server) fail(err error) error {
	if models.IsNotFound(err) {
		return fiber.ErrNotFound
	}
	return err
}

// fieldErrors returns the per-field messages of a validation error, or nil.
func fieldErrors(err error) map[string]string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		if appErr.Fields != nil {
			return appErr.Fields
		}
		return map[string]string{"__all__": appErr.Message}
	}
	return nil
}

// errorHandler renders the 404 and 500 pages. Other fiber errors keep their status and text.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	switch code {
	case fiber.StatusNotFound:
		return s.render(c, fiber.StatusNotFound, "core/404", fiber.Map{"Title": "Страница не найдена", "Path": c.Path()})
	case fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		if rerr := s.render(c, code, "core/500", fiber.Map{"Title": "Ошибка сервера"}); rerr != nil {
			return c.Status(code).SendString("Internal Server Error")
		}
		return nil
	default:
		return c.Status(code).SendString(fe.Message)
	}
}

// parseID extracts a positive numeric route parameter. Anything else is a 404.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// readPostInput reads text, group and the optional image upload from a multipart or urlencoded form.
// A group value that is not a number selects group 0, which never exists and fails validation.
func (s *Server) readPostInput(c *fiber.Ctx) (service.PostInput, uint, error) {
	in := service.PostInput{Text: c.FormValue("text")}

	var selected uint
	if raw := c.FormValue("group"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			id = 0
		}
		gid := uint(id)
		in.GroupID = &gid
		selected = gid
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// No file part is the common case.
		return in, selected, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, selected, err
	}
	defer f.Close()

	limit := int64(s.config.MediaMaxUploadMB)*1024*1024 + 1
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return in, selected, err
	}
	in.Image = data
	return in, selected, nil
}
