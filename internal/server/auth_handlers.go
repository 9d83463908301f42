package server

import (
	"errors"

	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SignupPage handles GET /auth/signup/
func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "auth/signup", fiber.Map{
		"Title": "Регистрация",
		"Form":  &validation.SignupForm{},
	})
}

// Signup handles POST /auth/signup/. A new account is signed in straight away.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := &validation.SignupForm{}
	if err := c.BodyParser(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}

	user, err := s.userService.Register(c.UserContext(), form)
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			form.Password1, form.Password2 = "", ""
			return s.render(c, fiber.StatusBadRequest, "auth/signup", fiber.Map{
				"Title":  "Регистрация",
				"Form":   form,
				"Errors": errs,
			})
		}
		return s.fail(err)
	}

	if err := s.issueSession(c, user); err != nil {
		return models.NewInternalError(err)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginPage handles GET /auth/login/
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "auth/login", fiber.Map{
		"Title": "Войти",
		"Form":  &validation.LoginForm{},
		"Next":  c.Query("next"),
	})
}

// Login handles POST /auth/login/ and redirects to next when it is a local path.
func (s *Server) Login(c *fiber.Ctx) error {
	form := &validation.LoginForm{}
	if err := c.BodyParser(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form body")
	}
	next := c.FormValue("next", c.Query("next"))

	user, err := s.userService.Authenticate(c.UserContext(), form)
	if err != nil {
		errs := fieldErrors(err)
		if errs == nil && models.IsUnauthorized(err) {
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				errs = map[string]string{"__all__": appErr.Message}
			}
		}
		if errs == nil {
			return s.fail(err)
		}
		form.Password = ""
		return s.render(c, fiber.StatusBadRequest, "auth/login", fiber.Map{
			"Title":  "Войти",
			"Form":   form,
			"Next":   next,
			"Errors": errs,
		})
	}

	if err := s.issueSession(c, user); err != nil {
		return models.NewInternalError(err)
	}
	return c.Redirect(safeNext(next), fiber.StatusFound)
}

// Logout handles GET and POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	s.revokeSession(c)
	return c.Redirect("/", fiber.StatusFound)
}
