package validation

import (
	"strings"
	"unicode"
)

// PostForm is the create/edit post form. Group and image are checked by the caller.
type PostForm struct {
	Text string `form:"text" validate:"notblank"`
}

// CheckPost trims the text in place and returns field errors, or nil.
func CheckPost(f *PostForm) map[string]string {
	f.Text = strings.TrimSpace(f.Text)
	return fieldErrors(f)
}

// CommentForm is the comment form on the post detail page.
type CommentForm struct {
	Text string `form:"text" validate:"notblank"`
}

// CheckComment trims the text in place and returns field errors, or nil.
func CheckComment(f *CommentForm) map[string]string {
	f.Text = strings.TrimSpace(f.Text)
	return fieldErrors(f)
}

// SignupForm is the registration form.
type SignupForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,max=254,email"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// CheckSignup normalizes names and email, then validates the form including password strength.
func CheckSignup(f *SignupForm) map[string]string {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))

	errs := fieldErrors(f)
	if f.Password1 != "" {
		if err := ValidatePassword(f.Password1, f.Username); err != nil {
			errs = merge(errs, "password2", err.Error())
		}
	}
	return errs
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// CheckLogin checks that both credentials were supplied.
func CheckLogin(f *LoginForm) map[string]string {
	f.Username = strings.TrimSpace(f.Username)
	return fieldErrors(f)
}

// GroupForm is the admin group form.
type GroupForm struct {
	Title       string `form:"title" validate:"notblank,max=200"`
	Slug        string `form:"slug" validate:"required,max=50,slug"`
	Description string `form:"description" validate:"max=30"`
}

// CheckGroup trims every field and returns field errors, or nil.
func CheckGroup(f *GroupForm) map[string]string {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	f.Description = strings.TrimSpace(f.Description)
	return fieldErrors(f)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
