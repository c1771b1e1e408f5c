// Package forms defines the submitted form payloads and their field-level
// validation rules. Cross-record checks (uniqueness, account existence) live
// in the handlers, which have repository access.
package forms

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Errors maps a field name to its validation message.
type Errors map[string]string

// Valid reports whether no field failed validation.
func (e Errors) Valid() bool { return len(e) == 0 }

// Registration is the sign-up form.
type Registration struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

// Validate checks presence, length, format and the password confirmation.
func (f *Registration) Validate() Errors {
	errs := Errors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if msg := validateUsername(f.Username); msg != "" {
		errs["username"] = msg
	}
	if msg := validateEmail(f.Email); msg != "" {
		errs["email"] = msg
	}
	if f.Password == "" {
		errs["password"] = "This field is required."
	}
	if f.ConfirmPassword == "" {
		errs["confirm_password"] = "This field is required."
	} else if f.Password != f.ConfirmPassword {
		errs["confirm_password"] = "Field must be equal to password."
	}
	return errs
}

// Login is the sign-in form.
type Login struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Remember bool   `form:"remember"`
}

func (f *Login) Validate() Errors {
	errs := Errors{}
	f.Username = strings.TrimSpace(f.Username)
	if msg := validateUsername(f.Username); msg != "" {
		errs["username"] = msg
	}
	if f.Password == "" {
		errs["password"] = "This field is required."
	}
	return errs
}

// UpdateAccount changes username/email and optionally the profile picture.
// The picture file itself is validated by the pictures package.
type UpdateAccount struct {
	Username string `form:"username"`
	Email    string `form:"email"`
}

func (f *UpdateAccount) Validate() Errors {
	errs := Errors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if msg := validateUsername(f.Username); msg != "" {
		errs["username"] = msg
	}
	if msg := validateEmail(f.Email); msg != "" {
		errs["email"] = msg
	}
	return errs
}

// Post covers both the new-post and edit-post forms.
type Post struct {
	Title   string `form:"title"`
	Content string `form:"content"`
}

func (f *Post) Validate() Errors {
	errs := Errors{}
	f.Title = strings.TrimSpace(f.Title)

	if f.Title == "" {
		errs["title"] = "This field is required."
	} else if utf8.RuneCountInString(f.Title) > 100 {
		errs["title"] = "Title must not exceed 100 characters."
	}
	if strings.TrimSpace(f.Content) == "" {
		errs["content"] = "This field is required."
	}
	return errs
}

// RequestReset asks for the account email to send a reset link to.
type RequestReset struct {
	Email string `form:"email"`
}

func (f *RequestReset) Validate() Errors {
	errs := Errors{}
	f.Email = strings.TrimSpace(f.Email)
	if msg := validateEmail(f.Email); msg != "" {
		errs["email"] = msg
	}
	return errs
}

// ResetPassword sets the new password after token verification.
type ResetPassword struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (f *ResetPassword) Validate() Errors {
	errs := Errors{}
	if f.Password == "" {
		errs["password"] = "This field is required."
	}
	if f.ConfirmPassword == "" {
		errs["confirm_password"] = "This field is required."
	} else if f.Password != f.ConfirmPassword {
		errs["confirm_password"] = "Field must be equal to password."
	}
	return errs
}

// Length bounds count characters, not bytes, so multibyte input is measured
// the way users see it.
func validateUsername(username string) string {
	if username == "" {
		return "This field is required."
	}
	if n := utf8.RuneCountInString(username); n < 2 || n > 20 {
		return fmt.Sprintf("Field must be between %d and %d characters long.", 2, 20)
	}
	return ""
}

func validateEmail(email string) string {
	if email == "" {
		return "This field is required."
	}
	if utf8.RuneCountInString(email) > 120 || !emailRegex.MatchString(email) {
		return "Invalid email address."
	}
	return ""
}
