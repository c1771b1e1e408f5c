package server

import (
	"errors"
	"fmt"

	"bibleblock/internal/forms"
	"bibleblock/internal/models"
	"bibleblock/internal/observability"
	"bibleblock/internal/repository"
	appsession "bibleblock/internal/session"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// RegisterPage handles GET /register
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if s.currentUserID(sess) != 0 {
		return c.Redirect("/home", fiber.StatusSeeOther)
	}
	return s.render(c, "register", fiber.Map{
		"Title":  "Register",
		"Form":   &forms.Registration{},
		"Errors": forms.Errors{},
	})
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	ctx := c.Context()

	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if s.currentUserID(sess) != 0 {
		return c.Redirect("/home", fiber.StatusSeeOther)
	}

	var form forms.Registration
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	errs := form.Validate()

	// Fast-path uniqueness checks for friendly inline messages. The unique
	// indexes remain the authoritative guard on insert.
	if _, taken := errs["username"]; !taken {
		existing, err := s.userRepo.GetByUsername(ctx, form.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			errs["username"] = "That username is taken. Please choose a different one."
		}
	}
	if _, taken := errs["email"]; !taken {
		existing, err := s.userRepo.GetByEmail(ctx, form.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			errs["email"] = "That email is taken. Please choose a different one."
		}
	}

	if !errs.Valid() {
		form.Password = ""
		form.ConfirmPassword = ""
		return s.render(c, "register", fiber.Map{
			"Title":  "Register",
			"Form":   &form,
			"Errors": errs,
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	user := &models.User{
		Username:  form.Username,
		Email:     form.Email,
		ImageFile: models.DefaultImageFile,
		Password:  string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the pre-check; the
		// constraint violation is reported on the same field.
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			errs["username"] = "That username is taken. Please choose a different one."
		case errors.Is(err, repository.ErrDuplicateEmail):
			errs["email"] = "That email is taken. Please choose a different one."
		default:
			return err
		}
		form.Password = ""
		form.ConfirmPassword = ""
		return s.render(c, "register", fiber.Map{
			"Title":  "Register",
			"Form":   &form,
			"Errors": errs,
		})
	}

	observability.UsersRegistered.Inc()
	return s.flashAndRedirect(c, "success",
		fmt.Sprintf("Your account has been created, %s! You are now able to log in.", user.Username),
		"/login")
}

// LoginPage handles GET /login
func (s *Server) LoginPage(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if s.currentUserID(sess) != 0 {
		return c.Redirect("/home", fiber.StatusSeeOther)
	}
	return s.render(c, "login", fiber.Map{
		"Title":  "Login",
		"Form":   &forms.Login{},
		"Errors": forms.Errors{},
	})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.Context()

	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if s.currentUserID(sess) != 0 {
		return c.Redirect("/home", fiber.StatusSeeOther)
	}

	var form forms.Login
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	if errs := form.Validate(); !errs.Valid() {
		form.Password = ""
		return s.render(c, "login", fiber.Map{
			"Title":  "Login",
			"Form":   &form,
			"Errors": errs,
		})
	}

	user, err := s.userRepo.GetByUsername(ctx, form.Username)
	if err != nil {
		return err
	}

	// A single generic message for both unknown user and wrong password, so
	// the error text never confirms account existence.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(form.Password)) != nil {
		appsession.AddFlash(sess, "danger", "Login unsuccessful. Please check username and password.")
		if err := sess.Save(); err != nil {
			return models.NewInternalError(err)
		}
		form.Password = ""
		return s.render(c, "login", fiber.Map{
			"Title":  "Login",
			"Form":   &form,
			"Errors": forms.Errors{},
		})
	}

	// Fresh session id on privilege change.
	if err := sess.Regenerate(); err != nil {
		return models.NewInternalError(err)
	}
	sess.Set(sessionUserKey, user.ID)
	if form.Remember {
		sess.SetExpiry(appsession.RememberExpiration)
	}

	next, _ := sess.Get(sessionNextKey).(string)
	sess.Delete(sessionNextKey)
	if err := sess.Save(); err != nil {
		return models.NewInternalError(err)
	}

	return c.Redirect(safeNextTarget(next), fiber.StatusSeeOther)
}

// Logout handles GET /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		return models.NewInternalError(err)
	}
	return c.Redirect("/home", fiber.StatusSeeOther)
}
