package server

import (
	"errors"
	"io"

	"bibleblock/internal/forms"
	"bibleblock/internal/models"
	"bibleblock/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// AccountPage handles GET /account
func (s *Server) AccountPage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return err
	}

	return s.render(c, "account", fiber.Map{
		"Title":       "Account",
		"Form":        &forms.UpdateAccount{Username: user.Username, Email: user.Email},
		"Errors":      forms.Errors{},
		"CurrentUser": user,
	})
}

// UpdateAccount handles POST /account
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	var form forms.UpdateAccount
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	errs := form.Validate()

	// Uniqueness checks skip the user's own current values.
	if _, taken := errs["username"]; !taken && form.Username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, form.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			errs["username"] = "That username is taken. Please choose a different one."
		}
	}
	if _, taken := errs["email"]; !taken && form.Email != user.Email {
		existing, err := s.userRepo.GetByEmail(ctx, form.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			errs["email"] = "That email is taken. Please choose a different one."
		}
	}

	// Optional profile picture upload.
	newPicture := ""
	if fh, fhErr := c.FormFile("picture"); fhErr == nil && fh != nil {
		f, openErr := fh.Open()
		if openErr != nil {
			return models.NewInternalError(openErr)
		}
		content, readErr := io.ReadAll(f)
		_ = f.Close()
		if readErr != nil {
			return models.NewInternalError(readErr)
		}

		name, saveErr := s.pictures.Save(fh.Filename, content)
		if saveErr != nil {
			var appErr *models.AppError
			if errors.As(saveErr, &appErr) && appErr.Code == "VALIDATION_ERROR" {
				errs["picture"] = appErr.Message
			} else {
				return saveErr
			}
		} else {
			newPicture = name
		}
	}

	if !errs.Valid() {
		s.pictures.Remove(newPicture)
		return s.render(c, "account", fiber.Map{
			"Title":       "Account",
			"Form":        &form,
			"Errors":      errs,
			"CurrentUser": user,
		})
	}

	oldPicture := user.ImageFile
	user.Username = form.Username
	user.Email = form.Email
	if newPicture != "" {
		user.ImageFile = newPicture
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.pictures.Remove(newPicture)
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			errs["username"] = "That username is taken. Please choose a different one."
		case errors.Is(err, repository.ErrDuplicateEmail):
			errs["email"] = "That email is taken. Please choose a different one."
		default:
			return err
		}
		return s.render(c, "account", fiber.Map{
			"Title":       "Account",
			"Form":        &form,
			"Errors":      errs,
			"CurrentUser": user,
		})
	}

	if newPicture != "" && oldPicture != newPicture {
		s.pictures.Remove(oldPicture)
	}

	return s.flashAndRedirect(c, "success", "Your account has been updated!", "/account")
}
