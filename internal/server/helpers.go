package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"bibleblock/internal/middleware"
	"bibleblock/internal/models"
	appsession "bibleblock/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	sessionUserKey = "user_id"
	sessionNextKey = "next"

	// postsPerPage is the fixed page size for all post listings.
	postsPerPage = 5
)

// Page holds the pagination state rendered under a post listing.
type Page struct {
	Number  int
	Total   int
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

// parsePage reads the page query parameter, defaulting to the first page.
func parsePage(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return page
}

// buildPage derives the pagination state from the requested page and the
// total row count.
func buildPage(number int, total int64) Page {
	pages := int((total + postsPerPage - 1) / postsPerPage)
	if pages < 1 {
		pages = 1
	}
	return Page{
		Number:  number,
		Total:   pages,
		HasPrev: number > 1,
		HasNext: number < pages,
		Prev:    number - 1,
		Next:    number + 1,
	}
}

// session returns the request's session, creating one if needed. The instance
// is cached in locals so every helper in the request works on the same session
// even before the cookie has round-tripped.
func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	if sess, ok := c.Locals("session").(*session.Session); ok {
		return sess, nil
	}
	sess, err := s.store.Get(c)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	c.Locals("session", sess)
	return sess, nil
}

// currentUserID returns the authenticated user id from the session, or 0.
func (s *Server) currentUserID(sess *session.Session) uint {
	uid, _ := sess.Get(sessionUserKey).(uint)
	return uid
}

// currentUser loads the authenticated user, or nil when anonymous. A stale
// session pointing at a deleted account counts as anonymous.
func (s *Server) currentUser(ctx context.Context, sess *session.Session) *models.User {
	uid := s.currentUserID(sess)
	if uid == 0 {
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil
	}
	return user
}

// LoginRequired guards authenticated routes: anonymous requests are flashed
// an info notice, the requested URL is remembered, and the browser is sent to
// the login page.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.session(c)
		if err != nil {
			return err
		}

		uid := s.currentUserID(sess)
		if uid == 0 {
			appsession.AddFlash(sess, "info", "Please log in to access this page.")
			sess.Set(sessionNextKey, c.OriginalURL())
			if err := sess.Save(); err != nil {
				return models.NewInternalError(err)
			}
			return c.Redirect("/login", fiber.StatusSeeOther)
		}

		c.Locals("userID", uid)
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uid)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// render draws a template through the shared layout, attaching the flashed
// notices and the current user to the bind data.
func (s *Server) render(c *fiber.Ctx, name string, bind fiber.Map) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	if bind == nil {
		bind = fiber.Map{}
	}
	flashes := appsession.PopFlashes(sess)
	if len(flashes) > 0 {
		if err := sess.Save(); err != nil {
			return models.NewInternalError(err)
		}
	}
	bind["Flashes"] = flashes
	if _, ok := bind["CurrentUser"]; !ok {
		bind["CurrentUser"] = s.currentUser(c.Context(), sess)
	}

	return c.Render(name, bind, "layout")
}

// flashAndRedirect queues a notice and sends the browser to location.
func (s *Server) flashAndRedirect(c *fiber.Ctx, category, message, location string) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	appsession.AddFlash(sess, category, message)
	if err := sess.Save(); err != nil {
		return models.NewInternalError(err)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// renderError draws the error page for the given status.
func (s *Server) renderError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).Render("error", fiber.Map{
		"Status":  status,
		"Message": message,
	}, "layout")
}

// handleError is the Fiber error handler: AppErrors map onto their pages,
// anything else is a 500.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "NOT_FOUND":
			return s.renderError(c, fiber.StatusNotFound, "That page does not exist.")
		case "FORBIDDEN":
			return s.renderError(c, fiber.StatusForbidden, "You don't have permission to do that.")
		case "VALIDATION_ERROR":
			return s.renderError(c, fiber.StatusBadRequest, appErr.Message)
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound {
		return s.renderError(c, fiber.StatusNotFound, "That page does not exist.")
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
	)
	return s.renderError(c, fiber.StatusInternalServerError, "Something went wrong on our end.")
}

// safeNextTarget keeps post-login redirects on-site.
func safeNextTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/home"
	}
	return target
}
