package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bibleblock/internal/config"
	"bibleblock/internal/database"
	"bibleblock/internal/mailer"
	"bibleblock/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// captureSender records outgoing mail instead of delivering it.
type captureSender struct {
	sent []*mailer.Email
	err  error
}

func (s *captureSender) Send(_ context.Context, email *mailer.Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

func testServer(t *testing.T) (*Server, *fiber.App, *captureSender) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Port:                 "0",
		Env:                  "test",
		SecretKey:            "test-secret-key",
		DBDriver:             "sqlite",
		UploadDir:            t.TempDir(),
		MailSender:           "noreply@example.com",
		ResetTokenTTLMinutes: 30,
	}

	mail := &captureSender{}
	srv := NewServerWithDeps(cfg, db, nil, mail)
	app := srv.NewApp()
	return srv, app, mail
}

// client carries session cookies across requests against a test app.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]string{}}
}

func (c *client) do(method, target string, form url.Values) *http.Response {
	c.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)

	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now())) {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return resp
}

func (c *client) get(target string) *http.Response {
	return c.do(fiber.MethodGet, target, nil)
}

func (c *client) postForm(target string, form url.Values) *http.Response {
	return c.do(fiber.MethodPost, target, form)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return string(body)
}

func createTestUser(t *testing.T, srv *Server, username, email, password string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:  username,
		Email:     email,
		ImageFile: models.DefaultImageFile,
		Password:  string(hashed),
	}
	require.NoError(t, srv.userRepo.Create(context.Background(), user))
	return user
}

func login(t *testing.T, c *client, username, password string) {
	t.Helper()
	resp := c.postForm("/login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode, "login should redirect")
	_ = resp.Body.Close()
}

func seedPost(t *testing.T, srv *Server, userID uint, title string, postedAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:      title,
		Content:    "content of " + title,
		DatePosted: postedAt,
		UserID:     userID,
	}
	require.NoError(t, srv.db.Create(post).Error)
	return post
}
