package server

import (
	"context"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterPage(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.get("/register")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Join Today")
}

func TestRegisterSuccess(t *testing.T) {
	srv, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.postForm("/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	user, err := srv.userRepo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "default.jpg", user.ImageFile)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))

	// The success flash shows on the next page view.
	resp = c.get("/login")
	assert.Contains(t, readBody(t, resp), "Your account has been created, alice!")
}

func TestRegisterValidationErrors(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.postForm("/register", url.Values{
		"username":         {"alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"different"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Field must be equal to password.")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)

	resp := c.postForm("/register", url.Values{
		"username":         {"alice"},
		"email":            {"new@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "That username is taken. Please choose a different one.")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)

	resp := c.postForm("/register", url.Values{
		"username":         {"bob"},
		"email":            {"alice@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "That email is taken. Please choose a different one.")
}

func TestLoginSuccess(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)

	resp := c.postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"secret123"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	resp = c.get("/account")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "alice")
}

func TestLoginWrongPassword(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)

	resp := c.postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Login unsuccessful. Please check username and password.")
}

func TestLoginUnknownUserSameMessage(t *testing.T) {
	// Unknown user and wrong password must be indistinguishable.
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.postForm("/login", url.Values{
		"username": {"ghost"},
		"password": {"whatever"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Login unsuccessful. Please check username and password.")
}

func TestLoginRedirectsToRememberedPage(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)

	// An anonymous visit to a protected page is bounced to login.
	resp := c.get("/post/new")
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	resp = c.get("/login")
	assert.Contains(t, readBody(t, resp), "Please log in to access this page.")

	// Logging in resumes the original destination.
	resp = c.postForm("/login", url.Values{
		"username": {"alice"},
		"password": {"secret123"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/post/new", resp.Header.Get("Location"))
	_ = resp.Body.Close()
}

func TestAuthenticatedUserSkipsAuthPages(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	for _, target := range []string{"/register", "/login", "/reset_password"} {
		resp := c.get(target)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, "GET %s", target)
		assert.Equal(t, "/home", resp.Header.Get("Location"), "GET %s", target)
		_ = resp.Body.Close()
	}
}

func TestLogout(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	resp := c.get("/logout")
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	// The protected page bounces again once the session is gone.
	resp = c.get("/account")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_ = resp.Body.Close()
}

func TestSafeNextTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/home"},
		{"/post/new", "/post/new"},
		{"/account?tab=profile", "/account?tab=profile"},
		{"https://evil.example.com", "/home"},
		{"//evil.example.com", "/home"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNextTarget(tt.target), "target %q", tt.target)
	}
}
