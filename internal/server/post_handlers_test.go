package server

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"bibleblock/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomePagination(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 7; i++ {
		seedPost(t, srv, alice.ID, fmt.Sprintf("post-%02d", i), base.Add(time.Duration(i)*time.Hour))
	}

	c := newClient(t, app)

	// Page one: the five newest posts.
	resp := c.get("/home")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	for i := 3; i <= 7; i++ {
		assert.Contains(t, body, fmt.Sprintf("post-%02d", i))
	}
	assert.NotContains(t, body, "post-02")
	assert.NotContains(t, body, "post-01")

	// Page two: the remainder.
	resp = c.get("/home?page=2")
	body = readBody(t, resp)
	assert.Contains(t, body, "post-02")
	assert.Contains(t, body, "post-01")
	assert.NotContains(t, body, "post-03")

	// Out-of-range pages render empty, not an error.
	resp = c.get("/home?page=99")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "No posts yet.")

	// Page values below one clamp to the first page.
	resp = c.get("/home?page=0")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "post-07")
}

func TestShowPost(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	post := seedPost(t, srv, alice.ID, "A readable title", time.Now())

	c := newClient(t, app)
	resp := c.get(fmt.Sprintf("/post/%d", post.ID))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "A readable title")
	assert.Contains(t, body, "alice")
}

func TestShowPostNotFound(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.get("/post/9999")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	// Non-numeric ids never reach the handler.
	resp = c.get("/post/abc")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUserPosts(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	bob := createTestUser(t, srv, "bob", "bob@example.com", "secret123")
	seedPost(t, srv, alice.ID, "alice-post", time.Now())
	seedPost(t, srv, bob.ID, "bob-post", time.Now())

	c := newClient(t, app)
	resp := c.get("/user/alice")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "alice-post")
	assert.NotContains(t, body, "bob-post")
}

func TestUserPostsUnknownUser(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.get("/user/ghost")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreatePost(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	resp := c.postForm("/post/new", url.Values{
		"title":   {"Fresh post"},
		"content": {"Some words worth reading."},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	posts, total, err := srv.postRepo.ListPage(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, posts, 1)
	assert.Equal(t, "Fresh post", posts[0].Title)
	assert.False(t, posts[0].DatePosted.IsZero())
}

func TestCreatePostValidation(t *testing.T) {
	srv, app, _ := testServer(t)
	createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	resp := c.postForm("/post/new", url.Values{
		"title":   {""},
		"content": {"body without a title"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "This field is required.")
}

func TestCreatePostRequiresLogin(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.get("/post/new")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	_ = resp.Body.Close()
}

func TestUpdatePostByAuthor(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	postedAt := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	post := seedPost(t, srv, alice.ID, "Original", postedAt)

	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	resp := c.postForm(fmt.Sprintf("/post/%d/update", post.ID), url.Values{
		"title":   {"Edited"},
		"content": {"Edited content."},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/post/%d", post.ID), resp.Header.Get("Location"))
	_ = resp.Body.Close()

	updated, err := srv.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.True(t, updated.DatePosted.Equal(postedAt), "editing must not touch the publication date")
}

func TestUpdatePostNonAuthorForbidden(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	createTestUser(t, srv, "bob", "bob@example.com", "secret123")
	post := seedPost(t, srv, alice.ID, "Owned by alice", time.Now())

	c := newClient(t, app)
	login(t, c, "bob", "secret123")

	resp := c.get(fmt.Sprintf("/post/%d/update", post.ID))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = c.postForm(fmt.Sprintf("/post/%d/update", post.ID), url.Values{
		"title":   {"Hijacked"},
		"content": {"nope"},
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	unchanged, err := srv.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owned by alice", unchanged.Title)
}

func TestDeletePost(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	post := seedPost(t, srv, alice.ID, "Short lived", time.Now())

	c := newClient(t, app)
	login(t, c, "alice", "secret123")

	resp := c.postForm(fmt.Sprintf("/post/%d/delete", post.ID), url.Values{})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/home", resp.Header.Get("Location"))
	_ = resp.Body.Close()

	_, err := srv.postRepo.GetByID(context.Background(), post.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestDeletePostNonAuthorForbidden(t *testing.T) {
	srv, app, _ := testServer(t)
	alice := createTestUser(t, srv, "alice", "alice@example.com", "secret123")
	createTestUser(t, srv, "bob", "bob@example.com", "secret123")
	post := seedPost(t, srv, alice.ID, "Still here", time.Now())

	c := newClient(t, app)
	login(t, c, "bob", "secret123")

	resp := c.postForm(fmt.Sprintf("/post/%d/delete", post.ID), url.Values{})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	_, err := srv.postRepo.GetByID(context.Background(), post.ID)
	assert.NoError(t, err)
}

func TestHealthLive(t *testing.T) {
	_, app, _ := testServer(t)
	c := newClient(t, app)

	resp := c.get("/health/live")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
