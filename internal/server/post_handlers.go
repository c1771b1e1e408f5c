package server

import (
	"bibleblock/internal/forms"
	"bibleblock/internal/models"
	"bibleblock/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET / and GET /home
func (s *Server) Home(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePage(c)

	posts, total, err := s.postRepo.ListPage(ctx, postsPerPage, (page-1)*postsPerPage)
	if err != nil {
		return err
	}

	return s.render(c, "home", fiber.Map{
		"Posts": posts,
		"Page":  buildPage(page, total),
	})
}

// About handles GET /about
func (s *Server) About(c *fiber.Ctx) error {
	return s.render(c, "about", fiber.Map{"Title": "About"})
}

// ShowPost handles GET /post/:id
func (s *Server) ShowPost(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return models.NewNotFoundError("Post", c.Params("id"))
	}

	post, err := s.postRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return err
	}

	return s.render(c, "post", fiber.Map{
		"Title": post.Title,
		"Post":  post,
	})
}

// UserPosts handles GET /user/:username
func (s *Server) UserPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	username := c.Params("username")

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if author == nil {
		return models.NewNotFoundError("User", username)
	}

	page := parsePage(c)
	posts, total, err := s.postRepo.ListByUserPage(ctx, author.ID, postsPerPage, (page-1)*postsPerPage)
	if err != nil {
		return err
	}

	return s.render(c, "user_posts", fiber.Map{
		"Title":  "Posts by " + author.Username,
		"Author": author,
		"Posts":  posts,
		"Page":   buildPage(page, total),
	})
}

// NewPostPage handles GET /post/new
func (s *Server) NewPostPage(c *fiber.Ctx) error {
	return s.render(c, "create_post", fiber.Map{
		"Title":  "New Post",
		"Legend": "New Post",
		"Form":   &forms.Post{},
		"Errors": forms.Errors{},
	})
}

// CreatePost handles POST /post/new
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)

	var form forms.Post
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	if errs := form.Validate(); !errs.Valid() {
		return s.render(c, "create_post", fiber.Map{
			"Title":  "New Post",
			"Legend": "New Post",
			"Form":   &form,
			"Errors": errs,
		})
	}

	post := &models.Post{
		Title:   form.Title,
		Content: form.Content,
		UserID:  userID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return err
	}

	observability.PostsCreated.Inc()
	return s.flashAndRedirect(c, "success", "Your post has been created!", "/home")
}

// EditPostPage handles GET /post/:id/update
func (s *Server) EditPostPage(c *fiber.Ctx) error {
	post, err := s.authorPost(c)
	if err != nil {
		return err
	}

	return s.render(c, "create_post", fiber.Map{
		"Title":  "Update Post",
		"Legend": "Update Post",
		"Form":   &forms.Post{Title: post.Title, Content: post.Content},
		"Errors": forms.Errors{},
	})
}

// UpdatePost handles POST /post/:id/update
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.Context()

	post, err := s.authorPost(c)
	if err != nil {
		return err
	}

	var form forms.Post
	if err := c.BodyParser(&form); err != nil {
		return models.NewValidationError("Invalid form submission")
	}

	if errs := form.Validate(); !errs.Valid() {
		return s.render(c, "create_post", fiber.Map{
			"Title":  "Update Post",
			"Legend": "Update Post",
			"Form":   &form,
			"Errors": errs,
		})
	}

	if err := s.postRepo.UpdateContent(ctx, post.ID, form.Title, form.Content); err != nil {
		return err
	}

	return s.flashAndRedirect(c, "success", "Your post has been updated!", "/post/"+c.Params("id"))
}

// DeletePost handles POST /post/:id/delete
func (s *Server) DeletePost(c *fiber.Ctx) error {
	post, err := s.authorPost(c)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(c.Context(), post.ID); err != nil {
		return err
	}

	return s.flashAndRedirect(c, "success", "Your post has been deleted!", "/home")
}

// authorPost loads the post addressed by the route and enforces that the
// current user authored it.
func (s *Server) authorPost(c *fiber.Ctx) (*models.Post, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, models.NewNotFoundError("Post", c.Params("id"))
	}

	post, err := s.postRepo.GetByID(c.Context(), uint(id))
	if err != nil {
		return nil, err
	}

	userID := c.Locals("userID").(uint)
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}
