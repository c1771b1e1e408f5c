// Package seed populates the database with fake users and posts for local
// development.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"bibleblock/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedPassword is the password every seeded account gets.
const SeedPassword = "password123"

// Seeder creates fake data for development environments.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a seeder bound to the given database.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll deletes all posts and users.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

// SeedUsers creates count users with unique usernames and emails. All of them
// share SeedPassword so any account can be logged into during development.
func (s *Seeder) SeedUsers(count int) ([]models.User, error) {
	log.Printf("Creating %d users...", count)

	hashed, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed password: %w", err)
	}

	users := make([]models.User, 0, count)
	seen := map[string]bool{}
	for i := 0; i < count; i++ {
		username := uniqueUsername(seen)
		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@%s", username, gofakeit.DomainName()),
			Password: string(hashed),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %q: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedPosts spreads count posts across the given users with publication dates
// inside the last year, so paginated listings have something to show.
func (s *Seeder) SeedPosts(users []models.User, count int) error {
	if len(users) == 0 {
		return fmt.Errorf("no users to attach posts to")
	}
	log.Printf("Creating %d posts...", count)

	now := time.Now()
	for i := 0; i < count; i++ {
		author := users[gofakeit.Number(0, len(users)-1)]
		post := models.Post{
			Title:      truncate(gofakeit.Sentence(gofakeit.Number(3, 8)), 100),
			Content:    gofakeit.Paragraph(gofakeit.Number(1, 3), gofakeit.Number(2, 5), gofakeit.Number(8, 16), "\n\n"),
			DatePosted: gofakeit.DateRange(now.AddDate(-1, 0, 0), now),
			UserID:     author.ID,
		}
		if err := s.db.Create(&post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
	}
	return nil
}

// uniqueUsername produces a 2-20 character username not seen before.
func uniqueUsername(seen map[string]bool) string {
	for {
		name := truncate(strings.ToLower(gofakeit.Username()), 20)
		if utf8.RuneCountInString(name) < 2 {
			continue
		}
		if !seen[name] {
			seen[name] = true
			return name
		}
	}
}

// truncate cuts s down to max characters, never splitting a rune.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
