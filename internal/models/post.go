package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a blog post authored by a user.
type Post struct {
	ID         uint      `gorm:"primaryKey"`
	Title      string    `gorm:"size:100;not null"`
	Content    string    `gorm:"type:text;not null"`
	DatePosted time.Time `gorm:"not null;index"`
	UserID     uint      `gorm:"not null;index"`
	User       User      `gorm:"foreignKey:UserID"`
}

// BeforeCreate stamps the creation time. DatePosted is immutable afterwards;
// updates go through PostRepository.UpdateContent which never touches it.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now().UTC()
	}
	return nil
}
