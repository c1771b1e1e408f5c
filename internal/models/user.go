// Package models defines the persistent entities of the application.
package models

// DefaultImageFile is the profile picture every account starts with. It is a
// shared sentinel file and is never deleted when a user uploads a new picture.
const DefaultImageFile = "default.jpg"

// User represents a registered account.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:20;uniqueIndex;not null"`
	Email     string `gorm:"size:120;uniqueIndex;not null"`
	ImageFile string `gorm:"size:40;not null;default:default.jpg"`
	// Password holds the bcrypt hash, never the plaintext.
	Password string `gorm:"size:60;not null"`
	Posts    []Post `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
