package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a site account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:254;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	IsStaff      bool       `gorm:"not null;default:false" json:"is_staff"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsSuperuser  bool       `gorm:"not null;default:false" json:"is_superuser"`
	Age          *uint      `json:"age,omitempty"`
	DateJoined   time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// NewUser returns an active account without staff rights, ready to be created.
func NewUser(username, email, passwordHash string) *User {
	return &User{Username: username, Email: email, PasswordHash: passwordHash, IsActive: true}
}

// BeforeCreate hook ensures the join date is set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	return nil
}

// BeforeDelete removes everything the user owns: comments on their articles,
// their own comments and their articles. Foreign keys cascade too, but not
// every driver enforces them (sqlite needs a pragma).
func (u *User) BeforeDelete(tx *gorm.DB) error {
	if u.ID == 0 {
		return nil
	}
	db := tx.Session(&gorm.Session{NewDB: true})
	owned := db.Model(&Article{}).Select("id").Where("author_id = ?", u.ID)
	if err := db.Where("author_id = ? OR article_id IN (?)", u.ID, owned).Delete(&Comment{}).Error; err != nil {
		return err
	}
	return db.Where("author_id = ?", u.ID).Delete(&Article{}).Error
}
