package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

// Role is the flat access tier of a user. There is no ordering between roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts only the recognised roles.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type User struct {
	ID           string    `gorm:"primaryKey" json:"_id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `gorm:"not null;default:'user';index" json:"role"`
	Avatar       Avatar    `gorm:"embedded;embeddedPrefix:avatar_" json:"avatar"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the listing view: avatar, name, email and role only.
type PublicUser struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Avatar Avatar `json:"avatar"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Avatar: u.Avatar}
}

func PublicList(list []User) []PublicUser {
	out := make([]PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out
}

// SetPassword replaces the stored hash.
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = string(hashed)
	return nil
}

// ComparePassword is false for accounts without a password (social sign-in).
func (u *User) ComparePassword(candidate string) bool {
	if u.PasswordHash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// StoredRefreshToken returns the live refresh token, or "" when none is stored.
func (u User) StoredRefreshToken() string {
	if u.RefreshToken == nil {
		return ""
	}
	return *u.RefreshToken
}

// NormalizeEmail is applied on every write and lookup so addresses compare case-insensitively.
// A Caser holds state, so each call gets its own.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
