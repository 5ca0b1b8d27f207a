package model

import (
	"time"
)

// RoleUser is the only role signup hands out.
const RoleUser = "user"

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserProfile is what a signed-in user sees about themselves.
type UserProfile struct {
	User  *User      `json:"user"`
	Stats *UserStats `json:"stats"`
}
