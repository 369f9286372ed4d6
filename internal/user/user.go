package user

import (
	"context"
	"errors"
	"time"
)

// User is an account able to authenticate and own orders.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrNotFound           = errors.New("user: not found")
	ErrAlreadyExists      = errors.New("user: already exists")
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	ErrInvalidInput       = errors.New("user: invalid input")
)

// Store describes persistence operations for accounts.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
