package core

import (
	"context"
	"time"
)

type (
	User struct {
		ID           string    `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		Phone        string    `json:"phone,omitempty"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// UserStore defines the persistence layer for registered accounts.
	UserStore interface {
		CreateUser(ctx context.Context, user *User) error
		UserByEmail(ctx context.Context, email string) (*User, error)
		SetPassword(ctx context.Context, email, passwordHash string) error
	}
)
