package users

import "context"

type Repo interface {
	// Upsert creates the user on first login and refreshes the profile on later logins.
	// CreatedAt is preserved; LastLoginAt is taken from the argument.
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
}
