package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/users"
	fakeuserrepo "github.com/iamcapote/semantic-flow-sub001/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	p := users.Profile{ID: "7", Username: "alice"}

	require.Equal(t, "alice", p.DisplayName())
	p.Name = "Alice A."
	require.Equal(t, "Alice A.", p.DisplayName())

	require.True(t, p.CanReadInbox("Alice"))
	require.False(t, p.CanReadInbox("bob"))
	p.Admin = true
	require.True(t, p.CanReadInbox("bob"))
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	require.NoError(t, repo.Upsert(ctx, &users.User{
		Profile:     users.Profile{ID: "1", Username: "bob"},
		LastLoginAt: first,
	}))
	require.NoError(t, repo.Upsert(ctx, &users.User{
		Profile:     users.Profile{ID: "1", Username: "bob", Name: "Bob"},
		LastLoginAt: second,
	}))
	require.NoError(t, repo.Upsert(ctx, &users.User{
		Profile:     users.Profile{ID: "2", Username: "alice"},
		LastLoginAt: second,
	}))

	u, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "Bob", u.Name)
	require.Equal(t, first, u.CreatedAt)
	require.Equal(t, second, u.LastLoginAt)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)

	require.Error(t, repo.Upsert(ctx, &users.User{}))
}
