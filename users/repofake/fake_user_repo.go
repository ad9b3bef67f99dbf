package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]*users.User
	lock  sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	if user == nil || user.ID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "user id is required")
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	stored := *user
	stored.Groups = append([]string(nil), user.Groups...)
	if existing, ok := ur.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.LastLoginAt
	}
	ur.users[user.ID] = &stored
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *u
	return &copied, nil
}
