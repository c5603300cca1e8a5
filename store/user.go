package store

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

type User struct {
	ID int32

	// Standard fields
	CreatedTs int64
	UpdatedTs int64
	RowStatus string

	// Domain specific fields
	Email    string
	Nickname string
}

type FindUser struct {
	ID    *int32
	Email *string
}

// LoginCode is a one-time sign-in code hashed at rest. The magic-link
// delivery itself happens outside this service; we only hold the hash until
// the code is exchanged for a session token.
type LoginCode struct {
	UserID    int32
	CodeHash  string
	CreatedTs int64
	ExpiresTs int64
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
	}

	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	if len(list) == 0 {
		return nil, nil
	}
	user := list[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) UpsertLoginCode(ctx context.Context, upsert *LoginCode) error {
	return s.driver.UpsertLoginCode(ctx, upsert)
}

func (s *Store) GetLoginCode(ctx context.Context, userID int32) (*LoginCode, error) {
	return s.driver.GetLoginCode(ctx, userID)
}

func (s *Store) DeleteLoginCode(ctx context.Context, userID int32) error {
	return s.driver.DeleteLoginCode(ctx, userID)
}

func userCacheKey(id int32) string {
	return "user/" + strconv.Itoa(int(id))
}
