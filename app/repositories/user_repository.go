// Package repositories wraps store collections with the lookups the
// services need.
package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/store"
	"github.com/shashiranjanraj/faultline/pkg/logger"
)

// UserRepository handles store operations for User.
type UserRepository struct {
	users *store.Collection[models.User]
	now   func() time.Time
}

func NewUserRepository(s *store.Store) *UserRepository {
	return &UserRepository{users: s.Users, now: s.Now}
}

// FindByEmail looks up a user by email, ignoring case. It returns nil when
// there is no such user.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.users.FindFirst(ctx, store.Query[models.User]{
		Filter: func(u models.User) bool { return strings.EqualFold(u.Email, email) },
	})
}

// FindByID looks up a user by primary key, or returns nil.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	return r.users.FindUnique(ctx, store.Key(id))
}

// All returns users, optionally of one role. A dropped result is logged and
// comes back as an empty list.
func (r *UserRepository) All(ctx context.Context, role string) ([]models.User, error) {
	q := store.Query[models.User]{}
	if role != "" {
		q.Where = map[string]any{"role": role}
	}
	res, err := r.users.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	return Items(ctx, r.users.Name(), res), nil
}

// Touch records a successful login.
func (r *UserRepository) Touch(ctx context.Context, id int) (models.User, error) {
	return r.users.Update(ctx, store.Key(id), map[string]any{"lastLoginAt": r.now()})
}

// Items normalises a FindMany result, logging when it was dropped.
func Items[T any](ctx context.Context, collection string, res store.Result[T]) []T {
	if res.Dropped() {
		logger.WithCtx(ctx).Warn("store result dropped", "collection", collection)
	}
	return res.Items()
}
