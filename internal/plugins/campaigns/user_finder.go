package campaigns

import (
	"context"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// UserFinderAdapter wraps auth.UserRepository to satisfy UserFinder. Only
// this file references the auth repository.
type UserFinderAdapter struct {
	repo auth.UserRepository
}

// NewUserFinderAdapter creates a new adapter around the auth repository.
func NewUserFinderAdapter(repo auth.UserRepository) UserFinder {
	return &UserFinderAdapter{repo: repo}
}

// FindUserByUsername looks up a user and maps to MemberUser.
func (a *UserFinderAdapter) FindUserByUsername(ctx context.Context, username string) (*MemberUser, error) {
	user, err := a.repo.FindByUsername(ctx, auth.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	return &MemberUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}, nil
}
