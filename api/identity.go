package api

import (
	"context"
	"fmt"

	"boardsync/domain"
)

// TokenVerifier turns a raw credential into a verified subject id.
type TokenVerifier interface {
	SubjectFromToken(token string) (string, error)
}

// UserSource resolves subject ids to accounts. A nil user with a nil error
// means the subject has no account.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// IdentityResolver maps request credentials to a full identity. Every
// request resolves fresh; role or organization changes take effect on the
// next request, never mid-session.
type IdentityResolver struct {
	verifier TokenVerifier
	users    UserSource
}

// NewIdentityResolver creates an IdentityResolver.
func NewIdentityResolver(verifier TokenVerifier, users UserSource) *IdentityResolver {
	return &IdentityResolver{verifier: verifier, users: users}
}

// Resolve verifies the token and loads the subject's account. Any failure,
// including an unknown subject, collapses to ErrUnauthenticated so callers
// cannot probe which stage rejected them.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	sub, err := r.verifier.SubjectFromToken(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	u, err := r.users.GetUser(ctx, sub)
	if err != nil {
		return domain.Identity{}, err
	}
	if u == nil {
		return domain.Identity{}, fmt.Errorf("%w: unknown subject", domain.ErrUnauthenticated)
	}
	return domain.Identity{
		SubjectID:      u.ID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}, nil
}
