package api

import (
	"context"
	"errors"
	"testing"

	"boardsync/domain"
)

type staticVerifier struct {
	sub string
	err error
}

func (v staticVerifier) SubjectFromToken(string) (string, error) { return v.sub, v.err }

type mapUsers map[string]domain.User

func (m mapUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func TestResolveKnownUser(t *testing.T) {
	users := mapUsers{"auth0|42": {
		ID:             "auth0|42",
		Role:           domain.RoleAdmin,
		OrganizationID: "org-a",
	}}
	r := NewIdentityResolver(staticVerifier{sub: "auth0|42"}, users)

	id, err := r.Resolve(context.Background(), "a.b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Identity{SubjectID: "auth0|42", Role: domain.RoleAdmin, OrganizationID: "org-a"}
	if id != want {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestResolveUnknownSubject(t *testing.T) {
	r := NewIdentityResolver(staticVerifier{sub: "auth0|ghost"}, mapUsers{})

	_, err := r.Resolve(context.Background(), "a.b.c")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolveBadToken(t *testing.T) {
	r := NewIdentityResolver(staticVerifier{err: errors.New("invalid signature")}, mapUsers{})

	_, err := r.Resolve(context.Background(), "a.b.c")
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
