package service

import (
	"context"

	"boardsync/domain"
)

// ListProjects returns every project in the caller's organization. Scoping
// the query by the resolved organization is what keeps foreign tenants
// invisible; there is no per-row check to forget.
func (s *Service) ListProjects(ctx context.Context, sub domain.Identity) ([]domain.Project, error) {
	return s.store.ListProjects(ctx, sub.OrganizationID)
}

// ListTasks returns the tasks of one project after an org check on the
// owning project.
func (s *Service) ListTasks(ctx context.Context, sub domain.Identity, projectID string) ([]domain.Task, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFoundf("project %s", projectID)
	}
	if !domain.CanReadProject(sub, *p) {
		return nil, domain.Forbiddenf("project belongs to another organization")
	}
	return s.store.ListTasks(ctx, projectID)
}

// ProjectMembers expands a project's member ids into user summaries. Ids that
// no longer resolve to an account are skipped rather than failing the whole
// listing.
func (s *Service) ProjectMembers(ctx context.Context, sub domain.Identity, projectID string) ([]domain.UserSummary, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFoundf("project %s", projectID)
	}
	if !domain.CanReadProjectMembers(sub, *p) {
		return nil, domain.Forbiddenf("membership listing requires admin role or project membership")
	}
	out := make([]domain.UserSummary, 0, len(p.Members))
	for _, id := range p.Members {
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		out = append(out, u.Summary())
	}
	return out, nil
}

// OrgUsers lists the caller's organization members as summaries, for
// assignment pickers.
func (s *Service) OrgUsers(ctx context.Context, sub domain.Identity) ([]domain.UserSummary, error) {
	users, err := s.store.ListUsers(ctx, sub.OrganizationID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Organizations lists all known organizations. The listing is intentionally
// unscoped: it backs the sign-up flow, before the caller has a tenant.
func (s *Service) Organizations(ctx context.Context) ([]domain.Organization, error) {
	return s.store.ListOrganizations(ctx)
}
