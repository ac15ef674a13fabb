package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"boardsync/domain"
)

// CreateTask commits a new task under the referenced project. Tasks carry
// the same permission gate as their owning project.
func (s *Service) CreateTask(ctx context.Context, sub domain.Identity, in domain.CreateTask) (domain.Task, error) {
	if in.ProjectID == "" {
		return domain.Task{}, &domain.InvalidInputError{Fields: []string{"projectId"}}
	}
	p, err := s.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if p == nil {
		return domain.Task{}, domain.NotFoundf("project %s", in.ProjectID)
	}
	if !domain.CanCreateTask(sub, *p) {
		return domain.Task{}, domain.Forbiddenf("only the admin who created this project can add tasks")
	}
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	if in.AssignedTo != "" {
		if err := s.checkAssignee(ctx, sub, in.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		ProjectID:   p.ID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   sub.SubjectID,
		DueDate:     in.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertTask(ctx, t, p.OrganizationID); err != nil {
		return domain.Task{}, err
	}
	s.emitTask(domain.OpCreated, p.OrganizationID, t)
	return t, nil
}

// UpdateTask applies a partial update to an existing task. The owning
// project reference is fixed at creation and cannot be changed here.
func (s *Service) UpdateTask(ctx context.Context, sub domain.Identity, id string, in domain.UpdateTask) (domain.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if t == nil {
		return domain.Task{}, domain.NotFoundf("task %s", id)
	}
	p, err := s.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if p == nil {
		return domain.Task{}, domain.NotFoundf("project %s", t.ProjectID)
	}
	if !domain.CanMutateTask(sub, *t, *p) {
		return domain.Task{}, domain.Forbiddenf("only the admin who created this project can update its tasks")
	}
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	if in.AssignedTo != nil && *in.AssignedTo != "" {
		if err := s.checkAssignee(ctx, sub, *in.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.AssignedTo != nil {
		t.AssignedTo = *in.AssignedTo
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if err := s.store.UpdateTask(ctx, *t, p.OrganizationID); err != nil {
		return domain.Task{}, err
	}
	s.emitTask(domain.OpUpdated, p.OrganizationID, *t)
	return *t, nil
}

// DeleteTask removes a task and returns its id.
func (s *Service) DeleteTask(ctx context.Context, sub domain.Identity, id string) (string, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", domain.NotFoundf("task %s", id)
	}
	p, err := s.store.GetProject(ctx, t.ProjectID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", domain.NotFoundf("project %s", t.ProjectID)
	}
	if !domain.CanMutateTask(sub, *t, *p) {
		return "", domain.Forbiddenf("only the admin who created this project can delete its tasks")
	}
	if err := s.store.DeleteTask(ctx, id, t.ProjectID); err != nil {
		return "", err
	}
	s.emitTask(domain.OpDeleted, p.OrganizationID, *t)
	return id, nil
}

// checkAssignee resolves the assignee and rejects anyone outside the
// caller's organization. An unknown or foreign assignee is an input error,
// not a permission error: the caller may retry with a valid member.
func (s *Service) checkAssignee(ctx context.Context, sub domain.Identity, userID string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil || !domain.CanAssignTask(sub, u.OrganizationID) {
		return &domain.InvalidInputError{Fields: []string{"assignedTo"}}
	}
	return nil
}
