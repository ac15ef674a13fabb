package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

const defaultBroadcastTimeout = 5 * time.Second

// Store is the durable entity store the mutation service commits to. It is
// the serialization point: concurrent commits to the same id are last write
// wins.
type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context, orgID string) ([]domain.User, error)
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, orgID string) ([]domain.Project, error)
	InsertProject(ctx context.Context, p domain.Project) error
	UpdateProject(ctx context.Context, p domain.Project) error
	DeleteProject(ctx context.Context, id, orgID string) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task, orgID string) error
	UpdateTask(ctx context.Context, t domain.Task, orgID string) error
	DeleteTask(ctx context.Context, id, projectID string) error
}

// Broadcaster delivers committed change events to connected sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev domain.ChangeEvent) error
}

// Service authorizes, validates and commits mutations, then emits exactly one
// canonical change event per commit. Emission failures are logged, never
// surfaced to the mutating caller.
type Service struct {
	store            Store
	events           Broadcaster
	logger           *log.Logger
	broadcastTimeout time.Duration
}

// New creates a Service.
func New(store Store, events Broadcaster, logger *log.Logger) *Service {
	if store == nil {
		panic("service.New: store is nil")
	}
	if events == nil {
		panic("service.New: broadcaster is nil")
	}
	if logger == nil {
		logger = log.New()
	}
	return &Service{
		store:            store,
		events:           events,
		logger:           logger,
		broadcastTimeout: defaultBroadcastTimeout,
	}
}

// CreateProject commits a new project owned by the creating admin.
func (s *Service) CreateProject(ctx context.Context, sub domain.Identity, in domain.CreateProject) (domain.Project, error) {
	if !domain.CanCreateProject(sub) {
		return domain.Project{}, domain.Forbiddenf("only admins can create projects")
	}
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}
	members := in.Members
	if len(members) == 0 {
		members = []string{sub.SubjectID}
	}
	p := domain.Project{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		OrganizationID: sub.OrganizationID,
		CreatedBy:      sub.SubjectID,
		Members:        members,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.InsertProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	s.emitProject(domain.OpCreated, p)
	return p, nil
}

// UpdateProject applies a partial update to an existing project.
func (s *Service) UpdateProject(ctx context.Context, sub domain.Identity, id string, in domain.UpdateProject) (domain.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if p == nil {
		return domain.Project{}, domain.NotFoundf("project %s", id)
	}
	if !domain.CanMutateProject(sub, *p) {
		return domain.Project{}, domain.Forbiddenf("only the admin who created this project can update it")
	}
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Members != nil {
		p.Members = *in.Members
	}
	if err := s.store.UpdateProject(ctx, *p); err != nil {
		return domain.Project{}, err
	}
	s.emitProject(domain.OpUpdated, *p)
	return *p, nil
}

// DeleteProject removes a project and returns its id.
func (s *Service) DeleteProject(ctx context.Context, sub domain.Identity, id string) (string, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", domain.NotFoundf("project %s", id)
	}
	if !domain.CanMutateProject(sub, *p) {
		return "", domain.Forbiddenf("only the admin who created this project can delete it")
	}
	if err := s.store.DeleteProject(ctx, id, p.OrganizationID); err != nil {
		return "", err
	}
	s.emitProject(domain.OpDeleted, *p)
	return id, nil
}

func (s *Service) emitProject(op string, p domain.Project) {
	ev, err := domain.ProjectEvent(uuid.NewString(), op, p, nextTimestamp())
	if err != nil {
		s.logger.Errorf("build project event: %v", err)
		return
	}
	s.emit(ev)
}

func (s *Service) emitTask(op, orgID string, t domain.Task) {
	ev, err := domain.TaskEvent(uuid.NewString(), op, orgID, t, nextTimestamp())
	if err != nil {
		s.logger.Errorf("build task event: %v", err)
		return
	}
	s.emit(ev)
}

// emit hands the committed event to the broadcaster. It runs on a background
// context so the caller's cancellation cannot drop an already-committed
// event, and failures are logged only: a session that misses the event
// catches up on its next snapshot fetch.
func (s *Service) emit(ev domain.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.broadcastTimeout)
	defer cancel()
	if err := s.events.Broadcast(ctx, ev); err != nil {
		s.logger.WithFields(log.Fields{
			"event":  ev.Name(),
			"entity": ev.EntityID,
			"org":    ev.OrganizationID,
		}).Errorf("broadcast failed: %v", err)
	}
}
