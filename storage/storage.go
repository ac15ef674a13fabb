package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"boardsync/domain"
)

// Partition keys. The store is a key-value-by-id table per entity type:
// PartitionKey is the type, RowKey the entity id.
const (
	pkOrganization = "organization"
	pkUser         = "user"
	pkProject      = "project"
	pkTask         = "task"
)

// Storage persists all durable entities in a single Azure table.
type Storage struct {
	table *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, tableName string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{table: svc.NewClient(tableName)}, nil
}

type organizationEntity struct {
	aztables.Entity
	Name string `json:"Name"`
}

type userEntity struct {
	aztables.Entity
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	Role           string `json:"Role"`
	OrganizationID string `json:"OrganizationId"`
}

type projectEntity struct {
	aztables.Entity
	Name           string `json:"Name"`
	Description    string `json:"Description"`
	OrganizationID string `json:"OrganizationId"`
	CreatedBy      string `json:"CreatedBy"`
	Members        string `json:"Members"`
	CreatedAt      string `json:"CreatedAt"`
}

type taskEntity struct {
	aztables.Entity
	Title          string `json:"Title"`
	Description    string `json:"Description"`
	Status         string `json:"Status"`
	ProjectID      string `json:"ProjectId"`
	OrganizationID string `json:"OrganizationId"`
	AssignedTo     string `json:"AssignedTo"`
	CreatedBy      string `json:"CreatedBy"`
	DueDate        string `json:"DueDate"`
	CreatedAt      string `json:"CreatedAt"`
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// quote escapes a value for use inside an OData string literal.
func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// GetUser retrieves a user by id, returning nil when absent.
func (s *Storage) GetUser(ctx context.Context, id string) (*domain.User, error) {
	resp, err := s.table.GetEntity(ctx, pkUser, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	u := userFromEntity(ent)
	return &u, nil
}

// ListUsers retrieves all users of one organization.
func (s *Storage) ListUsers(ctx context.Context, orgID string) ([]domain.User, error) {
	filter := "PartitionKey eq " + quote(pkUser) + " and OrganizationId eq " + quote(orgID)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []domain.User{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent userEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			users = append(users, userFromEntity(ent))
		}
	}
	return users, nil
}

// ListOrganizations retrieves every organization.
func (s *Storage) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	filter := "PartitionKey eq " + quote(pkOrganization)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	orgs := []domain.Organization{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent organizationEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			orgs = append(orgs, domain.Organization{ID: ent.RowKey, Name: ent.Name})
		}
	}
	return orgs, nil
}

// GetProject retrieves a project by id, returning nil when absent.
func (s *Storage) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	resp, err := s.table.GetEntity(ctx, pkProject, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent projectEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	p, err := projectFromEntity(ent)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects retrieves all projects of one organization.
func (s *Storage) ListProjects(ctx context.Context, orgID string) ([]domain.Project, error) {
	filter := "PartitionKey eq " + quote(pkProject) + " and OrganizationId eq " + quote(orgID)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	projects := []domain.Project{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent projectEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			p, err := projectFromEntity(ent)
			if err != nil {
				return nil, err
			}
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// InsertProject stores a new project.
func (s *Storage) InsertProject(ctx context.Context, p domain.Project) error {
	data, err := json.Marshal(projectToEntity(p))
	if err != nil {
		return err
	}
	_, err = s.table.AddEntity(ctx, data, nil)
	return err
}

// UpdateProject replaces the stored project. Last write wins.
func (s *Storage) UpdateProject(ctx context.Context, p domain.Project) error {
	data, err := json.Marshal(projectToEntity(p))
	if err != nil {
		return err
	}
	_, err = s.table.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// DeleteProject removes a project. Deleting an absent project is a no-op.
// The organization id is carried for cache eviction scope and unused here.
func (s *Storage) DeleteProject(ctx context.Context, id, _ string) error {
	if _, err := s.table.DeleteEntity(ctx, pkProject, id, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// GetTask retrieves a task by id, returning nil when absent.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.table.GetEntity(ctx, pkTask, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	t, err := taskFromEntity(ent)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks retrieves all tasks of one project.
func (s *Storage) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	filter := "PartitionKey eq " + quote(pkTask) + " and ProjectId eq " + quote(projectID)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			t, err := taskFromEntity(ent)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// InsertTask stores a new task. The owning project's organization id is
// denormalized onto the row so task listings stay tenant-filterable.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task, orgID string) error {
	data, err := json.Marshal(taskToEntity(t, orgID))
	if err != nil {
		return err
	}
	_, err = s.table.AddEntity(ctx, data, nil)
	return err
}

// UpdateTask replaces the stored task. Last write wins.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task, orgID string) error {
	data, err := json.Marshal(taskToEntity(t, orgID))
	if err != nil {
		return err
	}
	_, err = s.table.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// DeleteTask removes a task. Deleting an absent task is a no-op. The project
// id is carried for cache eviction scope and unused here.
func (s *Storage) DeleteTask(ctx context.Context, id, _ string) error {
	if _, err := s.table.DeleteEntity(ctx, pkTask, id, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// EnsureTable creates the backing table if it does not exist yet.
func (s *Storage) EnsureTable(ctx context.Context) error {
	if _, err := s.table.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

// UpsertOrganization stores or replaces an organization row.
func (s *Storage) UpsertOrganization(ctx context.Context, o domain.Organization) error {
	data, err := json.Marshal(organizationEntity{
		Entity: aztables.Entity{PartitionKey: pkOrganization, RowKey: o.ID},
		Name:   o.Name,
	})
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, data, nil)
	return err
}

// UpsertUser stores or replaces a user row.
func (s *Storage) UpsertUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(userEntity{
		Entity:         aztables.Entity{PartitionKey: pkUser, RowKey: u.ID},
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
	})
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, data, nil)
	return err
}

func userFromEntity(ent userEntity) domain.User {
	return domain.User{
		ID:             ent.RowKey,
		Name:           ent.Name,
		Email:          ent.Email,
		Role:           domain.Role(ent.Role),
		OrganizationID: ent.OrganizationID,
	}
}

func projectToEntity(p domain.Project) projectEntity {
	members, _ := json.Marshal(p.Members)
	return projectEntity{
		Entity:         aztables.Entity{PartitionKey: pkProject, RowKey: p.ID},
		Name:           p.Name,
		Description:    p.Description,
		OrganizationID: p.OrganizationID,
		CreatedBy:      p.CreatedBy,
		Members:        string(members),
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func projectFromEntity(ent projectEntity) (domain.Project, error) {
	p := domain.Project{
		ID:             ent.RowKey,
		Name:           ent.Name,
		Description:    ent.Description,
		OrganizationID: ent.OrganizationID,
		CreatedBy:      ent.CreatedBy,
		Members:        []string{},
	}
	if ent.Members != "" {
		if err := json.Unmarshal([]byte(ent.Members), &p.Members); err != nil {
			return domain.Project{}, err
		}
	}
	if ent.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.Project{}, err
		}
		p.CreatedAt = ts
	}
	return p, nil
}

func taskToEntity(t domain.Task, orgID string) taskEntity {
	ent := taskEntity{
		Entity:         aztables.Entity{PartitionKey: pkTask, RowKey: t.ID},
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		ProjectID:      t.ProjectID,
		OrganizationID: orgID,
		AssignedTo:     t.AssignedTo,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.DueDate != nil {
		ent.DueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return ent
}

func taskFromEntity(ent taskEntity) (domain.Task, error) {
	t := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.TaskStatus(ent.Status),
		ProjectID:   ent.ProjectID,
		AssignedTo:  ent.AssignedTo,
		CreatedBy:   ent.CreatedBy,
	}
	if ent.DueDate != "" {
		ts, err := time.Parse(time.RFC3339Nano, ent.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = &ts
	}
	if ent.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.Task{}, err
		}
		t.CreatedAt = ts
	}
	return t, nil
}
