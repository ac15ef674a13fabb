package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"boardsync/domain"
)

type backend interface {
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

// Cache wraps a Storage instance with Redis-backed caching for the list
// queries that back snapshot fetches. Writes evict the affected key so the
// next snapshot observes the committed state.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return c.base.GetUser(ctx, id)
}

func (c *Cache) ListUsers(ctx context.Context, orgID string) ([]domain.User, error) {
	return c.base.ListUsers(ctx, orgID)
}

func (c *Cache) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return c.base.ListOrganizations(ctx)
}

func (c *Cache) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return c.base.GetProject(ctx, id)
}

func (c *Cache) ListProjects(ctx context.Context, orgID string) ([]domain.Project, error) {
	if projects, ok := loadCached[[]domain.Project](ctx, c, projectsCacheKey(orgID)); ok {
		return projects, nil
	}
	projects, err := c.base.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectsCacheKey(orgID), projects)
	return projects, nil
}

func (c *Cache) InsertProject(ctx context.Context, p domain.Project) error {
	if err := c.base.InsertProject(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, projectsCacheKey(p.OrganizationID))
	return nil
}

func (c *Cache) UpdateProject(ctx context.Context, p domain.Project) error {
	if err := c.base.UpdateProject(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, projectsCacheKey(p.OrganizationID))
	return nil
}

func (c *Cache) DeleteProject(ctx context.Context, id, orgID string) error {
	if err := c.base.DeleteProject(ctx, id, orgID); err != nil {
		return err
	}
	c.evict(ctx, projectsCacheKey(orgID))
	return nil
}

func (c *Cache) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if tasks, ok := loadCached[[]domain.Task](ctx, c, tasksCacheKey(projectID)); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasksCacheKey(projectID), tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task, orgID string) error {
	if err := c.base.InsertTask(ctx, t, orgID); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey(t.ProjectID))
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task, orgID string) error {
	if err := c.base.UpdateTask(ctx, t, orgID); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey(t.ProjectID))
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id, projectID string) error {
	if err := c.base.DeleteTask(ctx, id, projectID); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey(projectID))
	return nil
}

func loadCached[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	if c.redis == nil {
		return zero, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return zero, false
	}
	return out, true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func projectsCacheKey(orgID string) string {
	return "projects:" + orgID
}

func tasksCacheKey(projectID string) string {
	return "tasks:" + projectID
}
