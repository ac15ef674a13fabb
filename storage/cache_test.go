package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"boardsync/domain"
)

type fakeBackend struct {
	projects     []domain.Project
	tasks        []domain.Task
	listProjects int
	listTasks    int
}

func (f *fakeBackend) GetUser(context.Context, string) (*domain.User, error)   { return nil, nil }
func (f *fakeBackend) ListUsers(context.Context, string) ([]domain.User, error) {
	return nil, nil
}
func (f *fakeBackend) ListOrganizations(context.Context) ([]domain.Organization, error) {
	return nil, nil
}
func (f *fakeBackend) GetProject(context.Context, string) (*domain.Project, error) {
	return nil, nil
}

func (f *fakeBackend) ListProjects(ctx context.Context, orgID string) ([]domain.Project, error) {
	f.listProjects++
	return f.projects, nil
}

func (f *fakeBackend) InsertProject(context.Context, domain.Project) error { return nil }
func (f *fakeBackend) UpdateProject(context.Context, domain.Project) error { return nil }
func (f *fakeBackend) DeleteProject(context.Context, string, string) error { return nil }
func (f *fakeBackend) GetTask(context.Context, string) (*domain.Task, error) {
	return nil, nil
}

func (f *fakeBackend) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	f.listTasks++
	return f.tasks, nil
}

func (f *fakeBackend) InsertTask(context.Context, domain.Task, string) error { return nil }
func (f *fakeBackend) UpdateTask(context.Context, domain.Task, string) error { return nil }
func (f *fakeBackend) DeleteTask(context.Context, string, string) error      { return nil }

func setupCache(t *testing.T, base backend) (*Cache, *redis.Client, func()) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	cleanup := func() {
		rc.Close()
		m.Close()
	}
	return NewCache(base, rc, time.Minute), rc, cleanup
}

func TestListProjectsCachesResult(t *testing.T) {
	base := &fakeBackend{projects: []domain.Project{{ID: "p1", Name: "Launch", OrganizationID: "o1"}}}
	cache, rc, cleanup := setupCache(t, base)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		projects, err := cache.ListProjects(ctx, "o1")
		if err != nil {
			t.Fatalf("list projects: %v", err)
		}
		if len(projects) != 1 || projects[0].ID != "p1" {
			t.Fatalf("unexpected projects %+v", projects)
		}
	}
	if base.listProjects != 1 {
		t.Fatalf("expected one backend call, got %d", base.listProjects)
	}

	data, err := rc.Get(ctx, "projects:o1").Bytes()
	if err != nil {
		t.Fatalf("cache entry missing: %v", err)
	}
	var cached []domain.Project
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatalf("cache payload: %v", err)
	}
	if len(cached) != 1 || cached[0].Name != "Launch" {
		t.Fatalf("unexpected cache payload %+v", cached)
	}
}

func TestProjectWritesEvictOrgList(t *testing.T) {
	base := &fakeBackend{projects: []domain.Project{{ID: "p1", OrganizationID: "o1"}}}
	cache, rc, cleanup := setupCache(t, base)
	defer cleanup()
	ctx := context.Background()

	if _, err := cache.ListProjects(ctx, "o1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := cache.InsertProject(ctx, domain.Project{ID: "p2", OrganizationID: "o1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := rc.Get(ctx, "projects:o1").Err(); err != redis.Nil {
		t.Fatalf("expected eviction after insert, got %v", err)
	}

	if _, err := cache.ListProjects(ctx, "o1"); err != nil {
		t.Fatalf("re-prime cache: %v", err)
	}
	if err := cache.DeleteProject(ctx, "p1", "o1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := rc.Get(ctx, "projects:o1").Err(); err != redis.Nil {
		t.Fatalf("expected eviction after delete, got %v", err)
	}
}

func TestTaskWritesEvictProjectList(t *testing.T) {
	base := &fakeBackend{tasks: []domain.Task{{ID: "t1", ProjectID: "p1"}}}
	cache, rc, cleanup := setupCache(t, base)
	defer cleanup()
	ctx := context.Background()

	if _, err := cache.ListTasks(ctx, "p1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if base.listTasks != 1 {
		t.Fatalf("expected one backend call, got %d", base.listTasks)
	}
	if err := cache.UpdateTask(ctx, domain.Task{ID: "t1", ProjectID: "p1"}, "o1"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := rc.Get(ctx, "tasks:p1").Err(); err != redis.Nil {
		t.Fatalf("expected eviction after update, got %v", err)
	}
}

func TestCorruptCacheEntryFallsBack(t *testing.T) {
	base := &fakeBackend{tasks: []domain.Task{{ID: "t1", ProjectID: "p1"}}}
	cache, rc, cleanup := setupCache(t, base)
	defer cleanup()
	ctx := context.Background()

	if err := rc.Set(ctx, "tasks:p1", "{not json", 0).Err(); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	tasks, err := cache.ListTasks(ctx, "p1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if base.listTasks != 1 {
		t.Fatalf("expected backend fallback, got %d calls", base.listTasks)
	}
}
