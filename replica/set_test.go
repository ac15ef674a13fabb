package replica

import (
	"testing"

	"boardsync/domain"
)

func task(id, title string) domain.Task {
	return domain.Task{ID: id, Title: title, Status: domain.StatusTodo, ProjectID: "p1"}
}

func ids[T Entity](s *Set[T]) []string {
	items := s.Items()
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Key()
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplyCreatedIsIdempotent(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplyCreated(task("t1", "ship"))
	s.ApplyCreated(task("t1", "ship"))
	if s.Len() != 1 {
		t.Fatalf("duplicate created applied twice: %d entries", s.Len())
	}
	got, ok := s.Get("t1")
	if !ok || got.Title != "ship" {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestApplyCreatedPrepends(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplySnapshot([]domain.Task{task("t1", "a"), task("t2", "b")})
	s.ApplyCreated(task("t3", "c"))
	if !equalIDs(ids(s), []string{"t3", "t1", "t2"}) {
		t.Fatalf("unexpected order %v", ids(s))
	}
}

func TestApplyUpdatedDropsUnknownIDs(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplyUpdated(task("ghost", "nope"))
	if s.Len() != 0 {
		t.Fatal("update must not insert")
	}
	s.ApplyCreated(task("t1", "old"))
	s.ApplyUpdated(task("t1", "new"))
	got, _ := s.Get("t1")
	if got.Title != "new" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestApplyDeletedIsIdempotent(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplyCreated(task("t1", "a"))
	s.ApplyDeleted("t1")
	s.ApplyDeleted("t1")
	s.ApplyDeleted("never-there")
	if s.Len() != 0 {
		t.Fatalf("expected empty set, got %v", ids(s))
	}
}

func TestSnapshotReplacesAndIsIdempotent(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplyCreated(task("stale", "gone on server"))
	snapshot := []domain.Task{task("t1", "a"), task("t2", "b")}
	s.ApplySnapshot(snapshot)
	first := ids(s)
	s.ApplySnapshot(snapshot)
	if !equalIDs(first, ids(s)) {
		t.Fatalf("snapshot not idempotent: %v vs %v", first, ids(s))
	}
	if _, ok := s.Get("stale"); ok {
		t.Fatal("snapshot must replace the whole mapping")
	}
}

// Events may race the first snapshot; once the snapshot lands it is
// authoritative, and events arriving after it reconcile on top.
func TestSnapshotDominance(t *testing.T) {
	s := NewSet[domain.Task]()
	s.BeginFetch()
	if !s.Loading() {
		t.Fatal("expected loading flag")
	}
	// Push events arrive before the snapshot resolves.
	s.ApplyCreated(task("t9", "early push"))
	s.ApplyUpdated(task("t1", "update before snapshot"))

	// Authoritative list at fetch time already contains t9.
	s.ApplySnapshot([]domain.Task{task("t1", "a"), task("t9", "early push")})
	if s.Loading() {
		t.Fatal("snapshot should clear loading")
	}
	if !equalIDs(ids(s), []string{"t1", "t9"}) {
		t.Fatalf("unexpected mapping %v", ids(s))
	}
}

// A task update followed by a later delete for the same id ends with the
// task absent.
func TestLaterDeleteWinsOverUpdate(t *testing.T) {
	s := NewSet[domain.Task]()
	s.ApplySnapshot([]domain.Task{task("T1", "ship")})
	done := task("T1", "ship")
	done.Status = domain.StatusDone
	s.ApplyUpdated(done)
	s.ApplyDeleted("T1")
	if _, ok := s.Get("T1"); ok {
		t.Fatal("T1 should be absent after the delete")
	}
}

func TestFailFetch(t *testing.T) {
	s := NewSet[domain.Project]()
	s.ApplyCreated(domain.Project{ID: "p1", Name: "Launch"})
	s.BeginFetch()
	s.FailFetch("fetch failed")
	if s.Loading() {
		t.Fatal("failure should clear loading")
	}
	if s.Err() != "fetch failed" {
		t.Fatalf("unexpected error %q", s.Err())
	}
	if s.Len() != 1 {
		t.Fatal("failed fetch must not drop existing entries")
	}
	s.BeginFetch()
	if s.Err() != "" {
		t.Fatal("new fetch should clear the error")
	}
}
