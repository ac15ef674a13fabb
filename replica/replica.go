package replica

import (
	"encoding/json"
	"fmt"

	"boardsync/domain"
)

// Replica is the full client-local view: one set per entity type. All applied
// broadcasts are silent state reconciliation — user-visible errors exist only
// through FailFetch, so there is nothing to suppress when a client's own
// mutation echoes back.
type Replica struct {
	Projects *Set[domain.Project]
	Tasks    *Set[domain.Task]
}

// New creates an empty replica.
func New() *Replica {
	return &Replica{
		Projects: NewSet[domain.Project](),
		Tasks:    NewSet[domain.Task](),
	}
}

// Apply routes a change event into the matching set. Unknown entity types are
// ignored so old clients survive new event kinds.
func (r *Replica) Apply(ev domain.ChangeEvent) error {
	switch ev.EntityType {
	case domain.EntityProject:
		return applyEvent(r.Projects, ev)
	case domain.EntityTask:
		return applyEvent(r.Tasks, ev)
	default:
		return nil
	}
}

func applyEvent[T Entity](set *Set[T], ev domain.ChangeEvent) error {
	if ev.Operation == domain.OpDeleted {
		set.ApplyDeleted(ev.EntityID)
		return nil
	}
	var entity T
	if err := json.Unmarshal(ev.Entity, &entity); err != nil {
		return fmt.Errorf("decode %s entity: %w", ev.EntityType, err)
	}
	switch ev.Operation {
	case domain.OpCreated:
		set.ApplyCreated(entity)
	case domain.OpUpdated:
		set.ApplyUpdated(entity)
	default:
		return fmt.Errorf("unknown operation %q", ev.Operation)
	}
	return nil
}

// Bind registers the replica's apply routine for every project and task event
// on the dispatcher and returns the function that removes exactly those
// registrations. Decode failures are dropped; the next snapshot repairs the
// view.
func (r *Replica) Bind(d *Dispatcher) func() {
	names := []string{
		domain.EntityProject + ":" + domain.OpCreated,
		domain.EntityProject + ":" + domain.OpUpdated,
		domain.EntityProject + ":" + domain.OpDeleted,
		domain.EntityTask + ":" + domain.OpCreated,
		domain.EntityTask + ":" + domain.OpUpdated,
		domain.EntityTask + ":" + domain.OpDeleted,
	}
	regs := make([]*Registration, 0, len(names))
	for _, name := range names {
		regs = append(regs, d.On(name, func(ev domain.ChangeEvent) {
			_ = r.Apply(ev)
		}))
	}
	return func() {
		for _, reg := range regs {
			d.Off(reg)
		}
	}
}
