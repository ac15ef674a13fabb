package domain

import "encoding/json"

const (
	EntityProject = "project"
	EntityTask    = "task"
)

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// ChangeEvent is the canonical post-commit representation of a mutation.
// Created and updated events carry the full entity, never a partial diff;
// deleted events carry the entity id only. OrganizationID is always present
// so fan-out can be scoped to the tenant, including for deletes.
type ChangeEvent struct {
	ID             string          `json:"id"`
	EntityType     string          `json:"entityType"`
	Operation      string          `json:"operation"`
	OrganizationID string          `json:"organizationId"`
	EntityID       string          `json:"entityId"`
	Entity         json.RawMessage `json:"entity,omitempty"`
	Time           int64           `json:"time"`
}

// Name returns the wire event name, e.g. "task:created".
func (e ChangeEvent) Name() string {
	return e.EntityType + ":" + e.Operation
}

// ProjectEvent builds the canonical event for a committed project mutation.
func ProjectEvent(id, op string, p Project, ts int64) (ChangeEvent, error) {
	ev := ChangeEvent{
		ID:             id,
		EntityType:     EntityProject,
		Operation:      op,
		OrganizationID: p.OrganizationID,
		EntityID:       p.ID,
		Time:           ts,
	}
	if op == OpDeleted {
		return ev, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ChangeEvent{}, err
	}
	ev.Entity = data
	return ev, nil
}

// TaskEvent builds the canonical event for a committed task mutation. The
// owning project's organization id is supplied by the caller because tasks do
// not carry it themselves.
func TaskEvent(id, op, orgID string, t Task, ts int64) (ChangeEvent, error) {
	ev := ChangeEvent{
		ID:             id,
		EntityType:     EntityTask,
		Operation:      op,
		OrganizationID: orgID,
		EntityID:       t.ID,
		Time:           ts,
	}
	if op == OpDeleted {
		return ev, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return ChangeEvent{}, err
	}
	ev.Entity = data
	return ev, nil
}
