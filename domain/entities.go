package domain

import "time"

// Role determines what a user may do inside their organization.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// TaskStatus is the workflow state of a task. Transitions are unconstrained;
// a done task may be reopened.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Organization is the tenant boundary. Every user, project and task belongs
// to exactly one organization.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is an account inside an organization. The organization binding is
// fixed for the lifetime of the account.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"organizationId"`
}

// Summary strips a user down to the fields safe to expose in listings.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the public projection of a user used in member listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity is a resolved credential: the subject performing a request plus
// the role and tenant every authorization decision depends on. It is derived
// per request and never cached beyond it.
type Identity struct {
	SubjectID      string
	Role           Role
	OrganizationID string
}

// Project groups tasks inside one organization. OrganizationID is immutable
// after creation.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organizationId"`
	CreatedBy      string    `json:"createdBy"`
	Members        []string  `json:"members"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Key returns the replica mapping key for the project.
func (p Project) Key() string { return p.ID }

// IsMember reports whether the given user id is listed on the project.
func (p Project) IsMember(userID string) bool {
	for _, m := range p.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Task is a unit of work inside a project. The project reference is immutable
// after creation.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	ProjectID   string     `json:"projectId"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Key returns the replica mapping key for the task.
func (t Task) Key() string { return t.ID }
