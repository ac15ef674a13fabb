package domain

import "time"

// CreateProject is the write payload for a new project. Members may be empty;
// the creator is added as the sole member in that case.
type CreateProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

// UpdateProject carries a partial project update. Nil fields are left
// untouched. The organization binding is not part of the payload on purpose.
type UpdateProject struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Members     *[]string `json:"members"`
}

// CreateTask is the write payload for a new task. Status defaults to todo
// when omitted.
type CreateTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	ProjectID   string     `json:"projectId"`
	AssignedTo  string     `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTask carries a partial task update. Nil fields are left untouched.
// The project reference is not part of the payload on purpose.
type UpdateTask struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Status      *TaskStatus `json:"status"`
	AssignedTo  *string     `json:"assignedTo"`
	DueDate     *time.Time  `json:"dueDate"`
}

// Validate checks required fields for project creation.
func (in CreateProject) Validate() error {
	var fields []string
	if in.Name == "" {
		fields = append(fields, "name")
	}
	if len(fields) > 0 {
		return &InvalidInputError{Fields: fields}
	}
	return nil
}

// Validate checks partial project updates. An empty name is rejected; a nil
// one is simply not an update.
func (in UpdateProject) Validate() error {
	if in.Name != nil && *in.Name == "" {
		return &InvalidInputError{Fields: []string{"name"}}
	}
	return nil
}

// Validate checks required fields and enum membership for task creation.
func (in CreateTask) Validate() error {
	var fields []string
	if in.Title == "" {
		fields = append(fields, "title")
	}
	if in.ProjectID == "" {
		fields = append(fields, "projectId")
	}
	if in.Status != "" && !in.Status.Valid() {
		fields = append(fields, "status")
	}
	if len(fields) > 0 {
		return &InvalidInputError{Fields: fields}
	}
	return nil
}

// Validate checks partial task updates.
func (in UpdateTask) Validate() error {
	var fields []string
	if in.Title != nil && *in.Title == "" {
		fields = append(fields, "title")
	}
	if in.Status != nil && !in.Status.Valid() {
		fields = append(fields, "status")
	}
	if len(fields) > 0 {
		return &InvalidInputError{Fields: fields}
	}
	return nil
}
