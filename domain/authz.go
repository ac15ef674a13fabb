package domain

// Authorization gate. Each function is a pure, total decision over the
// resolved identity and the targeted resource; callers short-circuit on the
// first false result and perform no write.

// CanCreateProject permits project creation for organization admins only.
func CanCreateProject(sub Identity) bool {
	return sub.Role == RoleAdmin
}

// CanMutateProject permits updates and deletes only for the admin who created
// the project, within their own organization.
func CanMutateProject(sub Identity, p Project) bool {
	return sub.Role == RoleAdmin &&
		p.OrganizationID == sub.OrganizationID &&
		p.CreatedBy == sub.SubjectID
}

// CanCreateTask permits task creation under the same conditions as mutating
// the owning project.
func CanCreateTask(sub Identity, p Project) bool {
	return CanMutateProject(sub, p)
}

// CanAssignTask permits assignment only to users of the subject's own
// organization.
func CanAssignTask(sub Identity, assigneeOrgID string) bool {
	return assigneeOrgID == sub.OrganizationID
}

// CanMutateTask permits task updates and deletes when the subject may mutate
// the task's project.
func CanMutateTask(sub Identity, _ Task, p Project) bool {
	return CanMutateProject(sub, p)
}

// CanReadProject permits reads within the same organization.
func CanReadProject(sub Identity, p Project) bool {
	return p.OrganizationID == sub.OrganizationID
}

// CanReadProjectMembers permits member listing for same-organization admins
// and listed members.
func CanReadProjectMembers(sub Identity, p Project) bool {
	if !CanReadProject(sub, p) {
		return false
	}
	return sub.Role == RoleAdmin || p.IsMember(sub.SubjectID)
}
