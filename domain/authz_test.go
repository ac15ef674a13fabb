package domain

import "testing"

var (
	adminO1  = Identity{SubjectID: "a1", Role: RoleAdmin, OrganizationID: "o1"}
	memberO1 = Identity{SubjectID: "m1", Role: RoleMember, OrganizationID: "o1"}
	adminO2  = Identity{SubjectID: "a2", Role: RoleAdmin, OrganizationID: "o2"}
)

func projectBy(creator, org string, members ...string) Project {
	return Project{ID: "p1", Name: "Launch", OrganizationID: org, CreatedBy: creator, Members: members}
}

func TestCanCreateProject(t *testing.T) {
	if !CanCreateProject(adminO1) {
		t.Fatal("admin should be allowed to create projects")
	}
	if CanCreateProject(memberO1) {
		t.Fatal("member must not create projects")
	}
}

func TestCanMutateProject(t *testing.T) {
	cases := map[string]struct {
		sub  Identity
		p    Project
		want bool
	}{
		"creator admin same org": {adminO1, projectBy("a1", "o1"), true},
		"member":                 {memberO1, projectBy("m1", "o1"), false},
		"admin other org":        {adminO2, projectBy("a1", "o1"), false},
		"admin not creator":      {Identity{SubjectID: "a9", Role: RoleAdmin, OrganizationID: "o1"}, projectBy("a1", "o1"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := CanMutateProject(tc.sub, tc.p); got != tc.want {
				t.Fatalf("CanMutateProject = %v, want %v", got, tc.want)
			}
		})
	}
}

// Every subject that is not the creating admin of the project, in the
// project's organization, must be denied all mutations on it and its tasks.
func TestMutationDeniedUnlessCreatingAdmin(t *testing.T) {
	p := projectBy("a1", "o1")
	task := Task{ID: "t1", ProjectID: "p1"}
	subjects := []Identity{
		memberO1,
		adminO2,
		{SubjectID: "a1", Role: RoleMember, OrganizationID: "o1"},
		{SubjectID: "other", Role: RoleAdmin, OrganizationID: "o1"},
		{SubjectID: "a1", Role: RoleAdmin, OrganizationID: "o2"},
	}
	for _, sub := range subjects {
		if CanMutateProject(sub, p) {
			t.Fatalf("subject %+v must not mutate project", sub)
		}
		if CanCreateTask(sub, p) {
			t.Fatalf("subject %+v must not create tasks", sub)
		}
		if CanMutateTask(sub, task, p) {
			t.Fatalf("subject %+v must not mutate tasks", sub)
		}
	}
}

func TestCanAssignTask(t *testing.T) {
	if !CanAssignTask(adminO1, "o1") {
		t.Fatal("same-org assignment should be allowed")
	}
	if CanAssignTask(adminO1, "o2") {
		t.Fatal("cross-org assignment must be denied")
	}
}

func TestCanReadProject(t *testing.T) {
	p := projectBy("a1", "o1")
	if !CanReadProject(memberO1, p) {
		t.Fatal("same-org member should read projects")
	}
	if CanReadProject(adminO2, p) {
		t.Fatal("cross-org read must be denied")
	}
}

func TestCanReadProjectMembers(t *testing.T) {
	p := projectBy("a1", "o1", "m1")
	if !CanReadProjectMembers(adminO1, p) {
		t.Fatal("org admin should list members")
	}
	if !CanReadProjectMembers(memberO1, p) {
		t.Fatal("listed member should list members")
	}
	outsider := Identity{SubjectID: "m9", Role: RoleMember, OrganizationID: "o1"}
	if CanReadProjectMembers(outsider, p) {
		t.Fatal("unlisted member must not list members")
	}
	if CanReadProjectMembers(adminO2, p) {
		t.Fatal("cross-org admin must not list members")
	}
}
