package authz

import "testing"

func TestMatrixIsTotal(t *testing.T) {
	for _, role := range Roles {
		byResource, ok := permissionMatrix[role]
		if !ok {
			t.Fatalf("role %s missing from matrix", role)
		}
		for _, rt := range ResourceTypes {
			if _, ok := byResource[rt]; !ok {
				t.Fatalf("pair (%s, %s) missing from matrix", role, rt)
			}
		}
	}
}

func TestUnknownCombinationsDeny(t *testing.T) {
	user := UserContext{ID: "u1", Role: Role("INTERN")}
	for _, rt := range ResourceTypes {
		for _, action := range Actions {
			if HasPermission(user, action, rt, ResourceContext{}) {
				t.Fatalf("unknown role must deny %s on %s", action, rt)
			}
		}
	}
	member := UserContext{ID: "u1", Role: RoleMember}
	if HasPermission(member, Action("FROBNICATE"), ResourceProject, ResourceContext{}) {
		t.Fatal("unknown action must deny")
	}
}

func TestAdminMatrix(t *testing.T) {
	admin := UserContext{ID: "a1", Role: RoleAdmin}
	for _, rt := range []ResourceType{ResourceProject, ResourceTeam, ResourceTask} {
		for _, action := range Actions {
			if !HasPermission(admin, action, rt, ResourceContext{}) {
				t.Fatalf("admin must have %s on %s", action, rt)
			}
		}
	}
	if HasPermission(admin, ActionCreate, ResourceUser, ResourceContext{}) {
		t.Fatal("admin must not CREATE users through the matrix")
	}
	if !HasPermission(admin, ActionManage, ResourceUser, ResourceContext{}) {
		t.Fatal("admin must MANAGE users")
	}
}

func TestManagerCannotCreateProjects(t *testing.T) {
	manager := UserContext{ID: "m1", Role: RoleManager}
	if HasPermission(manager, ActionCreate, ResourceProject, ResourceContext{}) {
		t.Fatal("manager must not CREATE projects via role")
	}
	if !HasPermission(manager, ActionManage, ResourceTeam, ResourceContext{}) {
		t.Fatal("manager must MANAGE teams")
	}
}

func TestOwnershipOverrideIsAdditive(t *testing.T) {
	member := UserContext{ID: "u1", Role: RoleMember}
	owned := ResourceContext{OwnerID: "u1", ProjectID: "p1"}
	foreign := ResourceContext{OwnerID: "someone-else", ProjectID: "p1"}

	// The matrix denies MEMBER DELETE PROJECT; ownership grants it.
	if HasPermission(member, ActionDelete, ResourceProject, foreign) {
		t.Fatal("member must not delete a project they do not own")
	}
	if !HasPermission(member, ActionDelete, ResourceProject, owned) {
		t.Fatal("owner must delete their own project")
	}
	if !HasPermission(member, ActionManage, ResourceProject, owned) {
		t.Fatal("owner must manage their own project")
	}

	// Ownership never grants CREATE, and never grants anything on teams.
	if HasPermission(member, ActionCreate, ResourceProject, owned) {
		t.Fatal("ownership must not grant CREATE")
	}
	ownedTeam := ResourceContext{OwnerID: "u1", TeamID: "t1"}
	if HasPermission(member, ActionDelete, ResourceTeam, ownedTeam) {
		t.Fatal("team ownership carries no override in the matrix")
	}
}

func TestOwnershipNeverRemoves(t *testing.T) {
	// A role-granted action stays granted when someone else owns the resource.
	member := UserContext{ID: "u1", Role: RoleMember}
	foreignTask := ResourceContext{OwnerID: "other", ProjectID: "p1"}
	if !HasPermission(member, ActionRead, ResourceTask, foreignTask) {
		t.Fatal("role READ grant must survive foreign ownership")
	}
}

func TestHasPermissions(t *testing.T) {
	member := UserContext{ID: "u1", Role: RoleMember}
	checks := []Check{
		{Action: ActionRead, ResourceType: ResourceProject},
		{Action: ActionCreate, ResourceType: ResourceTask},
	}
	if !HasPermissions(member, checks) {
		t.Fatal("expected all checks to pass")
	}
	checks = append(checks, Check{Action: ActionDelete, ResourceType: ResourceProject})
	if HasPermissions(member, checks) {
		t.Fatal("expected combined check to fail on project delete")
	}
}

func membership(teams []string, projects ...string) Membership {
	m := Membership{TeamIDs: map[string]struct{}{}, ProjectIDs: map[string]struct{}{}}
	for _, id := range teams {
		m.TeamIDs[id] = struct{}{}
	}
	for _, id := range projects {
		m.ProjectIDs[id] = struct{}{}
	}
	return m
}

func TestCanAccessResource(t *testing.T) {
	member := UserContext{ID: "u1", Role: RoleMember}
	admin := UserContext{ID: "a1", Role: RoleAdmin}

	inside := membership([]string{"t1"})
	inside.ProjectIDs["p1"] = struct{}{}
	outside := membership(nil)

	project := ResourceContext{OwnerID: "other", ProjectID: "p1"}
	if !CanAccessResource(member, ResourceProject, project, inside) {
		t.Fatal("project member must see the project")
	}
	if CanAccessResource(member, ResourceProject, project, outside) {
		t.Fatal("non-member must not see the project")
	}
	if !CanAccessResource(admin, ResourceProject, project, outside) {
		t.Fatal("admin sees everything")
	}
	owned := ResourceContext{OwnerID: "u1", ProjectID: "p9"}
	if !CanAccessResource(member, ResourceProject, owned, outside) {
		t.Fatal("owner always sees their own resource")
	}

	team := ResourceContext{OwnerID: "other", TeamID: "t1"}
	if !CanAccessResource(member, ResourceTeam, team, inside) {
		t.Fatal("team member must see the team")
	}
	if CanAccessResource(member, ResourceTeam, team, outside) {
		t.Fatal("non-member must not see the team")
	}

	// Tasks are visible through either the team or the project link.
	taskViaTeam := ResourceContext{OwnerID: "other", TeamID: "t1"}
	taskViaProject := ResourceContext{OwnerID: "other", ProjectID: "p1"}
	if !CanAccessResource(member, ResourceTask, taskViaTeam, inside) {
		t.Fatal("task visible via team membership")
	}
	if !CanAccessResource(member, ResourceTask, taskViaProject, inside) {
		t.Fatal("task visible via project membership")
	}
	if CanAccessResource(member, ResourceTask, taskViaProject, outside) {
		t.Fatal("task hidden without any membership link")
	}

	// Resource types without a visibility rule stay visible.
	if !CanAccessResource(member, ResourceUser, ResourceContext{OwnerID: "other"}, outside) {
		t.Fatal("user records have no membership gate")
	}
}

func TestFilterResourcesPreservesOrder(t *testing.T) {
	member := UserContext{ID: "u1", Role: RoleMember}
	m := membership(nil)
	m.ProjectIDs["p1"] = struct{}{}
	type proj struct {
		ID    string
		Owner string
	}
	items := []proj{
		{ID: "p1", Owner: "other"},
		{ID: "p2", Owner: "other"},
		{ID: "p3", Owner: "u1"},
	}
	got := FilterResources(member, items, ResourceProject, m, func(p proj) ResourceContext {
		return ResourceContext{OwnerID: p.Owner, ProjectID: p.ID}
	})
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p3" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}

func TestRequire(t *testing.T) {
	member := UserContext{ID: "u1", Role: RoleMember}
	if err := Require(member, ActionRead, ResourceProject, ResourceContext{}); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	err := Require(member, ActionDelete, ResourceProject, ResourceContext{OwnerID: "other"})
	fe, ok := err.(ForbiddenError)
	if !ok {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if fe.Action != ActionDelete || fe.ResourceType != ResourceProject {
		t.Fatalf("unexpected error fields: %+v", fe)
	}
}
