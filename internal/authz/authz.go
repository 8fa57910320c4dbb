// Package authz implements the role/ownership permission model. Checks are
// pure functions over static tables: a denied action is a false return, not
// an error, and unknown combinations deny rather than fail.
package authz

// Role is the coarse authorization level attached to a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// Roles lists every defined role.
var Roles = []Role{RoleAdmin, RoleManager, RoleMember}

// ResourceType names an entity kind a permission applies to.
type ResourceType string

const (
	ResourceProject    ResourceType = "PROJECT"
	ResourceTeam       ResourceType = "TEAM"
	ResourceTask       ResourceType = "TASK"
	ResourceComment    ResourceType = "COMMENT"
	ResourceAttachment ResourceType = "ATTACHMENT"
	ResourceUser       ResourceType = "USER"
)

// ResourceTypes lists every defined resource type.
var ResourceTypes = []ResourceType{
	ResourceProject, ResourceTeam, ResourceTask,
	ResourceComment, ResourceAttachment, ResourceUser,
}

// Action is an operation on a resource.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionManage Action = "MANAGE"
)

// Actions lists every defined action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}

// UserContext is the caller-supplied identity a check runs against. The
// caller loads the user; this package never touches storage.
type UserContext struct {
	ID   string
	Role Role
}

// ResourceContext carries ownership facts about a specific resource
// instance. The zero value means "no ownership claim".
type ResourceContext struct {
	OwnerID   string
	TeamID    string
	ProjectID string
}

type actionSet map[Action]struct{}

func actions(as ...Action) actionSet {
	set := make(actionSet, len(as))
	for _, a := range as {
		set[a] = struct{}{}
	}
	return set
}

func (s actionSet) has(a Action) bool {
	_, ok := s[a]
	return ok
}

// permissionMatrix is total: every (role, resource type) pair has an entry,
// so lookups never fail. Empty sets deny everything for that pair.
var permissionMatrix = map[Role]map[ResourceType]actionSet{
	RoleAdmin: {
		ResourceProject:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceTeam:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceTask:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceComment:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceAttachment: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceUser:       actions(ActionRead, ActionManage),
	},
	RoleManager: {
		ResourceProject:    actions(ActionRead),
		ResourceTeam:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceTask:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage),
		ResourceComment:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceAttachment: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceUser:       actions(ActionRead),
	},
	RoleMember: {
		ResourceProject:    actions(ActionRead),
		ResourceTeam:       actions(ActionRead),
		ResourceTask:       actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceComment:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceAttachment: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
		ResourceUser:       actions(ActionRead),
	},
}

// ownershipGrants lists the actions a resource's owner may always perform,
// regardless of role. Ownership only ever adds permissions.
var ownershipGrants = map[ResourceType]actionSet{
	ResourceProject:    actions(ActionUpdate, ActionDelete, ActionManage),
	ResourceTask:       actions(ActionUpdate, ActionDelete),
	ResourceComment:    actions(ActionUpdate, ActionDelete),
	ResourceAttachment: actions(ActionUpdate, ActionDelete),
}

// HasPermission reports whether user may perform action on a resource of
// the given type. The role matrix is consulted first; when it denies, the
// ownership override grants the action if the resource's owner is the user.
func HasPermission(user UserContext, action Action, resourceType ResourceType, resource ResourceContext) bool {
	if permissionMatrix[user.Role][resourceType].has(action) {
		return true
	}
	if resource.OwnerID != "" && resource.OwnerID == user.ID {
		return ownershipGrants[resourceType].has(action)
	}
	return false
}

// Check is one permission requirement for HasPermissions.
type Check struct {
	Action       Action
	ResourceType ResourceType
	Resource     ResourceContext
}

// HasPermissions reports whether user satisfies every check.
func HasPermissions(user UserContext, checks []Check) bool {
	for _, c := range checks {
		if !HasPermission(user, c.Action, c.ResourceType, c.Resource) {
			return false
		}
	}
	return true
}

// Membership is the set of teams and projects the user belongs to, loaded by
// the caller. Visibility decisions consult it explicitly instead of guessing
// from the role alone.
type Membership struct {
	TeamIDs    map[string]struct{}
	ProjectIDs map[string]struct{}
}

func (m Membership) inTeam(id string) bool {
	_, ok := m.TeamIDs[id]
	return ok
}

func (m Membership) inProject(id string) bool {
	_, ok := m.ProjectIDs[id]
	return ok
}

// CanAccessResource is the coarse visibility check used to decide whether a
// resource appears in a result set at all. Owners always see their own
// resources, admins see everything, and everyone else needs an explicit
// membership link to the resource's project or team.
func CanAccessResource(user UserContext, resourceType ResourceType, resource ResourceContext, membership Membership) bool {
	if resource.OwnerID != "" && resource.OwnerID == user.ID {
		return true
	}
	if user.Role == RoleAdmin {
		return true
	}
	switch resourceType {
	case ResourceProject:
		return resource.ProjectID != "" && membership.inProject(resource.ProjectID)
	case ResourceTeam:
		return resource.TeamID != "" && membership.inTeam(resource.TeamID)
	case ResourceTask:
		if resource.TeamID != "" && membership.inTeam(resource.TeamID) {
			return true
		}
		return resource.ProjectID != "" && membership.inProject(resource.ProjectID)
	default:
		return true
	}
}

// FilterResources keeps the elements of resources the user can access,
// preserving order. ctxOf extracts the ownership facts for one element.
func FilterResources[T any](user UserContext, resources []T, resourceType ResourceType, membership Membership, ctxOf func(T) ResourceContext) []T {
	out := make([]T, 0, len(resources))
	for _, r := range resources {
		if CanAccessResource(user, resourceType, ctxOf(r), membership) {
			out = append(out, r)
		}
	}
	return out
}
