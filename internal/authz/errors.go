package authz

import "fmt"

// ForbiddenError indicates a denied permission check, for callers that need
// an error rather than a boolean.
type ForbiddenError struct {
	Action       Action
	ResourceType ResourceType
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s on %s required", e.Action, e.ResourceType)
}

// Require converts a HasPermission check into an error.
func Require(user UserContext, action Action, resourceType ResourceType, resource ResourceContext) error {
	if HasPermission(user, action, resourceType, resource) {
		return nil
	}
	return ForbiddenError{Action: action, ResourceType: resourceType}
}
