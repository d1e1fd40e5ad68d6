package auth

import (
	"fmt"

	"blogapi/common"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource is anything an actor can mutate. An empty OwnerID means the
// resource is shared and any authenticated actor may act on it.
type Resource interface {
	OwnerID() string
}

// Authorize is the single ownership check for mutating operations.
func Authorize(actor Actor, res Resource, action Action) error {
	if actor.ID == "" {
		return fmt.Errorf("%w: no authenticated actor", common.ErrForbidden)
	}
	owner := res.OwnerID()
	if owner == "" || owner == actor.ID {
		return nil
	}
	return fmt.Errorf("%w to %s this resource", common.ErrForbidden, action)
}
