package auth

import "github.com/google/uuid"

// RoleAssignment binds a role to the scope it applies to. Scope identifiers
// are optional; a home facility supervision role carries a program only,
// a fulfillment role carries a warehouse only.
type RoleAssignment struct {
	RoleID            uuid.UUID     `json:"roleId"`
	ProgramID         uuid.NullUUID `json:"programId"`
	SupervisoryNodeID uuid.NullUUID `json:"supervisoryNodeId"`
	WarehouseID       uuid.NullUUID `json:"warehouseId"`
}

// RoleAssignments is compared as a set.
type RoleAssignments []RoleAssignment

// Set returns the distinct assignments. A nil receiver yields an empty set.
func (r RoleAssignments) Set() map[RoleAssignment]struct{} {
	set := make(map[RoleAssignment]struct{}, len(r))
	for _, a := range r {
		set[a] = struct{}{}
	}
	return set
}

// Equal reports set equality, ignoring order and duplicates.
func (r RoleAssignments) Equal(other RoleAssignments) bool {
	a, b := r.Set(), other.Set()
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
