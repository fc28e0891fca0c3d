package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-logistics-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoleAssignmentsEqual(t *testing.T) {
	program := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	node := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	warehouse := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	supervision := auth.RoleAssignment{RoleID: uuid.New(), ProgramID: program, SupervisoryNodeID: node}
	homeFacility := auth.RoleAssignment{RoleID: supervision.RoleID, ProgramID: program}
	fulfillment := auth.RoleAssignment{RoleID: uuid.New(), WarehouseID: warehouse}

	tests := []struct {
		name  string
		a     auth.RoleAssignments
		b     auth.RoleAssignments
		equal bool
	}{
		{name: "nil and nil", a: nil, b: nil, equal: true},
		{name: "nil and empty", a: nil, b: auth.RoleAssignments{}, equal: true},
		{name: "same order", a: auth.RoleAssignments{supervision, fulfillment}, b: auth.RoleAssignments{supervision, fulfillment}, equal: true},
		{name: "reordered", a: auth.RoleAssignments{supervision, fulfillment}, b: auth.RoleAssignments{fulfillment, supervision}, equal: true},
		{name: "duplicates folded", a: auth.RoleAssignments{supervision, supervision}, b: auth.RoleAssignments{supervision}, equal: true},
		{name: "nil and one", a: nil, b: auth.RoleAssignments{fulfillment}, equal: false},
		{name: "scope differs", a: auth.RoleAssignments{supervision}, b: auth.RoleAssignments{homeFacility}, equal: false},
		{name: "subset", a: auth.RoleAssignments{supervision}, b: auth.RoleAssignments{supervision, fulfillment}, equal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestRoleAssignmentsSet(t *testing.T) {
	assignment := auth.RoleAssignment{RoleID: uuid.New()}

	var none auth.RoleAssignments
	assert.Empty(t, none.Set())
	assert.Len(t, auth.RoleAssignments{assignment, assignment}.Set(), 1)
}
