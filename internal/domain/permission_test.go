package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestPermissionPredicates(t *testing.T) {
	incident := &Incident{ID: 1, CreatorID: 10, AssigneeID: ptr(int64(20))}

	tests := []struct {
		name         string
		actor        *User
		canEdit      bool
		canAssign    bool
		canSetStatus bool
	}{
		{"creator member", &User{ID: 10, Role: RoleMember}, true, false, false},
		{"assignee member", &User{ID: 20, Role: RoleMember}, false, false, true},
		{"unrelated member", &User{ID: 30, Role: RoleMember}, false, false, false},
		{"admin", &User{ID: 40, Role: RoleAdmin}, true, true, true},
		{"manager", &User{ID: 50, Role: RoleManager}, true, true, true},
		{"unknown role", &User{ID: 60, Role: Role("superuser")}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canEdit, CanEdit(tt.actor, incident))
			assert.Equal(t, tt.canAssign, CanAssign(tt.actor, incident))
			assert.Equal(t, tt.canSetStatus, CanUpdateStatus(tt.actor, incident))
		})
	}
}

func TestCanUpdateStatusWithoutAssignee(t *testing.T) {
	incident := &Incident{ID: 1, CreatorID: 10}

	assert.False(t, CanUpdateStatus(&User{ID: 10, Role: RoleMember}, incident))
	assert.True(t, CanUpdateStatus(&User{ID: 11, Role: RoleManager}, incident))
}

func TestEnumValidity(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}

	assert.False(t, Status("done").Valid())
	assert.False(t, Priority("urgent").Valid())
	assert.False(t, Role("Admin").Valid())
}

func TestErrorUnwrapsToKind(t *testing.T) {
	err := Errorf(ErrForbidden, "you do not have permission to edit incident %d", 3)

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "you do not have permission to edit incident 3", err.Error())
	assert.True(t, errors.Is(ErrDuplicateEmail, ErrInvalidArgument))
}
