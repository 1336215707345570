package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role UserRole
		cap  Capability
		want bool
	}{
		{RoleStudent, CapRegister, true},
		{RoleStudent, CapManageEvents, false},
		{RoleCoordinator, CapRegister, true},
		{RoleCoordinator, CapIssueQR, true},
		{RoleCoordinator, CapBroadcast, false},
		{RoleAdmin, CapRegister, false},
		{RoleAdmin, CapMarkAttendance, false},
		{RoleAdmin, CapBroadcast, true},
		{UserRole("guest"), CapRegister, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.role.Can(tc.cap), "%s/%s", tc.role, tc.cap)
	}
}

func TestEventSeatHelpers(t *testing.T) {
	now := time.Now()
	e := Event{TotalSeats: 3, RegisteredCount: 5, RegistrationDeadline: now.Add(-time.Minute)}
	assert.Equal(t, 0, e.AvailableSeats())
	assert.True(t, e.DeadlinePassed(now))

	e.RegisteredCount = 1
	assert.Equal(t, 2, NewEventView(e).AvailableSeats)
}

func TestEventPatchApply(t *testing.T) {
	title := "Hackathon"
	seats := 40
	patch := EventPatch{Title: &title, TotalSeats: &seats}
	assert.False(t, patch.Empty())
	assert.True(t, EventPatch{}.Empty())

	e := Event{Title: "old", TotalSeats: 10, VenueName: "Hall"}
	patch.Apply(&e)
	assert.Equal(t, "Hackathon", e.Title)
	assert.Equal(t, 40, e.TotalSeats)
	assert.Equal(t, "Hall", e.VenueName)
}
