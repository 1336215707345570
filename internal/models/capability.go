package models

// Capability names an action a caller may perform.
type Capability string

const (
	CapRegister       Capability = "register"
	CapMarkAttendance Capability = "mark_attendance"
	CapRate           Capability = "rate"
	CapManageEvents   Capability = "manage_events"
	CapIssueQR        Capability = "issue_qr"
	CapViewRosters    Capability = "view_rosters"
	CapBroadcast      Capability = "broadcast"
)

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: {
		CapManageEvents: {},
		CapIssueQR:      {},
		CapViewRosters:  {},
		CapBroadcast:    {},
	},
	RoleCoordinator: {
		CapRegister:       {},
		CapMarkAttendance: {},
		CapRate:           {},
		CapManageEvents:   {},
		CapIssueQR:        {},
		CapViewRosters:    {},
	},
	RoleStudent: {
		CapRegister:       {},
		CapMarkAttendance: {},
		CapRate:           {},
	},
}

// Can reports whether the role grants the capability. Admins hold no seats,
// so they lack register, mark_attendance and rate.
func (r UserRole) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Actor identifies the caller of a service operation.
type Actor struct {
	UserID string
	Role   UserRole
}

// Can reports whether the actor's role grants the capability.
func (a Actor) Can(c Capability) bool {
	return a.Role.Can(c)
}
