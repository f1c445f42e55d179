package auth

import "parlour/internal/model"

// Capability is a single permission checked by the access gate.
type Capability int

const (
	ReadDirectory Capability = iota
	ManageEmployees
	ManageTasks
	ReadAttendance
	RecordAttendance
	SubscribeAttendance
)

func (c Capability) String() string {
	switch c {
	case ReadDirectory:
		return "read-directory"
	case ManageEmployees:
		return "manage-employees"
	case ManageTasks:
		return "manage-tasks"
	case ReadAttendance:
		return "read-attendance"
	case RecordAttendance:
		return "record-attendance"
	case SubscribeAttendance:
		return "subscribe-attendance"
	}
	return "unknown"
}

var capabilities = map[model.Role]map[Capability]bool{
	model.RoleSuperAdmin: {
		ReadDirectory:       true,
		ManageEmployees:     true,
		ManageTasks:         true,
		ReadAttendance:      true,
		RecordAttendance:    true,
		SubscribeAttendance: true,
	},
	model.RoleAdmin: {
		ReadDirectory:       true,
		ReadAttendance:      true,
		RecordAttendance:    true,
		SubscribeAttendance: true,
	},
}

// Allows reports whether role grants c. Unknown roles grant nothing.
func Allows(role model.Role, c Capability) bool {
	return capabilities[role][c]
}
