// Package model holds the records shared by the store, services and handlers.
package model

import "time"

// Role is the closed set of login roles.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
)

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSuperAdmin:
		return RoleSuperAdmin, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Identity is a login principal.
type Identity struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Public returns a copy without credential state.
func (i Identity) Public() Identity {
	i.PasswordHash = ""
	i.FailedLoginAttempts = 0
	i.LockUntil = nil
	return i
}

// Ref returns the name/email reference used when the identity is embedded in other records.
func (i Identity) Ref() *PersonRef {
	return &PersonRef{ID: i.ID, Name: i.Name, Email: i.Email}
}

// PresenceStatus is a staff member's current punch state.
type PresenceStatus string

const (
	StatusIn  PresenceStatus = "in"
	StatusOut PresenceStatus = "out"
)

// Employee is a staff member tracked for attendance and tasks.
type Employee struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Position      string         `json:"position"`
	JoinDate      time.Time      `json:"joinDate"`
	IsActive      bool           `json:"isActive"`
	CurrentStatus PresenceStatus `json:"currentStatus"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Ref returns the name/email reference of the employee.
func (e Employee) Ref() *PersonRef {
	return &PersonRef{ID: e.ID, Name: e.Name, Email: e.Email}
}

// EmployeePatch carries the fields of a partial employee update.
type EmployeePatch struct {
	Name          *string         `json:"name"`
	Email         *string         `json:"email"`
	Phone         *string         `json:"phone"`
	Position      *string         `json:"position"`
	JoinDate      *time.Time      `json:"joinDate"`
	IsActive      *bool           `json:"isActive"`
	CurrentStatus *PresenceStatus `json:"currentStatus"`
}

// PersonRef is the resolved name/email view of a referenced employee or identity.
type PersonRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PunchAction is the kind of attendance event.
type PunchAction string

const (
	PunchIn  PunchAction = "punch-in"
	PunchOut PunchAction = "punch-out"
)

// Valid reports whether a is a known action.
func (a PunchAction) Valid() bool {
	return a == PunchIn || a == PunchOut
}

// Status is the presence an action leaves the employee in.
func (a PunchAction) Status() PresenceStatus {
	if a == PunchIn {
		return StatusIn
	}
	return StatusOut
}

// AttendanceEntry is one append-only ledger record.
type AttendanceEntry struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employeeId"`
	Employee   *PersonRef  `json:"employee,omitempty"`
	Action     PunchAction `json:"action"`
	Timestamp  time.Time   `json:"timestamp"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Priority orders tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work assigned to an employee.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assignedTo"`
	Assignee    *PersonRef `json:"assignee,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	Creator     *PersonRef `json:"creator,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries the fields of a partial task update.
type TaskPatch struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	AssignedTo  *string     `json:"assignedTo"`
	Status      *TaskStatus `json:"status"`
	Priority    *Priority   `json:"priority"`
	DueDate     *time.Time  `json:"dueDate"`
}
