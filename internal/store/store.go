package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parlour/internal/model"
)

var (
	// ErrNotFound is returned when an id or email does not resolve.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique email is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Users persists login identities and their lockout bookkeeping.
type Users interface {
	CreateUser(ctx context.Context, u *model.Identity) error
	UserByEmail(ctx context.Context, email string) (*model.Identity, error)
	UserByID(ctx context.Context, id string) (*model.Identity, error)
	// IncrementFailedLogins atomically adds one to the counter and returns the new value.
	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	LockUser(ctx context.Context, id string, until time.Time) error
	ResetLoginState(ctx context.Context, id string) error
}

// Employees persists staff members.
type Employees interface {
	// ListEmployees returns all staff, newest first.
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	EmployeeByID(ctx context.Context, id string) (*model.Employee, error)
	CreateEmployee(ctx context.Context, e *model.Employee) error
	UpdateEmployee(ctx context.Context, id string, p model.EmployeePatch) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	// SetEmployeeStatus overwrites the presence status in a single write.
	SetEmployeeStatus(ctx context.Context, id string, status model.PresenceStatus) (*model.Employee, error)
}

// Attendance is the append-only punch ledger.
type Attendance interface {
	AppendAttendance(ctx context.Context, e *model.AttendanceEntry) error
	// RecentAttendance returns up to limit entries, newest first, with Employee resolved.
	RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceEntry, error)
}

// Tasks persists task assignments. Reads resolve Assignee and Creator.
type Tasks interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	TaskByID(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, t *model.Task) error
	UpdateTask(ctx context.Context, id string, p model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Store is the full record store used by the API.
type Store interface {
	Users
	Employees
	Attendance
	Tasks
	Ping(ctx context.Context) error
	// Purge removes every record; used by the seeder's reset.
	Purge(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the configured backend: "mongo", "postgres" or "memory".
func Open(ctx context.Context, backend, url, database string) (Store, error) {
	switch backend {
	case "mongo":
		return NewMongo(ctx, url, database)
	case "postgres":
		return NewPostgres(ctx, url)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

func applyEmployeePatch(e *model.Employee, p model.EmployeePatch) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Email != nil {
		e.Email = *p.Email
	}
	if p.Phone != nil {
		e.Phone = *p.Phone
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.JoinDate != nil {
		e.JoinDate = *p.JoinDate
	}
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
	if p.CurrentStatus != nil {
		e.CurrentStatus = *p.CurrentStatus
	}
}

func applyTaskPatch(t *model.Task, p model.TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}
