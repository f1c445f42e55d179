// Package seed loads the demo accounts, staff and tasks.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parlour/internal/auth"
	"parlour/internal/model"
	"parlour/internal/store"
)

type account struct {
	name, email, password string
	role                  model.Role
}

var accounts = []account{
	{name: "Super Admin", email: "superadmin@parlour.com", password: "SuperAdmin@123", role: model.RoleSuperAdmin},
	{name: "Admin User", email: "admin@parlour.com", password: "AdminUser@123", role: model.RoleAdmin},
}

var staff = []model.Employee{
	{Name: "Sarah Johnson", Email: "sarah@parlour.com", Phone: "+1234567890", Position: "Senior Stylist", JoinDate: date(2023, 1, 15)},
	{Name: "Michael Chen", Email: "michael@parlour.com", Phone: "+1234567891", Position: "Massage Therapist", JoinDate: date(2023, 2, 20)},
	{Name: "Emma Davis", Email: "emma@parlour.com", Phone: "+1234567892", Position: "Nail Artist", JoinDate: date(2023, 3, 10)},
}

type sampleTask struct {
	title, description string
	employee, creator  int
	status             model.TaskStatus
	priority           model.Priority
	dueIn              time.Duration
}

var tasks = []sampleTask{
	{title: "Monthly Inventory Check", description: "Check and update inventory of all beauty products",
		employee: 0, creator: 0, status: model.TaskPending, priority: model.PriorityHigh, dueIn: 7 * 24 * time.Hour},
	{title: "Client Follow-up Calls", description: "Call clients from last week for feedback",
		employee: 1, creator: 0, status: model.TaskInProgress, priority: model.PriorityMedium, dueIn: 3 * 24 * time.Hour},
	{title: "Update Service Menu", description: "Update the service menu with new pricing",
		employee: 2, creator: 1, status: model.TaskPending, priority: model.PriorityLow, dueIn: 5 * 24 * time.Hour},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Result counts what Run inserted.
type Result struct {
	Users, Employees, Tasks int
	Skipped                 bool
}

// Run inserts the demo data. With reset every record is purged first;
// without it Run is a no-op when the super admin account already exists.
func Run(ctx context.Context, st store.Store, hasher *auth.Hasher, reset bool) (Result, error) {
	if reset {
		if err := st.Purge(ctx); err != nil {
			return Result{}, fmt.Errorf("purge: %w", err)
		}
		slog.Info("seed: store purged")
	} else {
		_, err := st.UserByEmail(ctx, accounts[0].email)
		if err == nil {
			slog.Info("seed: data already present, skipping")
			return Result{Skipped: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("check existing: %w", err)
		}
	}

	var res Result
	users := make([]*model.Identity, 0, len(accounts))
	for _, a := range accounts {
		hash, err := hasher.Hash(a.password)
		if err != nil {
			return res, fmt.Errorf("hash %s: %w", a.email, err)
		}
		u := &model.Identity{Name: a.name, Email: a.email, PasswordHash: hash, Role: a.role}
		if err := st.CreateUser(ctx, u); err != nil {
			return res, fmt.Errorf("create user %s: %w", a.email, err)
		}
		users = append(users, u)
		res.Users++
	}

	employees := make([]*model.Employee, 0, len(staff))
	for _, s := range staff {
		e := s
		e.IsActive = true
		e.CurrentStatus = model.StatusOut
		if err := st.CreateEmployee(ctx, &e); err != nil {
			return res, fmt.Errorf("create employee %s: %w", e.Email, err)
		}
		employees = append(employees, &e)
		res.Employees++
	}

	now := time.Now().UTC()
	for _, ts := range tasks {
		t := &model.Task{
			Title:       ts.title,
			Description: ts.description,
			AssignedTo:  employees[ts.employee].ID,
			CreatedBy:   users[ts.creator].ID,
			Status:      ts.status,
			Priority:    ts.priority,
			DueDate:     now.Add(ts.dueIn),
		}
		if err := st.CreateTask(ctx, t); err != nil {
			return res, fmt.Errorf("create task %q: %w", t.Title, err)
		}
		res.Tasks++
	}

	slog.Info("seed: done", "users", res.Users, "employees", res.Employees, "tasks", res.Tasks)
	return res, nil
}
