package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parlour/internal/model"
)

func newEmployee(t *testing.T, m *Memory, name, email string) *model.Employee {
	t.Helper()
	e := &model.Employee{Name: name, Email: email, Phone: "555", Position: "stylist", JoinDate: time.Now(), IsActive: true, CurrentStatus: model.StatusOut}
	require.NoError(t, m.CreateEmployee(context.Background(), e))
	return e
}

func TestMemoryUserLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := &model.Identity{Name: "Owner", Email: "owner@parlour.test", PasswordHash: "h", Role: model.RoleSuperAdmin}
	require.NoError(t, m.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	err := m.CreateUser(ctx, &model.Identity{Name: "Other", Email: "owner@parlour.test"})
	require.ErrorIs(t, err, ErrDuplicate)

	got, err := m.UserByEmail(ctx, "owner@parlour.test")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = m.UserByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	for i := 1; i <= 3; i++ {
		n, err := m.IncrementFailedLogins(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, i, n)
	}
	until := time.Now().Add(time.Minute)
	require.NoError(t, m.LockUser(ctx, u.ID, until))
	got, _ = m.UserByID(ctx, u.ID)
	require.NotNil(t, got.LockUntil)
	require.Equal(t, 3, got.FailedLoginAttempts)

	require.NoError(t, m.ResetLoginState(ctx, u.ID))
	got, _ = m.UserByID(ctx, u.ID)
	require.Nil(t, got.LockUntil)
	require.Zero(t, got.FailedLoginAttempts)
}

func TestMemoryIncrementIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	u := &model.Identity{Email: "a@b.test"}
	require.NoError(t, m.CreateUser(ctx, u))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.IncrementFailedLogins(ctx, u.ID)
		}()
	}
	wg.Wait()
	got, _ := m.UserByID(ctx, u.ID)
	require.Equal(t, 50, got.FailedLoginAttempts)
}

func TestMemoryEmployeesNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first := newEmployee(t, m, "Ana", "ana@parlour.test")
	second := newEmployee(t, m, "Bea", "bea@parlour.test")

	list, err := m.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestMemoryEmployeeUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newEmployee(t, m, "Ana", "ana@parlour.test")
	newEmployee(t, m, "Bea", "bea@parlour.test")

	taken := "bea@parlour.test"
	_, err := m.UpdateEmployee(ctx, a.ID, model.EmployeePatch{Email: &taken})
	require.ErrorIs(t, err, ErrDuplicate)

	pos := "manager"
	got, err := m.UpdateEmployee(ctx, a.ID, model.EmployeePatch{Position: &pos})
	require.NoError(t, err)
	require.Equal(t, "manager", got.Position)
	require.Equal(t, "Ana", got.Name)

	got, err = m.SetEmployeeStatus(ctx, a.ID, model.StatusIn)
	require.NoError(t, err)
	require.Equal(t, model.StatusIn, got.CurrentStatus)

	require.NoError(t, m.DeleteEmployee(ctx, a.ID))
	require.ErrorIs(t, m.DeleteEmployee(ctx, a.ID), ErrNotFound)
	_, err = m.SetEmployeeStatus(ctx, a.ID, model.StatusOut)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRecentAttendance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	e := newEmployee(t, m, "Ana", "ana@parlour.test")

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &model.AttendanceEntry{EmployeeID: e.ID, Action: model.PunchIn, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, m.AppendAttendance(ctx, entry))
	}

	list, err := m.RecentAttendance(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.True(t, list[0].Timestamp.Equal(base.Add(4*time.Minute)))
	require.True(t, list[2].Timestamp.Equal(base.Add(2*time.Minute)))
	require.NotNil(t, list[0].Employee)
	require.Equal(t, "Ana", list[0].Employee.Name)
}

func TestMemoryTasksPopulated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	e := newEmployee(t, m, "Ana", "ana@parlour.test")
	u := &model.Identity{Name: "Owner", Email: "owner@parlour.test"}
	require.NoError(t, m.CreateUser(ctx, u))

	task := &model.Task{Title: "Restock", Description: "Shampoo", AssignedTo: e.ID, CreatedBy: u.ID, Status: model.TaskPending, Priority: model.PriorityMedium, DueDate: time.Now()}
	require.NoError(t, m.CreateTask(ctx, task))

	list, err := m.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Ana", list[0].Assignee.Name)
	require.Equal(t, "owner@parlour.test", list[0].Creator.Email)

	done := model.TaskCompleted
	got, err := m.UpdateTask(ctx, task.ID, model.TaskPatch{Status: &done})
	require.NoError(t, err)
	require.Equal(t, model.TaskCompleted, got.Status)
	require.Equal(t, "Ana", got.Assignee.Name)

	require.NoError(t, m.DeleteTask(ctx, task.ID))
	_, err = m.TaskByID(ctx, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPurge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	newEmployee(t, m, "Ana", "ana@parlour.test")
	require.NoError(t, m.Purge(ctx))
	list, err := m.ListEmployees(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "cassandra", "", "")
	require.Error(t, err)
}
