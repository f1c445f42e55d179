package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"parlour/internal/model"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu         sync.RWMutex
	seq        int64
	users      map[string]*model.Identity
	employees  map[string]*model.Employee
	attendance []memEntry
	tasks      map[string]*model.Task
	order      map[string]int64
}

type memEntry struct {
	entry model.AttendanceEntry
	seq   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.users = make(map[string]*model.Identity)
	m.employees = make(map[string]*model.Employee)
	m.attendance = nil
	m.tasks = make(map[string]*model.Task)
	m.order = make(map[string]int64)
}

func (m *Memory) next(id string) {
	m.seq++
	m.order[id] = m.seq
}

// newestFirst orders by creation time, then insertion order, descending.
func (m *Memory) newestFirst(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return m.order[aID] > m.order[bID]
}

// ---- Users ----

func (m *Memory) CreateUser(_ context.Context, u *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	m.next(u.ID)
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*model.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) IncrementFailedLogins(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	u.FailedLoginAttempts++
	u.UpdatedAt = time.Now().UTC()
	return u.FailedLoginAttempts, nil
}

func (m *Memory) LockUser(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LockUntil = &until
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ResetLoginState(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockUntil = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ---- Employees ----

func (m *Memory) ListEmployees(_ context.Context) ([]model.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.newestFirst(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) EmployeeByID(_ context.Context, id string) (*model.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) employeeEmailTaken(email, exceptID string) bool {
	for id, e := range m.employees {
		if id != exceptID && e.Email == email {
			return true
		}
	}
	return false
}

func (m *Memory) CreateEmployee(_ context.Context, e *model.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.employeeEmailTaken(e.Email, "") {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	cp := *e
	m.employees[e.ID] = &cp
	m.next(e.ID)
	return nil
}

func (m *Memory) UpdateEmployee(_ context.Context, id string, p model.EmployeePatch) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Email != nil && m.employeeEmailTaken(*p.Email, id) {
		return nil, ErrDuplicate
	}
	applyEmployeePatch(e, p)
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	return &cp, nil
}

func (m *Memory) DeleteEmployee(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return ErrNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *Memory) SetEmployeeStatus(_ context.Context, id string, status model.PresenceStatus) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.CurrentStatus = status
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	return &cp, nil
}

// ---- Attendance ----

func (m *Memory) AppendAttendance(_ context.Context, e *model.AttendanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.CreatedAt = time.Now().UTC()
	m.seq++
	m.attendance = append(m.attendance, memEntry{entry: *e, seq: m.seq})
	return nil
}

func (m *Memory) RecentAttendance(_ context.Context, limit int) ([]model.AttendanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := make([]memEntry, len(m.attendance))
	copy(sorted, m.attendance)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.entry.Timestamp.Equal(b.entry.Timestamp) {
			return a.entry.Timestamp.After(b.entry.Timestamp)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]model.AttendanceEntry, 0, len(sorted))
	for _, me := range sorted {
		entry := me.entry
		if emp, ok := m.employees[entry.EmployeeID]; ok {
			entry.Employee = emp.Ref()
		}
		out = append(out, entry)
	}
	return out, nil
}

// ---- Tasks ----

func (m *Memory) populateTask(t model.Task) model.Task {
	if emp, ok := m.employees[t.AssignedTo]; ok {
		t.Assignee = emp.Ref()
	}
	if u, ok := m.users[t.CreatedBy]; ok {
		t.Creator = u.Ref()
	}
	return t
}

func (m *Memory) ListTasks(_ context.Context) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, m.populateTask(*t))
	}
	sort.Slice(out, func(i, j int) bool {
		return m.newestFirst(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) TaskByID(_ context.Context, id string) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := m.populateTask(*t)
	return &out, nil
}

func (m *Memory) CreateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	cp.Assignee, cp.Creator = nil, nil
	m.tasks[t.ID] = &cp
	m.next(t.ID)
	return nil
}

func (m *Memory) UpdateTask(_ context.Context, id string, p model.TaskPatch) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyTaskPatch(t, p)
	t.UpdatedAt = time.Now().UTC()
	out := m.populateTask(*t)
	return &out, nil
}

func (m *Memory) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// ---- lifecycle ----

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Purge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
