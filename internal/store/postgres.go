package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"parlour/internal/model"
)

// Postgres stores records in Postgres through the pgx database/sql driver.
type Postgres struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role TEXT NOT NULL,
	failed_login_attempts INTEGER NOT NULL DEFAULT 0,
	lock_until TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL,
	position TEXT NOT NULL,
	join_date TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	current_status TEXT NOT NULL DEFAULT 'out',
	seq BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS attendance_logs (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	action TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS attendance_logs_occurred_at ON attendance_logs (occurred_at DESC);
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	assigned_to TEXT NOT NULL,
	created_by TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority TEXT NOT NULL DEFAULT 'medium',
	due_date TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewPostgres opens a pooled connection and applies the schema.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func pgErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

// ---- Users ----

const userColumns = `id, name, email, password, role, failed_login_attempts, lock_until, created_at, updated_at`

func scanUser(row scanner) (*model.Identity, error) {
	var (
		u        model.Identity
		role     string
		lockedTo sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.FailedLoginAttempts, &lockedTo, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if lockedTo.Valid {
		t := lockedTo.Time.UTC()
		u.LockUntil = &t
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *model.Identity) error {
	u.ID = uuid.NewString()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role))
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		u.ID = ""
		return pgErr("insert user", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*model.Identity, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, pgErr("select user", err)
	}
	return u, nil
}

func (p *Postgres) UserByID(ctx context.Context, id string) (*model.Identity, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("select user", err)
	}
	return u, nil
}

func (p *Postgres) IncrementFailedLogins(ctx context.Context, id string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		UPDATE users SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id).Scan(&n)
	if err != nil {
		return 0, pgErr("increment failed logins", err)
	}
	return n, nil
}

func (p *Postgres) LockUser(ctx context.Context, id string, until time.Time) error {
	return p.exec(ctx, "lock user", `UPDATE users SET lock_until = $2, updated_at = NOW() WHERE id = $1`, id, until.UTC())
}

func (p *Postgres) ResetLoginState(ctx context.Context, id string) error {
	return p.exec(ctx, "reset login state", `UPDATE users SET failed_login_attempts = 0, lock_until = NULL, updated_at = NOW() WHERE id = $1`, id)
}

// exec runs a single-row write and reports ErrNotFound when nothing matched.
func (p *Postgres) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return pgErr(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Employees ----

const employeeColumns = `id, name, email, phone, position, join_date, is_active, current_status, created_at, updated_at`

func scanEmployee(row scanner) (*model.Employee, error) {
	var (
		e      model.Employee
		status string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Position, &e.JoinDate, &e.IsActive, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.CurrentStatus = model.PresenceStatus(status)
	return &e, nil
}

func (p *Postgres) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, pgErr("list employees", err)
	}
	defer rows.Close()
	out := []model.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, pgErr("scan employee", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (p *Postgres) EmployeeByID(ctx context.Context, id string) (*model.Employee, error) {
	e, err := scanEmployee(p.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("select employee", err)
	}
	return e, nil
}

func (p *Postgres) CreateEmployee(ctx context.Context, e *model.Employee) error {
	e.ID = uuid.NewString()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO employees (id, name, email, phone, position, join_date, is_active, current_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, e.ID, e.Name, e.Email, e.Phone, e.Position, e.JoinDate, e.IsActive, string(e.CurrentStatus))
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		e.ID = ""
		return pgErr("insert employee", err)
	}
	return nil
}

// setClause accumulates "col = $n" fragments for a partial update.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setClause) sql() string {
	return strings.Join(append(s.cols, "updated_at = NOW()"), ", ")
}

func (p *Postgres) UpdateEmployee(ctx context.Context, id string, patch model.EmployeePatch) (*model.Employee, error) {
	var set setClause
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Email != nil {
		set.add("email", *patch.Email)
	}
	if patch.Phone != nil {
		set.add("phone", *patch.Phone)
	}
	if patch.Position != nil {
		set.add("position", *patch.Position)
	}
	if patch.JoinDate != nil {
		set.add("join_date", *patch.JoinDate)
	}
	if patch.IsActive != nil {
		set.add("is_active", *patch.IsActive)
	}
	if patch.CurrentStatus != nil {
		set.add("current_status", string(*patch.CurrentStatus))
	}
	return p.updateEmployee(ctx, id, set)
}

func (p *Postgres) SetEmployeeStatus(ctx context.Context, id string, status model.PresenceStatus) (*model.Employee, error) {
	var set setClause
	set.add("current_status", string(status))
	return p.updateEmployee(ctx, id, set)
}

func (p *Postgres) updateEmployee(ctx context.Context, id string, set setClause) (*model.Employee, error) {
	args := append(set.args, id)
	query := fmt.Sprintf(`UPDATE employees SET %s WHERE id = $%d RETURNING %s`, set.sql(), len(args), employeeColumns)
	e, err := scanEmployee(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, pgErr("update employee", err)
	}
	return e, nil
}

func (p *Postgres) DeleteEmployee(ctx context.Context, id string) error {
	return p.exec(ctx, "delete employee", `DELETE FROM employees WHERE id = $1`, id)
}

// ---- Attendance ----

func (p *Postgres) AppendAttendance(ctx context.Context, e *model.AttendanceEntry) error {
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO attendance_logs (id, employee_id, action, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, e.ID, e.EmployeeID, string(e.Action), e.Timestamp)
	if err := row.Scan(&e.CreatedAt); err != nil {
		e.ID = ""
		return pgErr("insert attendance", err)
	}
	return nil
}

func (p *Postgres) RecentAttendance(ctx context.Context, limit int) ([]model.AttendanceEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id, a.employee_id, a.action, a.occurred_at, a.created_at, e.name, e.email
		FROM attendance_logs a
		LEFT JOIN employees e ON e.id = a.employee_id
		ORDER BY a.occurred_at DESC, a.seq DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, pgErr("list attendance", err)
	}
	defer rows.Close()
	out := []model.AttendanceEntry{}
	for rows.Next() {
		var (
			entry       model.AttendanceEntry
			action      string
			name, email sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.EmployeeID, &action, &entry.Timestamp, &entry.CreatedAt, &name, &email); err != nil {
			return nil, pgErr("scan attendance", err)
		}
		entry.Action = model.PunchAction(action)
		if name.Valid {
			entry.Employee = &model.PersonRef{ID: entry.EmployeeID, Name: name.String, Email: email.String}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ---- Tasks ----

const taskSelect = `
	SELECT t.id, t.title, t.description, t.assigned_to, t.created_by, t.status, t.priority,
		t.due_date, t.created_at, t.updated_at, e.name, e.email, u.name, u.email
	FROM tasks t
	LEFT JOIN employees e ON e.id = t.assigned_to
	LEFT JOIN users u ON u.id = t.created_by`

func scanTask(row scanner) (*model.Task, error) {
	var (
		t                model.Task
		status, priority string
		eName, eEmail    sql.NullString
		uName, uEmail    sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.CreatedBy, &status, &priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt, &eName, &eEmail, &uName, &uEmail); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Priority = model.Priority(priority)
	if eName.Valid {
		t.Assignee = &model.PersonRef{ID: t.AssignedTo, Name: eName.String, Email: eEmail.String}
	}
	if uName.Valid {
		t.Creator = &model.PersonRef{ID: t.CreatedBy, Name: uName.String, Email: uEmail.String}
	}
	return &t, nil
}

func (p *Postgres) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := p.db.QueryContext(ctx, taskSelect+` ORDER BY t.created_at DESC, t.seq DESC`)
	if err != nil {
		return nil, pgErr("list tasks", err)
	}
	defer rows.Close()
	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, pgErr("scan task", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (p *Postgres) TaskByID(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(p.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, pgErr("select task", err)
	}
	return t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, t *model.Task) error {
	t.ID = uuid.NewString()
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, title, description, assigned_to, created_by, status, priority, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.AssignedTo, t.CreatedBy, string(t.Status), string(t.Priority), t.DueDate)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		t.ID = ""
		return pgErr("insert task", err)
	}
	return nil
}

func (p *Postgres) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.AssignedTo != nil {
		set.add("assigned_to", *patch.AssignedTo)
	}
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set.add("priority", string(*patch.Priority))
	}
	if patch.DueDate != nil {
		set.add("due_date", *patch.DueDate)
	}
	args := append(set.args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, set.sql(), len(args))
	if err := p.exec(ctx, "update task", query, args...); err != nil {
		return nil, err
	}
	return p.TaskByID(ctx, id)
}

func (p *Postgres) DeleteTask(ctx context.Context, id string) error {
	return p.exec(ctx, "delete task", `DELETE FROM tasks WHERE id = $1`, id)
}

// ---- lifecycle ----

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Purge(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `TRUNCATE users, employees, attendance_logs, tasks`)
	if err != nil {
		return pgErr("purge", err)
	}
	return nil
}

func (p *Postgres) Close(context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
