package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"parlour/internal/apperr"
	"parlour/internal/metrics"
	"parlour/internal/model"
	"parlour/internal/notify"
	"parlour/internal/store"
)

// RecentLimit caps the ledger listing.
const RecentLimit = 100

// Notifier publishes an event to an audience.
type Notifier interface {
	Emit(ctx context.Context, audience, event string, data any) error
}

// PunchInput is the body of POST /attendance/punch.
type PunchInput struct {
	EmployeeID string            `json:"employeeId"`
	Action     model.PunchAction `json:"action"`
}

// UpdateData is the data of an ATTENDANCE_UPDATE pushed after a punch.
type UpdateData struct {
	Employee EmployeeView          `json:"employee"`
	Log      model.AttendanceEntry `json:"log"`
}

// EmployeeView is the employee projection sent with an update.
type EmployeeView struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	CurrentStatus model.PresenceStatus `json:"currentStatus"`
}

// Service records punches and lists the ledger.
type Service struct {
	employees store.Employees
	ledger    store.Attendance
	notifier  Notifier
	now       func() time.Time
}

// NewService creates a service. notifier may be nil, in which case punches are not pushed.
func NewService(employees store.Employees, ledger store.Attendance, notifier Notifier) *Service {
	return &Service{employees: employees, ledger: ledger, notifier: notifier, now: time.Now}
}

// Punch sets the employee's presence, appends a ledger entry and pushes the
// update to admins. The push is best effort and never fails the punch.
// There is no prior-state check: two punch-ins in a row are both recorded.
func (s *Service) Punch(ctx context.Context, in PunchInput) (model.AttendanceEntry, error) {
	if in.EmployeeID == "" {
		return model.AttendanceEntry{}, apperr.Validation("Employee ID is required")
	}
	if !in.Action.Valid() {
		return model.AttendanceEntry{}, apperr.Validation("Action must be punch-in or punch-out")
	}

	emp, err := s.employees.SetEmployeeStatus(ctx, in.EmployeeID, in.Action.Status())
	if errors.Is(err, store.ErrNotFound) {
		return model.AttendanceEntry{}, apperr.NotFound("Employee not found")
	}
	if err != nil {
		return model.AttendanceEntry{}, apperr.Internal(err)
	}

	entry := model.AttendanceEntry{EmployeeID: emp.ID, Action: in.Action, Timestamp: s.now().UTC()}
	if err := s.ledger.AppendAttendance(ctx, &entry); err != nil {
		return model.AttendanceEntry{}, apperr.Internal(err)
	}
	entry.Employee = emp.Ref()
	metrics.Punches.WithLabelValues(string(in.Action)).Inc()

	s.publish(ctx, emp, entry)
	return entry, nil
}

func (s *Service) publish(ctx context.Context, emp *model.Employee, entry model.AttendanceEntry) {
	if s.notifier == nil {
		slog.Warn("attendance notifier unavailable, update not pushed", "entry", entry.ID)
		return
	}
	update := notify.Update{
		Type: notify.UpdateType,
		Data: UpdateData{
			Employee: EmployeeView{ID: emp.ID, Name: emp.Name, Email: emp.Email, CurrentStatus: emp.CurrentStatus},
			Log:      entry,
		},
	}
	// detached so a client disconnect does not cancel the push
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.Emit(pubCtx, notify.AudienceAdmins, notify.EventAttendanceUpdate, update); err != nil {
		slog.Error("push attendance update", "entry", entry.ID, "err", err)
	}
}

// Recent returns the latest ledger entries, newest first.
func (s *Service) Recent(ctx context.Context) ([]model.AttendanceEntry, error) {
	entries, err := s.ledger.RecentAttendance(ctx, RecentLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}
