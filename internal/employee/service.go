// Package employee manages the staff directory.
package employee

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"parlour/internal/apperr"
	"parlour/internal/model"
	"parlour/internal/store"
	"parlour/internal/validate"
)

const (
	msgNotFound  = "Employee not found"
	msgDuplicate = "Employee with this email already exists"
)

// CreateInput is the body of POST /employees.
type CreateInput struct {
	Name          string               `json:"name" validate:"required"`
	Email         string               `json:"email" validate:"required,email"`
	Phone         string               `json:"phone" validate:"required"`
	Position      string               `json:"position" validate:"required"`
	JoinDate      string               `json:"joinDate" validate:"required"`
	IsActive      *bool                `json:"isActive"`
	CurrentStatus model.PresenceStatus `json:"currentStatus" validate:"omitempty,oneof=in out"`
}

// UpdateInput is the body of PUT /employees/:id. Absent fields are left unchanged.
type UpdateInput struct {
	Name          *string               `json:"name" validate:"omitnil,min=1"`
	Email         *string               `json:"email" validate:"omitnil,email"`
	Phone         *string               `json:"phone" validate:"omitnil,min=1"`
	Position      *string               `json:"position" validate:"omitnil,min=1"`
	JoinDate      *string               `json:"joinDate"`
	IsActive      *bool                 `json:"isActive"`
	CurrentStatus *model.PresenceStatus `json:"currentStatus" validate:"omitnil,oneof=in out"`
}

// Service implements staff CRUD.
type Service struct {
	store store.Employees
}

// NewService creates a service over the employee store.
func NewService(s store.Employees) *Service {
	return &Service{store: s}
}

// List returns every staff member, newest first.
func (s *Service) List(ctx context.Context) ([]model.Employee, error) {
	out, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Create validates and stores a new staff member.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Employee, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	joined, err := validate.Date("joinDate", in.JoinDate)
	if err != nil {
		return nil, err
	}
	e := &model.Employee{
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         in.Phone,
		Position:      in.Position,
		JoinDate:      joined,
		IsActive:      true,
		CurrentStatus: model.StatusOut,
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if in.CurrentStatus != "" {
		e.CurrentStatus = in.CurrentStatus
	}
	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, mapErr(err)
	}
	slog.Info("employee created", "employee_id", e.ID)
	return e, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.Employee, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	patch := model.EmployeePatch{
		Phone:         in.Phone,
		Position:      in.Position,
		IsActive:      in.IsActive,
		CurrentStatus: in.CurrentStatus,
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		patch.Email = &email
	}
	if in.JoinDate != nil {
		joined, err := validate.Date("joinDate", *in.JoinDate)
		if err != nil {
			return nil, err
		}
		patch.JoinDate = &joined
	}
	e, err := s.store.UpdateEmployee(ctx, id, patch)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// Delete removes a staff member. Ledger entries and tasks referencing it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return mapErr(err)
	}
	slog.Info("employee deleted", "employee_id", id)
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(msgNotFound)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Validation(msgDuplicate)
	default:
		return apperr.Internal(err)
	}
}
