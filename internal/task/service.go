// Package task manages work assigned to staff.
package task

import (
	"context"
	"errors"
	"strings"

	"parlour/internal/apperr"
	"parlour/internal/model"
	"parlour/internal/store"
	"parlour/internal/validate"
)

const (
	msgNotFound        = "Task not found"
	msgUnknownAssignee = "Assigned employee does not exist"
)

// CreateInput is the body of POST /tasks.
type CreateInput struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description" validate:"required"`
	AssignedTo  string           `json:"assignedTo" validate:"required"`
	DueDate     string           `json:"dueDate" validate:"required"`
	Status      model.TaskStatus `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    model.Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// UpdateInput is the body of PUT /tasks/:id. Absent fields are left unchanged.
type UpdateInput struct {
	Title       *string           `json:"title" validate:"omitnil,min=1"`
	Description *string           `json:"description" validate:"omitnil,min=1"`
	AssignedTo  *string           `json:"assignedTo" validate:"omitnil,min=1"`
	DueDate     *string           `json:"dueDate"`
	Status      *model.TaskStatus `json:"status" validate:"omitnil,oneof=pending in-progress completed"`
	Priority    *model.Priority   `json:"priority" validate:"omitnil,oneof=low medium high"`
}

// Service implements task CRUD.
type Service struct {
	tasks     store.Tasks
	employees store.Employees
}

// NewService creates a service. employees is used to check assignees.
func NewService(tasks store.Tasks, employees store.Employees) *Service {
	return &Service{tasks: tasks, employees: employees}
}

// List returns every task, newest first, with assignee and creator resolved.
func (s *Service) List(ctx context.Context) ([]model.Task, error) {
	out, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Create stores a task created by creatorID.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput) (*model.Task, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	due, err := validate.Date("dueDate", in.DueDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, in.AssignedTo); err != nil {
		return nil, err
	}
	t := &model.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   creatorID,
		Status:      model.TaskPending,
		Priority:    model.PriorityMedium,
		DueDate:     due,
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	if err := s.tasks.CreateTask(ctx, t); err != nil {
		return nil, mapErr(err)
	}
	created, err := s.tasks.TaskByID(ctx, t.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return created, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.Task, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	patch := model.TaskPatch{
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		Status:      in.Status,
		Priority:    in.Priority,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		patch.Title = &title
	}
	if in.DueDate != nil {
		due, err := validate.Date("dueDate", *in.DueDate)
		if err != nil {
			return nil, err
		}
		patch.DueDate = &due
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
	}
	t, err := s.tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Service) checkAssignee(ctx context.Context, id string) error {
	_, err := s.employees.EmployeeByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation(msgUnknownAssignee)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msgNotFound)
	}
	return apperr.Internal(err)
}
