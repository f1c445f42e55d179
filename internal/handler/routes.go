package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parlour/internal/auth"
)

type access int

const (
	public access = iota
	authenticated
	capability
)

// route is one row of the API table. Paths are relative to /api.
type route struct {
	method  string
	path    string
	access  access
	cap     auth.Capability
	limited bool
	handle  gin.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{method: http.MethodPost, path: "/auth/login", access: public, limited: true, handle: h.login},
		{method: http.MethodPost, path: "/auth/register", access: public, limited: true, handle: h.register},
		{method: http.MethodGet, path: "/auth/me", access: authenticated, handle: h.me},

		{method: http.MethodGet, path: "/employees", access: capability, cap: auth.ReadDirectory, handle: h.listEmployees},
		{method: http.MethodPost, path: "/employees", access: capability, cap: auth.ManageEmployees, handle: h.createEmployee},
		{method: http.MethodPut, path: "/employees/:id", access: capability, cap: auth.ManageEmployees, handle: h.updateEmployee},
		{method: http.MethodDelete, path: "/employees/:id", access: capability, cap: auth.ManageEmployees, handle: h.deleteEmployee},

		{method: http.MethodGet, path: "/tasks", access: capability, cap: auth.ReadDirectory, handle: h.listTasks},
		{method: http.MethodPost, path: "/tasks", access: capability, cap: auth.ManageTasks, handle: h.createTask},
		{method: http.MethodPut, path: "/tasks/:id", access: capability, cap: auth.ManageTasks, handle: h.updateTask},
		{method: http.MethodDelete, path: "/tasks/:id", access: capability, cap: auth.ManageTasks, handle: h.deleteTask},

		{method: http.MethodGet, path: "/attendance", access: capability, cap: auth.ReadAttendance, handle: h.listAttendance},
		{method: http.MethodPost, path: "/attendance/punch", access: capability, cap: auth.RecordAttendance, handle: h.punch},
	}
}
