// Package handler exposes the services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"parlour/internal/attendance"
	"parlour/internal/auth"
	"parlour/internal/employee"
	"parlour/internal/task"
)

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of a Handler. Socket, AuthLimiter and Health are optional.
type Deps struct {
	Auth        *auth.Service
	Employees   *employee.Service
	Tasks       *task.Service
	Attendance  *attendance.Service
	Socket      http.Handler
	AuthLimiter gin.HandlerFunc
	Health      []HealthCheck
}

// Handler serves the REST API.
type Handler struct {
	auth        *auth.Service
	employees   *employee.Service
	tasks       *task.Service
	attendance  *attendance.Service
	socket      http.Handler
	authLimiter gin.HandlerFunc
	checks      []HealthCheck
}

// New builds a Handler.
func New(d Deps) *Handler {
	return &Handler{
		auth:        d.Auth,
		employees:   d.Employees,
		tasks:       d.Tasks,
		attendance:  d.Attendance,
		socket:      d.Socket,
		authLimiter: d.AuthLimiter,
		checks:      d.Health,
	}
}

// Register mounts the route table under /api plus /health and /socket.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	for _, rt := range h.routes() {
		api.Handle(rt.method, rt.path, h.chain(rt)...)
	}
	r.GET("/health", h.health)
	if h.socket != nil {
		r.GET("/socket", gin.WrapH(h.socket))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
}

func (h *Handler) chain(rt route) []gin.HandlerFunc {
	var chain []gin.HandlerFunc
	if rt.limited && h.authLimiter != nil {
		chain = append(chain, h.authLimiter)
	}
	if rt.access != public {
		chain = append(chain, auth.RequireAuth(h.auth))
	}
	if rt.access == capability {
		chain = append(chain, auth.RequireCapability(rt.cap))
	}
	return append(chain, rt.handle)
}
