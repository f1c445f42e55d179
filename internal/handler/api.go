package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parlour/internal/apperr"
	"parlour/internal/attendance"
	"parlour/internal/auth"
	"parlour/internal/employee"
	"parlour/internal/task"
)

// ---- auth ----

func (h *Handler) login(c *gin.Context) {
	var in auth.LoginInput
	if !bind(c, &in) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": sess.Token, "user": sess.User})
}

func (h *Handler) register(c *gin.Context) {
	var in auth.RegisterInput
	if !bind(c, &in) {
		return
	}
	sess, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"token": sess.Token, "user": sess.User})
}

func (h *Handler) me(c *gin.Context) {
	u, found := auth.CurrentIdentity(c)
	if !found {
		fail(c, apperr.Unauthorized("Not authorized, invalid token"))
		return
	}
	ok(c, http.StatusOK, gin.H{"user": u})
}

// ---- employees ----

func (h *Handler) listEmployees(c *gin.Context) {
	list, err := h.employees.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": list})
}

func (h *Handler) createEmployee(c *gin.Context) {
	var in employee.CreateInput
	if !bind(c, &in) {
		return
	}
	e, err := h.employees.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"data": e})
}

func (h *Handler) updateEmployee(c *gin.Context) {
	var in employee.UpdateInput
	if !bind(c, &in) {
		return
	}
	e, err := h.employees.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": e})
}

func (h *Handler) deleteEmployee(c *gin.Context) {
	if err := h.employees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Employee deleted successfully"})
}

// ---- tasks ----

func (h *Handler) listTasks(c *gin.Context) {
	list, err := h.tasks.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": list})
}

func (h *Handler) createTask(c *gin.Context) {
	var in task.CreateInput
	if !bind(c, &in) {
		return
	}
	u, _ := auth.CurrentIdentity(c)
	t, err := h.tasks.Create(c.Request.Context(), u.ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"data": t})
}

func (h *Handler) updateTask(c *gin.Context) {
	var in task.UpdateInput
	if !bind(c, &in) {
		return
	}
	t, err := h.tasks.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": t})
}

func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ---- attendance ----

func (h *Handler) listAttendance(c *gin.Context) {
	list, err := h.attendance.Recent(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": list})
}

func (h *Handler) punch(c *gin.Context) {
	var in attendance.PunchInput
	if !bind(c, &in) {
		return
	}
	entry, err := h.attendance.Punch(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"data": entry})
}

// ---- health ----

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "OK", http.StatusOK
	checks := make(gin.H, len(h.checks))
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			checks[hc.Name] = err.Error()
			status, code = "DEGRADED", http.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "timestamp": time.Now().UTC().Format(time.RFC3339), "checks": checks})
}
