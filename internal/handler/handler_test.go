package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parlour/internal/attendance"
	"parlour/internal/auth"
	"parlour/internal/employee"
	"parlour/internal/notify"
	"parlour/internal/store"
	"parlour/internal/task"
)

const password = "Secret@123"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type env struct {
	router *gin.Engine
	store  *store.Memory
	clock  *fakeClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := store.NewMemory()
	issuer, err := auth.NewIssuer("test-secret", 7*24*time.Hour)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	authSvc := auth.NewService(m, auth.NewHasher(bcrypt.MinCost), issuer, auth.WithClock(clock.Now))

	hub := notify.NewHub(notify.NewInMemory(64))
	require.NoError(t, hub.Start(ctx))

	h := New(Deps{
		Auth:       authSvc,
		Employees:  employee.NewService(m),
		Tasks:      task.NewService(m, m),
		Attendance: attendance.NewService(m, m, hub),
		Socket:     notify.NewSocketHandler(hub, authSvc, true),
		Health:     []HealthCheck{{Name: "store", Check: m.Ping}},
	})
	r := gin.New()
	h.Register(r)
	return &env{router: r, store: m, clock: clock}
}

type response struct {
	code   int
	raw    []byte
	body   map[string]any
	header http.Header
}

func (e *env) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	res := response{code: w.Code, raw: w.Body.Bytes(), header: w.Header()}
	_ = json.Unmarshal(res.raw, &res.body)
	return res
}

func (e *env) register(t *testing.T, name, email, role string) string {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password, "role": role,
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.raw))
	return res.body["token"].(string)
}

func (e *env) login(t *testing.T, email, pw string) response {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": pw})
}

func (e *env) createEmployee(t *testing.T, token, email string) string {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/employees", token, map[string]any{
		"name": "Sarah Johnson", "email": email, "phone": "+1234567890", "position": "Senior Stylist", "joinDate": "2023-01-15",
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.raw))
	return res.body["data"].(map[string]any)["id"].(string)
}

func TestRegisterThenLockoutUntilExpiry(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	require.NotEmpty(t, token)

	for i := 1; i <= 4; i++ {
		res := e.login(t, "owner@parlour.com", "Wrong@1234")
		require.Equal(t, http.StatusUnauthorized, res.code, "attempt %d", i)
	}
	res := e.login(t, "owner@parlour.com", "Wrong@1234")
	require.Equal(t, http.StatusLocked, res.code)
	require.Equal(t, "900", res.header.Get("Retry-After"))
	require.Equal(t, false, res.body["success"])

	res = e.login(t, "owner@parlour.com", password)
	require.Equal(t, http.StatusLocked, res.code, "correct password refused while locked")

	e.clock.Advance(14 * time.Minute)
	res = e.login(t, "owner@parlour.com", password)
	require.Equal(t, http.StatusLocked, res.code)
	require.Equal(t, "Account is locked. Please try again in 1 minutes", res.body["message"])

	e.clock.Advance(time.Minute)
	res = e.login(t, "owner@parlour.com", password)
	require.Equal(t, http.StatusOK, res.code, string(res.raw))
	require.NotEmpty(t, res.body["token"])
	user := res.body["user"].(map[string]any)
	require.Equal(t, "owner@parlour.com", user["email"])
	require.NotContains(t, user, "password")
}

func TestUnknownEmailAndWrongPasswordIdentical(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Owner", "owner@parlour.com", "superadmin")

	wrong := e.login(t, "owner@parlour.com", "Wrong@1234")
	unknown := e.login(t, "ghost@parlour.com", "Wrong@1234")
	require.Equal(t, wrong.code, unknown.code)
	require.Equal(t, string(wrong.raw), string(unknown.raw))
	require.JSONEq(t, `{"success":false,"message":"Invalid credentials"}`, string(unknown.raw))
}

func TestRegisterValidationAndDuplicate(t *testing.T) {
	e := newEnv(t)
	res := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Al", "email": "al@parlour.com", "password": "weak", "role": "admin"})
	require.Equal(t, http.StatusBadRequest, res.code)

	e.register(t, "Owner", "owner@parlour.com", "superadmin")
	res = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Owner", "email": "OWNER@parlour.com", "password": password, "role": "admin"})
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "User with this email already exists", res.body["message"])

	res = e.do(t, http.MethodPost, "/api/auth/login", "", nil)
	require.Equal(t, http.StatusBadRequest, res.code)
}

func TestMeAndGate(t *testing.T) {
	e := newEnv(t)
	token := e.register(t, "Owner", "owner@parlour.com", "superadmin")

	res := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "superadmin", res.body["user"].(map[string]any)["role"])

	res = e.do(t, http.MethodGet, "/api/employees", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, "Not authorized, token missing", res.body["message"])

	res = e.do(t, http.MethodGet, "/api/employees", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, "Not authorized, invalid token", res.body["message"])

	res = e.do(t, http.MethodGet, "/api/nowhere", token, nil)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestAdminCannotDeleteEmployee(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	admin := e.register(t, "Front Desk", "desk@parlour.com", "admin")
	id := e.createEmployee(t, super, "sarah@parlour.com")

	res := e.do(t, http.MethodDelete, "/api/employees/"+id, admin, nil)
	require.Equal(t, http.StatusForbidden, res.code)

	res = e.do(t, http.MethodGet, "/api/employees", admin, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.body["data"], 1)

	res = e.do(t, http.MethodPost, "/api/tasks", admin, map[string]any{"title": "x"})
	require.Equal(t, http.StatusForbidden, res.code)

	res = e.do(t, http.MethodDelete, "/api/employees/"+id, super, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "Employee deleted successfully", res.body["message"])

	res = e.do(t, http.MethodDelete, "/api/employees/"+id, super, nil)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestEmployeeUpdate(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	id := e.createEmployee(t, super, "sarah@parlour.com")

	res := e.do(t, http.MethodPut, "/api/employees/"+id, super, map[string]any{"position": "Manager"})
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "Manager", res.body["data"].(map[string]any)["position"])

	res = e.do(t, http.MethodPut, "/api/employees/unknown", super, map[string]any{"position": "Manager"})
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestTaskLifecycle(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	admin := e.register(t, "Front Desk", "desk@parlour.com", "admin")
	emp := e.createEmployee(t, super, "sarah@parlour.com")

	res := e.do(t, http.MethodPost, "/api/tasks", super, map[string]any{
		"title": "Monthly Inventory Check", "description": "Count supplies", "assignedTo": emp, "dueDate": "2024-06-08", "priority": "high",
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.raw))
	created := res.body["data"].(map[string]any)
	require.Equal(t, "pending", created["status"])
	require.Equal(t, "Owner", created["creator"].(map[string]any)["name"])
	require.Equal(t, "Sarah Johnson", created["assignee"].(map[string]any)["name"])

	res = e.do(t, http.MethodGet, "/api/tasks", admin, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.body["data"], 1)

	id := created["id"].(string)
	res = e.do(t, http.MethodPut, "/api/tasks/"+id, super, map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "in-progress", res.body["data"].(map[string]any)["status"])

	res = e.do(t, http.MethodDelete, "/api/tasks/"+id, super, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "Task deleted successfully", res.body["message"])
}

func TestPunchInTwiceAndList(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	admin := e.register(t, "Front Desk", "desk@parlour.com", "admin")
	emp := e.createEmployee(t, super, "sarah@parlour.com")

	for i := 0; i < 2; i++ {
		res := e.do(t, http.MethodPost, "/api/attendance/punch", admin, map[string]string{"employeeId": emp, "action": "punch-in"})
		require.Equal(t, http.StatusOK, res.code, string(res.raw))
		entry := res.body["data"].(map[string]any)
		require.Equal(t, "punch-in", entry["action"])
		require.Equal(t, "Sarah Johnson", entry["employee"].(map[string]any)["name"])
	}

	res := e.do(t, http.MethodGet, "/api/attendance", admin, nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.body["data"], 2)

	got, err := e.store.EmployeeByID(context.Background(), emp)
	require.NoError(t, err)
	require.Equal(t, "in", string(got.CurrentStatus))

	res = e.do(t, http.MethodPost, "/api/attendance/punch", admin, map[string]string{"employeeId": emp, "action": "nap"})
	require.Equal(t, http.StatusBadRequest, res.code)
	res = e.do(t, http.MethodPost, "/api/attendance/punch", admin, map[string]string{"employeeId": "ghost", "action": "punch-out"})
	require.Equal(t, http.StatusNotFound, res.code)
	require.Equal(t, "Employee not found", res.body["message"])
}

func TestAttendanceListCappedNewestFirst(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	emp := e.createEmployee(t, super, "sarah@parlour.com")

	for i := 0; i < 101; i++ {
		action := "punch-in"
		if i%2 == 1 {
			action = "punch-out"
		}
		res := e.do(t, http.MethodPost, "/api/attendance/punch", super, map[string]string{"employeeId": emp, "action": action})
		require.Equal(t, http.StatusOK, res.code)
	}
	res := e.do(t, http.MethodGet, "/api/attendance", super, nil)
	entries := res.body["data"].([]any)
	require.Len(t, entries, 100)
	require.Equal(t, "punch-in", entries[0].(map[string]any)["action"], "last punch (i=100) first")

	var prev time.Time
	for i, raw := range entries {
		ts, err := time.Parse(time.RFC3339Nano, raw.(map[string]any)["timestamp"].(string))
		require.NoError(t, err)
		if i > 0 {
			require.False(t, ts.After(prev))
		}
		prev = ts
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	res := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "OK", res.body["status"])
	require.Equal(t, "ok", res.body["checks"].(map[string]any)["store"])
}

func TestPunchIsPushedToAdminSocket(t *testing.T) {
	e := newEnv(t)
	super := e.register(t, "Owner", "owner@parlour.com", "superadmin")
	admin := e.register(t, "Front Desk", "desk@parlour.com", "admin")
	emp := e.createEmployee(t, super, "sarah@parlour.com")

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn, br, _, err := ws.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http")+"/socket?token="+admin)
	require.NoError(t, err)
	defer conn.Close()
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
	}
	rw := struct {
		io.Reader
		io.Writer
	}{bufio.NewReader(r), conn}

	read := func() (string, map[string]any) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		data, _, err := wsutil.ReadServerData(rw)
		require.NoError(t, err)
		var f struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &f))
		return f.Event, f.Data
	}

	event, _ := read()
	require.Equal(t, notify.EventConnectionSuccess, event)

	res := e.do(t, http.MethodPost, "/api/attendance/punch", admin, map[string]string{"employeeId": emp, "action": "punch-in"})
	require.Equal(t, http.StatusOK, res.code)

	event, data := read()
	require.Equal(t, notify.EventAttendanceUpdate, event)
	require.Equal(t, notify.UpdateType, data["type"])
	inner := data["data"].(map[string]any)
	require.Equal(t, "in", inner["employee"].(map[string]any)["currentStatus"])
	require.Equal(t, res.body["data"].(map[string]any)["id"], inner["log"].(map[string]any)["id"])

	resp, err := http.Get(srv.URL + "/socket")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
