package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"

	"parlour/internal/auth"
	"parlour/internal/metrics"
)

// UpdateType tags attendance payloads.
const UpdateType = "ATTENDANCE_UPDATE"

// Update is the payload of an attendance-update event.
type Update struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	maxFrameSize = 64 << 10
	writeTimeout = 10 * time.Second
	emitTimeout  = 5 * time.Second
)

// SocketHandler upgrades authenticated requests to websocket connections.
type SocketHandler struct {
	hub             *Hub
	authn           auth.Authenticator
	clientBroadcast bool
	bufferSize      int
	now             func() time.Time
}

// NewSocketHandler serves the socket channel. When clientBroadcast is false,
// inbound attendance-update events are rejected instead of relayed.
func NewSocketHandler(hub *Hub, authn auth.Authenticator, clientBroadcast bool) *SocketHandler {
	return &SocketHandler{hub: hub, authn: authn, clientBroadcast: clientBroadcast, bufferSize: 32, now: time.Now}
}

// socketConn serialises frame writes from the writer goroutine and the reader's control replies.
// Once a Close frame has gone out nothing else is written.
type socketConn struct {
	conn      net.Conn
	mu        sync.Mutex
	closeSent bool
}

var errCloseSent = errors.New("close frame already sent")

func (s *socketConn) write(f ws.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeSent {
		return errCloseSent
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteFrame(s.conn, f)
}

// sendClose writes a single Close frame; later calls are no-ops.
func (s *socketConn) sendClose(code ws.StatusCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeSent {
		return
	}
	s.closeSent = true
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = ws.WriteFrame(s.conn, ws.NewCloseFrame(ws.NewCloseFrameBody(code, "")))
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r)
	}
	identity, err := h.authn.Authenticate(r.Context(), token)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Authentication failed"}`))
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("socket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	// Hijacked connections keep the server's request deadlines.
	_ = conn.SetDeadline(time.Time{})
	sc := &socketConn{conn: conn}
	client := NewClient(identity, h.bufferSize)
	metrics.SocketConnections.Inc()
	slog.Info("socket connected", "client", client.ID, "user_id", identity.ID, "role", identity.Role)
	defer func() {
		h.hub.Leave(client)
		client.Close()
		metrics.SocketConnections.Dec()
		slog.Info("socket disconnected", "client", client.ID)
	}()

	go h.writeLoop(sc, client)

	if auth.Allows(identity.Role, auth.SubscribeAttendance) {
		h.hub.Join(client, AudienceAdmins)
		h.sendTo(client, EventConnectionSuccess, map[string]any{
			"message": "Successfully connected to attendance updates",
			"role":    identity.Role,
		})
	}
	h.readLoop(sc, client)
}

func (h *SocketHandler) writeLoop(sc *socketConn, client *Client) {
	defer sc.conn.Close()
	for frame := range client.Frames() {
		if err := sc.write(ws.NewTextFrame(frame)); err != nil {
			if !errors.Is(err, errCloseSent) {
				slog.Debug("socket write failed", "client", client.ID, "err", err)
			}
			return
		}
	}
	sc.sendClose(ws.StatusNormalClosure)
}

// readLoop handles client frames until the peer closes or breaks the protocol.
// Messages must be single masked frames; fragments are refused.
func (h *SocketHandler) readLoop(sc *socketConn, client *Client) {
	for {
		hdr, err := ws.ReadHeader(sc.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("socket read failed", "client", client.ID, "err", err)
			}
			return
		}
		if hdr.Length > maxFrameSize {
			sc.sendClose(ws.StatusMessageTooBig)
			return
		}
		payload := make([]byte, hdr.Length)
		if _, err := io.ReadFull(sc.conn, payload); err != nil {
			return
		}
		if !hdr.Masked || !hdr.Fin || hdr.OpCode == ws.OpContinuation {
			slog.Debug("socket protocol violation", "client", client.ID, "masked", hdr.Masked, "fin", hdr.Fin, "op", hdr.OpCode)
			sc.sendClose(ws.StatusProtocolError)
			return
		}
		ws.Cipher(payload, hdr.Mask, 0)

		switch hdr.OpCode {
		case ws.OpClose:
			sc.sendClose(ws.StatusNormalClosure)
			return
		case ws.OpPing:
			_ = sc.write(ws.NewPongFrame(payload))
		case ws.OpText:
			h.handleInbound(client, payload)
		}
	}
}

func (h *SocketHandler) handleInbound(client *Client, payload []byte) {
	var in struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &in); err != nil {
		h.sendError(client, "Invalid message format")
		return
	}
	switch in.Event {
	case EventAttendanceUpdate:
		h.relayAttendance(client, in.Data)
	default:
		slog.Debug("ignoring socket event", "client", client.ID, "event", in.Event)
	}
}

// relayAttendance rebroadcasts a client-submitted update. It is neither persisted nor re-authorised.
func (h *SocketHandler) relayAttendance(client *Client, data map[string]any) {
	if !truthy(data["employeeId"]) || !truthy(data["action"]) {
		h.sendError(client, "Invalid attendance data")
		return
	}
	if !h.clientBroadcast {
		h.sendError(client, "Client attendance broadcasts are disabled")
		return
	}
	data["timestamp"] = h.now().UTC()
	data["socketId"] = client.ID

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := h.hub.Emit(ctx, AudienceAdmins, EventAttendanceUpdate, Update{Type: UpdateType, Data: data}); err != nil {
		slog.Error("relay attendance update", "client", client.ID, "err", err)
		h.sendError(client, "Failed to process attendance update")
	}
}

func (h *SocketHandler) sendError(client *Client, msg string) {
	h.sendTo(client, EventError, map[string]string{"message": msg})
}

func (h *SocketHandler) sendTo(client *Client, event string, data any) {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		slog.Error("encode socket frame", "event", event, "err", err)
		return
	}
	if !client.Send(frame) {
		slog.Warn("socket send buffer full, frame dropped", "client", client.ID, "event", event)
	}
}

// truthy treats absent, null, empty strings, zero and false as missing.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}
