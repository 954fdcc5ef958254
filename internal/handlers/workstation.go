package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/chat"
	"github.com/vanpelt/aura/internal/logger"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/providers"
	"github.com/vanpelt/aura/internal/recovery"
	"github.com/vanpelt/aura/internal/settings"
)

// InteractionStore records and lists interaction log rows
type InteractionStore interface {
	chat.InteractionLogger
	RecentInteractions(ctx context.Context, userID int64, limit int) ([]models.InteractionLog, error)
}

// WorkstationHandler runs the multi-provider chat workspace of each user
// and streams its events over a websocket
type WorkstationHandler struct {
	providers *providers.Set
	registry  *settings.Registry
	log       InteractionStore

	mu    sync.Mutex
	desks map[int64]*desk
}

// desk is one user's workspace plus the sockets watching it
type desk struct {
	workspace *chat.Workspace

	connMu sync.RWMutex
	conns  map[*websocket.Conn]*socket
}

// socket serializes writes to one connection. Once closed it drops writes:
// the connection is recycled as soon as its handler returns.
type socket struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// WorkstationCommand is a client → server websocket message
type WorkstationCommand struct {
	Type     string `json:"type"` // send, cancel, reset, state
	Prompt   string `json:"prompt,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// WorkstationState is pushed on connect and on request
type WorkstationState struct {
	Type    string                `json:"type"`
	Sending bool                  `json:"sending"`
	Lanes   []models.LaneSnapshot `json:"lanes"`
}

// SendResultMessage reports which lanes a send reached
type SendResultMessage struct {
	Type       string                     `json:"type"`
	Dispatched []models.Provider          `json:"dispatched"`
	Rejected   map[models.Provider]string `json:"rejected,omitempty"`
}

// NewWorkstationHandler creates a new workstation handler
func NewWorkstationHandler(set *providers.Set, registry *settings.Registry, log InteractionStore) *WorkstationHandler {
	return &WorkstationHandler{
		providers: set,
		registry:  registry,
		log:       log,
		desks:     make(map[int64]*desk),
	}
}

func (h *WorkstationHandler) desk(ctx context.Context, userID int64) (*desk, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d, ok := h.desks[userID]; ok {
		return d, nil
	}
	st, err := h.registry.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &desk{conns: make(map[*websocket.Conn]*socket)}
	d.workspace = chat.NewWorkspace(chat.Options{
		Providers: h.providers,
		Settings:  st,
		Sink:      func(e chat.Event) { d.broadcast(e) },
		Log:       h.log,
		UserID:    userID,
	})
	h.desks[userID] = d
	return d, nil
}

// HandleWebSocket upgrades the connection and attaches it to the caller's
// workspace
// @Summary Workstation websocket
// @Description Send {type:"send",prompt}, {type:"cancel",provider} or {type:"reset"}; receives lane events
// @Tags workstation
// @Success 101 {string} string "Switching Protocols"
// @Router /api/workstation/ws [get]
func (h *WorkstationHandler) HandleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, ok := auth.FromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	d, err := h.desk(c.UserContext(), claims.UserID)
	if err != nil {
		logger.Errorf("❌ Failed to open workspace for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open workspace"})
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.serve(conn, d, claims.UserID)
	})(c)
}

func (h *WorkstationHandler) serve(conn *websocket.Conn, d *desk, userID int64) {
	d.attach(conn)
	defer d.detach(conn)
	logger.Debugf("🔌 Workstation socket opened for user %d", userID)

	d.write(conn, d.state())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("🔌 Workstation socket closed for user %d: %v", userID, err)
			return
		}
		var cmd WorkstationCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			d.write(conn, fiber.Map{"type": "error", "error": "invalid message"})
			continue
		}
		h.dispatch(conn, d, cmd)
	}
}

func (h *WorkstationHandler) dispatch(conn *websocket.Conn, d *desk, cmd WorkstationCommand) {
	switch cmd.Type {
	case "send":
		prompt := cmd.Prompt
		recovery.SafeGo("workstation send", func() {
			// lanes outlive the socket; a reconnect picks them up again
			res, err := d.workspace.Send(context.Background(), prompt)
			if err != nil {
				d.broadcast(fiber.Map{"type": "error", "error": err.Error()})
				return
			}
			d.broadcast(SendResultMessage{Type: "send.result", Dispatched: res.Dispatched, Rejected: res.Rejected})
		})
	case "cancel":
		p, err := models.ParseProvider(strings.ToLower(cmd.Provider))
		if err != nil {
			d.write(conn, fiber.Map{"type": "error", "error": err.Error()})
			return
		}
		d.workspace.Cancel(p)
	case "reset":
		if cmd.Provider == "" {
			d.workspace.Reset()
		} else if p, err := models.ParseProvider(strings.ToLower(cmd.Provider)); err == nil {
			d.workspace.Reset(p)
		}
		d.broadcast(d.state())
	case "state":
		d.write(conn, d.state())
	default:
		d.write(conn, fiber.Map{"type": "error", "error": "unknown message type: " + cmd.Type})
	}
}

// GetLanes returns the caller's lanes
// @Summary Workstation lanes
// @Tags workstation
// @Produce json
// @Success 200 {object} WorkstationState
// @Router /api/workstation/lanes [get]
func (h *WorkstationHandler) GetLanes(c *fiber.Ctx) error {
	claims, ok := auth.FromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	d, err := h.desk(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open workspace"})
	}
	return c.JSON(d.state())
}

// GetHistory lists the caller's most recent interactions
// @Summary Interaction log
// @Tags workstation
// @Produce json
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {object} fiber.Map
// @Router /api/workstation/history [get]
func (h *WorkstationHandler) GetHistory(c *fiber.Ctx) error {
	claims, ok := auth.FromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := h.log.RecentInteractions(c.UserContext(), claims.UserID, limit)
	if err != nil {
		logger.Errorf("❌ Failed to list interactions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load history"})
	}
	if rows == nil {
		rows = []models.InteractionLog{}
	}
	return c.JSON(fiber.Map{"interactions": rows})
}

func (d *desk) state() WorkstationState {
	lanes := d.workspace.Lanes()
	if lanes == nil {
		lanes = []models.LaneSnapshot{}
	}
	return WorkstationState{Type: "state", Sending: d.workspace.Sending(), Lanes: lanes}
}

func (d *desk) attach(conn *websocket.Conn) *socket {
	sock := &socket{conn: conn}
	d.connMu.Lock()
	d.conns[conn] = sock
	d.connMu.Unlock()
	return sock
}

// detach waits for an in-flight write before marking the socket closed
func (d *desk) detach(conn *websocket.Conn) {
	d.connMu.Lock()
	sock, ok := d.conns[conn]
	delete(d.conns, conn)
	d.connMu.Unlock()
	if !ok {
		return
	}
	sock.mu.Lock()
	sock.closed = true
	sock.mu.Unlock()
}

// write sends v to one attached socket
func (d *desk) write(conn *websocket.Conn, v any) {
	d.connMu.RLock()
	sock, ok := d.conns[conn]
	d.connMu.RUnlock()
	if ok {
		sock.send(v)
	}
}

func (s *socket) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.conn.WriteJSON(v); err != nil {
		logger.Debugf("🔌 Workstation write failed: %v", err)
	}
}

func (d *desk) broadcast(v any) {
	d.connMu.RLock()
	socks := make([]*socket, 0, len(d.conns))
	for _, sock := range d.conns {
		socks = append(socks, sock)
	}
	d.connMu.RUnlock()

	for _, sock := range socks {
		sock.send(v)
	}
}
