package websocket

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmacdonaldsmith/streamrelay/internal/logging"
	"github.com/rmacdonaldsmith/streamrelay/pkg/relay"
	"github.com/rmacdonaldsmith/streamrelay/pkg/routingtable"
)

// ErrHubStopped is returned when registering on a stopped hub.
var ErrHubStopped = errors.New("hub stopped")

// --- Per-connection writer ---

type clientWriter struct {
	conn         *websocket.Conn
	sendCh       chan []byte
	done         chan struct{}
	stopOnce     sync.Once
	writeTimeout time.Duration
	connectedAt  time.Time
}

func (cw *clientWriter) run(h *Hub, id routingtable.ConnID) {
	ticker := h.config.Clock.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-cw.sendCh:
			cw.conn.SetWriteDeadline(time.Now().Add(cw.writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write failed", "conn_id", id.String(), "error", err)
				h.Unregister(id)
				return
			}
		case <-ticker.Chan():
			deadline := time.Now().Add(cw.writeTimeout)
			if err := cw.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.logger.Debug("ping failed", "conn_id", id.String(), "error", err)
				h.Unregister(id)
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		cw.conn.Close()
	})
}

// enqueue never blocks. It reports false when the queue is full or the
// writer has stopped.
func (cw *clientWriter) enqueue(msg []byte) bool {
	select {
	case <-cw.done:
		return false
	default:
	}
	select {
	case cw.sendCh <- msg:
		return true
	default:
		return false
	}
}

// --- Hub ---

// ClientInfo describes one connected client.
type ClientInfo struct {
	ID          routingtable.ConnID
	RemoteAddr  string
	ConnectedAt time.Time
	Patterns    []string
}

// Hub is the outbound connection transport. It owns the websocket
// connections, mirrors their lifecycle into the Registry and implements
// relay.Pusher for the dispatcher.
type Hub struct {
	config   Config
	registry routingtable.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[routingtable.ConnID]*clientWriter
	stopped bool
}

// NewHub creates a hub over registry.
func NewHub(registry routingtable.Registry, config Config) *Hub {
	config.SetDefaults()
	h := &Hub{
		config:   config,
		registry: registry,
		logger:   config.Logger.With("component", "websocket"),
		clients:  make(map[routingtable.ConnID]*clientWriter),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.config.AllowedOrigins, "*") || slices.Contains(h.config.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	id, err := h.Register(conn)
	if err != nil {
		h.logger.Warn("failed to register connection", "error", err)
		conn.Close()
		return
	}
	h.readLoop(id, conn)
}

// Register adds conn to the registry first and then to the hub's own table.
func (h *Hub) Register(conn *websocket.Conn) (routingtable.ConnID, error) {
	id := routingtable.NewConnID()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return "", ErrHubStopped
	}
	if err := h.registry.OnConnect(id); err != nil {
		return "", fmt.Errorf("failed to register connection: %w", err)
	}

	cw := &clientWriter{
		conn:         conn,
		sendCh:       make(chan []byte, h.config.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: h.config.WriteTimeout,
		connectedAt:  h.config.Clock.Now(),
	}
	h.clients[id] = cw
	go cw.run(h, id)

	h.config.Metrics.ActiveConnections.Set(float64(len(h.clients)))
	h.logger.Info("client connected", "conn_id", id.String(), "remote_addr", conn.RemoteAddr().String(), "clients", len(h.clients))
	return id, nil
}

// Unregister closes the connection and removes it from the registry.
// Unknown ids are ignored.
func (h *Hub) Unregister(id routingtable.ConnID) {
	h.mu.Lock()
	cw, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	cw.stop()
	h.registry.OnDisconnect(id)
	h.config.Metrics.ActiveConnections.Set(float64(remaining))
	h.config.Metrics.Subscriptions.Set(float64(h.registry.SubscriptionCount()))
	h.logger.Info("client disconnected", "conn_id", id.String(), "clients", remaining)
}

func (h *Hub) readLoop(id routingtable.ConnID, conn *websocket.Conn) {
	defer h.Unregister(id)

	logger := logging.WithConn(h.logger, id)
	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
		h.handleFrame(id, raw, logger)
	}
}

func (h *Hub) handleFrame(id routingtable.ConnID, raw []byte, logger *slog.Logger) {
	frame, ok := decodeClientFrame(raw)
	if !ok {
		logger.Debug("ignoring malformed client frame", "bytes", len(raw))
		return
	}

	switch frame.Event {
	case FrameSubscribe:
		added, err := h.registry.Subscribe(id, frame.Patterns...)
		if errors.Is(err, routingtable.ErrSubscriptionLimitExceeded) {
			h.config.Metrics.SubscribeErrors.Inc()
			logger.Info("subscription limit reached", "added", len(added), "requested", len(frame.Patterns))
			h.Error(id, relay.SubscribeErrorCode)
		} else if err != nil {
			logger.Warn("subscribe failed", "error", err)
		} else {
			logger.Debug("subscribed", "patterns", added)
		}
	case FrameUnsubscribe:
		h.registry.Unsubscribe(id, frame.Patterns...)
		logger.Debug("unsubscribed", "patterns", frame.Patterns)
	default:
		logger.Debug("ignoring unknown client frame", "event", frame.Event)
		return
	}
	h.config.Metrics.Subscriptions.Set(float64(h.registry.SubscriptionCount()))
}

// Push queues payload for id under eventName. Frames for unknown or slow
// connections are dropped.
func (h *Hub) Push(id routingtable.ConnID, eventName string, payload []byte) {
	h.PushMany([]routingtable.ConnID{id}, eventName, payload)
}

// PushMany encodes the frame once and queues the same bytes for every id.
func (h *Hub) PushMany(ids []routingtable.ConnID, eventName string, payload []byte) {
	if len(ids) == 0 {
		return
	}
	if eventName == "" {
		eventName = h.config.EventName
	}
	msg, err := encodeFrame(eventName, payload)
	if err != nil {
		h.logger.Warn("failed to encode frame", "recipients", len(ids), "error", err)
		return
	}
	for _, id := range ids {
		h.send(id, msg)
	}
}

// Error queues an error frame carrying code for id.
func (h *Hub) Error(id routingtable.ConnID, code string) {
	msg, err := encodeError(code)
	if err != nil {
		h.logger.Warn("failed to encode error frame", "conn_id", id.String(), "error", err)
		return
	}
	h.send(id, msg)
}

func (h *Hub) send(id routingtable.ConnID, msg []byte) {
	h.mu.RLock()
	cw, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !cw.enqueue(msg) {
		h.config.Metrics.FramesDropped.Inc()
		h.logger.Debug("dropping frame for slow client", "conn_id", id.String())
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Clients lists connected clients ordered by connect time.
func (h *Hub) Clients() []ClientInfo {
	h.mu.RLock()
	infos := make([]ClientInfo, 0, len(h.clients))
	for id, cw := range h.clients {
		infos = append(infos, ClientInfo{
			ID:          id,
			RemoteAddr:  cw.conn.RemoteAddr().String(),
			ConnectedAt: cw.connectedAt,
		})
	}
	h.mu.RUnlock()

	for i := range infos {
		patterns, _ := h.registry.Patterns(infos[i].ID)
		infos[i].Patterns = patterns
	}
	slices.SortFunc(infos, func(a, b ClientInfo) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// Stop closes every connection and rejects new ones.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	clients := h.clients
	h.clients = make(map[routingtable.ConnID]*clientWriter)
	h.mu.Unlock()

	for id, cw := range clients {
		cw.stop()
		h.registry.OnDisconnect(id)
	}
	h.config.Metrics.ActiveConnections.Set(0)
	h.config.Metrics.Subscriptions.Set(float64(h.registry.SubscriptionCount()))
}

// Compile-time interface compliance check
var _ relay.BatchPusher = (*Hub)(nil)
