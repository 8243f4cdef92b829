package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	broadcastQueueSize = 256
	sendBufferSize     = 64
)

// ClientCommandHandler handles commands sent by clients over their socket
type ClientCommandHandler func(conn *Connection, msg ClientMessage)

// ClientMessage is a command sent by a client
type ClientMessage struct {
	Type string `json:"type"`
}

const (
	ClientMessageAcknowledge = "acknowledge_game_over"
	ClientMessageGetView     = "get_view"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig allows any origin; client messages are tiny commands.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Connection is one watcher's socket
type Connection struct {
	ID          string
	ClientID    string
	ConnectedAt time.Time

	ws      *websocket.Conn
	send    chan []byte
	manager *ConnectionManager
}

// ConnectionManager fans gateway events out to every watcher of the session
type ConnectionManager struct {
	config    ConnectionConfig
	upgrader  websocket.Upgrader
	onCommand ClientCommandHandler
	events    chan *GatewayEvent

	mu      sync.RWMutex
	clients map[string]*Connection
}

func NewConnectionManager(config ConnectionConfig, onCommand ClientCommandHandler) *ConnectionManager {
	return &ConnectionManager{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		onCommand: onCommand,
		events:    make(chan *GatewayEvent, broadcastQueueSize),
		clients:   make(map[string]*Connection),
	}
}

// Start delivers queued broadcasts until ctx is cancelled, then disconnects everyone
func (cm *ConnectionManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			cm.disconnectAll()
			return
		case evt := <-cm.events:
			cm.deliver(evt)
		}
	}
}

// UpgradeConnection upgrades the request and starts the connection's pumps
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, clientID string) (*Connection, error) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		ConnectedAt: time.Now(),
		ws:          ws,
		send:        make(chan []byte, sendBufferSize),
		manager:     cm,
	}

	cm.mu.Lock()
	cm.clients[c.ID] = c
	total := len(cm.clients)
	cm.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()

	log.Info().
		Str("connection_id", c.ID).
		Str("client_id", clientID).
		Int("total_connections", total).
		Msg("watcher connected")
	return c, nil
}

// Broadcast queues evt for every connection. A full queue drops it.
func (cm *ConnectionManager) Broadcast(evt *GatewayEvent) {
	select {
	case cm.events <- evt:
	default:
		log.Warn().Str("event_type", string(evt.Type)).Msg("broadcast queue full, dropping event")
	}
}

// SendTo writes evt to one connection only
func (cm *ConnectionManager) SendTo(c *Connection, evt *GatewayEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	if !cm.enqueue(c, data) {
		cm.drop(c, "send buffer full")
	}
}

// ConnectionStats summarises active connections
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
}

func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return ConnectionStats{TotalConnections: len(cm.clients)}
}

func (cm *ConnectionManager) deliver(evt *GatewayEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(evt.Type)).Msg("failed to marshal event")
		return
	}

	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.clients))
	for _, c := range cm.clients {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		if !cm.enqueue(c, data) {
			cm.drop(c, "send buffer full")
		}
	}
}

// enqueue reports false only when c is still registered but cannot keep up.
func (cm *ConnectionManager) enqueue(c *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if _, ok := cm.clients[c.ID]; !ok {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// drop unregisters c and closes its send channel, which ends the write loop. Safe to call repeatedly.
func (cm *ConnectionManager) drop(c *Connection, reason string) {
	cm.mu.Lock()
	if _, ok := cm.clients[c.ID]; !ok {
		cm.mu.Unlock()
		return
	}
	delete(cm.clients, c.ID)
	close(c.send)
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", c.ID).
		Str("client_id", c.ClientID).
		Str("reason", reason).
		Msg("watcher disconnected")
}

func (cm *ConnectionManager) disconnectAll() {
	cm.mu.RLock()
	all := make([]*Connection, 0, len(cm.clients))
	for _, c := range cm.clients {
		all = append(all, c)
	}
	cm.mu.RUnlock()

	for _, c := range all {
		cm.drop(c, "shutdown")
	}
}

func (c *Connection) writeLoop() {
	cfg := c.manager.config
	ping := time.NewTicker(cfg.PingInterval)
	defer func() {
		ping.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("write failed")
				c.manager.drop(c, "write failed")
				return
			}
		case <-ping.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.manager.drop(c, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) readLoop() {
	cfg := c.manager.config
	defer c.manager.drop(c, "closed by client")

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("ignoring malformed client message")
			continue
		}
		if c.manager.onCommand != nil {
			c.manager.onCommand(c, msg)
		}
	}
}
