package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
)

// Event types
const (
	EventOrderCreated     = "order_created"
	EventOrderUpdate      = "order_update"
	EventTicketUpdate     = "ticket_update"
	EventTableUpdate      = "table_update"
	EventReceiptGenerated = "receipt_generated"
	EventLayoutUpdate     = "layout_update"
)

// Message is what every connected screen receives. Station is set on ticket
// events so a station screen only sees its own work.
type Message struct {
	Event   string         `json:"event"`
	Station models.Station `json:"station,omitempty"`
	Data    interface{}    `json:"data"`
}

type client struct {
	role    string
	station models.Station
	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

// Hub holds all KDS connections (chef, cashier, admin screens) and fans messages
// out to them.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.RWMutex
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		log:     log,
	}
}

// Register adds a connection. An empty station subscribes to every station.
func (h *Hub) Register(conn *websocket.Conn, role string, station models.Station) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = &client{role: role, station: station}
	h.log.WithFields(logrus.Fields{"role": role, "station": station}).Info("kds client connected")
}

// Unregister drops the connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Notify broadcasts msg. Send failures are logged and never reach the caller.
func (h *Hub) Notify(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).WithField("event", msg.Event).Error("failed to marshal kds message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for conn, c := range h.clients {
		if msg.Station != "" && c.station != "" && c.station != msg.Station {
			continue
		}
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		c.writeMu.Unlock()
		if err != nil {
			h.log.WithError(err).WithField("role", c.role).Warn("failed to send kds message")
		}
	}
}
