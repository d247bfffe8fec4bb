package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Tipi di evento inviati ai client WebSocket
const (
	EventDocumentSaved   = "document_saved"
	EventDocumentChanged = "document_changed"
	EventDocumentDeleted = "document_deleted"
	EventUserCreated     = "user_created"
	EventImageUploaded   = "image_uploaded"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Event messaggio live per i client collegati
type Event struct {
	Type      string    `json:"type"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient connessione con la sua coda di invio; solo writePump scrive su conn
type wsClient struct {
	conn *websocket.Conn
	send chan Event
}

// Hub tiene traccia delle connessioni WebSocket aperte
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	logger  *zap.Logger
}

// NewHub crea un hub vuoto
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]bool),
		logger:  logger,
	}
}

func (h *Hub) add(conn *websocket.Conn) (*wsClient, int) {
	client := &wsClient{conn: conn, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	return client, len(h.clients)
}

func (h *Hub) remove(client *wsClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(client)
	return len(h.clients)
}

// drop chiude la coda del client; va chiamata con h.mu acquisito
func (h *Hub) drop(client *wsClient) {
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
}

// Count numero di client collegati
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast accoda l'evento per tutti i client senza attendere la rete.
// Un client con la coda piena viene scollegato.
func (h *Hub) Broadcast(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- ev:
		default:
			h.logger.Warn("client WebSocket troppo lento, connessione chiusa")
			h.drop(client)
		}
	}
}

// CloseAll chiude tutte le connessioni; writePump invia il messaggio di chiusura
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.drop(client)
	}
}

// writePump scrive gli eventi in coda finché la coda non viene chiusa
func (h *Hub) writePump(client *wsClient) {
	defer client.conn.Close()
	for ev := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(ev); err != nil {
			h.logger.Warn("errore invio WebSocket", zap.Error(err))
			h.remove(client)
			return
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server in arresto")
	_ = client.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// ============================================
// WebSocket
// ============================================

// handleWebSocket gestisce connessioni WebSocket
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("errore upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	client, total := s.hub.add(conn)
	s.logger.Info("🔌 Client WebSocket connesso", zap.Int("totale", total))
	go s.hub.writePump(client)

	// Mantieni la connessione aperta
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			total = s.hub.remove(client)
			s.logger.Info("🔌 Client WebSocket disconnesso", zap.Int("totale", total))
			return
		}
	}
}

// forwardWatcherEvents inoltra ai client le modifiche fatte fuori dal server
func (s *Server) forwardWatcherEvents() {
	for event := range s.watcher.Events() {
		s.hub.Broadcast(Event{
			Type:      event.Type,
			Username:  event.Username,
			Timestamp: event.Timestamp,
		})
	}
}
