package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

type tokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Server upgrades authenticated HTTP requests to websocket connections.
type Server struct {
	auth     tokenVerifier
	hub      *Hub
	upgrader *websocket.Upgrader
}

func NewServer(auth tokenVerifier, hub *Hub) *Server {
	return &Server{
		auth: auth,
		hub:  hub,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	// The credential arrives out-of-band with the handshake, not as an
	// event: unauthenticated sockets never reach the hub.
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("token")
	}
	userID, err := s.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("error upgrading to websocket", "error", err)
		return
	}

	// Liveness is delegated to the transport keepalive. WriteControl is
	// safe to call concurrently with the connection's write pump.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-stopPing:
				return
			}
		}
	}()

	c := NewConnection(s.hub, conn, userID)
	if err := c.Handle(r.Context()); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			slog.Warn("websocket closed unexpectedly", "user_id", userID, "error", err)
		}
	}
}
