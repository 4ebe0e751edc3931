package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/realtime-relay/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// PresenceHandler processes presence requests coming from a client.
type PresenceHandler interface {
	GoOnline(ctx context.Context, requester *Client, userEmail, authToken string)
	GoOffline(ctx context.Context, requester *Client, userEmail, authToken string)
}

// Server upgrades HTTP requests to websocket channels and runs their
// read and write pumps.
type Server struct {
	registry *Registry
	presence PresenceHandler
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	// mu guards closing and orders inflight.Add before Wait.
	mu      sync.Mutex
	closing bool
	// inflight tracks presence requests still waiting on the directory.
	inflight sync.WaitGroup
}

// NewServer creates a websocket endpoint. checkOrigin may be nil to accept
// any origin.
func NewServer(
	registry *Registry,
	presence PresenceHandler,
	checkOrigin func(r *http.Request) bool,
	logger zerolog.Logger,
) *Server {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		registry: registry,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "WebSocketServer").Logger(),
	}
}

// Wait stops accepting presence requests and blocks until the in-flight ones
// have completed. Broadcast messages are still relayed afterwards.
func (s *Server) Wait() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.inflight.Wait()
}

// ServeHTTP upgrades the request and serves the channel until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	client := s.registry.Register()
	log := s.logger.With().Str("client", client.ID.String()).Logger()
	log.Info().Msg("New client connected.")

	go s.writePump(conn, client, log)

	// Presence calls outlive the channel: a reply to a closed client is dropped
	// by the registry, but the directory update still completes.
	ctx := context.WithoutCancel(r.Context())
	s.readPump(ctx, conn, client, log)

	s.registry.Unregister(client)
	log.Info().Msg("Client disconnected.")
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *Client, log zerolog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Connection closed unexpectedly.")
			}
			return
		}
		s.dispatch(ctx, client, data, log)
	}
}

func (s *Server) dispatch(ctx context.Context, client *Client, data []byte, log zerolog.Logger) {
	frame, err := models.Decode(data)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring undecodable frame.")
		return
	}

	switch frame.Event {
	case models.EventMessage:
		msg := models.Message{Payload: frame.Arg(0)}
		log.Debug().Int("bytes", len(msg.Payload)).Msg("Message received.")
		s.registry.PublishAll(msg)
	case models.EventUserOnline:
		if !s.goAsync(func() { s.presence.GoOnline(ctx, client, frame.StringArg(0), frame.StringArg(1)) }) {
			log.Debug().Msg("Shutting down, ignoring userOnline.")
		}
	case models.EventUserOffline:
		if !s.goAsync(func() { s.presence.GoOffline(ctx, client, frame.StringArg(0), frame.StringArg(1)) }) {
			log.Debug().Msg("Shutting down, ignoring userOffline.")
		}
	default:
		log.Debug().Str("event", string(frame.Event)).Msg("Ignoring unknown event.")
	}
}

// goAsync runs fn in the background unless Wait has been called.
func (s *Server) goAsync(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		fn()
	}()
	return true
}

func (s *Server) writePump(conn *websocket.Conn, client *Client, log zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close connection.")
		}
	}()

	for {
		select {
		case frame, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Msg("Write failed.")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
