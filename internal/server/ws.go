package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudstok/mines-game-backend/encoding"
	"github.com/cloudstok/mines-game-backend/internal/biz"
	"github.com/cloudstok/mines-game-backend/internal/conf"
	"github.com/cloudstok/mines-game-backend/internal/service"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewWSServer)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// frame is the outbound wire envelope.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// WSServer owns the websocket endpoint and the connection registry. It is the
// only component that touches sockets; the service sees sessions and events.
type WSServer struct {
	cfg *conf.Server
	svc *service.GameService
	log *zap.Logger

	httpSrv *http.Server

	mu      sync.RWMutex
	clients map[string]*client
}

func NewWSServer(c *conf.Server, svc *service.GameService, logger *zap.Logger) *WSServer {
	s := &WSServer{
		cfg:     c,
		svc:     svc,
		log:     logger,
		clients: make(map[string]*client),
	}
	svc.SetPusher(s)

	mux := http.NewServeMux()
	mux.HandleFunc(c.Path, s.serveWS)
	s.httpSrv = &http.Server{
		Addr:         c.Addr,
		Handler:      mux,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	return s
}

func (s *WSServer) Start(ctx context.Context) error {
	s.log.Info("websocket server listening", zap.String("addr", s.cfg.Addr), zap.String("path", s.cfg.Path))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *WSServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range s.clients {
		close(c.send)
	}
	s.clients = make(map[string]*client)
	s.mu.Unlock()
	return s.httpSrv.Shutdown(ctx)
}

// Push sends one event to one connection. A full send buffer drops the frame
// rather than blocking the game loop.
func (s *WSServer) Push(sessionID, event string, payload any) {
	s.mu.RLock()
	c, ok := s.clients[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	raw, err := encoding.JSON.Marshal(&frame{Event: event, Data: payload})
	if err != nil {
		s.log.Error("Push", zap.Error(err), zap.String("event", event))
		return
	}
	select {
	case c.send <- raw:
	default:
		s.log.Warn("Push", zap.String("event", event), zap.String("sessionId", sessionID))
	}
}

// Broadcast fans one event out to every connection.
func (s *WSServer) Broadcast(event string, payload any) {
	raw, err := encoding.JSON.Marshal(&frame{Event: event, Data: payload})
	if err != nil {
		s.log.Error("Broadcast", zap.Error(err), zap.String("event", event))
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.send <- raw:
		default:
		}
	}
}

// serveWS authenticates the handshake from query parameters, registers the
// connection under a fresh session id and runs the read loop until the peer
// goes away.
func (s *WSServer) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r)
	if !ok {
		http.Error(w, "missing player details", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("serveWS", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}

	c := &client{sessionID: sess.SessionID, conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[sess.SessionID] = c
	s.mu.Unlock()

	go s.writeLoop(c)
	s.svc.OnSessionOpen(r.Context(), sess)
	s.readLoop(c)
}

func (s *WSServer) readLoop(c *client) {
	defer func() {
		s.mu.Lock()
		if cur, ok := s.clients[c.sessionID]; ok && cur == c {
			delete(s.clients, c.sessionID)
			close(c.send)
		}
		s.mu.Unlock()
		s.svc.OnSessionClose(context.Background(), c.sessionID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("readLoop", zap.Error(err), zap.String("sessionId", c.sessionID))
			}
			return
		}
		s.svc.HandleMessage(context.Background(), c.sessionID, string(msg))
	}
}

func (s *WSServer) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sessionFromRequest builds the player session from handshake query
// parameters. Upstream terminates auth; this edge only requires the identity
// fields to be present.
func sessionFromRequest(r *http.Request) (*biz.PlayerSession, bool) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	operatorID := q.Get("operator_id")
	if userID == "" || operatorID == "" {
		return nil, false
	}
	balance, err := decimal.NewFromString(q.Get("balance"))
	if err != nil {
		balance = decimal.Zero
	}
	return &biz.PlayerSession{
		UserID:     userID,
		OperatorID: operatorID,
		SessionID:  uuid.Must(uuid.NewV7()).String(),
		IP:         clientIP(r),
		Balance:    balance,
	}, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
