// Package ws is the player WebSocket: it pushes the player's domain events
// and accepts a small set of commands for driving an expedition in real time.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/survivalcamp/cache"
	"github.com/kasuganosora/survivalcamp/config"
	"github.com/kasuganosora/survivalcamp/game/event"
	"github.com/kasuganosora/survivalcamp/game/expedition"
	mw "github.com/kasuganosora/survivalcamp/middleware"
	"go.uber.org/zap"
)

// Handler is the Gin handler for GET /ws.
type Handler struct {
	cache    cache.Cache
	pubsub   cache.PubSub
	sec      config.SecurityConfig
	engine   *expedition.Engine
	views    *cache.Store
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket Handler with the player commands registered.
// sec.AllowedOrigins controls which origins are accepted; empty permits all.
func NewHandler(c cache.Cache, pubsub cache.PubSub, sec config.SecurityConfig,
	engine *expedition.Engine, views *cache.Store, logger *zap.Logger) *Handler {
	h := &Handler{
		cache:  c,
		pubsub: pubsub,
		sec:    sec,
		engine: engine,
		views:  views,
		router: NewRouter(logger),
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	h.registerCommands()
	return h
}

// ServeWS handles GET /ws?token=<jwt>.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := mw.BearerToken(c)
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token", "code": "unauthorized"})
		return
	}

	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.cache.Exists(ctx, mw.SessionKey(tokenStr))
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired", "code": "unauthorized"})
		return
	}

	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, event.Channel(claims.PlayerID))
	if err != nil {
		h.logger.Error("ws subscribe failed", zap.Int64("player_id", claims.PlayerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
		return
	}
	defer unsub()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	s := NewSession(claims.PlayerID, conn, h.logger)
	h.logger.Info("player connected", zap.Int64("player_id", s.PlayerID))
	s.Send("connected", map[string]int64{"player_id": s.PlayerID})

	go forward(s, msgCh)
	h.readPump(s)
}

// forward relays the player's event channel onto the socket until either
// side goes away.
func forward(s *Session, msgCh <-chan *cache.Message) {
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			s.SendPacket(&Packet{Type: eventType(msg.Payload), Payload: json.RawMessage(msg.Payload)})
		case <-s.Done:
			return
		}
	}
}

func eventType(payload string) string {
	var ev event.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type == "" {
		return "event"
	}
	return string(ev.Type)
}

// readPump reads messages until the connection closes.
func (h *Handler) readPump(s *Session) {
	defer func() {
		s.Close()
		h.logger.Info("player disconnected", zap.Int64("player_id", s.PlayerID))
	}()

	s.setReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.setReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.Int64("player_id", s.PlayerID),
					zap.Error(err))
			}
			return
		}
		s.setReadDeadline()
		h.router.Dispatch(s, raw)
	}
}
