package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
)

// Packet is the WS message envelope in both directions.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one connected player socket.
type Session struct {
	PlayerID int64
	Conn     *websocket.Conn

	SendChan chan []byte
	Done     chan struct{}
	TraceID  string
	LastSeq  uint64

	logger *zap.Logger
}

// NewSession creates a Session and starts its write goroutine.
func NewSession(playerID int64, conn *websocket.Conn, logger *zap.Logger) *Session {
	s := newSession(playerID, logger)
	s.Conn = conn
	go s.writePump()
	return s
}

func newSession(playerID int64, logger *zap.Logger) *Session {
	return &Session{
		PlayerID: playerID,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
}

// writePump drains SendChan into the connection and pings it periodically.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data := <-s.SendChan:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("ws write error",
					zap.Int64("player_id", s.PlayerID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes a packet of msgType carrying payload. It never blocks; the
// packet is dropped when the send buffer is full.
func (s *Session) Send(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ws payload encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	s.SendPacket(&Packet{Type: msgType, Payload: raw})
}

// SendPacket sends pkt without blocking.
func (s *Session) SendPacket(pkt *Packet) {
	if s.IsClosed() {
		return
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		s.logger.Warn("send channel full, dropping packet",
			zap.Int64("player_id", s.PlayerID),
			zap.String("type", pkt.Type))
	}
}

// Close signals the writePump to shut down.
func (s *Session) Close() {
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

// IsClosed reports whether Close was called.
func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

func (s *Session) setReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}
