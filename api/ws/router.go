package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kasuganosora/survivalcamp/gameerr"
	"go.uber.org/zap"
)

// HandlerFunc processes a decoded WS message payload.
type HandlerFunc func(ctx context.Context, s *Session, payload json.RawMessage) error

// errorPayload is sent back as an "error" packet when a handler fails.
type errorPayload struct {
	Seq   uint64 `json:"seq,omitempty"`
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers a HandlerFunc for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw, rejects replayed sequence numbers and invokes the
// handler for the packet type. A failing handler answers with an "error"
// packet carrying the game error code.
func (r *Router) Dispatch(s *Session, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet",
			zap.Int64("player_id", s.PlayerID),
			zap.Error(err))
		return
	}

	// Seq == 0 means the client does not track sequence numbers.
	if pkt.Seq != 0 && pkt.Seq <= s.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.Int64("player_id", s.PlayerID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", s.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		s.LastSeq = pkt.Seq
	}

	s.TraceID = uuid.NewString()
	ctx := context.WithValue(context.Background(), ctxKeyTraceID{}, s.TraceID)

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		s.Send("error", errorPayload{
			Seq: pkt.Seq, Type: pkt.Type,
			Error: "unknown message type", Code: string(gameerr.CodeValidation),
		})
		return
	}

	if err := fn(ctx, s, pkt.Payload); err != nil {
		if gameerr.CodeOf(err) == gameerr.CodeInternal {
			r.logger.Error("handler error",
				zap.String("type", pkt.Type),
				zap.Int64("player_id", s.PlayerID),
				zap.String("trace_id", s.TraceID),
				zap.Error(err))
		}
		s.Send("error", errorPayload{
			Seq: pkt.Seq, Type: pkt.Type,
			Error: gameerr.PublicMessage(err), Code: string(gameerr.CodeOf(err)),
		})
	}
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTraceID{}).(string); ok {
		return v
	}
	return ""
}
