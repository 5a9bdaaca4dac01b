package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/survivalcamp/audit"
)

const maxAuditBody = 64 << 10

// Audit records every non-GET request that passes through it.
func Audit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		start := time.Now()
		c.Next()

		entry := audit.Entry{
			TraceID:    GetTraceID(c),
			Action:     c.Request.Method + " " + c.FullPath(),
			Response:   gin.H{"status": c.Writer.Status()},
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		}
		if len(body) > 0 && json.Valid(body) {
			entry.Request = json.RawMessage(body)
		}
		if id := GetPlayerID(c); id != 0 {
			entry.PlayerID = &id
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}
		svc.Log(entry)
	}
}
