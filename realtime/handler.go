package realtime

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

// wsSender adapts one websocket connection to the hub's sender interface.
type wsSender struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

func (s *wsSender) Send(ctx context.Context, v any) error {
	if s.closed.Load() {
		return context.Canceled
	}
	err := wsjson.Write(ctx, s.conn, v)
	if err != nil {
		s.closed.Store(true)
	}
	return err
}

func (s *wsSender) Writable() bool {
	return !s.closed.Load()
}

func (s *wsSender) close(code websocket.StatusCode, reason string) {
	s.closed.Store(true)
	_ = s.conn.Close(code, reason)
}

// Handler upgrades GET /ws?shop=<shop-domain> and keeps the connection in the
// registry until the client goes away. The shop parameter is mandatory:
// without it the socket is closed immediately with a policy-violation code
// and never registered.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := &websocket.AcceptOptions{}
		if origins := wsOriginPatterns(os.Getenv("WS_ALLOWED_ORIGINS")); len(origins) > 0 {
			opts.OriginPatterns = origins
		}
		conn, err := websocket.Accept(c.Writer, c.Request, opts)
		if err != nil {
			return
		}

		shopId := strings.TrimSpace(c.Query("shop"))
		if shopId == "" {
			_ = conn.Close(websocket.StatusPolicyViolation, "shop query parameter is required")
			return
		}

		s := &wsSender{conn: conn}
		h.register(shopId, s)
		defer h.unregister(shopId, s)

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Connection confirmation goes to this client only.
		writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
		err = s.Send(writeCtx, Envelope{Type: "connection", Message: "Connected to RiskRadar live order feed"})
		cancelWrite()
		if err != nil {
			s.close(websocket.StatusNormalClosure, "write_failed")
			return
		}

		// Server push only; drain client frames until disconnect or error.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				s.close(websocket.StatusNormalClosure, "closed")
				return
			}
		}
	}
}

func wsOriginPatterns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
