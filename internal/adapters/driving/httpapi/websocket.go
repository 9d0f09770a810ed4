package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/logger"
)

const (
	wsWriteWait   = 10 * time.Second
	wsMaxMessage  = 64 << 10
	wsDoneMessage = `{"done":true}`
)

// handleAskWebSocket answers each JSON ask message with one text frame per
// chunk followed by a done frame. The answer in flight is cancelled when the
// peer goes away.
func (s *Server) handleAskWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[%s] WebSocket upgrade failed: %v", requestID(r.Context()), err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	tenant := tenantFrom(r.Context())
	for req := range readRequests(ctx, cancel, conn) {
		if !s.limiters.allow(tenant.ID) {
			if writeFrame(conn, errorFrame(domain.ErrRateLimited.Error())) != nil {
				return
			}
			continue
		}
		if !s.streamFrames(ctx, conn, req.toDomain(tenant.ID)) {
			return
		}
	}
}

// readRequests decodes ask messages until the connection fails, then
// cancels ctx.
func readRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) <-chan askRequest {
	out := make(chan askRequest)
	go func() {
		defer close(out)
		defer cancel()
		for {
			var req askRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isDisconnect(err) {
					logger.Debug("[%s] WebSocket read: %v", requestID(ctx), err)
				}
				return
			}
			select {
			case out <- req:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// streamFrames writes one answer. It reports false once the connection can
// no longer be written to.
func (s *Server) streamFrames(ctx context.Context, conn *websocket.Conn, req domain.AskRequest) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := s.ask.Ask(ctx, req)
	if err != nil {
		return writeFrame(conn, errorFrame(err.Error())) == nil
	}

	for c := range resp.Chunks {
		frame := []byte(c.Text)
		if c.Err != nil {
			frame = errorFrame(c.Text)
		}
		if err := writeFrame(conn, frame); err != nil {
			cancel()
			for range resp.Chunks {
			}
			return false
		}
	}
	return writeFrame(conn, []byte(wsDoneMessage)) == nil
}

func writeFrame(conn *websocket.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func errorFrame(msg string) []byte {
	b, _ := json.Marshal(ErrorResponse{Error: msg})
	return b
}
