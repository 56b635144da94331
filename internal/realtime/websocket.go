package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/gorilla/websocket"
)

// WSSource reads pushed events from the backend socket and reconnects with
// exponential backoff when the connection drops. It speaks Socket.IO over
// Engine.IO v4; plain {"event","data"} JSON frames are accepted as well.
type WSSource struct {
	URL        string
	Producer   string
	Header     http.Header
	Dialer     *websocket.Dialer
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Log        *slog.Logger
}

func NewWSSource(url, producer string) *WSSource {
	return &WSSource{
		URL:        url,
		Producer:   producer,
		Dialer:     websocket.DefaultDialer,
		MinBackoff: 500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
		Log:        slog.Default(),
	}
}

func (s *WSSource) Run(ctx context.Context, h HandlerFunc) error {
	target, err := SocketIOURL(s.URL)
	if err != nil {
		return err
	}
	backoff := s.MinBackoff
	for {
		conn, _, err := s.Dialer.DialContext(ctx, target, s.Header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.Log.Warn("websocket dial failed", "url", target, "retry_in", backoff, "error", err)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, s.MaxBackoff)
			continue
		}

		s.Log.Info("websocket connected", "url", target)
		backoff = s.MinBackoff
		err = s.read(ctx, conn, h)
		if ctx.Err() != nil {
			return nil
		}
		s.Log.Warn("websocket disconnected", "url", target, "retry_in", s.MinBackoff, "error", err)
		if !sleep(ctx, s.MinBackoff) {
			return nil
		}
	}
}

// sleep waits d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *WSSource) read(ctx context.Context, conn *websocket.Conn, h HandlerFunc) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	var hs eioHandshake
	for {
		if d := hs.deadline(); d > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(d))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return err
		}
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 {
			continue
		}

		var f events.Frame
		switch msg[0] {
		case '{':
			if err := json.Unmarshal(msg, &f); err != nil {
				s.Log.Warn("drop undecodable frame", "error", err)
				continue
			}
		case eioOpen:
			if err := json.Unmarshal(msg[1:], &hs); err != nil {
				return fmt.Errorf("engine.io handshake: %w", err)
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioConnect}); err != nil {
				return err
			}
			continue
		case eioPing:
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte{eioPong}, msg[1:]...)); err != nil {
				return err
			}
			continue
		case eioClose:
			return errServerClosed
		case eioMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case sioEvent:
				f, err = sioEventFrame(msg[2:])
				if err != nil {
					s.Log.Warn("drop undecodable socket.io event", "error", err)
					continue
				}
			case sioConnect:
				s.Log.Debug("socket.io namespace connected", "sid", hs.SID)
				continue
			case sioDisconnect:
				return errServerClosed
			case sioConnectError:
				return fmt.Errorf("%w: %s", errConnectError, msg[2:])
			default:
				continue
			}
		default:
			// pong, noop, upgrade and binary attachments
			continue
		}

		if f.Event == "" {
			continue
		}
		if err := h(ctx, f.Envelope(s.Producer)); err != nil {
			s.Log.Error("handle pushed event", "event_type", f.Event, "error", err)
		}
	}
}
