package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ariefcatur/go-storefront/internal/events"
)

// Engine.IO v4 packet types, sent as the first byte of a text message.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO v5 packet types, the byte after an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

var (
	errServerClosed = errors.New("socket.io server closed the session")
	errConnectError = errors.New("socket.io connect refused")
)

type eioHandshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// deadline is how long to wait for the next server packet.
func (hs eioHandshake) deadline() time.Duration {
	if hs.PingInterval <= 0 {
		return 0
	}
	return time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
}

// SocketIOURL turns a backend base URL into the Socket.IO websocket endpoint.
// http(s) schemes become ws(s); a URL that already names a path is kept.
func SocketIOURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("socket url %q: unsupported scheme", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
		q := u.Query()
		q.Set("EIO", "4")
		q.Set("transport", "websocket")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// sioEventFrame decodes the body of an event packet:
// [/namespace,][ackid]["name",data]
func sioEventFrame(p []byte) (events.Frame, error) {
	if len(p) > 0 && p[0] == '/' {
		i := bytes.IndexByte(p, ',')
		if i < 0 {
			return events.Frame{}, errors.New("event packet without payload")
		}
		p = p[i+1:]
	}
	for len(p) > 0 && p[0] >= '0' && p[0] <= '9' {
		p = p[1:]
	}

	var args []json.RawMessage
	if err := json.Unmarshal(p, &args); err != nil {
		return events.Frame{}, fmt.Errorf("decode event packet: %w", err)
	}
	if len(args) == 0 {
		return events.Frame{}, errors.New("event packet without name")
	}
	var f events.Frame
	if err := json.Unmarshal(args[0], &f.Event); err != nil {
		return events.Frame{}, fmt.Errorf("decode event name: %w", err)
	}
	if len(args) > 1 {
		f.Data = args[1]
	}
	return f, nil
}
