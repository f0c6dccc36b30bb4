// Package relay manages a single WebSocket connection to a Nostr relay:
// dialing, writing client frames, and reading relay messages off a
// background goroutine into a channel.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nostrkit/nostrerr"
)

// Message is a decoded relay-to-client frame: ["EVENT", subID, event],
// ["EOSE", subID], ["OK", eventID, ok, message], ["NOTICE", message],
// ["CLOSED", subID, message], or ["AUTH", challenge].
type Message struct {
	Type string
	Raw  []interface{}
}

// Connection wraps a single websocket to one relay. Reads are served by
// a background goroutine onto Incoming; writes are serialized through
// an internal lock. Once the connection fails it moves to a terminal
// closed state and every further SendFrame returns
// nostrerr.ConnectionClosed.
type Connection struct {
	URL string

	conn     *websocket.Conn
	writeMu  sync.Mutex
	stateMu  sync.Mutex
	closed   bool
	lastSeen time.Time

	Incoming chan Message
}

// Dial validates url as a safe relay destination and opens the
// websocket connection.
func Dial(ctx context.Context, rawURL string) (*Connection, error) {
	if !isRelayURLSafe(rawURL) {
		return nil, fmt.Errorf("%w: relay URL blocked: unsafe destination", nostrerr.ConnectError)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nostrerr.ConnectError, err)
	}

	c := &Connection{
		URL:      rawURL,
		conn:     conn,
		lastSeen: time.Now(),
		Incoming: make(chan Message, 256),
	}
	slog.Debug("relay connected", "url", rawURL)
	go c.readLoop()
	return c, nil
}

// SendFrame writes a pre-encoded client frame (REQ/CLOSE/EVENT).
func (c *Connection) SendFrame(raw []byte) error {
	c.stateMu.Lock()
	closed := c.closed
	c.stateMu.Unlock()
	if closed {
		return nostrerr.ConnectionClosed
	}

	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()

	if err != nil {
		c.markClosed()
		return fmt.Errorf("%w: %v", nostrerr.WriteError, err)
	}
	return nil
}

// Close terminates the connection and stops the read loop.
func (c *Connection) Close() error {
	c.markClosed()
	return nil
}

// IsClosed reports whether the connection has entered its terminal
// failed/closed state.
func (c *Connection) IsClosed() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.closed
}

func (c *Connection) markClosed() {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return
	}
	c.closed = true
	c.stateMu.Unlock()

	slog.Debug("relay connection closed", "url", c.URL)
	c.conn.Close()
	close(c.Incoming)
}

func (c *Connection) readLoop() {
	for {
		var raw []interface{}
		if err := c.conn.ReadJSON(&raw); err != nil {
			slog.Debug("relay read error", "url", c.URL, "error", err)
			c.markClosed()
			return
		}
		if len(raw) < 1 {
			continue
		}
		msgType, ok := raw[0].(string)
		if !ok {
			continue
		}

		c.stateMu.Lock()
		c.lastSeen = time.Now()
		c.stateMu.Unlock()

		select {
		case c.Incoming <- Message{Type: msgType, Raw: raw}:
		default:
			// slow consumer: drop rather than block the socket read
		}
	}
}

// isRelayURLSafe blocks obviously-unsafe relay destinations (private,
// link-local, or cloud metadata addresses) while permitting localhost
// for development, the way an SSRF-conscious outbound dialer should.
func isRelayURLSafe(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return false
	}

	host := parsed.Hostname()
	if host == "" {
		return false
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return true
	}
	for _, ip := range ips {
		if !isRelayIPSafe(ip) {
			return false
		}
	}
	return true
}

func isRelayIPSafe(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast() {
		return false
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return false
	}
	return true
}
