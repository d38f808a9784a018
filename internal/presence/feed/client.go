package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/VanillaViking/neopresence/internal/presence"
)

// Client reads a feed.
type Client struct {
	conn   *websocket.Conn
	parser presence.Parser
}

// URL returns the websocket URL for a feed address ("host:port" or a full
// ws:// URL).
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + Path
}

// Dial connects to the feed at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, URL(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", addr, err)
	}
	return &Client{conn: conn, parser: &presence.JSONParser{}}, nil
}

// Next blocks until the next message. A nil activity means the presence was
// cleared. Cancelling ctx closes the connection.
func (c *Client) Next(ctx context.Context) (*presence.Activity, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read feed: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MsgActivity:
			a, err := c.parser.Parse(msg.Payload)
			if err != nil {
				continue
			}
			return a, nil
		case MsgCleared:
			return nil, nil
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
