// Package discord publishes presence to a local Discord client over its IPC
// socket.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/VanillaViking/neopresence/internal/presence"
)

// ioTimeout applies to every exchange when ctx has no deadline.
const ioTimeout = 10 * time.Second

// Discord rejects activity strings longer than this.
const maxFieldLen = 128

// ErrNotConnected is returned by Update before a successful Connect.
var ErrNotConnected = errors.New("discord: not connected")

// Options configures a Client.
type Options struct {
	ClientID   string
	LargeImage string
	LargeText  string
	// Dirs overrides the socket search directories.
	Dirs []string
}

// Client is a presence.Sink backed by the Discord IPC socket.
type Client struct {
	opts     Options
	pid      int
	newNonce func() string

	conn net.Conn
	path string
}

var _ presence.Sink = (*Client)(nil)

// New returns an unconnected client.
func New(opts Options) *Client {
	if opts.Dirs == nil {
		opts.Dirs = SearchDirs(os.Getenv)
	}
	return &Client{
		opts:     opts,
		pid:      os.Getpid(),
		newNonce: func() string { return uuid.NewString() },
	}
}

// handshake and command payloads
type handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

type setActivityArgs struct {
	PID      int       `json:"pid"`
	Activity *activity `json:"activity"`
}

type activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *timestamps `json:"timestamps,omitempty"`
	Assets     *assets     `json:"assets,omitempty"`
	Buttons    []button    `json:"buttons,omitempty"`
}

type timestamps struct {
	Start int64 `json:"start"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
}

type button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Connect dials the first available socket and performs the handshake. Any
// existing connection is dropped first.
func (c *Client) Connect(ctx context.Context) error {
	c.drop()
	if c.opts.ClientID == "" {
		return errors.New("discord: client id not configured")
	}

	conn, path, err := dialFirst(ctx, SocketPaths(c.opts.Dirs))
	if err != nil {
		return err
	}
	c.setDeadline(ctx, conn)

	if err := writeFrame(conn, opHandshake, handshake{V: 1, ClientID: c.opts.ClientID}); err != nil {
		conn.Close()
		return fmt.Errorf("discord handshake: %w", err)
	}
	op, body, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("discord handshake: %w", err)
	}
	if op == opClose {
		conn.Close()
		return fmt.Errorf("discord closed the connection: %s", closeReason(body))
	}
	var ready response
	if err := json.Unmarshal(body, &ready); err != nil {
		conn.Close()
		return fmt.Errorf("discord handshake: %w", err)
	}
	if ready.Cmd != "DISPATCH" || ready.Evt != "READY" {
		conn.Close()
		return fmt.Errorf("discord handshake: unexpected %s/%s", ready.Cmd, ready.Evt)
	}

	c.conn, c.path = conn, path
	pslog.Ctx(ctx).Debug("discord connected", "socket", path)
	return nil
}

// Update sets the activity shown on the user's profile.
func (c *Client) Update(ctx context.Context, a presence.Activity) error {
	return c.setActivity(ctx, c.payload(a))
}

// Clear removes the activity.
func (c *Client) Clear(ctx context.Context) error {
	return c.setActivity(ctx, nil)
}

// Close closes the socket.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) payload(a presence.Activity) *activity {
	act := &activity{
		Details: truncate(a.Details),
		State:   truncate(a.State),
	}
	if !a.StartedAt.IsZero() {
		act.Timestamps = &timestamps{Start: a.StartedAt.Unix()}
	}
	if c.opts.LargeImage != "" || c.opts.LargeText != "" {
		act.Assets = &assets{LargeImage: c.opts.LargeImage, LargeText: truncate(c.opts.LargeText)}
	}
	if a.RepoURL != "" {
		act.Buttons = []button{{Label: "Repository", URL: a.RepoURL}}
	}
	return act
}

func (c *Client) setActivity(ctx context.Context, act *activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	nonce := c.newNonce()
	cmd := command{
		Cmd:   "SET_ACTIVITY",
		Args:  setActivityArgs{PID: c.pid, Activity: act},
		Nonce: nonce,
	}
	c.setDeadline(ctx, c.conn)
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		c.drop()
		return err
	}

	for {
		op, body, err := readFrame(c.conn)
		if err != nil {
			c.drop()
			return err
		}
		switch op {
		case opPing:
			if err := writeFrame(c.conn, opPong, json.RawMessage(body)); err != nil {
				c.drop()
				return err
			}
			continue
		case opClose:
			c.drop()
			return fmt.Errorf("discord closed the connection: %s", closeReason(body))
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			c.drop()
			return fmt.Errorf("decode discord reply: %w", err)
		}
		if resp.Nonce != nonce {
			// unrelated dispatch
			continue
		}
		if resp.Evt == "ERROR" {
			var e errorData
			_ = json.Unmarshal(resp.Data, &e)
			return fmt.Errorf("discord rejected activity: %s (code %d)", e.Message, e.Code)
		}
		return nil
	}
}

func (c *Client) setDeadline(ctx context.Context, conn net.Conn) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(ioTimeout)
	}
	_ = conn.SetDeadline(deadline)
}

func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func closeReason(body []byte) string {
	var e errorData
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return string(body)
	}
	return e.Message
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxFieldLen {
		return s
	}
	return string(r[:maxFieldLen-1]) + "…"
}
