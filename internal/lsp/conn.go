// Package lsp is the editor side of the daemon. It speaks the language server
// base protocol over a pair of streams and turns the document notifications it
// cares about into Events for the router.
package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// JSONRPCVersion is the JSON-RPC version used by the protocol.
const JSONRPCVersion = "2.0"

// maxBodySize caps a single message body. Full-document sync sends whole
// files, so this is generous.
const maxBodySize = 64 << 20

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
)

var (
	// ErrMissingContentLength is returned when a header block ends without a
	// Content-Length header.
	ErrMissingContentLength = errors.New("lsp: missing Content-Length header")
	// ErrMessageTooLarge is returned for bodies above the size cap.
	ErrMessageTooLarge = errors.New("lsp: message too large")
)

// Message is any incoming JSON-RPC message. Requests carry an ID and a
// method, notifications only a method.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return len(m.ID) > 0 && string(m.ID) != "null"
}

// Response is an outgoing reply to a request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error member of a Response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Notification is an outgoing message that expects no reply.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Conn frames JSON-RPC messages with Content-Length headers.
//
// ReadMessage must be called from one goroutine. Writes are serialised and
// may come from any goroutine.
type Conn struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
}

// NewConn returns a Conn reading from r and writing to w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{reader: bufio.NewReader(r), writer: w}
}

// ReadMessage reads one framed message body. It returns io.EOF only when the
// stream ends cleanly before the first header byte; a stream that ends inside
// a message yields io.ErrUnexpectedEOF.
func (c *Conn) ReadMessage() ([]byte, error) {
	contentLength := -1
	started := false

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !started && line == "" {
					return nil, io.EOF
				}
				return nil, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		started = true
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length value %q: %w", value, err)
			}
			if n < 0 {
				return nil, fmt.Errorf("negative Content-Length: %d", n)
			}
			contentLength = n
		}
		// Content-Type and anything else is ignored.
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}
	if contentLength > maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// WriteMessage marshals v and writes it with a Content-Length header.
func (c *Conn) WriteMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(c.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Reply sends a successful response. A nil result is sent as JSON null.
func (c *Conn) Reply(id json.RawMessage, result any) error {
	if result == nil {
		result = json.RawMessage("null")
	}
	return c.WriteMessage(Response{JSONRPC: JSONRPCVersion, ID: id, Result: result})
}

// ReplyError sends an error response.
func (c *Conn) ReplyError(id json.RawMessage, code int, message string) error {
	return c.WriteMessage(Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message},
	})
}

// Notify sends a notification.
func (c *Conn) Notify(method string, params any) error {
	return c.WriteMessage(Notification{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}
