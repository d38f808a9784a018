package lsp

import (
	"bytes"
	"strings"
	"sync"
)

// LogWriter forwards log output to the editor as window/logMessage
// notifications, one per line. Partial lines are buffered until their
// newline arrives.
type LogWriter struct {
	conn *Conn
	typ  MessageType

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogWriter returns a writer sending lines to conn with severity typ.
func NewLogWriter(conn *Conn, typ MessageType) *LogWriter {
	return &LogWriter{conn: conn, typ: typ}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.WriteString(line)
			return len(p), nil
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if err := w.conn.Notify("window/logMessage", LogMessageParams{Type: w.typ, Message: line}); err != nil {
			return len(p), err
		}
	}
}
