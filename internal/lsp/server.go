package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"pkt.systems/pslog"
)

// Filter decides which documents are not tracked. path is the decoded path
// of the document URI.
type Filter interface {
	Ignored(languageID, path string) bool
}

// Server is the editor reader task. It owns the read side of a Conn, answers
// the handful of requests the protocol requires and forwards document events.
type Server struct {
	conn   *Conn
	info   ServerInfo
	filter Filter

	// language ids by document uri, from didOpen
	languages map[string]string
}

// NewServer returns a Server that answers initialize with info. filter may
// be nil.
func NewServer(conn *Conn, info ServerInfo, filter Filter) *Server {
	return &Server{
		conn:      conn,
		info:      info,
		filter:    filter,
		languages: make(map[string]string),
	}
}

// Run reads messages until the stream ends, the editor sends exit or ctx is
// cancelled. The end of the stream is reported as a Closed event carrying the
// read error, if any, and that error is also returned.
func (s *Server) Run(ctx context.Context, events chan<- Event) error {
	log := pslog.Ctx(ctx)
	for {
		body, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("editor stream closed")
				s.emit(ctx, events, Closed{})
				return nil
			}
			log.With("err", err).Error("editor stream failed")
			s.emit(ctx, events, Closed{Err: err})
			return err
		}

		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.With("err", err).Warn("dropping undecodable editor message")
			s.rejectUndecodable(ctx, body)
			continue
		}

		done, err := s.handle(ctx, &msg, events)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// rejectUndecodable answers a body that is not a JSON-RPC message. Invalid
// JSON gets a parse error with a null id. Valid JSON is only answered when it
// carries an id to reply to.
func (s *Server) rejectUndecodable(ctx context.Context, body []byte) {
	var err error
	if !json.Valid(body) {
		err = s.conn.ReplyError(json.RawMessage("null"), CodeParseError, "parse error")
	} else {
		var head struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(body, &head) != nil || len(head.ID) == 0 || string(head.ID) == "null" {
			return
		}
		err = s.conn.ReplyError(head.ID, CodeInvalidRequest, "invalid request")
	}
	if err != nil {
		pslog.Ctx(ctx).With("err", err).Warn("failed to send error reply")
	}
}

// handle processes one message. done is true after exit.
func (s *Server) handle(ctx context.Context, msg *Message, events chan<- Event) (done bool, err error) {
	log := pslog.Ctx(ctx).With("method", msg.Method)

	switch msg.Method {
	case "initialize":
		result := InitializeResult{
			Capabilities: ServerCapabilities{
				TextDocumentSync: TextDocumentSyncOptions{OpenClose: true, Change: SyncFull},
				PositionEncoding: "utf-8",
			},
			ServerInfo: s.info,
		}
		s.reply(ctx, msg, result)
		return false, nil

	case "textDocument/didOpen":
		var params DidOpenParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			log.With("err", err).Warn("dropping malformed notification")
			return false, nil
		}
		doc := params.TextDocument
		name, err := Filename(doc.URI)
		if err != nil {
			log.With("err", err).Warn("dropping notification with bad uri")
			return false, nil
		}
		s.languages[doc.URI] = doc.LanguageID
		if s.ignored(doc.URI) {
			log.With("uri", doc.URI, "language", doc.LanguageID).Trace("ignoring document")
			return false, nil
		}
		return false, s.emit(ctx, events, Open{Filename: name})

	case "textDocument/didChange":
		var params DidChangeParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			log.With("err", err).Warn("dropping malformed notification")
			return false, nil
		}
		uri := params.TextDocument.URI
		name, err := Filename(uri)
		if err != nil {
			log.With("err", err).Warn("dropping notification with bad uri")
			return false, nil
		}
		if s.ignored(uri) {
			return false, nil
		}
		n := len(params.ContentChanges)
		if n == 0 {
			log.With("uri", uri).Warn("dropping change without content")
			return false, nil
		}
		last := params.ContentChanges[n-1]
		if last.Range != nil {
			log.With("uri", uri).Warn("dropping incremental change, only full document sync is supported")
			return false, nil
		}
		return false, s.emit(ctx, events, Change{Filename: name, Text: last.Text})

	case "textDocument/didClose":
		var params DidCloseParams
		if err := json.Unmarshal(msg.Params, &params); err == nil {
			delete(s.languages, params.TextDocument.URI)
		}
		return false, nil

	case "shutdown":
		s.reply(ctx, msg, nil)
		return false, s.emit(ctx, events, Shutdown{})

	case "exit":
		return true, s.emit(ctx, events, Shutdown{})
	}

	if msg.IsRequest() {
		if err := s.conn.ReplyError(msg.ID, CodeMethodNotFound, "method not found: "+msg.Method); err != nil {
			log.With("err", err).Warn("failed to send error reply")
		}
		return false, nil
	}
	if !strings.HasPrefix(msg.Method, "$/") && msg.Method != "initialized" {
		log.Trace("ignoring notification")
	}
	return false, nil
}

func (s *Server) ignored(uri string) bool {
	if s.filter == nil {
		return false
	}
	return s.filter.Ignored(s.languages[uri], Path(uri))
}

func (s *Server) reply(ctx context.Context, msg *Message, result any) {
	if !msg.IsRequest() {
		return
	}
	if err := s.conn.Reply(msg.ID, result); err != nil {
		pslog.Ctx(ctx).With("method", msg.Method, "err", err).Warn("failed to send reply")
	}
}

func (s *Server) emit(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
