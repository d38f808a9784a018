package lsp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// TextDocumentItem is the document sent with textDocument/didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// DidOpenParams are the params of textDocument/didOpen.
type DidOpenParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// VersionedTextDocumentIdentifier names a document at a version.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

// Range is present on incremental content changes only.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// TextDocumentContentChangeEvent is one entry of a didChange. A nil Range
// means Text is the whole document.
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// DidChangeParams are the params of textDocument/didChange.
type DidChangeParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// TextDocumentIdentifier names a document.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// DidCloseParams are the params of textDocument/didClose.
type DidCloseParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// InitializeResult is the reply to initialize.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities advertises what the daemon wants to receive.
type ServerCapabilities struct {
	TextDocumentSync TextDocumentSyncOptions `json:"textDocumentSync"`
	PositionEncoding string                  `json:"positionEncoding"`
}

// SyncFull is the TextDocumentSyncKind asking for whole-document changes.
const SyncFull = 1

// TextDocumentSyncOptions requests open/close and full-content change
// notifications.
type TextDocumentSyncOptions struct {
	OpenClose bool        `json:"openClose"`
	Change    int         `json:"change"`
	Save      SaveOptions `json:"save"`
}

// SaveOptions is sent as an empty object.
type SaveOptions struct {
	IncludeText bool `json:"includeText,omitempty"`
}

// ServerInfo names the daemon.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// MessageType is the severity of a window/logMessage.
type MessageType int

const (
	MessageInfo MessageType = 3
	MessageLog  MessageType = 4
)

// LogMessageParams are the params of window/logMessage.
type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

var errEmptyURI = errors.New("empty document uri")

// Filename returns the last path segment of a document URI. A URI whose path
// ends in a slash has an empty filename.
func Filename(uri string) (string, error) {
	if uri == "" {
		return "", errEmptyURI
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse document uri: %w", err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return p[strings.LastIndex(p, "/")+1:], nil
}

// Path returns the decoded path component of a document URI.
func Path(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if u.Path == "" {
		return u.Opaque
	}
	return u.Path
}
