package lsp

// Event is a decoded editor notification handed to the router.
type Event interface {
	event()
}

// Open is sent when the editor opens a document.
type Open struct {
	Filename string
}

// Change carries the full new content of a document.
type Change struct {
	Filename string
	Text     string
}

// Shutdown is sent when the editor asks the server to shut down or exit.
type Shutdown struct{}

// Closed is sent once when the editor stream ends. Err is nil on a clean end
// of stream.
type Closed struct {
	Err error
}

func (Open) event()     {}
func (Change) event()   {}
func (Shutdown) event() {}
func (Closed) event()   {}
