// Package editor defines the collaborator interface the bridge consumes:
// buffer access, cursor position, transient displays, location lists, and
// session variables. The bridge core never talks to a concrete UI; any
// frontend that satisfies Editor can host it. Memory implements the
// interface in-process for tests and the command-line binary.
package editor

import "errors"

// ErrNoBuffer indicates the requested file has no open buffer.
var ErrNoBuffer = errors.New("no buffer for file")

// Position is a 1-based line/offset cursor position.
type Position struct {
	Line   int
	Offset int
}

// LocationEntry is one navigable entry for the editor's location list.
type LocationEntry struct {
	File   string
	Line   int
	Offset int
	Text   string
}

// Editor is the surface the bridge requires from its host.
//
// Implementations are expected to be used from the editor's own event
// loop; the bridge serializes its own mutations per operation and never
// retains buffer references across protocol calls.
type Editor interface {
	// CurrentFile returns the path of the focused buffer.
	CurrentFile() string

	// FocusFile switches focus to the buffer for path, opening it if
	// needed.
	FocusFile(path string) error

	// Lines returns the buffer content for path, one string per line.
	Lines(path string) ([]string, error)

	// Line returns a single 1-based line.
	Line(path string, line int) (string, error)

	// SetLine replaces a single 1-based line.
	SetLine(path string, line int, text string) error

	// SetLines replaces the whole buffer content for path.
	SetLines(path string, lines []string) error

	// Cursor returns the current cursor position in the focused buffer.
	Cursor() Position

	// SetCursor moves the cursor in the focused buffer.
	SetCursor(pos Position)

	// Message shows a highlighted one-line message.
	Message(text string)

	// ShowTransient displays text near the cursor: a floating annotation
	// when the frontend supports one, else a highlighted message.
	ShowTransient(text string)

	// DismissTransient removes the current transient display, if any.
	DismissTransient()

	// SupportsFloat reports whether floating annotations are available.
	SupportsFloat() bool

	// SetLocationList replaces the navigable result list.
	SetLocationList(entries []LocationEntry)

	// SetVar publishes a session-scoped variable visible to completion
	// consumers that poll instead of awaiting a return value.
	SetVar(name string, value any)

	// Var reads a session-scoped variable.
	Var(name string) (any, bool)

	// Prompt asks the user for input. An empty result means cancelled.
	Prompt(label string) string
}
