package editor

import (
	"fmt"
	"sync"
)

// Memory is an in-process Editor backed by maps. It is the frontend used
// by the test suite and the tsbridge binary's command loop.
type Memory struct {
	mu sync.Mutex

	buffers map[string][]string
	current string
	cursor  Position

	transient     string
	hasTransient  bool
	floatCapable  bool
	messages      []string
	locations     []LocationEntry
	vars          map[string]any
	promptAnswers []string
}

// NewMemory creates an empty in-memory editor.
func NewMemory() *Memory {
	return &Memory{
		buffers: make(map[string][]string),
		vars:    make(map[string]any),
	}
}

// OpenBuffer loads lines as the buffer for path and focuses it.
func (m *Memory) OpenBuffer(path string, lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers[path] = append([]string(nil), lines...)
	m.current = path
}

// SetFloatCapable toggles floating-annotation support.
func (m *Memory) SetFloatCapable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floatCapable = ok
}

// QueuePromptAnswer enqueues the next Prompt result.
func (m *Memory) QueuePromptAnswer(answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptAnswers = append(m.promptAnswers, answer)
}

// CurrentFile returns the focused buffer path.
func (m *Memory) CurrentFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// FocusFile switches focus, creating an empty buffer if none exists.
func (m *Memory) FocusFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buffers[path]; !ok {
		m.buffers[path] = nil
	}
	m.current = path
	return nil
}

// Lines returns a copy of the buffer content.
func (m *Memory) Lines(path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.buffers[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBuffer, path)
	}
	return append([]string(nil), lines...), nil
}

// Line returns one 1-based line.
func (m *Memory) Line(path string, line int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.buffers[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoBuffer, path)
	}
	if line < 1 || line > len(lines) {
		return "", fmt.Errorf("line %d out of range for %s", line, path)
	}
	return lines[line-1], nil
}

// SetLine replaces one 1-based line.
func (m *Memory) SetLine(path string, line int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.buffers[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBuffer, path)
	}
	if line < 1 || line > len(lines) {
		return fmt.Errorf("line %d out of range for %s", line, path)
	}
	lines[line-1] = text
	return nil
}

// SetLines replaces the whole buffer content for path.
func (m *Memory) SetLines(path string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buffers[path]; !ok {
		return fmt.Errorf("%w: %s", ErrNoBuffer, path)
	}
	m.buffers[path] = append([]string(nil), lines...)
	return nil
}

// Cursor returns the cursor position.
func (m *Memory) Cursor() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// SetCursor moves the cursor.
func (m *Memory) SetCursor(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = pos
}

// Message records a highlighted message.
func (m *Memory) Message(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
}

// ShowTransient displays text near the cursor.
func (m *Memory) ShowTransient(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transient = text
	m.hasTransient = true
}

// DismissTransient removes the transient display.
func (m *Memory) DismissTransient() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transient = ""
	m.hasTransient = false
}

// SupportsFloat reports floating-annotation capability.
func (m *Memory) SupportsFloat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.floatCapable
}

// SetLocationList replaces the location list.
func (m *Memory) SetLocationList(entries []LocationEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append([]LocationEntry(nil), entries...)
}

// SetVar publishes a session variable.
func (m *Memory) SetVar(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = value
}

// Var reads a session variable.
func (m *Memory) Var(name string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vars[name]
	return v, ok
}

// Prompt returns the next queued answer, or "" (cancelled) if none.
func (m *Memory) Prompt(label string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.promptAnswers) == 0 {
		return ""
	}
	answer := m.promptAnswers[0]
	m.promptAnswers = m.promptAnswers[1:]
	return answer
}

// --- Test inspection helpers ---

// Transient returns the current transient display and whether one is shown.
func (m *Memory) Transient() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transient, m.hasTransient
}

// Messages returns all recorded messages.
func (m *Memory) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// LocationList returns the current location list.
func (m *Memory) LocationList() []LocationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LocationEntry(nil), m.locations...)
}
