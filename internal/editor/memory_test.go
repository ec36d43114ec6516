package editor

import (
	"errors"
	"reflect"
	"testing"
)

func TestMemory_BufferAccess(t *testing.T) {
	m := NewMemory()
	m.OpenBuffer("/src/a.ts", []string{"one", "two"})

	if m.CurrentFile() != "/src/a.ts" {
		t.Errorf("CurrentFile() = %q", m.CurrentFile())
	}

	lines, err := m.Lines("/src/a.ts")
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"one", "two"}) {
		t.Errorf("Lines() = %q", lines)
	}

	// Lines returns a copy; mutating it never touches the buffer.
	lines[0] = "mutated"
	got, _ := m.Line("/src/a.ts", 1)
	if got != "one" {
		t.Errorf("buffer mutated through Lines() copy: %q", got)
	}

	if _, err := m.Lines("/src/missing.ts"); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("Lines(missing) error = %v, want ErrNoBuffer", err)
	}
}

func TestMemory_LineBounds(t *testing.T) {
	m := NewMemory()
	m.OpenBuffer("/src/a.ts", []string{"one"})

	if _, err := m.Line("/src/a.ts", 0); err == nil {
		t.Error("line 0 accepted")
	}
	if _, err := m.Line("/src/a.ts", 2); err == nil {
		t.Error("line past end accepted")
	}
	if err := m.SetLine("/src/a.ts", 2, "x"); err == nil {
		t.Error("SetLine past end accepted")
	}
}

func TestMemory_SetLineAndSetLines(t *testing.T) {
	m := NewMemory()
	m.OpenBuffer("/src/a.ts", []string{"one", "two"})

	if err := m.SetLine("/src/a.ts", 2, "TWO"); err != nil {
		t.Fatalf("SetLine() error = %v", err)
	}
	got, _ := m.Line("/src/a.ts", 2)
	if got != "TWO" {
		t.Errorf("Line(2) = %q", got)
	}

	if err := m.SetLines("/src/a.ts", []string{"only"}); err != nil {
		t.Fatalf("SetLines() error = %v", err)
	}
	lines, _ := m.Lines("/src/a.ts")
	if !reflect.DeepEqual(lines, []string{"only"}) {
		t.Errorf("Lines() = %q", lines)
	}

	if err := m.SetLines("/src/missing.ts", nil); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("SetLines(missing) error = %v, want ErrNoBuffer", err)
	}
}

func TestMemory_FocusCreatesBuffer(t *testing.T) {
	m := NewMemory()
	if err := m.FocusFile("/src/new.ts"); err != nil {
		t.Fatalf("FocusFile() error = %v", err)
	}
	if m.CurrentFile() != "/src/new.ts" {
		t.Errorf("CurrentFile() = %q", m.CurrentFile())
	}
	if _, err := m.Lines("/src/new.ts"); err != nil {
		t.Errorf("Lines() after focus error = %v", err)
	}
}

func TestMemory_TransientLifecycle(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Transient(); ok {
		t.Error("transient shown on fresh editor")
	}

	m.ShowTransient("note")
	if text, ok := m.Transient(); !ok || text != "note" {
		t.Errorf("Transient() = (%q, %v)", text, ok)
	}

	m.DismissTransient()
	if _, ok := m.Transient(); ok {
		t.Error("transient survived dismissal")
	}
}

func TestMemory_PromptQueue(t *testing.T) {
	m := NewMemory()

	if got := m.Prompt("name: "); got != "" {
		t.Errorf("empty queue Prompt() = %q", got)
	}

	m.QueuePromptAnswer("first")
	m.QueuePromptAnswer("second")
	if got := m.Prompt("name: "); got != "first" {
		t.Errorf("Prompt() = %q", got)
	}
	if got := m.Prompt("name: "); got != "second" {
		t.Errorf("Prompt() = %q", got)
	}
	if got := m.Prompt("name: "); got != "" {
		t.Errorf("drained queue Prompt() = %q", got)
	}
}

func TestMemory_Vars(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Var("unset"); ok {
		t.Error("unset var found")
	}
	m.SetVar("x", 42)
	v, ok := m.Var("x")
	if !ok || v != 42 {
		t.Errorf("Var(x) = (%v, %v)", v, ok)
	}
}
