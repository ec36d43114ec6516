package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/tsbridge/internal/config"
	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// diagnosticItem builds one diagnostic body entry.
func diagnosticItem(startLine, startOffset, endLine, endOffset, code int, category, text string) map[string]any {
	return map[string]any{
		"start":    map[string]any{"line": startLine, "offset": startOffset},
		"end":      map[string]any{"line": endLine, "offset": endOffset},
		"code":     code,
		"category": category,
		"text":     text,
	}
}

func TestDiagnostics_RefreshStoresBothKinds(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{"const x: number = \"s\"", "const y ="})

	s, srv := newTestSession(t, ed, nil)
	srv.handle("semanticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		body := []map[string]any{
			diagnosticItem(1, 7, 1, 8, 2322, "error", "Type 'string' is not assignable to type 'number'."),
		}
		return responseLine(seq, "semanticDiagnosticsSync", true, "", body), true
	})
	srv.handle("syntacticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		body := []map[string]any{
			diagnosticItem(2, 10, 2, 10, 1109, "error", "Expression expected."),
		}
		return responseLine(seq, "syntacticDiagnosticsSync", true, "", body), true
	})

	dh := s.Diagnostics()
	if err := dh.Refresh(context.Background(), "/src/app.ts"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	signs := dh.Signs("/src/app.ts")
	if len(signs) != 2 {
		t.Fatalf("signs = %d, want 2", len(signs))
	}
	// Semantic findings precede syntactic ones.
	if signs[0].Code != 2322 || signs[1].Code != 1109 {
		t.Errorf("sign order = [%d, %d], want [2322, 1109]", signs[0].Code, signs[1].Code)
	}
	if signs[0].Severity != SeverityError {
		t.Errorf("severity = %v", signs[0].Severity)
	}
	if dh.state("/src/app.ts") != stateUpdated {
		t.Errorf("state = %v, want stateUpdated", dh.state("/src/app.ts"))
	}
}

func TestDiagnostics_RefreshReplacesSet(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{"const y ="})

	s, srv := newTestSession(t, ed, nil)

	bad := true
	srv.handle("semanticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		return responseLine(seq, "semanticDiagnosticsSync", true, "", []map[string]any{}), true
	})
	srv.handle("syntacticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		var body []map[string]any
		if bad {
			body = append(body, diagnosticItem(1, 10, 1, 10, 1109, "error", "Expression expected."))
		}
		return responseLine(seq, "syntacticDiagnosticsSync", true, "", body), true
	})

	dh := s.Diagnostics()
	if err := dh.Refresh(context.Background(), "/src/app.ts"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(dh.Signs("/src/app.ts")) != 1 {
		t.Fatal("expected one sign after first refresh")
	}

	// Fixed file: the stale sign set is replaced with nothing.
	bad = false
	if err := dh.Refresh(context.Background(), "/src/app.ts"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if n := len(dh.Signs("/src/app.ts")); n != 0 {
		t.Errorf("signs after clean refresh = %d, want 0", n)
	}
}

func TestDiagnostics_StaleRevisionDiscarded(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{""})
	s, _ := newTestSession(t, ed, nil)
	dh := s.Diagnostics()

	newer := []Sign{{File: "/src/app.ts", Code: 2, Text: "newer"}}
	older := []Sign{{File: "/src/app.ts", Code: 1, Text: "older"}}

	dh.store("/src/app.ts", 2, newer)
	dh.store("/src/app.ts", 1, older)

	signs := dh.Signs("/src/app.ts")
	if len(signs) != 1 || signs[0].Text != "newer" {
		t.Errorf("signs = %+v, stale revision clobbered newer result", signs)
	}
}

func TestDiagnostics_DisabledRefreshIsNoop(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{""})

	s, srv := newTestSession(t, ed, func(cfg *config.Config) {
		cfg.Diagnostics.Enabled = false
	})

	dh := s.Diagnostics()
	if err := dh.Refresh(context.Background(), "/src/app.ts"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	dh.NotifyChange("/src/app.ts")
	time.Sleep(50 * time.Millisecond)

	if n := len(srv.received("semanticDiagnosticsSync")); n != 0 {
		t.Errorf("semantic requests while disabled = %d", n)
	}
}

func TestDiagnostics_NotifyChangeDebounces(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{""})

	refreshed := make(chan struct{}, 8)
	s, srv := newTestSession(t, ed, func(cfg *config.Config) {
		cfg.Diagnostics.Debounce = config.Duration(40 * time.Millisecond)
	})
	srv.handle("semanticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		refreshed <- struct{}{}
		return responseLine(seq, "semanticDiagnosticsSync", true, "", []map[string]any{}), true
	})
	srv.handle("syntacticDiagnosticsSync", func(seq int64, _ gjson.Result) (string, bool) {
		return responseLine(seq, "syntacticDiagnosticsSync", true, "", []map[string]any{}), true
	})

	dh := s.Diagnostics()

	// A burst of changes coalesces into one refresh.
	dh.NotifyChange("/src/app.ts")
	dh.NotifyChange("/src/app.ts")
	dh.NotifyChange("/src/app.ts")

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced refresh never fired")
	}

	select {
	case <-refreshed:
		t.Error("burst triggered more than one refresh")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDiagnostics_SignAt(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{""})
	s, _ := newTestSession(t, ed, nil)
	dh := s.Diagnostics()

	sign := Sign{
		File:  "/src/app.ts",
		Start: tsproto.Location{Line: 3, Offset: 5},
		End:   tsproto.Location{Line: 3, Offset: 10},
		Text:  "boom",
	}
	dh.store("/src/app.ts", 1, []Sign{sign})

	tests := []struct {
		line, offset int
		want         bool
	}{
		{3, 5, true},
		{3, 9, true},
		{3, 10, false}, // end is exclusive
		{3, 4, false},
		{2, 7, false},
		{4, 7, false},
	}
	for _, tt := range tests {
		_, ok := dh.SignAt("/src/app.ts", tt.line, tt.offset)
		if ok != tt.want {
			t.Errorf("SignAt(%d, %d) = %v, want %v", tt.line, tt.offset, ok, tt.want)
		}
	}
}

func TestDiagnostics_CursorMovedTransient(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{"bad line", "good line"})
	ed.SetFloatCapable(true)

	s, _ := newTestSession(t, ed, nil)
	dh := s.Diagnostics()
	dh.store("/src/app.ts", 1, []Sign{{
		File:  "/src/app.ts",
		Start: tsproto.Location{Line: 1, Offset: 1},
		End:   tsproto.Location{Line: 1, Offset: 9},
		Text:  "something is wrong here",
	}})

	dh.CursorMoved("/src/app.ts", 1, 3)
	if text, ok := ed.Transient(); !ok || text != "something is wrong here" {
		t.Errorf("transient = (%q, %v)", text, ok)
	}

	// Moving off the span dismisses the annotation.
	dh.CursorMoved("/src/app.ts", 2, 3)
	if _, ok := ed.Transient(); ok {
		t.Error("transient still showing after cursor left the span")
	}
}

func TestDiagnostics_CursorMovedMessageFallback(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{"bad line"})
	ed.SetFloatCapable(false)

	s, _ := newTestSession(t, ed, nil)
	dh := s.Diagnostics()
	dh.store("/src/app.ts", 1, []Sign{{
		File:  "/src/app.ts",
		Start: tsproto.Location{Line: 1, Offset: 1},
		End:   tsproto.Location{Line: 1, Offset: 9},
		Text:  "plain message",
	}})

	dh.CursorMoved("/src/app.ts", 1, 2)

	msgs := ed.Messages()
	if len(msgs) == 0 || msgs[len(msgs)-1] != "plain message" {
		t.Errorf("messages = %v", msgs)
	}
	if _, ok := ed.Transient(); ok {
		t.Error("float shown on a non-float editor")
	}
}

func TestDiagnostics_ShowErrorAtCursor(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{"bad line"})
	ed.SetFloatCapable(true)
	ed.SetCursor(editor.Position{Line: 1, Offset: 2})

	s, _ := newTestSession(t, ed, nil)
	dh := s.Diagnostics()

	if dh.ShowErrorAtCursor() {
		t.Error("reported a sign with none stored")
	}

	dh.store("/src/app.ts", 1, []Sign{{
		File:  "/src/app.ts",
		Start: tsproto.Location{Line: 1, Offset: 1},
		End:   tsproto.Location{Line: 1, Offset: 9},
		Text:  "cursor error",
	}})
	if !dh.ShowErrorAtCursor() {
		t.Fatal("did not surface stored sign")
	}
	if text, _ := ed.Transient(); text != "cursor error" {
		t.Errorf("transient = %q", text)
	}
}

func TestDiagnostics_ClearedOnStop(t *testing.T) {
	ed := editor.NewMemory()
	ed.OpenBuffer("/src/app.ts", []string{""})
	s, _ := newTestSession(t, ed, nil)

	dh := s.Diagnostics()
	dh.store("/src/app.ts", 1, []Sign{{File: "/src/app.ts", Text: "x"}})

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n := len(dh.Signs("/src/app.ts")); n != 0 {
		t.Errorf("signs after Stop = %d, want 0", n)
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityError.String() != "error" || SeverityWarning.String() != "warning" || SeverityInfo.String() != "info" {
		t.Error("severity names wrong")
	}
}
