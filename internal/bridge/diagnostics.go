package bridge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/tsbridge/internal/tsproto"
)

// Severity classifies a stored sign.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Sign is a stored diagnostic finding attached to a file and a source
// span. A file's sign set is replaced atomically on every refresh; stale
// signs never coexist with a newer set.
type Sign struct {
	File     string
	Start    tsproto.Location
	End      tsproto.Location
	Code     int
	Severity Severity
	Text     string
}

// fileState tracks the per-file refresh state machine.
type fileState int

const (
	stateClean fileState = iota
	stateRequested
	stateUpdated
)

// DiagnosticHost keeps editor-visible signs consistent with
// service-reported diagnostics. Refreshes are debounced per file; each
// issued request carries a per-file monotonic revision, and a response
// older than the latest stored revision is discarded so a slow stale
// answer cannot clobber a newer result.
type DiagnosticHost struct {
	session *Session

	mu      sync.Mutex
	signs   map[string][]Sign
	states  map[string]fileState
	issued  map[string]uint64
	stored  map[string]uint64
	pending map[string]*time.Timer
	enabled bool
	showing bool
}

func newDiagnosticHost(s *Session) *DiagnosticHost {
	return &DiagnosticHost{
		session: s,
		signs:   make(map[string][]Sign),
		states:  make(map[string]fileState),
		issued:  make(map[string]uint64),
		stored:  make(map[string]uint64),
		pending: make(map[string]*time.Timer),
		enabled: s.cfg.Diagnostics.Enabled,
	}
}

// Refresh synchronously requests semantic and syntactic diagnostics for
// file and replaces its stored sign set. Semantic findings precede
// syntactic ones in stored order.
func (dh *DiagnosticHost) Refresh(ctx context.Context, file string) error {
	dh.mu.Lock()
	if !dh.enabled {
		dh.mu.Unlock()
		return nil
	}
	dh.issued[file]++
	rev := dh.issued[file]
	dh.states[file] = stateRequested
	dh.mu.Unlock()

	if err := dh.session.syncFile(ctx, file); err != nil {
		return err
	}

	var semantic, syntactic []tsproto.DiagnosticItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dh.session.call(gctx, "semanticDiagnosticsSync", tsproto.FileArgs{File: file}, &semantic)
	})
	g.Go(func() error {
		return dh.session.call(gctx, "syntacticDiagnosticsSync", tsproto.FileArgs{File: file}, &syntactic)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	signs := make([]Sign, 0, len(semantic)+len(syntactic))
	for _, d := range semantic {
		signs = append(signs, signFrom(file, d))
	}
	for _, d := range syntactic {
		signs = append(signs, signFrom(file, d))
	}

	dh.store(file, rev, signs)
	return nil
}

// store replaces file's sign set unless a newer revision already landed.
func (dh *DiagnosticHost) store(file string, rev uint64, signs []Sign) {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	if rev < dh.stored[file] {
		dh.session.log.Debug("discarding stale diagnostics",
			"file", file, "revision", rev, "latest", dh.stored[file])
		return
	}

	dh.stored[file] = rev
	dh.states[file] = stateUpdated
	if len(signs) == 0 {
		delete(dh.signs, file)
	} else {
		dh.signs[file] = signs
	}
}

// signFrom converts a service diagnostic into a stored sign.
func signFrom(file string, d tsproto.DiagnosticItem) Sign {
	sev := SeverityError
	switch d.Category {
	case "warning", "suggestion":
		sev = SeverityWarning
	case "message":
		sev = SeverityInfo
	}
	return Sign{
		File:     file,
		Start:    d.Start,
		End:      d.End,
		Code:     d.Code,
		Severity: sev,
		Text:     d.Text,
	}
}

// NotifyChange schedules a debounced refresh for file: a single latest
// pending trigger per file, so only the last change in a burst issues a
// request.
func (dh *DiagnosticHost) NotifyChange(file string) {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	if !dh.enabled {
		return
	}

	if timer, ok := dh.pending[file]; ok {
		timer.Stop()
	}

	debounce := dh.session.cfg.Diagnostics.Debounce.Duration()
	dh.pending[file] = time.AfterFunc(debounce, func() {
		dh.mu.Lock()
		delete(dh.pending, file)
		dh.mu.Unlock()

		if err := dh.Refresh(context.Background(), file); err != nil {
			dh.session.log.Debug("diagnostic refresh failed", "file", file, "error", err)
		}
	})
}

// SignAt returns the first stored sign (insertion order: semantic before
// syntactic) whose [start, end) span contains the position.
func (dh *DiagnosticHost) SignAt(file string, line, offset int) (Sign, bool) {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	for _, sign := range dh.signs[file] {
		if spanContains(sign.Start, sign.End, line, offset) {
			return sign, true
		}
	}
	return Sign{}, false
}

// Signs returns a copy of file's stored signs.
func (dh *DiagnosticHost) Signs(file string) []Sign {
	dh.mu.Lock()
	defer dh.mu.Unlock()
	return append([]Sign(nil), dh.signs[file]...)
}

// CursorMoved dismisses any previous transient display, then surfaces the
// sign at the new position: a floating annotation when the editor supports
// one, else a highlighted message.
func (dh *DiagnosticHost) CursorMoved(file string, line, offset int) {
	ed := dh.session.editor

	dh.mu.Lock()
	wasShowing := dh.showing
	dh.mu.Unlock()

	sign, ok := dh.SignAt(file, line, offset)
	if !ok {
		if wasShowing {
			ed.DismissTransient()
			dh.setShowing(false)
		}
		return
	}

	if wasShowing {
		ed.DismissTransient()
	}
	if ed.SupportsFloat() {
		ed.ShowTransient(sign.Text)
	} else {
		ed.Message(sign.Text)
	}
	dh.setShowing(true)
}

// ShowErrorAtCursor surfaces the sign at the current cursor, if any.
// Explicit command counterpart of CursorMoved.
func (dh *DiagnosticHost) ShowErrorAtCursor() bool {
	ed := dh.session.editor
	pos := ed.Cursor()
	file := ed.CurrentFile()

	sign, ok := dh.SignAt(file, pos.Line, pos.Offset)
	if !ok {
		return false
	}

	ed.DismissTransient()
	if ed.SupportsFloat() {
		ed.ShowTransient(sign.Text)
	} else {
		ed.Message(sign.Text)
	}
	dh.setShowing(true)
	return true
}

func (dh *DiagnosticHost) setShowing(showing bool) {
	dh.mu.Lock()
	dh.showing = showing
	dh.mu.Unlock()
}

// setEnabled toggles diagnostics; disabling cancels pending triggers.
func (dh *DiagnosticHost) setEnabled(enabled bool) {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	dh.enabled = enabled
	if !enabled {
		for file, timer := range dh.pending {
			timer.Stop()
			delete(dh.pending, file)
		}
	}
}

// Enabled reports whether diagnostics are active.
func (dh *DiagnosticHost) Enabled() bool {
	dh.mu.Lock()
	defer dh.mu.Unlock()
	return dh.enabled
}

// state returns the refresh state for file.
func (dh *DiagnosticHost) state(file string) fileState {
	dh.mu.Lock()
	defer dh.mu.Unlock()
	return dh.states[file]
}

// clearAll drops all stored state. Called on session stop.
func (dh *DiagnosticHost) clearAll() {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	for file, timer := range dh.pending {
		timer.Stop()
		delete(dh.pending, file)
	}
	dh.signs = make(map[string][]Sign)
	dh.states = make(map[string]fileState)
	dh.issued = make(map[string]uint64)
	dh.stored = make(map[string]uint64)
	dh.showing = false
}

// spanContains reports whether [start, end) contains (line, offset).
func spanContains(start, end tsproto.Location, line, offset int) bool {
	if line < start.Line || line > end.Line {
		return false
	}
	if line == start.Line && offset < start.Offset {
		return false
	}
	if line == end.Line && offset >= end.Offset {
		return false
	}
	return true
}
