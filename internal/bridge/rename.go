package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// ErrCanceled indicates the user aborted an interactive operation; no
// side effects have occurred.
var ErrCanceled = errors.New("canceled")

// RenameSummary reports what a completed rename touched.
type RenameSummary struct {
	Symbol string
	Edits  int
	Files  int
}

// RenameOrchestrator executes a multi-file symbol rename, applying edits
// atomically per file. On protocol-level failure zero buffers are mutated.
type RenameOrchestrator struct {
	session *Session
}

func newRenameOrchestrator(s *Session) *RenameOrchestrator {
	return &RenameOrchestrator{session: s}
}

// Rename renames the symbol at the cursor. An empty newName prompts
// interactively; a cancelled prompt aborts with ErrCanceled and no side
// effects. Focus and cursor return to the trigger position afterwards.
func (ro *RenameOrchestrator) Rename(ctx context.Context, newName string) (*RenameSummary, error) {
	s := ro.session
	ed := s.editor

	file := ed.CurrentFile()
	pos := ed.Cursor()

	if newName == "" {
		newName = ed.Prompt("New name: ")
		if newName == "" {
			return nil, ErrCanceled
		}
	}

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var body tsproto.RenameBody
	err := s.call(ctx, "rename", tsproto.RenameArgs{
		File:   file,
		Line:   pos.Line,
		Offset: pos.Offset,
	}, &body)
	if err != nil {
		return nil, err
	}

	// Feasibility gate: validate before touching any buffer.
	if !body.Info.CanRename {
		msg := body.Info.LocalizedErrorMessage
		if msg == "" {
			msg = "symbol cannot be renamed"
		}
		return nil, &tsproto.ServiceError{Command: "rename", Message: msg}
	}

	var changes []editor.LocationEntry
	filesTouched := 0

	for _, group := range body.Locs {
		edited, err := ro.renameInFile(group, newName)
		if err != nil {
			return nil, fmt.Errorf("rename in %s: %w", group.File, err)
		}
		if len(edited) > 0 {
			filesTouched++
			changes = append(changes, edited...)
		}
	}

	ed.SetLocationList(changes)

	// Return to the trigger position.
	if err := ed.FocusFile(file); err != nil {
		return nil, err
	}
	ed.SetCursor(pos)

	return &RenameSummary{
		Symbol: body.Info.DisplayName,
		Edits:  len(changes),
		Files:  filesTouched,
	}, nil
}

// renameInFile applies one file's rename spans as a single atomic batch:
// every replacement line is computed against the original content before
// any line is written back, so a failure leaves the file untouched and
// multiple occurrences on one line cannot corrupt each other's offsets.
func (ro *RenameOrchestrator) renameInFile(group tsproto.SpanGroup, newName string) ([]editor.LocationEntry, error) {
	ed := ro.session.editor

	if err := ed.FocusFile(group.File); err != nil {
		return nil, err
	}

	// Group spans by line.
	byLine := make(map[int][]tsproto.TextSpan)
	for _, span := range group.Locs {
		if span.Start.Line != span.End.Line {
			return nil, fmt.Errorf("rename span crosses lines %d-%d", span.Start.Line, span.End.Line)
		}
		byLine[span.Start.Line] = append(byLine[span.Start.Line], span)
	}

	// Compute every new line first; nothing is written until all lines
	// resolve.
	type lineEdit struct {
		line int
		text string
	}
	edits := make([]lineEdit, 0, len(byLine))
	var changes []editor.LocationEntry

	for line, spans := range byLine {
		original, err := ed.Line(group.File, line)
		if err != nil {
			return nil, err
		}

		text, err := replaceSpans(original, spans, newName)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		edits = append(edits, lineEdit{line: line, text: text})

		for _, span := range spans {
			changes = append(changes, editor.LocationEntry{
				File:   group.File,
				Line:   line,
				Offset: span.Start.Offset,
				Text:   text,
			})
		}
	}

	// Apply the batch.
	for _, e := range edits {
		if err := ed.SetLine(group.File, e.line, e.text); err != nil {
			return nil, err
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Line != changes[j].Line {
			return changes[i].Line < changes[j].Line
		}
		return changes[i].Offset < changes[j].Offset
	})

	return changes, nil
}

// replaceSpans replaces every span within one line against the original
// line content. Spans are applied right to left so earlier replacements
// cannot shift the offsets of later ones.
func replaceSpans(original string, spans []tsproto.TextSpan, newText string) (string, error) {
	ordered := append([]tsproto.TextSpan(nil), spans...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start.Offset > ordered[j].Start.Offset
	})

	text := original
	for _, span := range ordered {
		start := span.Start.Offset - 1
		end := span.End.Offset - 1
		if start < 0 || end > len(original) || start > end {
			return "", fmt.Errorf("span [%d,%d) out of range", span.Start.Offset, span.End.Offset)
		}
		text = text[:start] + newText + text[end:]
	}
	return text, nil
}
