package bridge

import (
	"context"
	"fmt"
	"sort"

	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// NavigationService exposes the position-based query commands: type
// information, jumps, references, symbol search, and import organization.
type NavigationService struct {
	session *Session
}

func newNavigationService(s *Session) *NavigationService {
	return &NavigationService{session: s}
}

// QuickInfo returns the formatted type string for the symbol at the
// cursor.
func (ns *NavigationService) QuickInfo(ctx context.Context) (*tsproto.QuickInfoBody, error) {
	s := ns.session
	file, pos := s.editor.CurrentFile(), s.editor.Cursor()

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var body tsproto.QuickInfoBody
	err := s.call(ctx, "quickinfo", tsproto.FileLocationArgs{
		File: file, Line: pos.Line, Offset: pos.Offset,
	}, &body)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

// GoToDefinition jumps to the definition of the symbol at the cursor.
func (ns *NavigationService) GoToDefinition(ctx context.Context) (*tsproto.FileSpan, error) {
	return ns.jump(ctx, "definition")
}

// GoToTypeDefinition jumps to the type definition of the symbol at the
// cursor.
func (ns *NavigationService) GoToTypeDefinition(ctx context.Context) (*tsproto.FileSpan, error) {
	return ns.jump(ctx, "typeDefinition")
}

// jump issues a location command and moves the editor to the first
// returned span.
func (ns *NavigationService) jump(ctx context.Context, command string) (*tsproto.FileSpan, error) {
	s := ns.session
	file, pos := s.editor.CurrentFile(), s.editor.Cursor()

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var spans []tsproto.FileSpan
	err := s.call(ctx, command, tsproto.FileLocationArgs{
		File: file, Line: pos.Line, Offset: pos.Offset,
	}, &spans)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, &tsproto.ServiceError{Command: command, Message: "no results"}
	}

	target := spans[0]
	if err := s.editor.FocusFile(target.File); err != nil {
		return nil, err
	}
	s.editor.SetCursor(editor.Position{Line: target.Start.Line, Offset: target.Start.Offset})

	return &target, nil
}

// FindReferences populates the location list with every reference to the
// symbol at the cursor and returns them.
func (ns *NavigationService) FindReferences(ctx context.Context) ([]tsproto.ReferenceItem, error) {
	s := ns.session
	file, pos := s.editor.CurrentFile(), s.editor.Cursor()

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var body tsproto.ReferencesBody
	err := s.call(ctx, "references", tsproto.FileLocationArgs{
		File: file, Line: pos.Line, Offset: pos.Offset,
	}, &body)
	if err != nil {
		return nil, err
	}

	entries := make([]editor.LocationEntry, 0, len(body.Refs))
	for _, ref := range body.Refs {
		entries = append(entries, editor.LocationEntry{
			File:   ref.File,
			Line:   ref.Start.Line,
			Offset: ref.Start.Offset,
			Text:   ref.LineText,
		})
	}
	s.editor.SetLocationList(entries)

	return body.Refs, nil
}

// WorkspaceSymbols searches symbols across the project and populates the
// location list.
func (ns *NavigationService) WorkspaceSymbols(ctx context.Context, query string) ([]tsproto.NavtoItem, error) {
	s := ns.session
	file := s.editor.CurrentFile()

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var items []tsproto.NavtoItem
	err := s.call(ctx, "navto", tsproto.NavtoArgs{
		SearchValue: query,
		File:        file,
	}, &items)
	if err != nil {
		return nil, err
	}

	entries := make([]editor.LocationEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, editor.LocationEntry{
			File:   item.File,
			Line:   item.Start.Line,
			Offset: item.Start.Offset,
			Text:   fmt.Sprintf("%s (%s)", item.Name, item.Kind),
		})
	}
	s.editor.SetLocationList(entries)

	return items, nil
}

// DocumentSymbols returns the flattened symbol outline of the current
// file and populates the location list.
func (ns *NavigationService) DocumentSymbols(ctx context.Context) ([]editor.LocationEntry, error) {
	s := ns.session
	file := s.editor.CurrentFile()

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	var tree tsproto.NavigationTree
	if err := s.call(ctx, "navtree", tsproto.FileArgs{File: file}, &tree); err != nil {
		return nil, err
	}

	var entries []editor.LocationEntry
	flattenTree(file, tree, "", &entries)
	s.editor.SetLocationList(entries)

	return entries, nil
}

// flattenTree walks the symbol tree depth-first, prefixing nested symbols
// with their container path.
func flattenTree(file string, node tsproto.NavigationTree, prefix string, out *[]editor.LocationEntry) {
	name := node.Text
	if prefix != "" {
		name = prefix + "." + name
	}
	if len(node.Spans) > 0 {
		*out = append(*out, editor.LocationEntry{
			File:   file,
			Line:   node.Spans[0].Start.Line,
			Offset: node.Spans[0].Start.Offset,
			Text:   fmt.Sprintf("%s (%s)", name, node.Kind),
		})
	}
	for _, child := range node.ChildItems {
		flattenTree(file, child, name, out)
	}
}

// OrganizeImports asks the service to organize the current file's imports
// and applies the returned edits.
func (ns *NavigationService) OrganizeImports(ctx context.Context) (int, error) {
	s := ns.session
	file := s.editor.CurrentFile()

	if err := s.syncFile(ctx, file); err != nil {
		return 0, err
	}

	var fileEdits []tsproto.FileCodeEdits
	err := s.call(ctx, "organizeImports", tsproto.OrganizeImportsArgs{
		Scope: tsproto.OrganizeImportsScope{
			Type: "file",
			Args: tsproto.FileArgs{File: file},
		},
	}, &fileEdits)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, fe := range fileEdits {
		n, err := applyCodeEdits(s.editor, fe.FileName, fe.TextChanges)
		if err != nil {
			return applied, fmt.Errorf("apply edits to %s: %w", fe.FileName, err)
		}
		applied += n
	}

	return applied, nil
}

// ProjectInfo returns project metadata for the current file.
func (ns *NavigationService) ProjectInfo(ctx context.Context) (*tsproto.ProjectInfoBody, error) {
	s := ns.session
	file := s.editor.CurrentFile()

	var body tsproto.ProjectInfoBody
	err := s.call(ctx, "projectInfo", tsproto.ProjectInfoArgs{
		File:             file,
		NeedFileNameList: false,
	}, &body)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

// applyCodeEdits applies service edits (possibly spanning lines) to one
// buffer as a single atomic batch: the new content is computed in full
// before the buffer is written.
func applyCodeEdits(ed editor.Editor, file string, edits []tsproto.CodeEdit) (int, error) {
	if len(edits) == 0 {
		return 0, nil
	}

	lines, err := ed.Lines(file)
	if err != nil {
		return 0, err
	}

	// Right-to-left so earlier edits keep their original coordinates.
	ordered := append([]tsproto.CodeEdit(nil), edits...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Start.Line != ordered[j].Start.Line {
			return ordered[i].Start.Line > ordered[j].Start.Line
		}
		return ordered[i].Start.Offset > ordered[j].Start.Offset
	})

	for _, e := range ordered {
		lines, err = spliceEdit(lines, e)
		if err != nil {
			return 0, err
		}
	}

	if err := ed.SetLines(file, lines); err != nil {
		return 0, err
	}
	return len(edits), nil
}

// spliceEdit applies one [start, end) replacement to buffer lines.
func spliceEdit(lines []string, e tsproto.CodeEdit) ([]string, error) {
	startLine, endLine := e.Start.Line, e.End.Line
	if startLine < 1 || endLine < startLine || endLine > len(lines)+1 {
		return nil, fmt.Errorf("edit range %d-%d out of bounds", startLine, endLine)
	}

	// An edit may target the position just past the last line.
	lineAt := func(n int) string {
		if n >= 1 && n <= len(lines) {
			return lines[n-1]
		}
		return ""
	}

	startText := lineAt(startLine)
	endText := lineAt(endLine)

	startOff := e.Start.Offset - 1
	if startOff < 0 || startOff > len(startText) {
		return nil, fmt.Errorf("edit start offset %d out of bounds", e.Start.Offset)
	}
	endOff := e.End.Offset - 1
	if endOff < 0 || endOff > len(endText) {
		return nil, fmt.Errorf("edit end offset %d out of bounds", e.End.Offset)
	}

	merged := startText[:startOff] + e.NewText + endText[endOff:]
	newLines := splitKeepEmpty(merged)

	result := make([]string, 0, len(lines))
	result = append(result, lines[:startLine-1]...)
	result = append(result, newLines...)
	if endLine < len(lines) {
		result = append(result, lines[endLine:]...)
	}
	return result, nil
}

// splitKeepEmpty splits on newlines, keeping empty segments.
func splitKeepEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
