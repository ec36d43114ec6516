package tsproto

import "encoding/json"

// The tsserver wire protocol: line-delimited JSON messages over the
// subprocess's stdin/stdout. Every request carries a session-unique seq;
// responses echo it as request_seq; unsolicited messages are named events.
//
// All line and offset fields are 1-based, matching tsserver.

// request is the outgoing envelope. Written as a single line.
type request struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"`
	Command   string `json:"command"`
	Arguments any    `json:"arguments,omitempty"`
}

// response is the incoming envelope for a request.
type response struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"`
	Command    string          `json:"command"`
	RequestSeq int64           `json:"request_seq"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// EventHandler handles an unsolicited named event from tsserver.
type EventHandler func(event string, body json.RawMessage)

// Location is a 1-based position within a file.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// TextSpan is a [start, end) span within a file.
type TextSpan struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// FileLocationArgs identifies a position in a file. Shared by most
// position-based commands (quickinfo, definition, references, rename).
type FileLocationArgs struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
}

// FileArgs identifies a file.
type FileArgs struct {
	File string `json:"file"`
}

// ReloadArgs asks tsserver to read a file's content from an alternate path,
// so unsaved editor state is reflected in analysis.
type ReloadArgs struct {
	File    string `json:"file"`
	TmpFile string `json:"tmpfile"`
}

// StatusBody is the body of a "status" response.
type StatusBody struct {
	Version string `json:"version"`
}

// --- Completions ---

// CompletionsArgs requests completion candidates at a position. The
// TriggerCharacter and Prefix fields are only understood by newer protocol
// versions; the version-gated builder decides whether to populate them.
type CompletionsArgs struct {
	File                         string `json:"file"`
	Line                         int    `json:"line"`
	Offset                       int    `json:"offset"`
	Prefix                       string `json:"prefix,omitempty"`
	TriggerCharacter             string `json:"triggerCharacter,omitempty"`
	IncludeExternalModuleExports bool   `json:"includeExternalModuleExports"`
}

/// CompletionEntry is a shallow completion candidate: a name plus cheap
// metadata, no documentation or signature.
type CompletionEntry struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	KindModifiers string `json:"kindModifiers,omitempty"`
	SortText      string `json:"sortText,omitempty"`
}

// CompletionInfoBody is the body of a "completionInfo" response
// (protocol 3.0 and later).
type CompletionInfoBody struct {
	IsMemberCompletion      bool              `json:"isMemberCompletion"`
	IsGlobalCompletion      bool              `json:"isGlobalCompletion"`
	IsNewIdentifierLocation bool              `json:"isNewIdentifierLocation"`
	Entries                 []CompletionEntry `json:"entries"`
}

// CompletionDetailsArgs requests full elaboration for a batch of candidate
// names at one position.
type CompletionDetailsArgs struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Offset     int      `json:"offset"`
	EntryNames []string `json:"entryNames"`
}

// SymbolDisplayPart is one fragment of formatted symbol text.
type SymbolDisplayPart struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// CompletionEntryDetails is the expensive payload for one candidate:
// display parts, documentation, and parameter info.
type CompletionEntryDetails struct {
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	KindModifiers string              `json:"kindModifiers,omitempty"`
	DisplayParts  []SymbolDisplayPart `json:"displayParts"`
	Documentation []SymbolDisplayPart `json:"documentation,omitempty"`
}

// --- Diagnostics ---

// DiagnosticItem is one error or warning reported by the sync diagnostic
// commands.
type DiagnosticItem struct {
	Start    Location `json:"start"`
	End      Location `json:"end"`
	Text     string   `json:"text"`
	Code     int      `json:"code"`
	Category string   `json:"category,omitempty"`
}

// --- Rename ---

// RenameArgs requests rename feasibility and locations at a position.
type RenameArgs struct {
	File           string `json:"file"`
	Line           int    `json:"line"`
	Offset         int    `json:"offset"`
	FindInComments bool   `json:"findInComments"`
	FindInStrings  bool   `json:"findInStrings"`
}

// RenameInfo reports whether the symbol at the request position can be
// renamed, and why not when it cannot.
type RenameInfo struct {
	CanRename             bool   `json:"canRename"`
	DisplayName           string `json:"displayName,omitempty"`
	FullDisplayName       string `json:"fullDisplayName,omitempty"`
	LocalizedErrorMessage string `json:"localizedErrorMessage,omitempty"`
}

// SpanGroup lists rename spans within one file.
type SpanGroup struct {
	File string     `json:"file"`
	Locs []TextSpan `json:"locs"`
}

// RenameBody is the body of a "rename" response.
type RenameBody struct {
	Info RenameInfo  `json:"info"`
	Locs []SpanGroup `json:"locs"`
}

// --- Navigation ---

// QuickInfoBody is the body of a "quickinfo" response.
type QuickInfoBody struct {
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers,omitempty"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	DisplayString string   `json:"displayString"`
	Documentation string   `json:"documentation,omitempty"`
}

// FileSpan is a span within a named file, returned by definition and
// references commands.
type FileSpan struct {
	File  string   `json:"file"`
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// ReferenceItem is one reference returned by the "references" command.
type ReferenceItem struct {
	FileSpan
	LineText      string `json:"lineText,omitempty"`
	IsWriteAccess bool   `json:"isWriteAccess"`
	IsDefinition  bool   `json:"isDefinition"`
}

// ReferencesBody is the body of a "references" response.
type ReferencesBody struct {
	Refs       []ReferenceItem `json:"refs"`
	SymbolName string          `json:"symbolName"`
}

// NavtoArgs searches workspace symbols.
type NavtoArgs struct {
	SearchValue    string `json:"searchValue"`
	File           string `json:"file"`
	MaxResultCount int    `json:"maxResultCount,omitempty"`
}

// NavtoItem is one workspace symbol match.
type NavtoItem struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers,omitempty"`
	File          string   `json:"file"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	ContainerName string   `json:"containerName,omitempty"`
}

// NavigationTree is the hierarchical document symbol tree from "navtree".
type NavigationTree struct {
	Text       string           `json:"text"`
	Kind       string           `json:"kind"`
	Spans      []TextSpan       `json:"spans"`
	ChildItems []NavigationTree `json:"childItems,omitempty"`
}

// --- Edits ---

// CodeEdit is a single textual replacement within a file.
type CodeEdit struct {
	Start   Location `json:"start"`
	End     Location `json:"end"`
	NewText string   `json:"newText"`
}

// FileCodeEdits groups edits per file, as returned by "organizeImports".
type FileCodeEdits struct {
	FileName    string     `json:"fileName"`
	TextChanges []CodeEdit `json:"textChanges"`
}

// OrganizeImportsArgs requests import organization for one file.
type OrganizeImportsArgs struct {
	Scope OrganizeImportsScope `json:"scope"`
}

// OrganizeImportsScope names the file scope of an organizeImports request.
type OrganizeImportsScope struct {
	Type string   `json:"type"`
	Args FileArgs `json:"args"`
}

// --- Project ---

// ProjectInfoArgs requests project metadata for a file.
type ProjectInfoArgs struct {
	File             string `json:"file"`
	NeedFileNameList bool   `json:"needFileNameList"`
}

// ProjectInfoBody is the body of a "projectInfo" response.
type ProjectInfoBody struct {
	ConfigFileName string   `json:"configFileName"`
	FileNames      []string `json:"fileNames,omitempty"`
}
