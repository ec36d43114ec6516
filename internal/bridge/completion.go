package bridge

import (
	"context"
	"strings"

	"github.com/dshills/tsbridge/internal/tsproto"
)

// CompletionsVar is the editor variable the pipeline publishes its latest
// result to, for consumers that poll instead of awaiting a return value.
const CompletionsVar = "tsbridge_last_completions"

// Candidate is one editor-displayable completion candidate. Shallow
// candidates carry only Word and Kind; elaborated ones add the formatted
// signature, documentation, and optional snippet text.
type Candidate struct {
	// Word is the text to insert.
	Word string `json:"word"`

	// Kind is the single-letter kind tag shown in the completion menu.
	Kind string `json:"kind"`

	// Menu is the formatted signature line, empty for shallow entries.
	Menu string `json:"menu,omitempty"`

	// Info is the documentation text, empty for shallow entries.
	Info string `json:"info,omitempty"`

	// Snippet is the insertion text with a parameter placeholder, set
	// only when snippet expansion is enabled and the entry is callable.
	Snippet string `json:"snippet,omitempty"`
}

// CompletionPipeline turns a cursor context into a ranked, possibly
// elaborated candidate list under the configured detail threshold.
type CompletionPipeline struct {
	session *Session
}

func newCompletionPipeline(s *Session) *CompletionPipeline {
	return &CompletionPipeline{session: s}
}

// Complete runs the pipeline: list, narrow, then either stop shallow or
// elaborate. Ordering is preserved from the service's own ranking; the
// pipeline filters and elaborates, never re-sorts.
func (cp *CompletionPipeline) Complete(ctx context.Context, file, prefix string, line, offset int) ([]Candidate, error) {
	return cp.complete(ctx, file, prefix, "", line, offset)
}

// CompleteTriggered runs the pipeline for a trigger character (".", "\"").
// The hint reaches the service only on protocol versions whose request
// shape carries it; the builder decides.
func (cp *CompletionPipeline) CompleteTriggered(ctx context.Context, file, trigger string, line, offset int) ([]Candidate, error) {
	return cp.complete(ctx, file, "", trigger, line, offset)
}

func (cp *CompletionPipeline) complete(ctx context.Context, file, prefix, trigger string, line, offset int) ([]Candidate, error) {
	s := cp.session

	if err := s.syncFile(ctx, file); err != nil {
		return nil, err
	}

	client, builder, err := s.handles()
	if err != nil {
		return nil, err
	}

	listCtx, cancel := s.callContext(ctx)
	result, err := builder.List(listCtx, client, tsproto.CompletionsArgs{
		File:             file,
		Line:             line,
		Offset:           offset,
		Prefix:           prefix,
		TriggerCharacter: trigger,
	})
	cancel()
	if err != nil {
		return nil, err
	}

	entries := result.Entries

	// Member completions come back as the unfiltered bag of members of
	// the receiver; narrowing by the prefix the user already typed keeps
	// the elaboration step from paying for irrelevant symbols. Exact
	// ordinal prefix match, order preserved.
	if result.IsMemberCompletion && prefix != "" {
		entries = narrowByPrefix(entries, prefix)
	}

	threshold := s.cfg.Completion.DetailThreshold
	if len(entries) > threshold {
		// Degraded-but-valid result: names and kinds only, no detail
		// request. This is the backpressure against detail-fetch storms
		// on global completions with thousands of candidates.
		candidates := shallowCandidates(entries)
		cp.publish(candidates)
		return candidates, nil
	}

	candidates, err := cp.elaborate(ctx, file, line, offset, entries)
	if err != nil {
		return nil, err
	}

	cp.publish(candidates)
	return candidates, nil
}

// narrowByPrefix keeps entries whose name starts with prefix
// (case-sensitive ordinal comparison), preserving order.
func narrowByPrefix(entries []tsproto.CompletionEntry, prefix string) []tsproto.CompletionEntry {
	narrowed := make([]tsproto.CompletionEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name, prefix) {
			narrowed = append(narrowed, e)
		}
	}
	return narrowed
}

// shallowCandidates maps entries without any per-entry network cost.
func shallowCandidates(entries []tsproto.CompletionEntry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, Candidate{
			Word: e.Name,
			Kind: mapKind(e.Kind),
		})
	}
	return candidates
}

// elaborate issues one batched detail request for exactly the surviving
// candidate names and merges the expensive payloads back in entry order.
func (cp *CompletionPipeline) elaborate(ctx context.Context, file string, line, offset int, entries []tsproto.CompletionEntry) ([]Candidate, error) {
	if len(entries) == 0 {
		return []Candidate{}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	client, _, err := cp.session.handles()
	if err != nil {
		return nil, err
	}

	detailCtx, cancel := cp.session.callContext(ctx)
	defer cancel()

	details, err := tsproto.EntryDetails(detailCtx, client, tsproto.CompletionDetailsArgs{
		File:       file,
		Line:       line,
		Offset:     offset,
		EntryNames: names,
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*tsproto.CompletionEntryDetails, len(details))
	for i := range details {
		byName[details[i].Name] = &details[i]
	}

	expandSnippets := cp.session.cfg.Completion.ExpandSnippets

	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		c := Candidate{
			Word: e.Name,
			Kind: mapKind(e.Kind),
		}
		if d := byName[e.Name]; d != nil {
			c.Menu = joinParts(d.DisplayParts)
			c.Info = joinParts(d.Documentation)
			if expandSnippets && isCallableKind(e.Kind) {
				c.Snippet = snippetFor(e.Name, d.DisplayParts)
			}
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// publish makes the latest result list visible as an editor variable.
func (cp *CompletionPipeline) publish(candidates []Candidate) {
	cp.session.editor.SetVar(CompletionsVar, candidates)
}

// joinParts concatenates symbol display parts into one string.
func joinParts(parts []tsproto.SymbolDisplayPart) string {
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// snippetFor builds an insertion snippet: the name plus a parenthesized
// parameter list taken from the display parts.
func snippetFor(name string, parts []tsproto.SymbolDisplayPart) string {
	params := make([]string, 0, 4)
	for _, p := range parts {
		if p.Kind == "parameterName" {
			params = append(params, p.Text)
		}
	}
	return name + "(" + strings.Join(params, ", ") + ")"
}

// isCallableKind reports whether a service kind takes arguments.
func isCallableKind(kind string) bool {
	switch kind {
	case "function", "method", "local function", "constructor":
		return true
	default:
		return false
	}
}

// mapKind maps service symbol kinds onto the editor's single-letter
// completion kind tags.
func mapKind(kind string) string {
	switch kind {
	case "function", "method", "local function", "constructor", "getter", "setter":
		return "f"
	case "var", "let", "const", "local var", "parameter", "property", "alias":
		return "v"
	case "class", "interface", "enum", "type", "primitive type", "module":
		return "t"
	case "keyword":
		return "k"
	case "directory", "script":
		return "d"
	default:
		return ""
	}
}
