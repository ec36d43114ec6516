// Package bridge connects an editor to a TypeScript-aware language
// service subprocess. It owns the session lifecycle and layers the
// editor-facing features over the tsproto client:
//
//   - Session: subprocess handles, version gate, start/stop transitions
//   - CompletionPipeline: list, member-prefix narrowing, thresholded
//     detail elaboration
//   - DiagnosticHost: debounced refresh, revision-guarded sign storage,
//     cursor-position lookup and transient display
//   - RenameOrchestrator: feasibility-gated multi-file rename with
//     per-file atomic edit batches
//   - NavigationService: quickinfo, jumps, references, symbol search,
//     import organization
//
// Every content-dependent operation first syncs the editor's unsaved
// buffer to the service through a single-use temporary snapshot, so the
// service's view of a file always matches the editor's.
//
// The bridge never mutates editor state on a failed protocol call: rename
// and edit application validate the full result before the first write.
package bridge
