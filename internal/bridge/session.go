package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/tsbridge/internal/config"
	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// Session owns the bridge's process-wide state: the subprocess handles,
// the detected protocol version, and the configuration flags. One session
// exists per editor session; start and stop transitions are guarded
// against re-entry.
type Session struct {
	mu sync.Mutex

	editor editor.Editor
	cfg    config.Config
	log    *slog.Logger
	dial   DialFunc

	// nil when stopped
	transport *tsproto.Transport
	client    *tsproto.Client

	version tsproto.Version
	builder tsproto.CompletionsBuilder

	opened map[string]bool

	// High-level services
	completion  *CompletionPipeline
	diagnostics *DiagnosticHost
	rename      *RenameOrchestrator
	navigation  *NavigationService
}

// DialFunc produces a transport for the session. The default spawns the
// configured executable; tests substitute a pipe pair.
type DialFunc func(cfg config.ServerConfig) (*tsproto.Transport, error)

// SessionOption configures the session.
type SessionOption func(*Session)

// WithSessionLogger sets the structured logger.
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

// WithDial overrides how the subprocess transport is established.
func WithDial(dial DialFunc) SessionOption {
	return func(s *Session) {
		s.dial = dial
	}
}

// NewSession creates a stopped session bound to an editor and config.
func NewSession(ed editor.Editor, cfg config.Config, opts ...SessionOption) *Session {
	s := &Session{
		editor: ed,
		cfg:    cfg,
		log:    slog.Default(),
		dial: func(sc config.ServerConfig) (*tsproto.Transport, error) {
			return tsproto.StartTransport(tsproto.TransportConfig{
				Command: sc.Command,
				Args:    sc.Args,
				Env:     sc.Env,
				WorkDir: sc.WorkDir,
			})
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.completion = newCompletionPipeline(s)
	s.diagnostics = newDiagnosticHost(s)
	s.rename = newRenameOrchestrator(s)
	s.navigation = newNavigationService(s)

	return s
}

// Start spawns the subprocess, detects the protocol version, and opens the
// current file. Starting a running session is an error; no second
// subprocess is ever spawned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return tsproto.ErrAlreadyStarted
	}

	transport, err := s.dial(s.cfg.Server)
	if err != nil {
		return fmt.Errorf("start tsserver: %w", err)
	}

	client := tsproto.NewClient(transport, tsproto.WithLogger(s.log))

	client.OnEvent("projectLoadingFinish", func(event string, _ json.RawMessage) {
		s.log.Debug("tsserver project loaded")
	})

	version, err := tsproto.DetectVersion(ctx, client)
	if err != nil {
		client.Close()
		return fmt.Errorf("detect tsserver version: %w", err)
	}

	s.transport = transport
	s.client = client
	s.version = version
	s.builder = tsproto.BuilderForVersion(version)
	s.opened = make(map[string]bool)

	s.log.Info("tsserver session started", "version", version.String())

	if file := s.editor.CurrentFile(); file != "" {
		if err := s.openFileLocked(file); err != nil {
			s.log.Warn("open file at session start", "file", file, "error", err)
		}
	}

	return nil
}

// Stop tears the session down. Stopping a never-started session is a
// no-op. The transport is released before the handles are cleared so no
// pending call writes to a closed stream afterwards.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close()

	s.client = nil
	s.transport = nil
	s.builder = nil
	s.version = tsproto.Version{}
	s.opened = nil

	s.diagnostics.clearAll()

	s.log.Info("tsserver session stopped")
	return err
}

// IsRunning reports whether a subprocess is attached.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && !s.client.IsClosed()
}

// Version returns the protocol version detected at startup.
func (s *Session) Version() tsproto.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Completion returns the completion pipeline.
func (s *Session) Completion() *CompletionPipeline {
	return s.completion
}

// Diagnostics returns the diagnostic host.
func (s *Session) Diagnostics() *DiagnosticHost {
	return s.diagnostics
}

// Rename returns the rename orchestrator.
func (s *Session) Rename() *RenameOrchestrator {
	return s.rename
}

// Navigation returns the navigation service.
func (s *Session) Navigation() *NavigationService {
	return s.navigation
}

// Editor returns the editor collaborator.
func (s *Session) Editor() editor.Editor {
	return s.editor
}

// SetDiagnosticsEnabled toggles the diagnostics-enabled flag at runtime
// (wired to the config watcher).
func (s *Session) SetDiagnosticsEnabled(enabled bool) {
	s.diagnostics.setEnabled(enabled)
}

// handles returns the client and builder under the running guard.
func (s *Session) handles() (*tsproto.Client, tsproto.CompletionsBuilder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, nil, tsproto.ErrNotStarted
	}
	return s.client, s.builder, nil
}

// call issues one protocol request with the configured timeout.
func (s *Session) call(ctx context.Context, command string, args, result any) error {
	client, _, err := s.handles()
	if err != nil {
		return err
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	return client.Call(ctx, command, args, result)
}

// callContext applies the configured request timeout.
func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.Server.RequestTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// ensureOpen tells the service about a file once per session. The open
// request receives no response.
func (s *Session) ensureOpen(file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return tsproto.ErrNotStarted
	}
	if s.opened[file] {
		return nil
	}
	return s.openFileLocked(file)
}

// openFileLocked sends the open request; callers hold s.mu.
func (s *Session) openFileLocked(file string) error {
	if err := s.client.Notify("open", tsproto.FileArgs{File: file}); err != nil {
		return err
	}
	s.opened[file] = true
	return nil
}
