package tsproto

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Transport owns the tsserver subprocess and exposes raw line-based IO over
// its stdin/stdout. The protocol layer above is responsible for framing and
// correlation; the transport only moves lines.
type Transport struct {
	mu sync.Mutex

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader

	closed atomic.Bool
	exitCh chan error
}

// TransportConfig defines how to start the tsserver executable.
type TransportConfig struct {
	// Command is the executable to run (e.g., "tsserver").
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory (defaults to the current directory).
	WorkDir string
}

// StartTransport spawns the subprocess and returns a transport bound to its
// pipes. The caller owns the transport and must Close it.
func StartTransport(config TransportConfig) (*Transport, error) {
	cmd := exec.Command(config.Command, config.Args...)

	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if config.WorkDir != "" {
		cmd.Dir = config.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	t := &Transport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 64*1024),
		exitCh: make(chan error, 1),
	}

	go t.monitorProcess()

	return t, nil
}

// NewPipeTransport wraps an existing reader/writer pair as a transport.
// Used by tests and by callers that manage the process themselves.
func NewPipeTransport(r io.Reader, w io.WriteCloser) *Transport {
	return &Transport{
		stdin:  w,
		reader: bufio.NewReaderSize(r, 64*1024),
		exitCh: make(chan error, 1),
	}
}

// monitorProcess waits for the process and signals its exit.
func (t *Transport) monitorProcess() {
	err := t.cmd.Wait()
	select {
	case t.exitCh <- err:
	default:
	}
}

// WriteLine writes one message line to the subprocess's input stream.
// Safe for concurrent use.
func (t *Transport) WriteLine(data []byte) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.stdin.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if _, err := t.stdin.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// ReadLine reads one line from the subprocess's output stream. Only the
// single reader loop should call this.
func (t *Transport) ReadLine() ([]byte, error) {
	line, err := t.reader.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	return line, nil
}

// ExitChannel receives once when the subprocess exits.
func (t *Transport) ExitChannel() <-chan error {
	return t.exitCh
}

// Close releases the pipes and kills the process. Idempotent.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	var firstErr error
	if t.stdin != nil {
		if err := t.stdin.Close(); err != nil {
			firstErr = err
		}
	}
	if t.stdout != nil {
		t.stdout.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	return firstErr
}

// IsClosed returns true if the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}
