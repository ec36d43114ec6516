package bridge

import (
	"bufio"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/tsbridge/internal/config"
	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// fakeHandler produces the response line for one received request. A false
// second return suppresses the response (for commands tsserver never
// answers, and for simulating a hung service).
type fakeHandler func(seq int64, args gjson.Result) (string, bool)

// fakeServer scripts tsserver behavior over an in-memory pipe pair. Each
// request line the session writes is parsed, recorded, and answered by the
// registered handler for its command.
type fakeServer struct {
	t *testing.T

	in  *io.PipeReader
	out *io.PipeWriter

	mu       sync.Mutex
	handlers map[string]fakeHandler
	requests []gjson.Result

	// written counts request lines the session has finished writing;
	// processed counts lines the serve loop has recorded. received waits
	// for the two to agree so assertions never race the serve goroutine.
	written   atomic.Int64
	processed atomic.Int64
}

// countingWriter increments the server's written-line counter as the
// session writes, on the session's own goroutine.
type countingWriter struct {
	w  io.WriteCloser
	fs *fakeServer
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	for _, b := range p[:n] {
		if b == '\n' {
			cw.fs.written.Add(1)
		}
	}
	return n, err
}

func (cw *countingWriter) Close() error { return cw.w.Close() }

// newFakeServer wires a server and returns it with the transport the
// session should dial.
func newFakeServer(t *testing.T) (*fakeServer, *tsproto.Transport) {
	t.Helper()

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := &fakeServer{
		t:        t,
		in:       reqR,
		out:      respW,
		handlers: make(map[string]fakeHandler),
	}

	srv.handle("status", func(seq int64, _ gjson.Result) (string, bool) {
		return responseLine(seq, "status", true, "", map[string]any{"version": "4.2.3"}), true
	})
	srv.handle("open", func(int64, gjson.Result) (string, bool) {
		return "", false
	})
	srv.handle("reload", func(seq int64, _ gjson.Result) (string, bool) {
		return responseLine(seq, "reload", true, "", nil), true
	})

	go srv.serve()
	t.Cleanup(func() {
		respW.Close()
		reqR.Close()
	})

	return srv, tsproto.NewPipeTransport(respR, &countingWriter{w: reqW, fs: srv})
}

// handle registers the handler for a command.
func (fs *fakeServer) handle(command string, h fakeHandler) {
	fs.mu.Lock()
	fs.handlers[command] = h
	fs.mu.Unlock()
}

// serve reads request lines until the session closes its end.
func (fs *fakeServer) serve() {
	scanner := bufio.NewScanner(fs.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		req := gjson.ParseBytes(append([]byte(nil), scanner.Bytes()...))

		fs.mu.Lock()
		fs.requests = append(fs.requests, req)
		h := fs.handlers[req.Get("command").String()]
		fs.mu.Unlock()
		fs.processed.Add(1)

		if h == nil {
			fs.t.Errorf("unscripted command %q", req.Get("command").String())
			continue
		}

		line, ok := h(req.Get("seq").Int(), req.Get("arguments"))
		if !ok {
			continue
		}
		if _, err := fs.out.Write([]byte(line + "\n")); err != nil {
			return
		}
	}
}

// received returns every request seen so far for a command. It first
// waits for the serve loop to record every line already written, so the
// snapshot never races the serve goroutine.
func (fs *fakeServer) received(command string) []gjson.Result {
	deadline := time.Now().Add(2 * time.Second)
	for fs.processed.Load() < fs.written.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var out []gjson.Result
	for _, r := range fs.requests {
		if r.Get("command").String() == command {
			out = append(out, r)
		}
	}
	return out
}

// responseLine synthesizes one tsserver response line.
func responseLine(seq int64, command string, success bool, message string, body any) string {
	s, _ := sjson.Set(`{"seq":0,"type":"response"}`, "request_seq", seq)
	s, _ = sjson.Set(s, "command", command)
	s, _ = sjson.Set(s, "success", success)
	if message != "" {
		s, _ = sjson.Set(s, "message", message)
	}
	if body != nil {
		s, _ = sjson.Set(s, "body", body)
	}
	return s
}

// newTestSession returns a started session over a fake server, with one
// open buffer. The mutate hook adjusts config before the session starts.
func newTestSession(t *testing.T, ed *editor.Memory, mutate func(*config.Config)) (*Session, *fakeServer) {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	srv, transport := newFakeServer(t)

	s := NewSession(ed, cfg, WithDial(func(config.ServerConfig) (*tsproto.Transport, error) {
		return transport, nil
	}))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })

	return s, srv
}
