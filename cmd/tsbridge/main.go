// Package main is the entry point for the tsbridge command. It hosts the
// bridge over an in-memory editor and drives it from a line-oriented
// command loop, which is useful for exercising a tsserver installation
// and as a reference for embedding the bridge behind a real frontend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dshills/tsbridge/internal/bridge"
	"github.com/dshills/tsbridge/internal/config"
	"github.com/dshills/tsbridge/internal/editor"
	"github.com/dshills/tsbridge/internal/tsproto"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tsbridge %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ed := editor.NewMemory()
	session := bridge.NewSession(ed, cfg, bridge.WithSessionLogger(log))
	defer session.Stop()

	// Live reload of runtime-tunable flags.
	watcher, err := config.NewWatcher(*configPath, func(next config.Config) {
		session.SetDiagnosticsEnabled(next.Diagnostics.Enabled)
	}, log)
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	// Stop the session on SIGINT/SIGTERM.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		session.Stop()
		os.Exit(130)
	}()

	if err := commandLoop(session, ed, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// commandLoop reads one command per line and prints results. Every
// protocol or transport error is converted to a printed message; nothing
// propagates as a fault.
func commandLoop(session *bridge.Session, ed *editor.Memory, in *os.File, out *os.File) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	fmt.Fprintln(out, "tsbridge ready; type 'help' for commands")

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			printHelp(out)

		case "start":
			report(out, session.Start(ctx), func() string {
				return "session started, protocol " + session.Version().String()
			})

		case "stop":
			report(out, session.Stop(), func() string { return "session stopped" })

		case "open":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: open <file>")
				continue
			}
			lines, err := readFileLines(fields[1])
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			ed.OpenBuffer(fields[1], lines)
			fmt.Fprintf(out, "opened %s (%d lines)\n", fields[1], len(lines))

		case "complete":
			line, offset, prefix, ok := parsePos(out, fields, "complete <line> <offset> [prefix]")
			if !ok {
				continue
			}
			candidates, err := session.Completion().Complete(ctx, ed.CurrentFile(), prefix, line, offset)
			if err != nil {
				printErr(out, err)
				continue
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "  %-24s %s  %s\n", c.Word, c.Kind, c.Menu)
			}
			fmt.Fprintf(out, "%d candidates\n", len(candidates))

		case "diag":
			if err := session.Diagnostics().Refresh(ctx, ed.CurrentFile()); err != nil {
				printErr(out, err)
				continue
			}
			signs := session.Diagnostics().Signs(ed.CurrentFile())
			for _, s := range signs {
				fmt.Fprintf(out, "  %d:%d %s TS%d %s\n",
					s.Start.Line, s.Start.Offset, s.Severity, s.Code, s.Text)
			}
			fmt.Fprintf(out, "%d findings\n", len(signs))

		case "quickinfo":
			line, offset, _, ok := parsePos(out, fields, "quickinfo <line> <offset>")
			if !ok {
				continue
			}
			ed.SetCursor(editor.Position{Line: line, Offset: offset})
			info, err := session.Navigation().QuickInfo(ctx)
			if err != nil {
				printErr(out, err)
				continue
			}
			fmt.Fprintln(out, info.DisplayString)

		case "rename":
			if len(fields) < 4 {
				fmt.Fprintln(out, "usage: rename <line> <offset> <newname>")
				continue
			}
			line, _ := strconv.Atoi(fields[1])
			offset, _ := strconv.Atoi(fields[2])
			ed.SetCursor(editor.Position{Line: line, Offset: offset})
			summary, err := session.Rename().Rename(ctx, fields[3])
			if err != nil {
				printErr(out, err)
				continue
			}
			fmt.Fprintf(out, "renamed %s: %d edits in %d files\n",
				summary.Symbol, summary.Edits, summary.Files)

		case "quit", "exit":
			return nil

		default:
			fmt.Fprintf(out, "unknown command %q; type 'help'\n", fields[0])
		}
	}

	return scanner.Err()
}

// printHelp lists the available commands.
func printHelp(out *os.File) {
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  help                                 show this help")
	fmt.Fprintln(out, "  start                                start the tsserver session")
	fmt.Fprintln(out, "  stop                                 stop the tsserver session")
	fmt.Fprintln(out, "  open <file>                          open a file into the buffer")
	fmt.Fprintln(out, "  complete <line> <offset> [prefix]    request completions")
	fmt.Fprintln(out, "  diag                                 refresh and print diagnostics")
	fmt.Fprintln(out, "  quickinfo <line> <offset>            show quick info at a position")
	fmt.Fprintln(out, "  rename <line> <offset> <newname>     rename the symbol at a position")
	fmt.Fprintln(out, "  quit | exit                          leave the command loop")
}

// report prints either the error or the success message.
func report(out *os.File, err error, success func() string) {
	if err != nil {
		printErr(out, err)
		return
	}
	fmt.Fprintln(out, success())
}

// printErr converts bridge errors into user-visible messages.
func printErr(out *os.File, err error) {
	if msg, ok := tsproto.IsServiceError(err); ok {
		fmt.Fprintln(out, msg)
		return
	}
	fmt.Fprintln(out, "error:", err)
}

// parsePos parses "<cmd> <line> <offset> [extra]" commands.
func parsePos(out *os.File, fields []string, usage string) (line, offset int, extra string, ok bool) {
	if len(fields) < 3 {
		fmt.Fprintln(out, "usage:", usage)
		return 0, 0, "", false
	}
	line, err1 := strconv.Atoi(fields[1])
	offset, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(out, "usage:", usage)
		return 0, 0, "", false
	}
	if len(fields) > 3 {
		extra = fields[3]
	}
	return line, offset, extra, true
}

// readFileLines loads a file as buffer lines.
func readFileLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{""}, nil
	}
	return strings.Split(text, "\n"), nil
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// defaultConfigPath returns the per-user config location.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tsbridge.toml"
	}
	return home + "/.config/tsbridge/tsbridge.toml"
}
