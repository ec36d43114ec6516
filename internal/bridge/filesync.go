package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/tsbridge/internal/tsproto"
)

// syncFile snapshots the editor's buffer for file to a temporary artifact
// and tells the service to read the file's content from there, so analysis
// reflects unsaved edits. The artifact lives for exactly one update call
// and is removed whether or not the reload succeeds.
func (s *Session) syncFile(ctx context.Context, file string) error {
	if err := s.ensureOpen(file); err != nil {
		return err
	}

	lines, err := s.editor.Lines(file)
	if err != nil {
		return err
	}

	tmp, err := writeSnapshot(file, lines)
	if err != nil {
		return fmt.Errorf("snapshot buffer: %w", err)
	}
	defer os.Remove(tmp)

	return s.call(ctx, "reload", tsproto.ReloadArgs{File: file, TmpFile: tmp}, nil)
}

// writeSnapshot writes buffer lines to a fresh uniquely named temp file,
// with the trailing newline the file's line-ending convention requires.
func writeSnapshot(file string, lines []string) (string, error) {
	name := fmt.Sprintf("tsbridge-%s-%s", uuid.NewString(), filepath.Base(file))
	tmp, err := os.CreateTemp("", name)
	if err != nil {
		return "", err
	}

	content := strings.Join(lines, "\n") + "\n"
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	return tmp.Name(), nil
}
