// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package editor runs the user's editor on a listing file.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// EnvEditor overrides VISUAL and EDITOR.
	EnvEditor     = "EDIR_EDITOR"
	DefaultEditor = "vi"
	DefaultSuffix = ".sh"
	listingName   = "edir"
	ttyPath       = "/dev/tty"
)

// 🔍 Resolve returns the editor command line from the environment
func Resolve(getenv func(string) string) string {
	for _, key := range []string{EnvEditor, "VISUAL", "EDITOR"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return DefaultEditor
}

// ✏️ Editor runs a command on a file and waits for it
type Editor struct {
	// Command is split with shell quoting rules.
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
	// Stdin is used when /dev/tty cannot be opened.
	Stdin io.Reader
}

// 🏭 New creates an editor for the command resolved from the process environment
func New() *Editor {
	return &Editor{
		Command: Resolve(os.Getenv),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
	}
}

// Edit runs the editor on path. A non-zero exit is an error.
func (e *Editor) Edit(ctx context.Context, path string) error {
	argv, err := shlex.Split(e.Command)
	if err != nil {
		return errors.Errorf("parsing editor command %q: %w", e.Command, err)
	}
	if len(argv) == 0 {
		return errors.Errorf("editor command is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Stdin = e.Stdin
	if tty, err := os.Open(ttyPath); err == nil {
		defer tty.Close()
		cmd.Stdin = tty
	}

	zerolog.Ctx(ctx).Debug().Strs("argv", cmd.Args).Msg("running editor")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Errorf("%s returned %d", e.Command, exitErr.ExitCode())
		}
		return errors.Errorf("running %s: %w", e.Command, err)
	}
	return nil
}

// 📝 Session owns the temporary directory holding one listing file
type Session struct {
	dir  string
	path string
}

// NewSession creates an empty listing file named "edir"+suffix in a fresh
// temporary directory.
func NewSession(suffix string) (*Session, error) {
	dir, err := os.MkdirTemp("", "edir-")
	if err != nil {
		return nil, errors.Errorf("creating temp dir: %w", err)
	}
	s := &Session{dir: dir, path: filepath.Join(dir, listingName+suffix)}
	if err := os.WriteFile(s.path, nil, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Errorf("creating listing file: %w", err)
	}
	return s, nil
}

// Path returns the listing file.
func (s *Session) Path() string {
	return s.path
}

// Close removes the temporary directory.
func (s *Session) Close() error {
	return os.RemoveAll(s.dir)
}
