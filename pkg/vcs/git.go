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

// Package vcs delegates renames and deletes of tracked files to git.
package vcs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🏃 Runner executes an external command and returns its trimmed output
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return strings.TrimSpace(out.String()), strings.TrimSpace(errb.String()), err
}

// 🌿 Git runs git subcommands in the working directory
type Git struct {
	run Runner
}

// 🏭 New creates a Git using run, or ExecRunner when run is nil
func New(run Runner) *Git {
	if run == nil {
		run = ExecRunner
	}
	return &Git{run: run}
}

// TrackedFiles lists the paths git tracks below the working directory.
func (g *Git) TrackedFiles(ctx context.Context) (map[string]bool, error) {
	out, stderr, err := g.run(ctx, "git", "ls-files")
	if stderr != "" {
		return nil, errors.Errorf("git invocation error: %s", stderr)
	}
	if err != nil {
		return nil, errors.Errorf("running git ls-files: %w", err)
	}

	files := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			files[line] = true
		}
	}
	zerolog.Ctx(ctx).Debug().Int("count", len(files)).Msg("git tracked files")
	return files, nil
}

// Move runs git mv -f.
func (g *Git) Move(ctx context.Context, src, dst string) error {
	return g.check(g.run(ctx, "git", "mv", "-f", src, dst))
}

// Delete runs git rm -f, with -r when recurse is set.
func (g *Git) Delete(ctx context.Context, path string, recurse bool) error {
	args := []string{"rm", "-f"}
	if recurse {
		args = append(args, "-r")
	}
	args = append(args, path)
	return g.check(g.run(ctx, "git", args...))
}

func (g *Git) check(_ string, stderr string, err error) error {
	if stderr != "" {
		return errors.Errorf("git error: %s", stderr)
	}
	if err != nil {
		return errors.Errorf("git error: %w", err)
	}
	return nil
}
