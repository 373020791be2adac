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

// Package trash deletes paths by handing them to an external trash program.
package trash

import (
	"context"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/vcs"
	"gitlab.com/tozd/go/errors"
)

// DefaultProgram is used when no program is configured.
const DefaultProgram = "trash-put"

// 🗑️ Trash moves paths to the desktop trash
type Trash struct {
	Program string
	run     vcs.Runner
}

// 🏭 New creates a Trash invoking program through run
func New(program string, run vcs.Runner) *Trash {
	if program == "" {
		program = DefaultProgram
	}
	if run == nil {
		run = vcs.ExecRunner
	}
	return &Trash{Program: program, run: run}
}

// Delete trashes path. recurse is implied: the trash program takes whole trees.
func (t *Trash) Delete(ctx context.Context, path string, recurse bool) error {
	zerolog.Ctx(ctx).Debug().Str("program", t.Program).Str("path", path).Msg("trash")
	argv, err := shlex.Split(t.Program)
	if err != nil || len(argv) == 0 {
		return errors.Errorf("invalid trash program %q", t.Program)
	}
	_, stderr, err := t.run(ctx, argv[0], append(argv[1:], path)...)
	if stderr != "" {
		return errors.Errorf("%s error: %s", t.Program, stderr)
	}
	if err != nil {
		return errors.Errorf("%s error: %w", t.Program, err)
	}
	return nil
}
