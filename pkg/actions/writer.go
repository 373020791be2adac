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

package actions

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const header = `#
# Be careful when editing this file. The order of entries matters, and so
# does the number of whitespace characters.
#
# Format of each entry:
#  operation  source path  [one space  arrow  one space  new path]
#  │          │             │          │      │          │
#  │ ┌────────┘   ┌─────────┘          │      │          │
#  │ │            │┌───────────────────┘      │          │
#  │ │            ││┌─────────────────────────┘          │
#  │ │            │││┌───────────────────────────────────┘
#  ▼ ▼            ▼▼▼▼
#  r ./source file → ./target file
#
# Operations:
#  d: delete (only the source path follows)
#  r: rename
#  c: copy
#
# The arrow must have exactly one space on each side. Any other whitespace
# is part of the path.
#
# The arrow cannot be used inside paths in this file and there is no way to
# escape it.
#
# Empty lines and lines starting with a hash mark (#) are ignored.

`

// 📝 WriteOptions configures where a recovery file goes
type WriteOptions struct {
	// Dir is tried first. os.TempDir is the fallback.
	Dir string
	// Workdir is recorded in the provenance header.
	Workdir string
	// Now stamps the file name.
	Now time.Time
}

// 📝 Writer appends actions to a freshly created actions file
type Writer struct {
	f    *os.File
	path string
}

// Create makes a new actions file and writes the provenance header and the
// format description.
func Create(ctx context.Context, opts WriteOptions) (*Writer, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	pattern := fmt.Sprintf("edir-actions-%s-*", now.Format("2006-01-02_15.04.05"))

	dirs := []string{opts.Dir, os.TempDir()}
	var f *os.File
	var err error
	for _, dir := range dirs {
		if dir == "" {
			dir = "."
		}
		f, err = os.CreateTemp(dir, pattern)
		if err == nil {
			break
		}
		zerolog.Ctx(ctx).Debug().Err(err).Str("dir", dir).Msg("creating actions file")
	}
	if err != nil {
		return nil, errors.Errorf("cannot write actions file: %w", err)
	}

	w := &Writer{f: f, path: f.Name()}
	if _, err := fmt.Fprintf(f, "# workdir: %s\n%s", opts.Workdir, header); err != nil {
		f.Close()
		return nil, errors.Errorf("writing actions file header: %w", err)
	}
	return w, nil
}

// Path returns the file's location.
func (w *Writer) Path() string {
	return w.path
}

// Write appends one line per action, in order.
func (w *Writer) Write(acts ...Action) error {
	var b strings.Builder
	for _, a := range acts {
		b.WriteString(a.String())
		b.WriteByte('\n')
	}
	if _, err := w.f.WriteString(b.String()); err != nil {
		return errors.Errorf("writing actions file: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// WriteFailures creates an actions file holding the failed actions in order
// and returns its path.
func WriteFailures(ctx context.Context, opts WriteOptions, failures []Failure) (string, error) {
	w, err := Create(ctx, opts)
	if err != nil {
		return "", err
	}

	acts := make([]Action, 0, len(failures))
	for _, f := range failures {
		if f.Action.Kind != KindUnparsable && !f.Action.Representable() {
			zerolog.Ctx(ctx).Warn().Str("action", f.Action.String()).Msg("path contains " + Arrow + ", the line will not parse on replay")
		}
		acts = append(acts, f.Action)
	}
	if err := w.Write(acts...); err != nil {
		w.Close()
		return w.Path(), err
	}
	if err := w.Close(); err != nil {
		return w.Path(), errors.Errorf("closing actions file: %w", err)
	}
	return w.Path(), nil
}
