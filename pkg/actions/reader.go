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
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/entity"
	"gitlab.com/tozd/go/errors"
)

var (
	actionLineRe  = regexp.MustCompile(`^([drc]) ([^→]+)(?: → ([^→]*))?$`)
	workdirLineRe = regexp.MustCompile(`^\s*#\s*workdir:\s*(\S+)$`)
)

var (
	// ErrAmbiguousWorkdir is returned when a file records more than one workdir.
	ErrAmbiguousWorkdir = errors.Base("workdir was specified multiple times in the actions file")
	// ErrAborted is returned when the user declines to run in another directory.
	ErrAborted = errors.Base("aborted as requested")
)

// ✋ Confirmer asks whether to run a file recorded in another directory
type Confirmer interface {
	ConfirmWorkdir(ctx context.Context, recorded, current string) (bool, error)
}

// 🔧 ParseOptions configures Parse
type ParseOptions struct {
	// Workdir is the current working directory, compared with the header.
	Workdir string
	// Confirm is asked on a workdir mismatch. Nil declines.
	Confirm Confirmer
	// Probe classifies newly referenced sources.
	Probe entity.Probe
	// Tracked reports whether git tracks a path. May be nil.
	Tracked func(path string) bool
	// Warn receives notes about skipped lines. May be nil.
	Warn func(msg string)
}

// 📦 Parsed is the outcome of reading an actions file
type Parsed struct {
	Batch *entity.Batch
	// Workdir is the recorded working directory, if any.
	Workdir string
	// Failed holds lines that could not be turned into entities, in order.
	Failed []Failure
}

// Parse reads an actions file into a batch of entities. Records naming the
// same source accumulate on one entity. Bad lines are collected in
// Parsed.Failed and parsing continues.
func Parse(ctx context.Context, r io.Reader, opts ParseOptions) (*Parsed, error) {
	logger := zerolog.Ctx(ctx)
	out := &Parsed{Batch: entity.NewBatch()}
	warn := opts.Warn
	if warn == nil {
		warn = func(string) {}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")

		if m := workdirLineRe.FindStringSubmatch(raw); m != nil {
			if out.Workdir != "" {
				return nil, errors.Errorf("%w: %s and %s", ErrAmbiguousWorkdir, out.Workdir, m[1])
			}
			out.Workdir = m[1]
			if err := checkWorkdir(ctx, opts, out.Workdir); err != nil {
				return nil, err
			}
			continue
		}

		line := strings.TrimLeft(raw, " \t")
		if line == "" || line[0] == '#' {
			continue
		}

		act, ok := parseLine(line)
		if !ok {
			logger.Debug().Int("line", lineNo).Str("text", line).Msg("unparsable line")
			out.Failed = append(out.Failed, Failure{
				Action: Unparsable(line),
				Err:    errors.Errorf("unparsable line: %s", line),
			})
			if strings.Contains(line, Arrow) {
				warn("The arrow character (" + Arrow + ") is not supported in file names when using an actions-file.")
			}
			continue
		}

		if err := apply(out.Batch, act, opts); err != nil {
			out.Failed = append(out.Failed, Failure{Action: act, Err: err})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading actions file: %w", err)
	}

	return out, nil
}

func checkWorkdir(ctx context.Context, opts ParseOptions, recorded string) error {
	if opts.Workdir == "" || recorded == opts.Workdir {
		return nil
	}
	if opts.Confirm == nil {
		return ErrAborted
	}
	ok, err := opts.Confirm.ConfirmWorkdir(ctx, recorded, opts.Workdir)
	if err != nil {
		return errors.Errorf("confirming workdir: %w", err)
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func parseLine(line string) (Action, bool) {
	m := actionLineRe.FindStringSubmatchIndex(line)
	if m == nil {
		return Action{}, false
	}
	src := filepath.Clean(line[m[4]:m[5]])
	hasDest := m[6] >= 0
	dest := ""
	if hasDest {
		dest = line[m[6]:m[7]]
	}

	switch line[m[2]:m[3]] {
	case "d":
		return Delete(src), true
	case "r":
		if dest == "" {
			return Action{}, false
		}
		return Rename(src, filepath.Clean(dest)), true
	case "c":
		if dest == "" {
			return Action{}, false
		}
		return Copy(src, filepath.Clean(dest)), true
	}
	return Action{}, false
}

func apply(b *entity.Batch, act Action, opts ParseOptions) error {
	e, ok := b.Lookup(act.Source)
	if !ok {
		tracked := opts.Tracked != nil && opts.Tracked(act.Source)
		created, err := entity.New(opts.Probe, act.Source, tracked)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return errors.Errorf("%s does not exist", act.Source)
			}
			return err
		}
		e = b.Add(created)
	}

	switch act.Kind {
	case KindDelete:
		e.MarkDelete()
	case KindRename:
		e.SetRename(act.Dest)
	case KindCopy:
		e.AddCopy(act.Dest)
	}
	return nil
}
