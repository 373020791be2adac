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

package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/actions"
	"github.com/walteh/edir/pkg/editor"
	"github.com/walteh/edir/pkg/entity"
	"github.com/walteh/edir/pkg/fsops"
	"github.com/walteh/edir/pkg/listing"
	"github.com/walteh/edir/pkg/log"
	"github.com/walteh/edir/pkg/operation"
	"github.com/walteh/edir/pkg/prompt"
	"github.com/walteh/edir/pkg/trash"
	"github.com/walteh/edir/pkg/vcs"
	"gitlab.com/tozd/go/errors"
)

// runner is swapped in tests to fake git and the trash program
var runner vcs.Runner = vcs.ExecRunner

// 🏃 run collects a batch, either from the editor or from an actions file,
// applies it and reports the result.
func run(ctx context.Context, o *rootOpts, args []string, s streams) error {
	logger := zerolog.Ctx(ctx)
	report := log.New(s.out, s.err, o.quiet)
	ctx = log.NewContext(ctx, report)
	fs := fsops.NewOS()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Errorf("getting working directory: %w", err)
	}

	git, tracked, err := detectGit(ctx, o, cwd)
	if err != nil {
		return &exitError{code: operation.ExitPartial, err: err}
	}

	var batch []*entity.Entity
	var preFailed []actions.Failure

	if o.inputFrom != "" {
		parsed, err := readActionsFile(ctx, o.inputFrom, cwd, tracked, s)
		if errors.Is(err, actions.ErrAborted) {
			report.Info("Aborting as requested…")
			return nil
		}
		if err != nil {
			return err
		}
		batch = parsed.Batch.Entities()
		preFailed = parsed.Failed
	} else {
		b, err := editInteractively(ctx, o, args, fs, tracked, s)
		if errors.Is(err, listing.ErrNothingToEdit) {
			report.Info("No " + o.collectOptions(fs, s, tracked).Describe() + ".")
			return nil
		}
		if err != nil {
			return err
		}
		batch = b
	}

	engOpts := operation.Options{FS: fs, Recurse: o.recurse}
	if git != nil {
		engOpts.Git = git
	}
	if o.trash {
		engOpts.Trash = trash.New(o.trashProgram, runner)
	}
	eng, err := operation.New(engOpts)
	if err != nil {
		return err
	}

	logger.Debug().Int("entities", len(batch)).Msg("applying")
	res := eng.Run(ctx, batch)
	res.Failed = append(preFailed, res.Failed...)
	report.Report(ctx, res)

	if len(res.Failed) > 0 {
		path, err := actions.WriteFailures(ctx, actions.WriteOptions{Dir: cwd, Workdir: cwd}, res.Failed)
		if err != nil {
			report.Error("ERROR: Cannot write actions file. Unfortunately, your changes are lost.")
			return &exitError{code: res.ExitCode(), err: err}
		}
		report.Recovery(ctx, path)
	}

	if code := res.ExitCode(); code != operation.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// detectGit returns a git handler and a tracked-path predicate. Without
// --git a missing repository silently disables git.
func detectGit(ctx context.Context, o *rootOpts, cwd string) (*vcs.Git, func(string) bool, error) {
	if o.noGit && !o.git {
		return nil, nil, nil
	}

	git := vcs.New(runner)
	files, err := git.TrackedFiles(ctx)
	if err != nil || len(files) == 0 {
		if o.git {
			if err == nil {
				err = errors.New("no tracked files")
			}
			return nil, nil, errors.Errorf("must be within a git repo to use -g/--git option: %w", err)
		}
		zerolog.Ctx(ctx).Debug().Err(err).Msg("git disabled")
		return nil, nil, nil
	}

	tracked := func(p string) bool {
		if filepath.IsAbs(p) {
			rel, err := filepath.Rel(cwd, p)
			if err != nil {
				return false
			}
			p = rel
		}
		return files[filepath.ToSlash(filepath.Clean(p))]
	}
	return git, tracked, nil
}

func readActionsFile(ctx context.Context, path, cwd string, tracked func(string) bool, s streams) (*actions.Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &exitError{code: operation.ExitActionsFileMissing, err: errors.Errorf("%s does not exist.", path)}
		}
		return nil, &exitError{code: operation.ExitActionsFileMissing, err: errors.Errorf("Reading actions_file %s failed: %w", path, err)}
	}
	defer f.Close()

	parsed, err := actions.Parse(ctx, f, actions.ParseOptions{
		Workdir: cwd,
		Confirm: prompt.NewLine(s.in, s.err),
		Probe:   fsops.NewOS(),
		Tracked: tracked,
		Warn:    log.FromContext(ctx).Warning,
	})
	if err != nil {
		if errors.Is(err, actions.ErrAmbiguousWorkdir) {
			return nil, &exitError{code: operation.ExitFailed, err: err}
		}
		return nil, err
	}
	return parsed, nil
}

func (o *rootOpts) collectOptions(fs listing.FS, s streams, tracked func(string) bool) listing.CollectOptions {
	return listing.CollectOptions{
		FS:        fs,
		Stdin:     s.in,
		Tracked:   tracked,
		All:       o.all,
		Dirnames:  o.dirnames,
		FilesOnly: o.files,
		DirsOnly:  o.dirs,
		NoLinks:   o.nolinks,
		Ignore:    o.ignore,
		Sort:      o.sortKey(),
		Reverse:   o.sortReverse,
		Group:     o.grouping(),
	}
}

func stdinIsTerminal(in interface{}) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// editInteractively lists the paths in the editor and returns the entities
// the user changed.
func editInteractively(ctx context.Context, o *rootOpts, args []string, fs *fsops.OS, tracked func(string) bool, s streams) ([]*entity.Entity, error) {
	if stdinIsTerminal(s.in) {
		if len(args) == 0 {
			args = []string{"."}
		}
	} else if !slices.Contains(args, listing.StdinArg) {
		args = append([]string{listing.StdinArg}, args...)
	}

	batch, err := listing.Collect(ctx, args, o.collectOptions(fs, s, tracked))
	if err != nil {
		return nil, err
	}

	sess, err := editor.NewSession(o.suffix)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	lf, err := os.Create(sess.Path())
	if err != nil {
		return nil, errors.Errorf("opening listing file: %w", err)
	}
	if err := listing.Write(lf, batch); err != nil {
		lf.Close()
		return nil, err
	}
	if err := lf.Close(); err != nil {
		return nil, errors.Errorf("closing listing file: %w", err)
	}

	ed := editor.New()
	ed.Stdout = s.out
	ed.Stderr = s.err
	ed.Stdin = s.in
	if err := ed.Edit(ctx, sess.Path()); err != nil {
		return nil, err
	}

	edited, err := os.Open(sess.Path())
	if err != nil {
		return nil, errors.Errorf("reading listing file: %w", err)
	}
	defer edited.Close()
	if err := listing.Read(ctx, edited, batch); err != nil {
		return nil, err
	}

	return batch.Changed(), nil
}
