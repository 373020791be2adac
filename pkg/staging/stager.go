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

// Package staging moves renamed objects out of the way before they are
// placed at their final names, so swaps and circular renames never collide.
package staging

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/entity"
	"github.com/walteh/edir/pkg/fsops"
	"gitlab.com/tozd/go/errors"
)

// HoldingDirName is the hidden directory created next to each destination.
const HoldingDirName = ".tmp-edir"

// 📦 Stager owns the holding directories of one run
type Stager struct {
	fs     fsops.FS
	dirs   []string
	seen   map[string]bool
	retain map[string]bool
	// created marks holding dirs this run made. Others existed before and
	// only lose the entries staged into them.
	created map[string]bool
	staged  map[string][]string
}

// 🏭 New creates a Stager on fs
func New(fs fsops.FS) *Stager {
	return &Stager{
		fs:     fs,
		seen:    make(map[string]bool),
		retain:  make(map[string]bool),
		created: make(map[string]bool),
		staged:  make(map[string][]string),
	}
}

// HoldingDir returns the holding directory used for a destination path.
func HoldingDir(dest string) string {
	return filepath.Join(filepath.Dir(dest), HoldingDirName)
}

// Stage moves e.Path into the holding directory of e.NewPath's parent under a
// free name. Missing parents of the destination are created.
func (s *Stager) Stage(ctx context.Context, e *entity.Entity, mover fsops.Mover) error {
	holding := HoldingDir(e.NewPath)
	if !s.seen[holding] {
		_, statErr := s.fs.Lstat(holding)
		if err := s.fs.MkdirAll(holding, 0o777); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("dir", holding).Msg("creating holding dir")
			return errors.Errorf("Can not write in %s", filepath.Dir(holding))
		}
		s.seen[holding] = true
		s.created[holding] = statErr != nil
		s.dirs = append(s.dirs, holding)
	}

	staged, err := entity.ResolveUnique(s.fs, filepath.Join(holding, filepath.Base(e.NewPath)))
	if err != nil {
		return err
	}
	if err := mover.Move(ctx, e.Path, staged); err != nil {
		return err
	}

	e.StagedPath = staged
	e.State = entity.StateStaged
	s.staged[holding] = append(s.staged[holding], staged)
	zerolog.Ctx(ctx).Debug().Str("path", e.Path).Str("staged", staged).Msg("staged")
	return nil
}

// Restore moves a staged entity to a free name at its destination and
// returns that name. Entities that were never staged are left alone.
//
// If the final move fails the object is moved back to its original path. If
// that fails too its holding directory is kept by Cleanup.
func (s *Stager) Restore(ctx context.Context, e *entity.Entity, mover fsops.Mover) (string, error) {
	if e.State != entity.StateStaged {
		return "", nil
	}

	dest, err := entity.ResolveUnique(s.fs, e.NewPath)
	if err == nil {
		err = mover.Move(ctx, e.StagedPath, dest)
	}
	if err != nil {
		s.putBack(ctx, e, mover)
		e.State = entity.StateFailed
		return "", err
	}

	e.NewPath = dest
	e.StagedPath = ""
	e.State = entity.StateRestored
	return dest, nil
}

func (s *Stager) putBack(ctx context.Context, e *entity.Entity, mover fsops.Mover) {
	logger := zerolog.Ctx(ctx)
	back, err := entity.ResolveUnique(s.fs, e.Path)
	if err == nil {
		err = mover.Move(ctx, e.StagedPath, back)
	}
	if err != nil {
		holding := filepath.Dir(e.StagedPath)
		s.retain[holding] = true
		logger.Warn().Err(err).Str("staged", e.StagedPath).Msg("keeping holding dir")
		return
	}
	logger.Debug().Str("path", back).Msg("returned staged object")
	e.StagedPath = ""
}

// Cleanup removes every holding directory the run created except those still
// holding an object that could not be placed. It returns the retained ones.
// A holding directory that already existed is left in place, minus whatever
// this run staged into it.
func (s *Stager) Cleanup(ctx context.Context) []string {
	logger := zerolog.Ctx(ctx)
	var kept []string
	for _, dir := range s.dirs {
		if s.retain[dir] {
			kept = append(kept, dir)
			continue
		}
		if !s.created[dir] {
			s.removeStaged(ctx, dir)
			continue
		}
		if err := s.fs.RemoveAll(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("removing holding dir")
		}
	}
	s.dirs = nil
	s.seen = make(map[string]bool)
	s.created = make(map[string]bool)
	s.staged = make(map[string][]string)
	return kept
}

func (s *Stager) removeStaged(ctx context.Context, dir string) {
	for _, p := range s.staged[dir] {
		if _, err := s.fs.Lstat(p); err != nil {
			continue
		}
		if err := s.fs.RemoveAll(p); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", p).Msg("removing staged entry")
		}
	}
}
