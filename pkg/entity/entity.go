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

// Package entity models the filesystem paths a single edir run works on.
package entity

import (
	"os"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📊 State tracks an entity through the commit passes
type State int

const (
	StatePending  State = iota // nothing done yet
	StateStaged                // moved into a holding directory
	StateRestored              // moved to its final name
	StateDeleted               // removed from the filesystem
	StateFailed                // the rename or delete failed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStaged:
		return "staged"
	case StateRestored:
		return "restored"
	case StateDeleted:
		return "deleted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📄 Entity is one file or directory under consideration
type Entity struct {
	// Path is where the object lives when the run starts.
	Path string
	// NewPath is the intended location. Empty means delete.
	NewPath string
	// Copies are made from the final location, in order.
	Copies []string

	IsDir     bool
	IsSymlink bool
	IsTracked bool

	State State
	// StagedPath is only meaningful while State == StateStaged.
	StagedPath string
}

// 🔍 Probe is the subset of filesystem access needed to classify a path
type Probe interface {
	Lstat(path string) (os.FileInfo, error)
}

// 🏭 New classifies path with a live probe and returns a pending entity
func New(probe Probe, path string, tracked bool) (*Entity, error) {
	info, err := probe.Lstat(path)
	if err != nil {
		return nil, errors.Errorf("probing %s: %w", path, err)
	}

	e := &Entity{
		Path:      path,
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		IsTracked: tracked,
	}
	e.IsDir = info.IsDir()
	if e.IsSymlink {
		// a symlink to a directory is removed and renamed like a file
		e.IsDir = false
	}
	return e, nil
}

// WantsRename reports whether the entity moves to a different path. Paths
// are compared cleaned, so "./x" and "x" are the same location.
func (e *Entity) WantsRename() bool {
	return e.NewPath != "" && filepath.Clean(e.NewPath) != filepath.Clean(e.Path)
}

// WantsDelete reports whether the entity is removed.
func (e *Entity) WantsDelete() bool {
	return e.NewPath == ""
}

// Changed reports whether the entity produces any operation at all.
func (e *Entity) Changed() bool {
	return e.WantsRename() || e.WantsDelete() || len(e.Copies) > 0
}

// SetRename records the intended new location.
func (e *Entity) SetRename(newPath string) {
	e.NewPath = newPath
}

// MarkDelete clears any intended location.
func (e *Entity) MarkDelete() {
	e.NewPath = ""
}

// AddCopy appends a copy target. A copy without a recorded rename keeps the
// entity in place.
func (e *Entity) AddCopy(dest string) {
	if e.NewPath == "" {
		e.NewPath = e.Path
	}
	e.Copies = append(e.Copies, dest)
}

// CopySource is the location copies are taken from: the final path once
// renamed, otherwise the original.
func (e *Entity) CopySource() string {
	if e.State == StateRestored {
		return e.NewPath
	}
	return e.Path
}

// Display returns the path as shown in reports, with a trailing separator for
// directories.
func (e *Entity) Display() string {
	return withDirSuffix(e.Path, e.IsDir)
}

// DisplayTarget returns p as shown in reports for this entity's kind.
func (e *Entity) DisplayTarget(p string) string {
	return withDirSuffix(p, e.IsDir)
}

// Line returns the representation written into the editable listing.
func (e *Entity) Line() string {
	line := e.Display()
	if !filepath.IsAbs(e.Path) && !strings.HasPrefix(line, "./") && !strings.HasPrefix(line, "../") {
		line = "./" + line
	}
	return line
}

func withDirSuffix(p string, isDir bool) string {
	if isDir && !strings.HasSuffix(p, string(filepath.Separator)) {
		return p + string(filepath.Separator)
	}
	return p
}
