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

package listing

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/entity"
	"gitlab.com/tozd/go/errors"
)

// StdinArg in an argument list means "read names from standard input".
const StdinArg = "-"

var (
	ErrNotExist        = errors.Base("does not exist")
	ErrNothingToEdit   = errors.Base("nothing to edit")
	ErrFilesAndDirs    = errors.Base("files and dirs filters are mutually exclusive")
	ErrDuplicateTarget = errors.Base("duplicate target")
)

// 🔀 SortKey selects the listing order
type SortKey int

const (
	SortNone SortKey = iota
	SortName
	SortTime
	SortSize
)

// 📁 Grouping places directories before or after files
type Grouping int

const (
	GroupNone Grouping = iota
	GroupDirsFirst
	GroupDirsLast
)

// 🔍 FS is the read-only filesystem access needed to collect paths
type FS interface {
	Lstat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
}

// 🔧 CollectOptions controls which paths end up in the listing
type CollectOptions struct {
	FS FS
	// Stdin supplies names for StdinArg.
	Stdin io.Reader
	// Tracked reports whether a path is under version control. May be nil.
	Tracked func(path string) bool

	All       bool
	Dirnames  bool
	FilesOnly bool
	DirsOnly  bool
	NoLinks   bool
	// Ignore holds doublestar patterns matched against the slash-separated
	// path and against the base name.
	Ignore []string

	Sort    SortKey
	Reverse bool
	Group   Grouping
}

type candidate struct {
	path string
	info os.FileInfo
	ent  *entity.Entity
}

// 📥 Collect expands args into an ordered batch of entities. Directory
// arguments are replaced by their children unless Dirnames is set. Names read
// from stdin are taken as they are.
func Collect(ctx context.Context, args []string, opts CollectOptions) (*entity.Batch, error) {
	logger := zerolog.Ctx(ctx)

	if opts.FilesOnly && opts.DirsOnly {
		return nil, ErrFilesAndDirs
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	cands, err := expand(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	for i := range cands {
		c := &cands[i]
		tracked := opts.Tracked != nil && opts.Tracked(c.path)
		c.ent, err = entity.New(statProbe{c.info}, c.path, tracked)
		if err != nil {
			return nil, err
		}
	}

	batch := entity.NewBatch()
	var kept []candidate
	for _, c := range cands {
		if skip := opts.filter(c); skip != "" {
			logger.Debug().Str("path", c.path).Str("reason", skip).Msg("skipping")
			continue
		}
		if batch.Add(c.ent) != c.ent {
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return nil, errors.Errorf("no %s: %w", opts.Describe(), ErrNothingToEdit)
	}

	order(kept, opts)
	ordered := make([]*entity.Entity, len(kept))
	for i, c := range kept {
		ordered[i] = c.ent
	}
	batch.Reorder(ordered)

	logger.Debug().Int("entities", batch.Len()).Msg("collected")
	return batch, nil
}

// expand turns args into candidates, keeping the FileInfo of the single
// Lstat each name gets.
func expand(ctx context.Context, args []string, opts CollectOptions) ([]candidate, error) {
	var cands []candidate
	seen := make(map[string]bool, len(args))

	for _, arg := range args {
		if seen[arg] {
			continue
		}
		seen[arg] = true

		if arg == StdinArg {
			if opts.Stdin == nil {
				continue
			}
			scanner := bufio.NewScanner(opts.Stdin)
			for scanner.Scan() {
				name := strings.TrimRight(scanner.Text(), "\r\n")
				if name == "" || name == "." {
					continue
				}
				info, err := opts.FS.Lstat(name)
				if err != nil {
					return nil, errors.Errorf("%s: %w", name, ErrNotExist)
				}
				cands = append(cands, candidate{path: filepath.Clean(name), info: info})
			}
			if err := scanner.Err(); err != nil {
				return nil, errors.Errorf("reading names from stdin: %w", err)
			}
			continue
		}

		info, err := opts.FS.Lstat(arg)
		if err != nil {
			return nil, errors.Errorf("%s: %w", arg, ErrNotExist)
		}
		if opts.Dirnames || !info.IsDir() {
			cands = append(cands, candidate{path: filepath.Clean(arg), info: info})
			continue
		}

		children, err := opts.FS.ReadDir(arg)
		if err != nil {
			return nil, errors.Errorf("reading directory %s: %w", arg, err)
		}
		sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
		for _, child := range children {
			if !opts.All && strings.HasPrefix(child.Name(), ".") {
				continue
			}
			name := filepath.Join(arg, child.Name())
			// DirEntry.Info describes the entry itself, as Lstat would
			childInfo, err := child.Info()
			if err != nil {
				return nil, errors.Errorf("probing %s: %w", name, err)
			}
			cands = append(cands, candidate{path: name, info: childInfo})
		}
		zerolog.Ctx(ctx).Trace().Str("dir", arg).Int("children", len(children)).Msg("expanded")
	}

	return cands, nil
}

func (o CollectOptions) filter(c candidate) string {
	switch {
	case o.FilesOnly && c.ent.IsDir:
		return "directory"
	case o.DirsOnly && !c.ent.IsDir:
		return "not a directory"
	case o.NoLinks && c.ent.IsSymlink:
		return "symlink"
	}
	slashed := filepath.ToSlash(c.path)
	base := filepath.Base(c.path)
	for _, pattern := range o.Ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return "ignored by " + pattern
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return "ignored by " + pattern
		}
	}
	return ""
}

// Describe names what the filters admit, for "no ..." messages.
func (o CollectOptions) Describe() string {
	switch {
	case o.FilesOnly:
		return "files"
	case o.DirsOnly:
		return "directories"
	default:
		return "files or directories"
	}
}

func order(cands []candidate, opts CollectOptions) {
	var less func(a, b candidate) bool
	switch opts.Sort {
	case SortName:
		less = func(a, b candidate) bool { return a.path < b.path }
	case SortTime:
		less = func(a, b candidate) bool { return a.info.ModTime().Before(b.info.ModTime()) }
	case SortSize:
		less = func(a, b candidate) bool { return a.info.Size() < b.info.Size() }
	}
	if less != nil {
		if opts.Reverse {
			fwd := less
			less = func(a, b candidate) bool { return fwd(b, a) }
		}
		sort.SliceStable(cands, func(i, j int) bool { return less(cands[i], cands[j]) })
	}

	if opts.Group == GroupNone {
		return
	}
	dirsFirst := opts.Group == GroupDirsFirst
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ent.IsDir == cands[j].ent.IsDir {
			return false
		}
		return cands[i].ent.IsDir == dirsFirst
	})
}

// statProbe replays an already fetched FileInfo
type statProbe struct {
	info os.FileInfo
}

func (p statProbe) Lstat(string) (os.FileInfo, error) {
	return p.info, nil
}
