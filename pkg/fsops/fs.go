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

// Package fsops holds the filesystem primitives the commit passes are built
// from. Everything that touches the disk goes through FS so tests can inject
// failures.
package fsops

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrDirNotEmpty is returned when a non-empty directory is deleted without
// recursion.
var ErrDirNotEmpty = errors.Base("Directory not empty")

// 💾 FS is the set of filesystem calls used by a run
type FS interface {
	Lstat(path string) (os.FileInfo, error)
	Rename(src, dst string) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	RemoveAll(path string) error
	Copy(src, dst string) error
	IsEmptyDir(path string) (bool, error)
}

// 🔧 OS implements FS on the real filesystem
type OS struct{}

// 🏭 NewOS creates a new OS filesystem
func NewOS() *OS {
	return &OS{}
}

func (*OS) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

func (*OS) Rename(src, dst string) error {
	return os.Rename(src, dst)
}

func (*OS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*OS) Remove(path string) error {
	return os.Remove(path)
}

func (*OS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (*OS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (*OS) IsEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// Copy copies src to dst following symlinks. Files keep their mode and
// modification time. Directories are copied recursively and dst must not
// exist. When dst is an existing directory a file is copied into it. The
// parent of dst is never created.
func (o *OS) Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.IsDir() && !info.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}

	parent := filepath.Dir(dst)
	if pinfo, err := os.Stat(parent); err != nil {
		return err
	} else if !pinfo.IsDir() {
		return errors.Errorf("%s is not a directory", parent)
	}

	if info.IsDir() {
		if _, err := os.Lstat(dst); err == nil {
			return &os.PathError{Op: "copy", Path: dst, Err: os.ErrExist}
		}
		return o.copyTree(src, dst)
	}
	return copyFile(src, dst, info)
}

func (o *OS) copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dst, info.Mode().Perm()|0o700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		child, err := os.Stat(s)
		if err != nil {
			return err
		}
		if child.IsDir() {
			err = o.copyTree(s, d)
		} else {
			err = copyFile(s, d, child)
		}
		if err != nil {
			return err
		}
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// 🚚 Mover relocates a path
type Mover interface {
	Move(ctx context.Context, src, dst string) error
}

// 🗑️ Deleter removes a path
type Deleter interface {
	Delete(ctx context.Context, path string, recurse bool) error
}

// 🔧 Direct moves and deletes with plain filesystem calls
type Direct struct {
	FS FS
}

// 🏭 NewDirect creates a new Direct on fs
func NewDirect(fs FS) *Direct {
	return &Direct{FS: fs}
}

func (d *Direct) Move(ctx context.Context, src, dst string) error {
	zerolog.Ctx(ctx).Debug().Str("src", src).Str("dst", dst).Msg("rename")
	return d.FS.Rename(src, dst)
}

func (d *Direct) Delete(ctx context.Context, path string, recurse bool) error {
	zerolog.Ctx(ctx).Debug().Str("path", path).Bool("recurse", recurse).Msg("remove")
	if recurse {
		return d.FS.RemoveAll(path)
	}
	return d.FS.Remove(path)
}

// CheckRemovable fails with ErrDirNotEmpty when path is a real directory with
// contents and recurse is false. It runs before any deletion strategy.
func CheckRemovable(fs FS, path string, isDir, recurse bool) error {
	if recurse || !isDir {
		return nil
	}
	empty, err := fs.IsEmptyDir(path)
	if err != nil {
		return err
	}
	if !empty {
		return ErrDirNotEmpty
	}
	return nil
}
