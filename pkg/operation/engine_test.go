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

package operation_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/edir/pkg/actions"
	"github.com/walteh/edir/pkg/entity"
	"github.com/walteh/edir/pkg/fsops"
	"github.com/walteh/edir/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 🧪 testEnv is a scratch directory with a logger in context
type testEnv struct {
	t   *testing.T
	ctx context.Context
	dir string
}

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	env := &testEnv{
		t:   t,
		ctx: zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background()),
		dir: t.TempDir(),
	}
	for name, content := range files {
		p := env.path(name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return env
}

func (env *testEnv) path(name string) string {
	return filepath.Join(env.dir, name)
}

func (env *testEnv) entity(name string) *entity.Entity {
	e, err := entity.New(fsops.NewOS(), env.path(name), false)
	require.NoError(env.t, err)
	return e
}

// contents maps every regular file below the directory to its content.
func (env *testEnv) contents() map[string]string {
	out := map[string]string{}
	err := filepath.Walk(env.dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(env.dir, p)
			out[rel] = string(data)
		}
		return nil
	})
	require.NoError(env.t, err)
	return out
}

func (env *testEnv) run(opts operation.Options, batch ...*entity.Entity) *operation.Result {
	if opts.FS == nil {
		opts.FS = fsops.NewOS()
	}
	eng, err := operation.New(opts)
	require.NoError(env.t, err)
	return eng.Run(env.ctx, batch)
}

func lines(failed []actions.Failure) []string {
	out := make([]string, 0, len(failed))
	for _, f := range failed {
		out = append(out, f.Action.String())
	}
	return out
}

func TestNewRequiresFS(t *testing.T) {
	_, err := operation.New(operation.Options{})
	require.Error(t, err)
}

func TestAllOperations(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"file1": "file 1 content",
		"file2": "file 2 content",
		"file3": "file 3 content",
		"file4": "file 4 content",
	})

	del := env.entity("file1")
	ren := env.entity("file2")
	ren.SetRename(env.path("file2renamed"))
	cp := env.entity("file3")
	cp.AddCopy(env.path("file3copy"))

	res := env.run(operation.Options{}, del, ren, cp)

	assert.Empty(t, res.Failed)
	assert.Equal(t, operation.ExitOK, res.ExitCode())
	assert.Equal(t, map[string]string{
		"file2renamed": "file 2 content",
		"file3":        "file 3 content",
		"file3copy":    "file 3 content",
		"file4":        "file 4 content",
	}, env.contents())

	require.Len(t, res.Applied, 3)
	assert.Equal(t, actions.KindDelete, res.Applied[0].Action.Kind)
	assert.Equal(t, actions.KindRename, res.Applied[1].Action.Kind)
	assert.Equal(t, actions.KindCopy, res.Applied[2].Action.Kind)
}

func TestSwap(t *testing.T) {
	env := newTestEnv(t, map[string]string{"file1": "A", "file2": "B"})

	a := env.entity("file1")
	a.SetRename(env.path("file2"))
	b := env.entity("file2")
	b.SetRename(env.path("file1"))

	res := env.run(operation.Options{}, a, b)
	require.Empty(t, res.Failed)
	assert.Equal(t, map[string]string{"file1": "B", "file2": "A"}, env.contents())

	// the same entities swap back when run in the opposite order
	res = env.run(operation.Options{}, resetState(b, a)...)
	require.Empty(t, res.Failed)
	assert.Equal(t, map[string]string{"file1": "A", "file2": "B"}, env.contents())
	assert.NoDirExists(t, env.path(".tmp-edir"))
}

func TestExistingHoldingDirSurvives(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "A", ".tmp-edir/keep": "mine"})

	e := env.entity("a")
	e.SetRename(env.path("b"))

	res := env.run(operation.Options{}, e)
	require.Empty(t, res.Failed)
	assert.Empty(t, res.Kept)
	assert.Equal(t, map[string]string{"b": "A", ".tmp-edir/keep": "mine"}, env.contents())
}

func resetState(es ...*entity.Entity) []*entity.Entity {
	for _, e := range es {
		e.State = entity.StatePending
		e.StagedPath = ""
	}
	return es
}

func TestCircularRename(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "A", "b": "B", "c": "C"})

	a, b, c := env.entity("a"), env.entity("b"), env.entity("c")
	a.SetRename(env.path("b"))
	b.SetRename(env.path("c"))
	c.SetRename(env.path("a"))

	res := env.run(operation.Options{}, a, b, c)
	require.Empty(t, res.Failed)
	assert.Equal(t, map[string]string{"a": "C", "b": "A", "c": "B"}, env.contents())
}

func TestDuplicateTargetsKeepAllData(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a": "A", "b": "B", "sub/x": "existing"})

	a, b := env.entity("a"), env.entity("b")
	a.SetRename(env.path("sub/x"))
	b.SetRename(env.path("sub/x"))

	res := env.run(operation.Options{}, a, b)
	require.Empty(t, res.Failed)

	got := env.contents()
	assert.Len(t, got, 3, "no content may be lost")
	var values []string
	for _, v := range got {
		values = append(values, v)
	}
	sort.Strings(values)
	assert.Equal(t, []string{"A", "B", "existing"}, values)
	assert.Equal(t, "existing", got["sub/x"])
}

func TestRenameIntoNewSubdirectories(t *testing.T) {
	env := newTestEnv(t, map[string]string{"innerdir/file1": "1", "innerdir/file2": "2", "innerdir/file3": "3"})

	f1, f2, f3 := env.entity("innerdir/file1"), env.entity("innerdir/file2"), env.entity("innerdir/file3")
	f1.SetRename(env.path("other dir/file1"))
	f2.SetRename(env.path("innerdir/subdir/sub2/file2renamed"))
	f3.AddCopy(env.path("file3copy"))

	res := env.run(operation.Options{}, f1, f2, f3)
	require.Empty(t, res.Failed)
	assert.Equal(t, map[string]string{
		"other dir/file1":                   "1",
		"innerdir/subdir/sub2/file2renamed": "2",
		"innerdir/file3":                    "3",
		"file3copy":                         "3",
	}, env.contents())
}

func TestRenameAndCopiesSeePostRenameContent(t *testing.T) {
	env := newTestEnv(t, map[string]string{"file2": "two"})

	e := env.entity("file2")
	e.AddCopy(env.path("file2copy"))
	e.SetRename(env.path("file2renamed"))
	e.AddCopy(env.path("file2copy2"))

	res := env.run(operation.Options{}, e)
	require.Empty(t, res.Failed)
	assert.Equal(t, map[string]string{"file2renamed": "two", "file2copy": "two", "file2copy2": "two"}, env.contents())

	require.Len(t, res.Applied, 3)
	assert.Equal(t, "c "+env.path("file2renamed")+" → "+env.path("file2copy"), res.Applied[1].Action.String())
}

func TestNoOpProducesNothing(t *testing.T) {
	env := newTestEnv(t, map[string]string{"same": "x"})
	e := env.entity("same")
	e.SetRename(env.path("same"))

	res := env.run(operation.Options{}, e)
	assert.Empty(t, res.Applied)
	assert.Empty(t, res.Failed)
	assert.Equal(t, operation.ExitOK, res.ExitCode())
}

func TestCopyIntoMissingDirectoryFails(t *testing.T) {
	env := newTestEnv(t, map[string]string{"f": "x"})
	e := env.entity("f")
	e.AddCopy(env.path("missing/f"))

	res := env.run(operation.Options{}, e)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, operation.ExitFailed, res.ExitCode())
	assert.NoDirExists(t, env.path("missing"))
}

func TestDirectoryDeletes(t *testing.T) {
	tests := []struct {
		name       string
		recurse    bool
		wantGone   []string
		wantKept   []string
		wantFailed []string
		wantNote   string
	}{
		{
			name:       "non_recursive",
			wantGone:   []string{"empty"},
			wantKept:   []string{"full"},
			wantFailed: []string{"d full"},
		},
		{
			name:     "recursive",
			recurse:  true,
			wantGone: []string{"empty", "full"},
			wantNote: " recursively",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, map[string]string{"full/child": "c"})
			require.NoError(t, os.Mkdir(env.path("empty"), 0o755))

			empty, full := env.entity("empty"), env.entity("full")
			res := env.run(operation.Options{Recurse: tt.recurse}, empty, full)

			for _, g := range tt.wantGone {
				assert.NoDirExists(t, env.path(g))
			}
			for _, k := range tt.wantKept {
				assert.DirExists(t, env.path(k))
			}

			var failed []string
			for _, f := range res.Failed {
				failed = append(failed, strings.Replace(f.Action.String(), env.dir+string(filepath.Separator), "", 1))
				assert.Contains(t, f.Err.Error(), "Directory not empty")
			}
			assert.Equal(t, tt.wantFailed, failed)

			if tt.wantNote != "" {
				require.Len(t, res.Applied, 2)
				assert.Equal(t, tt.wantNote, res.Applied[1].Note)
			}
		})
	}
}

func TestDeleteChildrenThenParent(t *testing.T) {
	env := newTestEnv(t, map[string]string{"dir/a": "a", "keep": "k"})

	dir := env.entity("dir")
	child := env.entity("dir/a")
	child.SetRename(env.path("moved-a"))

	res := env.run(operation.Options{}, dir, child)
	require.Empty(t, res.Failed, "the directory empties once its child has moved")
	assert.NoDirExists(t, env.path("dir"))
	assert.Equal(t, map[string]string{"moved-a": "a", "keep": "k"}, env.contents())
}

// 🔧 faultFS fails selected operations
type faultFS struct {
	*fsops.OS
	mkdir, remove, copy, rename bool
}

var errInjected = errors.Base("Permission denied")

func (f *faultFS) MkdirAll(p string, perm os.FileMode) error {
	if f.mkdir {
		return errInjected
	}
	return f.OS.MkdirAll(p, perm)
}

func (f *faultFS) Remove(p string) error {
	if f.remove {
		return errInjected
	}
	return f.OS.Remove(p)
}

func (f *faultFS) Copy(src, dst string) error {
	if f.copy {
		return errInjected
	}
	return f.OS.Copy(src, dst)
}

func (f *faultFS) Rename(src, dst string) error {
	if f.rename {
		return errInjected
	}
	return f.OS.Rename(src, dst)
}

func fourFiles() map[string]string {
	return map[string]string{
		"file1": "file 1 content",
		"file2": "file 2 content",
		"file3": "file 3 content",
		"file4": "file 4 content",
	}
}

func TestAllOperationsFail(t *testing.T) {
	env := newTestEnv(t, fourFiles())

	d := env.entity("file1")
	r := env.entity("file2")
	r.SetRename(env.path("file2renamed"))
	c := env.entity("file3")
	c.AddCopy(env.path("file3copy"))
	c.AddCopy(env.path("file3copy2"))

	fs := &faultFS{OS: fsops.NewOS(), mkdir: true, remove: true, copy: true}
	res := env.run(operation.Options{FS: fs}, d, r, c)

	assert.Equal(t, operation.ExitFailed, res.ExitCode())
	assert.Empty(t, res.Applied)
	assert.Equal(t, []string{
		"d " + env.path("file1"),
		"r " + env.path("file2") + " → " + env.path("file2renamed"),
		"c " + env.path("file3") + " → " + env.path("file3copy"),
		"c " + env.path("file3") + " → " + env.path("file3copy2"),
	}, lines(res.Failed))
	assert.Equal(t, fourFiles(), env.contents())
}

func TestUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not apply to root")
	}
	env := newTestEnv(t, fourFiles())

	d := env.entity("file1")
	r := env.entity("file2")
	r.SetRename(env.path("file2renamed"))
	c := env.entity("file3")
	c.AddCopy(env.path("file3copy"))
	c.AddCopy(env.path("file3copy2"))

	require.NoError(t, os.Chmod(env.dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(env.dir, 0o755) })

	res := env.run(operation.Options{}, d, r, c)
	require.NoError(t, os.Chmod(env.dir, 0o755))

	assert.Equal(t, operation.ExitFailed, res.ExitCode())
	assert.Empty(t, res.Applied)
	assert.Len(t, res.Failed, 4)
	assert.Equal(t, fourFiles(), env.contents())
}

// Failed copies name the renamed file as their source, not the original
// path, so the recovery file replays against the tree as it now is.
func TestRenameSucceedsCopiesFail(t *testing.T) {
	env := newTestEnv(t, fourFiles())

	e := env.entity("file2")
	e.SetRename(env.path("file2renamed"))
	e.AddCopy(env.path("file2copy"))
	e.AddCopy(env.path("file2copy2"))

	fs := &faultFS{OS: fsops.NewOS(), copy: true}
	res := env.run(operation.Options{FS: fs}, e)

	assert.Equal(t, operation.ExitPartial, res.ExitCode())
	require.Len(t, res.Applied, 1)
	assert.Equal(t, actions.KindRename, res.Applied[0].Action.Kind)
	assert.Equal(t, []string{
		"c " + env.path("file2renamed") + " → " + env.path("file2copy"),
		"c " + env.path("file2renamed") + " → " + env.path("file2copy2"),
	}, lines(res.Failed))
}

func TestRenameFailsCopiesNotAttempted(t *testing.T) {
	env := newTestEnv(t, fourFiles())

	e := env.entity("file2")
	e.SetRename(env.path("file2renamed"))
	e.AddCopy(env.path("file2copy"))

	fs := &faultFS{OS: fsops.NewOS(), mkdir: true}
	res := env.run(operation.Options{FS: fs}, e)

	assert.Equal(t, operation.ExitFailed, res.ExitCode())
	assert.Equal(t, []string{
		"r " + env.path("file2") + " → " + env.path("file2renamed"),
		"c " + env.path("file2") + " → " + env.path("file2copy"),
	}, lines(res.Failed))
	assert.Equal(t, fourFiles(), env.contents())
}

func TestRecoveryFileRoundTrip(t *testing.T) {
	env := newTestEnv(t, fourFiles())

	d := env.entity("file1")
	r := env.entity("file2")
	r.SetRename(env.path("file2renamed"))
	c := env.entity("file3")
	c.AddCopy(env.path("file3copy"))

	fs := &faultFS{OS: fsops.NewOS(), mkdir: true, remove: true, copy: true}
	first := env.run(operation.Options{FS: fs}, d, r, c)
	require.Len(t, first.Failed, 3)

	path, err := actions.WriteFailures(env.ctx, actions.WriteOptions{Dir: t.TempDir(), Workdir: env.dir}, first.Failed)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	parsed, err := actions.Parse(env.ctx, f, actions.ParseOptions{Workdir: env.dir, Probe: fsops.NewOS()})
	require.NoError(t, err)
	require.Empty(t, parsed.Failed)

	second := env.run(operation.Options{FS: fs}, parsed.Batch.Entities()...)
	assert.Equal(t, lines(first.Failed), lines(second.Failed))

	third := env.run(operation.Options{}, resetState(parsed.Batch.Entities()...)...)
	assert.Empty(t, third.Failed)
	assert.Equal(t, map[string]string{
		"file2renamed": "file 2 content",
		"file3":        "file 3 content",
		"file3copy":    "file 3 content",
		"file4":        "file 4 content",
	}, env.contents())
}

// 🔧 recordingVCS records which paths were handed to it
type recordingVCS struct {
	fsops.Mover
	fsops.Deleter
	moved, deleted []string
}

func (r *recordingVCS) Move(ctx context.Context, src, dst string) error {
	r.moved = append(r.moved, src)
	return r.Mover.Move(ctx, src, dst)
}

func (r *recordingVCS) Delete(ctx context.Context, path string, recurse bool) error {
	r.deleted = append(r.deleted, path)
	return r.Deleter.Delete(ctx, path, recurse)
}

func TestDeletionStrategies(t *testing.T) {
	env := newTestEnv(t, map[string]string{"tracked": "t", "plain": "p", "moved": "m"})
	direct := fsops.NewDirect(fsops.NewOS())
	git := &recordingVCS{Mover: direct, Deleter: direct}
	trash := &recordingVCS{Mover: direct, Deleter: direct}

	tracked := env.entity("tracked")
	tracked.IsTracked = true
	plain := env.entity("plain")
	moved := env.entity("moved")
	moved.IsTracked = true
	moved.SetRename(env.path("moved2"))

	res := env.run(operation.Options{Git: git, Trash: trash}, tracked, plain, moved)
	require.Empty(t, res.Failed)

	assert.Equal(t, []string{env.path("tracked")}, git.deleted)
	assert.Equal(t, []string{env.path("plain")}, trash.deleted)
	assert.Len(t, git.moved, 2, "tracked renames go through git both into and out of the holding dir")
	assert.Equal(t, map[string]string{"moved2": "m"}, env.contents())
}
