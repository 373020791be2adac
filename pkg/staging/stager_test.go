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

package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/edir/pkg/entity"
	"github.com/walteh/edir/pkg/fsops"
	"github.com/walteh/edir/pkg/staging"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSwapThroughHoldingDir(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writeFile(t, a, "A")
	writeFile(t, b, "B")

	fs := fsops.NewOS()
	mover := fsops.NewDirect(fs)
	s := staging.New(fs)

	ea := &entity.Entity{Path: a, NewPath: b}
	eb := &entity.Entity{Path: b, NewPath: a}

	require.NoError(t, s.Stage(ctx, ea, mover))
	require.NoError(t, s.Stage(ctx, eb, mover))
	assert.Equal(t, entity.StateStaged, ea.State)
	assert.NotEqual(t, ea.StagedPath, eb.StagedPath, "same base names get distinct holding names")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one holding dir per destination parent")
	assert.Equal(t, staging.HoldingDirName, entries[0].Name())

	got, err := s.Restore(ctx, ea, mover)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	_, err = s.Restore(ctx, eb, mover)
	require.NoError(t, err)

	assert.Empty(t, s.Cleanup(ctx))
	assert.Equal(t, "A", readFile(t, b))
	assert.Equal(t, "B", readFile(t, a))
	assert.NoDirExists(t, filepath.Join(dir, staging.HoldingDirName))
}

func TestStageCreatesMissingParents(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	writeFile(t, src, "x")
	dest := filepath.Join(dir, "new", "deeper", "f")

	fs := fsops.NewOS()
	s := staging.New(fs)
	e := &entity.Entity{Path: src, NewPath: dest}
	require.NoError(t, s.Stage(ctx, e, fsops.NewDirect(fs)))
	_, err := s.Restore(ctx, e, fsops.NewDirect(fs))
	require.NoError(t, err)
	s.Cleanup(ctx)

	assert.Equal(t, "x", readFile(t, dest))
	assert.NoDirExists(t, filepath.Join(dir, "new", "deeper", staging.HoldingDirName))
}

func TestRestoreAvoidsClobbering(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	writeFile(t, src, "new")

	fs := fsops.NewOS()
	s := staging.New(fs)
	e := &entity.Entity{Path: src, NewPath: dest}
	require.NoError(t, s.Stage(ctx, e, fsops.NewDirect(fs)))

	// something appears at the destination in the meantime
	writeFile(t, dest, "existing")

	got, err := s.Restore(ctx, e, fsops.NewDirect(fs))
	require.NoError(t, err)
	assert.Equal(t, dest+"~", got)
	assert.Equal(t, "existing", readFile(t, dest))
	assert.Equal(t, "new", readFile(t, dest+"~"))
}

func TestRestoreIgnoresUnstaged(t *testing.T) {
	s := staging.New(fsops.NewOS())
	got, err := s.Restore(context.Background(), &entity.Entity{Path: "x", NewPath: "y"}, fsops.NewDirect(fsops.NewOS()))
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingMkdir struct {
	*fsops.OS
}

func (failingMkdir) MkdirAll(string, os.FileMode) error {
	return errors.New("permission denied")
}

func TestStageHoldingDirFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "f")
	writeFile(t, src, "x")

	fs := failingMkdir{fsops.NewOS()}
	s := staging.New(fs)
	e := &entity.Entity{Path: src, NewPath: filepath.Join(dir, "g")}
	err := s.Stage(testContext(t), e, fsops.NewDirect(fs))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can not write in "+dir)
	assert.Equal(t, entity.StatePending, e.State)
	assert.FileExists(t, src)
}

// moveFailsInto fails any move whose destination equals target.
type moveFailsInto struct {
	fsops.Mover
	target string
}

func (m moveFailsInto) Move(ctx context.Context, src, dst string) error {
	if dst == m.target {
		return errors.New("boom")
	}
	return m.Mover.Move(ctx, src, dst)
}

func TestRestoreFailurePutsObjectBack(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	writeFile(t, src, "keep me")

	fs := fsops.NewOS()
	s := staging.New(fs)
	e := &entity.Entity{Path: src, NewPath: dest}
	require.NoError(t, s.Stage(ctx, e, fsops.NewDirect(fs)))

	_, err := s.Restore(ctx, e, moveFailsInto{Mover: fsops.NewDirect(fs), target: dest})
	require.Error(t, err)
	assert.Equal(t, entity.StateFailed, e.State)

	assert.Empty(t, s.Cleanup(ctx))
	assert.Equal(t, "keep me", readFile(t, src))
}

func TestCleanupKeepsExistingHoldingDir(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	holding := filepath.Join(dir, staging.HoldingDirName)
	require.NoError(t, os.Mkdir(holding, 0o755))
	writeFile(t, filepath.Join(holding, "keep"), "mine")
	// a leftover with the name staging would pick first
	writeFile(t, filepath.Join(holding, "b"), "old")

	a := filepath.Join(dir, "a")
	writeFile(t, a, "A")

	fs := fsops.NewOS()
	mover := fsops.NewDirect(fs)
	s := staging.New(fs)
	e := &entity.Entity{Path: a, NewPath: filepath.Join(dir, "b")}

	require.NoError(t, s.Stage(ctx, e, mover))
	assert.NotEqual(t, filepath.Join(holding, "b"), e.StagedPath)
	_, err := s.Restore(ctx, e, mover)
	require.NoError(t, err)
	assert.Empty(t, s.Cleanup(ctx))

	assert.Equal(t, "A", readFile(t, filepath.Join(dir, "b")))
	assert.Equal(t, "mine", readFile(t, filepath.Join(holding, "keep")))
	assert.Equal(t, "old", readFile(t, filepath.Join(holding, "b")))
}
