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

package trash_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/edir/pkg/trash"
)

func TestTrashDelete(t *testing.T) {
	var gotName string
	var gotArgs []string
	tr := trash.New("", func(ctx context.Context, name string, args ...string) (string, string, error) {
		gotName, gotArgs = name, args
		return "", "", nil
	})

	require.NoError(t, tr.Delete(context.Background(), "some file", false))
	assert.Equal(t, trash.DefaultProgram, gotName)
	assert.Equal(t, []string{"some file"}, gotArgs)
}

func TestTrashError(t *testing.T) {
	tr := trash.New("/usr/bin/gio-trash", func(ctx context.Context, name string, args ...string) (string, string, error) {
		return "", "cannot trash", nil
	})
	err := tr.Delete(context.Background(), "f", false)
	require.Error(t, err)
	assert.Equal(t, "/usr/bin/gio-trash error: cannot trash", err.Error())
}

func TestTrashProgramWithArguments(t *testing.T) {
	var gotName string
	var gotArgs []string
	tr := trash.New("gio trash", func(ctx context.Context, name string, args ...string) (string, string, error) {
		gotName, gotArgs = name, args
		return "", "", nil
	})

	require.NoError(t, tr.Delete(context.Background(), "f", true))
	assert.Equal(t, "gio", gotName)
	assert.Equal(t, []string{"trash", "f"}, gotArgs)
}
