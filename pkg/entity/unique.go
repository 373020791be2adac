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

package entity

import (
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// MaxUniqueAttempts bounds the search in ResolveUnique.
const MaxUniqueAttempts = 10000

// ErrNoUniqueName is returned when every candidate name is taken.
var ErrNoUniqueName = errors.Base("no unique name available")

// ResolveUnique returns path if nothing occupies it, dangling symlinks
// included. Otherwise it tries name~, name~1, name~2, ... next to it.
func ResolveUnique(probe Probe, path string) (string, error) {
	dir, name := filepath.Split(path)
	candidate := path
	for i := 0; i < MaxUniqueAttempts; i++ {
		_, err := probe.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", errors.Errorf("probing %s: %w", candidate, err)
		}
		if i == 0 {
			candidate = dir + name + "~"
		} else {
			candidate = dir + fmt.Sprintf("%s~%d", name, i)
		}
	}
	return "", errors.Errorf("%s: %w", path, ErrNoUniqueName)
}
