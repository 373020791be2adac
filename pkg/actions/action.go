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

// Package actions reads and writes actions files: the line oriented,
// replayable record of delete, rename and copy operations.
//
//	# workdir: /home/me/photos
//	d ./old.jpg
//	r ./IMG_0001.jpg → ./beach.jpg
//	c ./beach.jpg → ./backup/beach.jpg
package actions

import "strings"

// Arrow separates source and destination. It cannot appear in paths.
const Arrow = "→"

// Separator is the arrow with exactly one space on each side.
const Separator = " " + Arrow + " "

// 🏷️ Kind is the closed set of operations
type Kind int

const (
	KindDelete Kind = iota
	KindRename
	KindCopy
	// KindUnparsable carries a line that could not be read, verbatim.
	KindUnparsable
)

// Letter returns the one letter tag used in actions files.
func (k Kind) Letter() string {
	switch k {
	case KindDelete:
		return "d"
	case KindRename:
		return "r"
	case KindCopy:
		return "c"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindDelete:
		return "delete"
	case KindRename:
		return "rename"
	case KindCopy:
		return "copy"
	case KindUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// 📄 Action is one operation record
type Action struct {
	Kind   Kind
	Source string
	Dest   string
	// Raw is the original text of an unparsable line.
	Raw string
}

func Delete(src string) Action { return Action{Kind: KindDelete, Source: src} }
func Rename(src, dest string) Action { return Action{Kind: KindRename, Source: src, Dest: dest} }
func Copy(src, dest string) Action { return Action{Kind: KindCopy, Source: src, Dest: dest} }
func Unparsable(raw string) Action { return Action{Kind: KindUnparsable, Raw: raw} }

// String renders the action as an actions file line. Paths are written
// literally, arrows included.
func (a Action) String() string {
	switch a.Kind {
	case KindUnparsable:
		return a.Raw
	case KindDelete:
		return "d " + a.Source
	default:
		return a.Kind.Letter() + " " + a.Source + Separator + a.Dest
	}
}

// Representable reports whether the action survives a write/read round trip.
func (a Action) Representable() bool {
	if a.Kind == KindUnparsable {
		return false
	}
	return !strings.Contains(a.Source, Arrow) && !strings.Contains(a.Dest, Arrow)
}

// ❌ Failure is an action that could not be applied
type Failure struct {
	Action Action
	Err    error
}
