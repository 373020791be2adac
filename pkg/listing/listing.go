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
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/entity"
	"gitlab.com/tozd/go/errors"
)

// 🚫 ParseError reports an edited line that cannot be understood
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %s:\n%s", e.Line, e.Reason, e.Text)
}

// ✍️ Write emits one "<number>\t<path>" line per entity, numbered from 1.
func Write(w io.Writer, batch *entity.Batch) error {
	bw := bufio.NewWriter(w)
	for i, e := range batch.Entities() {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", i+1, e.Line()); err != nil {
			return errors.Errorf("writing listing: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Errorf("writing listing: %w", err)
	}
	return nil
}

// 📖 Read applies an edited listing to the batch it was written from.
//
// The first line carrying a number sets that entity's new path, later lines
// with the same number add copies. Numbers missing from the listing mark
// their entity for deletion. Blank and "#" lines are skipped.
func Read(ctx context.Context, r io.Reader, batch *entity.Batch) error {
	logger := zerolog.Ctx(ctx)
	ents := batch.Entities()
	for _, e := range ents {
		e.MarkDelete()
		e.Copies = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		count++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		line := strings.TrimLeftFunc(raw, unicode.IsSpace)
		if line == "" || line[0] == '#' {
			continue
		}

		cut := strings.IndexFunc(line, unicode.IsSpace)
		if cut < 0 {
			return &ParseError{Line: count, Text: raw, Reason: "invalid"}
		}
		numText := line[:cut]
		pathText := strings.TrimLeftFunc(line[cut:], unicode.IsSpace)
		if pathText == "" {
			return &ParseError{Line: count, Text: raw, Reason: "invalid"}
		}

		num, err := strconv.Atoi(numText)
		if err != nil {
			return &ParseError{Line: count, Text: raw, Reason: "number " + numText + " invalid"}
		}
		if num <= 0 || num > len(ents) {
			return &ParseError{Line: count, Text: raw, Reason: "number " + numText + " out of range"}
		}

		e := ents[num-1]
		target := filepath.Clean(pathText)

		switch {
		case e.NewPath == "":
			e.SetRename(target)
		case target == filepath.Clean(e.Path):
			// restating the original location adds nothing
		case target == e.NewPath || slices.Contains(e.Copies, target):
			return errors.Errorf("line %d: %s listed twice for %s: %w", count, target, e.Display(), ErrDuplicateTarget)
		default:
			e.AddCopy(target)
		}
		logger.Trace().Int("line", count).Int("number", num).Str("path", target).Msg("listing line")
	}
	if err := scanner.Err(); err != nil {
		return errors.Errorf("reading listing: %w", err)
	}
	return nil
}
