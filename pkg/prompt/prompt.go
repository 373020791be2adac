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

// Package prompt asks the user yes/no questions on a terminal.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🙋 Line asks questions on Out and reads single-line answers from In
type Line struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// 🏭 NewLine creates a prompt over the given streams
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{In: in, Out: out}
}

// Ask prints question and reports whether the answer is exactly y or Y.
// End of input counts as no.
func (l *Line) Ask(ctx context.Context, question string) (bool, error) {
	if l.reader == nil {
		l.reader = bufio.NewReader(l.In)
	}
	if _, err := fmt.Fprint(l.Out, question); err != nil {
		return false, errors.Errorf("writing prompt: %w", err)
	}

	answer, err := l.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Errorf("reading answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	zerolog.Ctx(ctx).Debug().Str("answer", answer).Msg("prompt answered")
	return answer == "y" || answer == "Y", nil
}

// ConfirmWorkdir asks whether an actions file recorded in another directory
// should be applied from the current one.
func (l *Line) ConfirmWorkdir(ctx context.Context, recorded, current string) (bool, error) {
	question := fmt.Sprintf("The actions file was written in %s\nbut the current directory is %s\nProceed anyway? [y/N] ", recorded, current)
	return l.Ask(ctx, question)
}
