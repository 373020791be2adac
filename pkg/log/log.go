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

package log

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/actions"
	"github.com/walteh/edir/pkg/operation"
)

// 🎨 verb styles for applied operations
var verbs = map[actions.Kind]struct {
	name string
	attr color.Attribute
	hi   color.Attribute
}{
	actions.KindDelete: {name: "Deleted", attr: color.FgMagenta, hi: color.FgHiMagenta},
	actions.KindRename: {name: "Renamed", attr: color.FgYellow, hi: color.FgHiYellow},
	actions.KindCopy:   {name: "Copied ", attr: color.FgCyan, hi: color.FgHiCyan},
}

// 🎯 Reporter prints what a run did for the user
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	quiet  bool
	mu     sync.Mutex
}

// 🏭 New creates a reporter. Quiet suppresses the list of applied operations,
// errors are always printed.
func New(out, errOut io.Writer, quiet bool) *Reporter {
	return &Reporter{
		out:    out,
		errOut: errOut,
		quiet:  quiet,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the reporter from context
func FromContext(ctx context.Context) *Reporter {
	r, ok := ctx.Value(contextKey{}).(*Reporter)
	if !ok {
		panic("reporter not found in context")
	}
	return r
}

// 🎯 NewContext adds the reporter to context
func NewContext(ctx context.Context, r *Reporter) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// 📝 Report prints the failures of a run followed by what was applied
func (r *Reporter) Report(ctx context.Context, res *operation.Result) {
	for _, f := range res.Failed {
		r.Error(f.Err.Error())
	}
	for _, kept := range res.Kept {
		r.Errorf("Holding directory %s was kept, it still contains objects that could not be moved", kept)
	}
	r.Applied(ctx, res.Applied)
}

// 📝 Applied prints one aligned line per applied operation
func (r *Reporter) Applied(ctx context.Context, outcomes []operation.Outcome) {
	logger := zerolog.Ctx(ctx)
	for _, o := range outcomes {
		logger.Debug().Str("action", o.Action.String()).Str("note", o.Note).Msg("applied")
	}
	if r.quiet {
		return
	}

	width := 0
	for _, o := range outcomes {
		if n := utf8.RuneCountInString(source(o)); n > width {
			width = n
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range outcomes {
		fmt.Fprintln(r.out, formatOutcome(o, width))
	}
}

func formatOutcome(o operation.Outcome, width int) string {
	v := verbs[o.Action.Kind]
	src := `"` + source(o) + `"`
	if o.Action.Kind == actions.KindDelete {
		return color.New(v.attr).Sprint(v.name) + "  " + color.New(v.hi, color.Bold).Sprint(src)
	}
	src = fmt.Sprintf("%-*s", width+2, src)
	return color.New(v.attr).Sprint(v.name) + "  " + color.New(v.hi, color.Bold).Sprint(src) +
		"  →  " + `"` + color.New(color.Bold).Sprint(target(o)) + `"`
}

func source(o operation.Outcome) string {
	s := withSlash(o.Action.Source, o.IsDir)
	if o.Action.Kind == actions.KindDelete {
		s += o.Note
	}
	return s
}

func target(o operation.Outcome) string {
	t := withSlash(o.Action.Dest, o.IsDir)
	if o.Action.Kind == actions.KindCopy {
		t += o.Note
	}
	return t
}

func withSlash(p string, isDir bool) string {
	if isDir && !strings.HasSuffix(p, string(filepath.Separator)) {
		return p + string(filepath.Separator)
	}
	return p
}

// 📝 Recovery tells the user where the failed actions were written
func (r *Reporter) Recovery(ctx context.Context, path string) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("recovery file written")
	r.mu.Lock()
	defer r.mu.Unlock()
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintln(r.errOut)
	pterm.Error.WithWriter(r.errOut).Println(
		"Some or all files could not be processed. An actions-file was written for them to\n" +
			"  " + bold(path) + "\n" +
			"You can try to reapply those actions with\n" +
			"  " + bold("edir -i "+path))
}

// 📝 Error prints a message in bright red on the error stream
func (r *Reporter) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.errOut, color.New(color.FgHiRed).Sprint(msg))
}

// 📝 Errorf prints a formatted error message
func (r *Reporter) Errorf(format string, args ...interface{}) {
	r.Error(fmt.Sprintf(format, args...))
}

// 📝 Warning prints a warning on the error stream
func (r *Reporter) Warning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.errOut, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
}

// 📝 Info prints a plain message on the output stream
func (r *Reporter) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, msg)
}
