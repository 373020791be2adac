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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/edir/pkg/actions"
	"github.com/walteh/edir/pkg/entity"
	"github.com/walteh/edir/pkg/fsops"
	"gitlab.com/tozd/go/errors"
)

// 🌿 VCS moves and deletes tracked paths
type VCS interface {
	fsops.Mover
	fsops.Deleter
}

// 🔧 Options configures an Engine
type Options struct {
	// FS is required.
	FS fsops.FS
	// Git handles entities flagged as tracked. Nil disables it.
	Git VCS
	// Trash replaces permanent deletion when set.
	Trash fsops.Deleter
	// Recurse allows deleting non-empty directories.
	Recurse bool
}

// 🏭 New creates an engine with the given options
func New(opts Options) (*Engine, error) {
	if opts.FS == nil {
		return nil, errors.Errorf("filesystem is required")
	}
	return &Engine{
		fs:      opts.FS,
		direct:  fsops.NewDirect(opts.FS),
		git:     opts.Git,
		trash:   opts.Trash,
		recurse: opts.Recurse,
	}, nil
}

// ⚙️ Engine applies a batch of entities to the filesystem
type Engine struct {
	fs      fsops.FS
	direct  *fsops.Direct
	git     VCS
	trash   fsops.Deleter
	recurse bool
}

func (e *Engine) mover(p *entity.Entity) fsops.Mover {
	if p.IsTracked && e.git != nil {
		return e.git
	}
	return e.direct
}

func (e *Engine) deleter(p *entity.Entity) fsops.Deleter {
	switch {
	case p.IsTracked && e.git != nil:
		return e.git
	case e.trash != nil:
		return e.trash
	default:
		return e.direct
	}
}

func (e *Engine) remove(ctx context.Context, p *entity.Entity, recurse bool) error {
	if err := fsops.CheckRemovable(e.fs, p.Path, p.IsDir, recurse); err != nil {
		return err
	}
	return e.deleter(p).Delete(ctx, p.Path, recurse)
}

// 📊 Outcome is one applied operation
type Outcome struct {
	Action actions.Action
	IsDir  bool
	// Note qualifies the operation, e.g. " recursively".
	Note string
}

// 📋 Result collects what a run applied and what failed, in commit order
type Result struct {
	Applied []Outcome
	Failed  []actions.Failure
	// Kept lists holding directories left behind because an object in them
	// could not be placed anywhere.
	Kept []string
}

const (
	ExitOK                 = 0
	ExitPartial            = 1
	ExitFailed             = 2
	ExitActionsFileMissing = 3
)

// ExitCode distinguishes full success, partial success and total failure.
func (r *Result) ExitCode() int {
	switch {
	case len(r.Failed) == 0:
		return ExitOK
	case len(r.Applied) > 0:
		return ExitPartial
	default:
		return ExitFailed
	}
}

func (r *Result) applied(ctx context.Context, o Outcome) {
	zerolog.Ctx(ctx).Debug().Str("action", o.Action.String()).Msg("applied")
	r.Applied = append(r.Applied, o)
}

func (r *Result) failed(ctx context.Context, act actions.Action, format string, args ...interface{}) {
	err := errors.Errorf(format, args...)
	zerolog.Ctx(ctx).Debug().Str("action", act.String()).Err(err).Msg("failed")
	r.Failed = append(r.Failed, actions.Failure{Action: act, Err: err})
}
