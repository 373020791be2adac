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
	"github.com/walteh/edir/pkg/staging"
)

const recursively = " recursively"

// 🏃 Run applies every entity in four passes and reports the outcome. It never
// stops early: failures are recorded and the remaining work continues.
//
//  1. stage renamed entities, delete files
//  2. delete directories that can go now
//  3. restore staged entities to their final names, make copies
//  4. remove holding directories, delete the remaining directories
func (e *Engine) Run(ctx context.Context, batch []*entity.Entity) *Result {
	logger := zerolog.Ctx(ctx)
	res := &Result{}
	stager := staging.New(e.fs)

	notes := make(map[*entity.Entity]string, len(batch))
	for _, p := range batch {
		if p.IsDir {
			if empty, err := e.fs.IsEmptyDir(p.Path); err == nil && !empty {
				notes[p] = recursively
			}
		}
	}

	logger.Debug().Int("entities", len(batch)).Msg("pass 1: stage and delete files")
	for _, p := range batch {
		switch {
		case p.WantsRename():
			if err := stager.Stage(ctx, p, e.mover(p)); err != nil {
				p.State = entity.StateFailed
				res.failed(ctx, actions.Rename(p.Path, p.NewPath), "Rename \"%s\" ERROR: %s", p.Display(), err)
			}
		case p.WantsDelete() && !p.IsDir:
			if err := e.remove(ctx, p, false); err != nil {
				p.State = entity.StateFailed
				res.failed(ctx, actions.Delete(p.Path), "Delete \"%s\" ERROR: %s", p.Display(), err)
				continue
			}
			p.State = entity.StateDeleted
			res.applied(ctx, Outcome{Action: actions.Delete(p.Path)})
		}
	}

	logger.Debug().Msg("pass 2: delete directories")
	for _, p := range batch {
		if !p.IsDir || !p.WantsDelete() {
			continue
		}
		// failures here are retried in pass 4
		if err := e.remove(ctx, p, e.recurse); err != nil {
			logger.Debug().Err(err).Str("path", p.Path).Msg("deferring directory delete")
			continue
		}
		p.State = entity.StateDeleted
		res.applied(ctx, Outcome{Action: actions.Delete(p.Path), IsDir: true, Note: notes[p]})
	}

	logger.Debug().Msg("pass 3: restore and copy")
	for _, p := range batch {
		if p.State == entity.StateStaged {
			orig := p.NewPath
			dest, err := stager.Restore(ctx, p, e.mover(p))
			if err != nil {
				res.failed(ctx, actions.Rename(p.Path, orig), "Rename \"%s\" ERROR: %s", p.Display(), err)
			} else {
				res.applied(ctx, Outcome{Action: actions.Rename(p.Path, dest), IsDir: p.IsDir})
			}
		}

		for _, c := range p.Copies {
			e.copy(ctx, res, p, c, notes[p])
		}
	}

	res.Kept = stager.Cleanup(ctx)

	logger.Debug().Msg("pass 4: delete remaining directories")
	for _, p := range batch {
		if !p.IsDir || !p.WantsDelete() || p.State == entity.StateDeleted {
			continue
		}
		if err := e.remove(ctx, p, e.recurse); err != nil {
			p.State = entity.StateFailed
			res.failed(ctx, actions.Delete(p.Path), "Delete \"%s\" ERROR: %s", p.Display(), err)
			continue
		}
		p.State = entity.StateDeleted
		res.applied(ctx, Outcome{Action: actions.Delete(p.Path), IsDir: true, Note: notes[p]})
	}

	return res
}

func (e *Engine) copy(ctx context.Context, res *Result, p *entity.Entity, dest, note string) {
	src := p.CopySource()
	act := actions.Copy(src, dest)
	shown := p.DisplayTarget(dest)

	if p.WantsRename() && p.State != entity.StateRestored {
		res.failed(ctx, act, "Copy   \"%s\" to \"%s\"%s ERROR: %s was not renamed", p.Display(), shown, note, p.Display())
		return
	}
	if err := e.fs.Copy(src, dest); err != nil {
		res.failed(ctx, act, "Copy   \"%s\" to \"%s\"%s ERROR: %s", p.Display(), shown, note, err)
		return
	}
	res.applied(ctx, Outcome{Action: act, IsDir: p.IsDir, Note: note})
}
