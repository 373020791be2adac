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

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/edir/pkg/config"
	"github.com/walteh/edir/pkg/editor"
	"github.com/walteh/edir/pkg/listing"
	"github.com/walteh/edir/pkg/operation"
	"github.com/walteh/edir/pkg/trash"
	"gitlab.com/tozd/go/errors"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// 🚪 exitError carries a specific process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// 🔧 rootOpts holds every command line option
type rootOpts struct {
	all          bool
	recurse      bool
	quiet        bool
	noGit        bool
	git          bool
	trash        bool
	trashProgram string
	noColor      bool
	dirnames     bool
	files        bool
	dirs         bool
	nolinks      bool
	sortName     bool
	sortTime     bool
	sortSize     bool
	sortReverse  bool
	groupFirst   bool
	groupLast    bool
	noGroup      bool
	ignore       []string
	inputFrom    string
	suffix       string
	configFile   string
	debug        bool
	version      bool
}

func addRootFlags(cmd *cobra.Command, o *rootOpts) {
	f := cmd.Flags()
	f.BoolVarP(&o.all, "all", "a", false, "include all (including hidden) files")
	f.BoolVarP(&o.recurse, "recurse", "r", false, "recursively remove any files and directories in removed directories")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "do not print successful rename/remove/copy actions")
	f.BoolVarP(&o.noGit, "no-git", "G", false, "do not use git if invoked within a git repository")
	f.BoolVarP(&o.git, "git", "g", false, "negate the --no-git option and DO use automatic git")
	f.BoolVarP(&o.trash, "trash", "t", false, "use trash program to do deletions")
	f.StringVar(&o.trashProgram, "trash-program", trash.DefaultProgram, "trash program to use")
	f.BoolVarP(&o.noColor, "no-color", "c", false, "do not color rename/remove/copy messages")
	f.BoolVarP(&o.dirnames, "dirnames", "d", false, "edit given directory names directly, not their contents")
	f.BoolVarP(&o.files, "files", "F", false, "only show/edit files")
	f.BoolVarP(&o.dirs, "dirs", "D", false, "only show/edit directories")
	f.BoolVarP(&o.nolinks, "nolinks", "L", false, "ignore all symlinks")
	f.BoolVarP(&o.sortName, "sort-name", "N", false, "sort paths in file by name, alphabetically")
	f.BoolVarP(&o.sortTime, "sort-time", "I", false, "sort paths in file by time, oldest first")
	f.BoolVarP(&o.sortSize, "sort-size", "S", false, "sort paths in file by size, smallest first")
	f.BoolVarP(&o.sortReverse, "sort-reverse", "E", false, "sort paths (by name/time/size) in reverse")
	f.BoolVarP(&o.groupFirst, "group-dirs-first", "X", false, "group directories first (including when sorted)")
	f.BoolVarP(&o.groupLast, "group-dirs-last", "Y", false, "group directories last (including when sorted)")
	f.BoolVarP(&o.noGroup, "no-group-dirs", "Z", false, "negate the options to group directories")
	f.StringArrayVar(&o.ignore, "ignore", nil, "skip paths matching this doublestar pattern (repeatable)")
	f.StringVarP(&o.inputFrom, "input-from", "i", "", "run non-interactively, taking the actions from the given actions file")
	f.StringVar(&o.suffix, "suffix", editor.DefaultSuffix, "specify suffix for editor file")
	f.StringVar(&o.configFile, "config", "", "config file path (default: searched in the XDG config directories)")
	f.BoolVar(&o.debug, "debug", false, "enable debug logging")
	f.BoolVarP(&o.version, "version", "V", false, "show version information")

	cmd.MarkFlagsMutuallyExclusive("files", "dirs")
	cmd.MarkFlagsMutuallyExclusive("git", "no-git")
	cmd.MarkFlagsMutuallyExclusive("sort-name", "sort-time", "sort-size")
	cmd.MarkFlagsMutuallyExclusive("group-dirs-first", "group-dirs-last", "no-group-dirs")
}

// 🔄 applyConfig fills every option not given on the command line from cfg
func (o *rootOpts) applyConfig(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *bool, v bool) {
		if !cmd.Flags().Changed(name) {
			*dst = *dst || v
		}
	}
	set("all", &o.all, cfg.All)
	set("recurse", &o.recurse, cfg.Recurse)
	set("quiet", &o.quiet, cfg.Quiet)
	set("trash", &o.trash, cfg.Trash)
	set("no-color", &o.noColor, cfg.NoColor)
	set("dirnames", &o.dirnames, cfg.Dirnames)
	set("nolinks", &o.nolinks, cfg.NoLinks)
	set("sort-reverse", &o.sortReverse, cfg.SortReverse)

	if !cmd.Flags().Changed("git") && !cmd.Flags().Changed("no-git") {
		o.noGit = o.noGit || cfg.NoGit
	}
	if !cmd.Flags().Changed("files") && !cmd.Flags().Changed("dirs") {
		o.files = o.files || cfg.Files
		o.dirs = o.dirs || cfg.Dirs
	}
	if !cmd.Flags().Changed("sort-name") && !cmd.Flags().Changed("sort-time") && !cmd.Flags().Changed("sort-size") {
		o.sortName = cfg.Sort == "name"
		o.sortTime = cfg.Sort == "time"
		o.sortSize = cfg.Sort == "size"
	}
	if !cmd.Flags().Changed("group-dirs-first") && !cmd.Flags().Changed("group-dirs-last") && !cmd.Flags().Changed("no-group-dirs") {
		o.groupFirst = cfg.GroupDirs == "first"
		o.groupLast = cfg.GroupDirs == "last"
	}
	if !cmd.Flags().Changed("trash-program") && cfg.TrashProgram != "" {
		o.trashProgram = cfg.TrashProgram
	}
	o.ignore = append(o.ignore, cfg.Ignore...)
	if !cmd.Flags().Changed("suffix") && cfg.Suffix != "" {
		o.suffix = cfg.Suffix
	}
}

func (o *rootOpts) sortKey() listing.SortKey {
	switch {
	case o.sortName:
		return listing.SortName
	case o.sortTime:
		return listing.SortTime
	case o.sortSize:
		return listing.SortSize
	default:
		return listing.SortNone
	}
}

func (o *rootOpts) grouping() listing.Grouping {
	switch {
	case o.noGroup:
		return listing.GroupNone
	case o.groupFirst:
		return listing.GroupDirsFirst
	case o.groupLast:
		return listing.GroupDirsLast
	default:
		return listing.GroupNone
	}
}

func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()
}

func setupColor(noColor bool, out io.Writer) {
	f, isFile := out.(*os.File)
	if noColor || !isFile || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		color.NoColor = true
		pterm.DisableColor()
	}
}

func newRootCmd(s streams) *cobra.Command {
	o := &rootOpts{}
	cmd := &cobra.Command{
		Use:   "edir [file|dir|-]...",
		Short: "Rename, delete and copy files and directories using your editor",
		Long: `edir lists the given files and directories (or the contents of the given
directories) in your editor. Change a name to rename, delete a line to remove,
duplicate a line to copy. Failed actions are written to an actions file that
can be reapplied with "edir -i <file>".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				fmt.Fprint(s.out, FormatVersion(GetVersionInfo(cmd.Context(), o.configFile)))
				return nil
			}

			setupColor(o.noColor, s.out)
			logger := setupLogging(s.err, o.debug)
			ctx := logger.WithContext(cmd.Context())

			cfg, err := loadConfig(ctx, o.configFile)
			if err != nil {
				return err
			}
			logger.Debug().Str("location", cfg.Location()).Stringer("config", cfg).Msg("configuration loaded")
			o.applyConfig(cmd, cfg)
			setupColor(o.noColor, s.out)

			return run(ctx, o, args, s)
		},
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	addRootFlags(cmd, o)
	return cmd
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path != "" {
		return config.Load(ctx, path)
	}
	return config.LoadDefault(ctx)
}

// 🏁 execute runs the command line and maps the outcome to an exit code
func execute(ctx context.Context, args []string, s streams) int {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return operation.ExitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(s.err, color.New(color.FgHiRed).Sprint("ERROR: "+exit.err.Error()))
		}
		return exit.code
	}

	fmt.Fprintln(s.err, color.New(color.FgHiRed).Sprint("ERROR: "+err.Error()))
	return operation.ExitPartial
}
