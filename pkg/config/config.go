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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// AppName is the directory below the XDG config dirs.
const AppName = "edir"

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser

	// candidates are searched in order
	candidates = []string{"config.yaml", "config.yml", "config.hcl", "config.json"}
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config holds default values for command line options
type Config struct {
	All          bool     `json:"all,omitempty" yaml:"all,omitempty" hcl:"all,optional"`
	Recurse      bool     `json:"recurse,omitempty" yaml:"recurse,omitempty" hcl:"recurse,optional"`
	Quiet        bool     `json:"quiet,omitempty" yaml:"quiet,omitempty" hcl:"quiet,optional"`
	NoGit        bool     `json:"no_git,omitempty" yaml:"no_git,omitempty" hcl:"no_git,optional"`
	Trash        bool     `json:"trash,omitempty" yaml:"trash,omitempty" hcl:"trash,optional"`
	TrashProgram string   `json:"trash_program,omitempty" yaml:"trash_program,omitempty" hcl:"trash_program,optional"`
	NoColor      bool     `json:"no_color,omitempty" yaml:"no_color,omitempty" hcl:"no_color,optional"`
	Dirnames     bool     `json:"dirnames,omitempty" yaml:"dirnames,omitempty" hcl:"dirnames,optional"`
	Files        bool     `json:"files,omitempty" yaml:"files,omitempty" hcl:"files,optional"`
	Dirs         bool     `json:"dirs,omitempty" yaml:"dirs,omitempty" hcl:"dirs,optional"`
	NoLinks      bool     `json:"nolinks,omitempty" yaml:"nolinks,omitempty" hcl:"nolinks,optional"`
	Sort         string   `json:"sort,omitempty" yaml:"sort,omitempty" hcl:"sort,optional"` // name, time or size
	SortReverse  bool     `json:"sort_reverse,omitempty" yaml:"sort_reverse,omitempty" hcl:"sort_reverse,optional"`
	GroupDirs    string   `json:"group_dirs,omitempty" yaml:"group_dirs,omitempty" hcl:"group_dirs,optional"` // first or last
	Suffix       string   `json:"suffix,omitempty" yaml:"suffix,omitempty" hcl:"suffix,optional"`
	Ignore       []string `json:"ignore,omitempty" yaml:"ignore,omitempty" hcl:"ignore,optional"` // doublestar patterns

	location string
}

// 🎯 Locate returns the first config file found in the XDG config
// directories, or "" when there is none.
func Locate(ctx context.Context) string {
	for _, name := range candidates {
		path, err := xdg.SearchConfigFile(filepath.Join(AppName, name))
		if err == nil {
			zerolog.Ctx(ctx).Debug().Str("path", path).Msg("found configuration")
			return path
		}
	}
	return ""
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config %s: %w", path, err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// 🔄 LoadDefault loads the located config file. A missing file yields an
// empty, valid config.
func LoadDefault(ctx context.Context) (*Config, error) {
	path := Locate(ctx)
	if path == "" {
		cfg := &Config{}
		return cfg, cfg.Validate()
	}
	return Load(ctx, path)
}

// 🔍 Validate checks if the configuration is valid and fills defaults
func (cfg *Config) Validate() error {
	switch cfg.Sort {
	case "", "name", "time", "size":
	default:
		return errors.Errorf("sort must be one of name, time or size, got %q", cfg.Sort)
	}

	switch cfg.GroupDirs {
	case "", "first", "last":
	default:
		return errors.Errorf("group_dirs must be first or last, got %q", cfg.GroupDirs)
	}

	if cfg.Files && cfg.Dirs {
		return errors.Errorf("files and dirs can not both be set")
	}

	if cfg.Suffix == "" {
		cfg.Suffix = ".sh"
	}

	cfg.TrashProgram = strings.TrimSpace(cfg.TrashProgram)

	return nil
}

// Location returns the file the config was loaded from.
func (cfg *Config) Location() string {
	return cfg.location
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	loc := cfg.location
	if loc == "" {
		loc = "defaults"
	}
	return fmt.Sprintf("%s: sort=%q group_dirs=%q suffix=%q ignore=%v", loc, cfg.Sort, cfg.GroupDirs, cfg.Suffix, cfg.Ignore)
}
