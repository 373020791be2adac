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
	"os"
	"runtime"
	"runtime/debug"

	"github.com/walteh/edir/pkg/config"
	"github.com/walteh/edir/pkg/editor"
)

// VersionInfo represents the version information of the binary and the
// environment it would edit with
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	VCS       string `json:"vcs"`
	Revision  string `json:"revision"`
	Time      string `json:"time"`
	Modified  bool   `json:"modified"`
	Editor    string `json:"editor"`
	Config    string `json:"config"`
}

// GetVersionInfo returns the version information from build info. configFile
// is the --config value, if any.
func GetVersionInfo(ctx context.Context, configFile string) *VersionInfo {
	info := &VersionInfo{
		Version:   "dev",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Editor:    editor.Resolve(os.Getenv),
		Config:    configFile,
	}
	if info.Config == "" {
		info.Config = config.Locate(ctx)
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs":
				info.VCS = setting.Value
			case "vcs.revision":
				info.Revision = setting.Value
			case "vcs.time":
				info.Time = setting.Value
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
	}

	return info
}

// FormatVersion returns a formatted string of version information
func FormatVersion(info *VersionInfo) string {
	revision := info.Revision
	if info.VCS != "" && revision != "" {
		revision = info.VCS + " " + revision
	}
	if info.Modified {
		revision += " (modified)"
	}
	cfg := info.Config
	if cfg == "" {
		cfg = "none, using defaults"
	}
	return fmt.Sprintf(`edir version info:
Version:   %s
Revision:  %s
Built:     %s
Go:        %s
Platform:  %s
Editor:    %s
Config:    %s
`, info.Version, revision, info.Time, info.GoVersion, info.Platform, info.Editor, cfg)
}
