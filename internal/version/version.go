// Package version reports build information for nescore.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"nescore/internal/cpu"
)

// Set at build time via -ldflags "-X nescore/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const unknown = "unknown"

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Opcodes   int    `json:"opcodes"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo merges the linker-provided values with the VCS stamp the Go
// toolchain embeds.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Opcodes:   len(cpu.LegalOpcodes()),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == unknown {
					info.GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == unknown {
					info.BuildTime = setting.Value
				}
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
	}
	return info
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// GetVersion returns the release version, or dev-<commit> for untagged
// builds.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if commit := GetBuildInfo().GitCommit; commit != unknown {
		return "dev-" + shortCommit(commit)
	}
	return Version
}

// String renders the one-line form used by -version.
func (b BuildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "nescore %s", b.Version)
	if b.GitCommit != unknown {
		fmt.Fprintf(&sb, " (commit %s", shortCommit(b.GitCommit))
		if b.Modified {
			sb.WriteString(", modified")
		}
		sb.WriteString(")")
	}
	if b.BuildTime != unknown {
		if t, err := time.Parse(time.RFC3339, b.BuildTime); err == nil {
			fmt.Fprintf(&sb, " built %s", t.UTC().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Fprintf(&sb, " built %s", b.BuildTime)
		}
	}
	fmt.Fprintf(&sb, " with %s for %s", b.GoVersion, b.Platform)
	return sb.String()
}

// PrintBuildInfo writes the full build report.
func PrintBuildInfo(w io.Writer) {
	b := GetBuildInfo()
	fmt.Fprintf(w, "nescore - 6502 decode and timing core\n")
	fmt.Fprintf(w, "Version:     %s\n", b.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", b.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", b.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", b.GoVersion)
	fmt.Fprintf(w, "Platform:    %s\n", b.Platform)
	fmt.Fprintf(w, "Opcodes:     %d\n", b.Opcodes)
}
