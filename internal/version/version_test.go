package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildInfoString(t *testing.T) {
	tests := []struct {
		info BuildInfo
		want string
	}{
		{
			BuildInfo{Version: "dev", GitCommit: "unknown", BuildTime: "unknown", GoVersion: "go1.23.4", Platform: "linux/amd64"},
			"nescore dev with go1.23.4 for linux/amd64",
		},
		{
			BuildInfo{Version: "v1.2.0", GitCommit: "0123456789abcdef", BuildTime: "2024-05-01T10:00:00Z",
				GoVersion: "go1.23.4", Platform: "darwin/arm64", Modified: true},
			"nescore v1.2.0 (commit 0123456, modified) built 2024-05-01 10:00:00 with go1.23.4 for darwin/arm64",
		},
		{
			BuildInfo{Version: "v1", GitCommit: "abc", BuildTime: "yesterday", GoVersion: "go1.23.4", Platform: "linux/386"},
			"nescore v1 (commit abc) built yesterday with go1.23.4 for linux/386",
		},
	}
	for _, test := range tests {
		if got := test.info.String(); got != test.want {
			t.Errorf("String() = %q, want %q", got, test.want)
		}
	}
}

func TestGetVersion(t *testing.T) {
	saved := Version
	defer func() { Version = saved }()

	Version = "v0.3.1"
	if got := GetVersion(); got != "v0.3.1" {
		t.Errorf("GetVersion() = %q", got)
	}
	Version = "dev"
	if got := GetVersion(); !strings.HasPrefix(got, "dev") {
		t.Errorf("GetVersion() = %q", got)
	}
}

func TestPrintBuildInfo(t *testing.T) {
	var buf bytes.Buffer
	PrintBuildInfo(&buf)
	out := buf.String()
	for _, want := range []string{"nescore - 6502", "Version:", "Opcodes:     151"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}
