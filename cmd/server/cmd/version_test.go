package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func setBuildInfo(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = v, c, d })
	Version, GitCommit, BuildDate = version, commit, date
}

func runVersion(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"version"}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("version %v: %v", args, err)
	}
	return buf.String()
}

func TestVersionCommandText(t *testing.T) {
	setBuildInfo(t, "2.4.0", "9f1c2ab", "2026-03-14T09:30:00Z")

	out := runVersion(t)
	for _, want := range []string{
		"iFeis Server",
		"Version:    2.4.0",
		"Git commit: 9f1c2ab",
		"Build date: 2026-03-14T09:30:00Z",
		"Go version: go",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommandJSON(t *testing.T) {
	setBuildInfo(t, "dev", "unknown", "unknown")

	var info versionInfo
	if err := json.Unmarshal([]byte(runVersion(t, "--json")), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "dev" || info.GitCommit != "unknown" || info.BuildDate != "unknown" {
		t.Errorf("unexpected build info: %+v", info)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("platform = %q", info.Platform)
	}
}

// version must not need DATABASE_URL or any other server configuration.
func TestVersionCommandNeedsNoConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	if out := runVersion(t); out == "" {
		t.Error("no output")
	}
}
