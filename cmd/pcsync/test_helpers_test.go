package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cacheDir   string
	outputDir  string
	stateDir   string
	logDir     string
}

func setupCLITestEnv(t *testing.T, apiBase string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("PC_USERNAME", "")
	t.Setenv("PC_PASSWORD", "")
	if apiBase == "" {
		apiBase = "http://127.0.0.1:1"
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		cacheDir:   filepath.Join(base, "cache"),
		outputDir:  filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
		logDir:     filepath.Join(base, "logs"),
	}
	content := fmt.Sprintf(`[paths]
cache_dir = %q
output_dir = %q
state_dir = %q
log_dir = %q

[account]
username = "me@example.com"
password = "secret"

[api]
login_url = %q
new_releases_url = %q
podcast_base_url = %q

[logging]
level = "error"
`, env.cacheDir, env.outputDir, env.stateDir, env.logDir,
		apiBase+"/user/login", apiBase+"/user/new_releases", apiBase)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
