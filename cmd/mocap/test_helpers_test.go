package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mocap/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	unsetEnv(t, "MOCAP_OUTPUT_DIR")
	unsetEnv(t, "MOCAP_LOG_LEVEL")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "mocap.toml"),
		outputDir:  filepath.Join(base, "clips"),
	}
	content := fmt.Sprintf(`[paths]
output_dir = %q
catalog_path = %q
log_dir = %q

[logging]
level = "error"

[bvh]
precision = -1
`, env.outputDir, filepath.Join(base, "state", "catalog.db"), filepath.Join(base, "logs"))
	testsupport.WriteFile(t, env.configPath, content)
	return env
}

// unsetEnv removes key for the duration of the test and restores it after.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) writeCapture(t *testing.T, name string, frames int) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(env.baseDir, "captures", name), testsupport.SampleBVH(frames))
}

func (env *cliTestEnv) writeCuts(t *testing.T, rows ...string) string {
	t.Helper()
	content := "file,subject,style,start_frame,end_frame\n" + strings.Join(rows, "\n") + "\n"
	return testsupport.WriteFile(t, filepath.Join(env.baseDir, "cuts.csv"), content)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
