//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	SpaceID     string
	AccessToken string
	Environment string
	ContentType string
	CfdPath     string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		SpaceID:     os.Getenv("CFD_SPACE"),
		AccessToken: os.Getenv("CFD_TOKEN"),
		Environment: os.Getenv("CFD_ENVIRONMENT"),
		ContentType: os.Getenv("CFD_TEST_CONTENT_TYPE"),
		CfdPath:     getCfdPath(),
		Verbose:     os.Getenv("CFD_TEST_VERBOSE") == "true",
	}
}

// getCfdPath determines the path to the cfd binary
func getCfdPath() string {
	if path := os.Getenv("CFD_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../cfd",
		"./cfd",
		"../cfd",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "cfd" // Fallback to PATH
}

// SkipIfMissingBinary skips test if the cfd binary cannot be found
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.CfdPath); err != nil {
		t.Skipf("cfd binary not found at %s, skipping integration test", config.CfdPath)
	}
}

// SkipIfMissingConfig skips test if the space credentials are missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.SpaceID == "" || config.AccessToken == "" {
		t.Skip("CFD_SPACE or CFD_TOKEN not set, skipping integration test")
	}

	config.SkipIfMissingBinary(t)
}

// CommandRunner provides utilities for running cfd commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes a cfd command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a cfd command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.Command(runner.config.CfdPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+runner.t.TempDir())

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.CfdPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// SpaceArgs returns the global flags selecting the test space
func (runner *CommandRunner) SpaceArgs(args ...string) []string {
	global := []string{"--space", runner.config.SpaceID, "--token", runner.config.AccessToken}
	if runner.config.Environment != "" {
		global = append(global, "--environment", runner.config.Environment)
	}

	return append(global, args...)
}

// AssertJSONOutput checks that output is valid JSON and returns it decoded
func AssertJSONOutput(t *testing.T, output string) map[string]interface{} {
	t.Helper()

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &decoded), "output is not valid JSON: %s", output)

	return decoded
}

// AssertYAMLOutput checks that output is valid YAML
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(output), &decoded), "output is not valid YAML: %s", output)
}

// Fixture returns a delivery response with a two-entry cycle and one
// dangling asset link.
func Fixture() string {
	return fmt.Sprintf(`{
  "total": 2,
  "items": [
    {"sys": {"id": "a", "type": "Entry"}, "fields": {"next": %s, "image": %s}},
    {"sys": {"id": "b", "type": "Entry"}, "fields": {"next": %s}}
  ]
}`, link("Entry", "b"), link("Asset", "missing"), link("Entry", "a"))
}

func link(linkType, id string) string {
	return fmt.Sprintf(`{"sys": {"type": "Link", "linkType": %q, "id": %q}}`, linkType, id)
}
