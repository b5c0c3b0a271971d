package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlojansen/kvs/internal/cli"
)

// runKvs mirrors calvinalkan/agent-task's config_test.go runTk helper: it
// drives cli.Run with buffers instead of the real process streams and
// returns stdout, stderr, and the exit code.
func runKvs(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	fullArgs := append([]string{"--dir", dir}, args...)
	code := cli.Run(&out, &errOut, fullArgs, nil)
	return out.String(), errOut.String(), code
}

func assertExitCode(t *testing.T, want, got int) {
	t.Helper()
	if want != got {
		t.Fatalf("exit code: want %d, got %d", want, got)
	}
}

func Test_SetThenGet_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	_, stderr, code := runKvs(t, dir, "set", "key1", "value1")
	assertExitCode(t, 0, code)
	assert.Empty(t, stderr)

	stdout, stderr, code := runKvs(t, dir, "get", "key1")
	assertExitCode(t, 0, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "value1", strings.TrimSpace(stdout))
}

func Test_Get_OnMissingKey_PrintsKeyNotFound_ExitsZero(t *testing.T) {
	dir := t.TempDir()

	stdout, _, code := runKvs(t, dir, "get", "nope")
	assertExitCode(t, 0, code)
	assert.Equal(t, "Key not found", strings.TrimSpace(stdout))
}

func Test_Rm_OnMissingKey_PrintsKeyNotFound_ExitsNonZero(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, code := runKvs(t, dir, "rm", "nope")
	assertExitCode(t, 1, code)
	assert.Equal(t, "Key not found", strings.TrimSpace(stdout))
	assert.Empty(t, stderr, "rm on a missing key must not also print a generic error line")
}

func Test_Rm_OnPresentKey_RemovesIt(t *testing.T) {
	dir := t.TempDir()

	_, _, code := runKvs(t, dir, "set", "k", "v")
	assertExitCode(t, 0, code)

	_, stderr, code := runKvs(t, dir, "rm", "k")
	assertExitCode(t, 0, code)
	assert.Empty(t, stderr)

	stdout, _, code := runKvs(t, dir, "get", "k")
	assertExitCode(t, 0, code)
	assert.Equal(t, "Key not found", strings.TrimSpace(stdout))
}

func Test_Stats_PrintsJSONWithKeyCount(t *testing.T) {
	dir := t.TempDir()

	_, _, code := runKvs(t, dir, "set", "a", "1")
	assertExitCode(t, 0, code)
	_, _, code = runKvs(t, dir, "set", "b", "2")
	assertExitCode(t, 0, code)

	stdout, _, code := runKvs(t, dir, "stats")
	assertExitCode(t, 0, code)
	assert.Contains(t, stdout, `"KeyCount": 2`)
}

func Test_ConfigSet_ThenConfigGet_RoundTrips(t *testing.T) {
	dir := t.TempDir()

	_, stderr, code := runKvs(t, dir, "config", "set", "compaction_threshold_bytes", "2048")
	assertExitCode(t, 0, code)
	assert.Empty(t, stderr)

	stdout, _, code := runKvs(t, dir, "config", "get")
	assertExitCode(t, 0, code)
	assert.Contains(t, stdout, `"compaction_threshold_bytes": 2048`)
}

func Test_ConfigSet_UnknownOption_Fails(t *testing.T) {
	dir := t.TempDir()

	_, stderr, code := runKvs(t, dir, "config", "set", "bogus_option", "1")
	assertExitCode(t, 1, code)
	assert.Contains(t, stderr, "unknown config option")
}

func Test_UnknownCommand_PrintsUsageAndFails(t *testing.T) {
	dir := t.TempDir()

	_, stderr, code := runKvs(t, dir, "frobnicate")
	assertExitCode(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}

func Test_NoArgs_PrintsUsage_ExitsZero(t *testing.T) {
	dir := t.TempDir()

	stdout, _, code := runKvs(t, dir)
	require.NotEmpty(t, stdout)
	assertExitCode(t, 0, code)
}

func Test_Version_PrintsVersionAndExits(t *testing.T) {
	dir := t.TempDir()

	stdout, _, code := runKvs(t, dir, "--version")
	assertExitCode(t, 0, code)
	assert.Equal(t, "0.1.0", strings.TrimSpace(stdout))
}
