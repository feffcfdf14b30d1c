package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly parses args without executing the matched command, so flag
// handling can be asserted without side effects.
func parseOnly(t *testing.T, args ...string) (*GlobalFlags, *commands, error) {
	t.Helper()
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	return globals, cmds, err
}

func TestVersionFlag(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := RunWithArgs("0.1.0-test", []string{"--version"})

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	assert.NoError(t, err)
	assert.Contains(t, output, "snapsort 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	_ = RunWithArgs("1.2.3", []string{"--version"})

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := strings.TrimSpace(buf.String())

	assert.Equal(t, "snapsort 1.2.3", output)
}

func TestScanSubcommandRecognized(t *testing.T) {
	_, c, err := parseOnly(t, "scan", "/photos")
	require.NoError(t, err)
	assert.Equal(t, "/photos", c.Scan.Args.Source)
}

func TestScanRequiresSource(t *testing.T) {
	_, _, err := parseOnly(t, "scan")
	require.Error(t, err)
}

func TestScanFlags(t *testing.T) {
	_, c, err := parseOnly(t, "scan", "--refresh", "--no-geocode", "--workers", "8", "/photos")
	require.NoError(t, err)
	assert.True(t, c.Scan.Refresh)
	assert.True(t, c.Scan.NoGeocode)
	assert.Equal(t, 8, c.Scan.Workers)
}

func TestStatusSubcommandRecognized(t *testing.T) {
	_, _, err := parseOnly(t, "status")
	assert.NoError(t, err)
}

func TestStatusRunsDefault(t *testing.T) {
	_, c, err := parseOnly(t, "status")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Status.Runs)
}

func TestPurgeSubcommandRecognized(t *testing.T) {
	_, c, err := parseOnly(t, "purge", "--all")
	assert.NoError(t, err)
	assert.True(t, c.Purge.All)
}

func TestPurgeRequiresAll(t *testing.T) {
	err := RunWithArgs("test", []string{"purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all flag")
}

func TestPurgeForceFlag(t *testing.T) {
	_, c, err := parseOnly(t, "purge", "--all", "--force")
	require.NoError(t, err)
	assert.True(t, c.Purge.All)
	assert.True(t, c.Purge.Force)
}

func TestGlobalFlagsJSON(t *testing.T) {
	globals, _, err := parseOnly(t, "--json", "status")
	require.NoError(t, err)
	assert.True(t, globals.JSON)
}

func TestGlobalFlagsVerbose(t *testing.T) {
	globals, _, err := parseOnly(t, "--verbose", "status")
	require.NoError(t, err)
	assert.True(t, globals.Verbose)
}

func TestGlobalFlagsConfig(t *testing.T) {
	globals, _, err := parseOnly(t, "--config", "/tmp/test.yaml", "status")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.yaml", globals.Config)
}

func TestUnknownSubcommandFails(t *testing.T) {
	_, _, err := parseOnly(t, "nonexistent")
	require.Error(t, err)
}

func TestAllSubcommandsExist(t *testing.T) {
	expected := []string{"scan", "status", "purge"}
	parser, _, _ := buildParser("test")

	for _, name := range expected {
		cmd := parser.Find(name)
		assert.NotNil(t, cmd, "subcommand %q should exist", name)
	}
}

func TestHelpFlagDoesNotError(t *testing.T) {
	err := RunWithArgs("test", []string{"--help"})
	assert.NoError(t, err)
}
