package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_ValidDefinition(t *testing.T) {
	path := writeDefinition(t, validDefinition)

	out, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidate_ValidDefinitionJSON(t *testing.T) {
	path := writeDefinition(t, validDefinition)

	out, err := executeCommand(t, "validate", "--format", "json", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cindy", data["name"])
	assert.Equal(t, float64(4), data["node_count"])
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeDefinition(t, `
nodes: [{id: "a", fragments: [{type: "rounds", total: 0}]}]
roots: ["a"]
`)

	out, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeSchemaFailed)
}

func TestValidate_MissingFile(t *testing.T) {
	out, err := executeCommand(t, "validate", "/nonexistent/program.cue")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestValidate_ErrorJSON(t *testing.T) {
	out, err := executeCommand(t, "validate", "--format", "json", "/nonexistent/program.cue")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestRoot_RejectsInvalidFormat(t *testing.T) {
	path := writeDefinition(t, validDefinition)

	_, err := executeCommand(t, "validate", "--format", "xml", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_HasExpectedCommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"validate", "run", "trace"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}

// cobra requires SilenceUsage on commands that manage their own errors.
func TestCommands_SilenceUsage(t *testing.T) {
	cmd := NewRootCommand()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		assert.True(t, sub.SilenceUsage, "%s should silence usage", sub.Name())
	}
}
