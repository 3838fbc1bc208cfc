package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"bare tokens", "echo hello world", []string{"echo", "hello", "world"}},
		{"double quoted", `echo "hello world"`, []string{"echo", "hello world"}},
		{"single quoted", `echo 'hello world'`, []string{"echo", "hello world"}},
		{"mixed", `cmd arg1 "arg two" 'arg three'`, []string{"cmd", "arg1", "arg two", "arg three"}},
		{"extra whitespace", "  echo   hi  ", []string{"echo", "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenize_RejectsUnterminatedQuote(t *testing.T) {
	_, err := tokenize(`echo "unterminated`)
	assert.Error(t, err)
}

func TestCommandRunnerTool_RunsEcho(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{AllowedCommands: []string{"echo"}})
	result := tool.Run(workflow.ExecutionInput{Content: "echo hello"})
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "hello")
}

// Whitelist rejection fires before the blocklist.
func TestCommandRunnerTool_WhitelistRejectsNonWhitelistedDangerousCommand(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{AllowedCommands: []string{"echo", "pwd"}})
	result := tool.Run(workflow.ExecutionInput{Content: "rm -rf /"})
	assert.False(t, result.Success)
	assert.Equal(t, "Dangerous command blocked: rm", result.Output)
}

func TestCommandRunnerTool_BuiltinBlocklistEnforcedWithNoWhitelist(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{})
	result := tool.Run(workflow.ExecutionInput{Content: "sudo echo hi"})
	assert.False(t, result.Success)
	assert.Equal(t, "Dangerous command blocked: sudo", result.Output)
}

func TestCommandRunnerTool_RejectsExecutableNotInWhitelist(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{AllowedCommands: []string{"echo"}})
	result := tool.Run(workflow.ExecutionInput{Content: "pwd"})
	assert.False(t, result.Success)
}

func TestCommandRunnerTool_RejectsDotDotInExecutable(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{})
	result := tool.Run(workflow.ExecutionInput{Content: "../bin/evil"})
	assert.False(t, result.Success)
}

func TestCommandRunnerTool_RejectsBlankCommand(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{})
	result := tool.Run(workflow.ExecutionInput{Content: "   "})
	assert.False(t, result.Success)
}

func TestCommandRunnerTool_RejectsOversizedCommand(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{})
	huge := make([]byte, 9000)
	for i := range huge {
		huge[i] = 'a'
	}
	result := tool.Run(workflow.ExecutionInput{Content: string(huge)})
	assert.False(t, result.Success)
}

func TestCommandRunnerTool_NonZeroExitIsUnsuccessful(t *testing.T) {
	tool := NewCommandRunnerTool(CommandRunnerConfig{AllowedCommands: []string{"false"}})
	result := tool.Run(workflow.ExecutionInput{Content: "false"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Output, "ExitCode=1")
}
