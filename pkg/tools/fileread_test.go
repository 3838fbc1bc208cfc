package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

func newTestFileReadTool(t *testing.T) (*FileReadTool, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subdir", "nested.txt"), []byte("nested content"), 0o644))

	tool, err := NewFileReadTool(FileReadConfig{BaseDir: dir})
	require.NoError(t, err)
	return tool, dir
}

func TestFileReadTool_ReadsFileWithinBase(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "hello.txt"})
	require.True(t, result.Success)
	assert.Equal(t, "hello world", result.Output)
}

func TestFileReadTool_ReadsNestedFile(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "subdir/nested.txt"})
	require.True(t, result.Success)
	assert.Equal(t, "nested content", result.Output)
}

// Path traversal denied.
func TestFileReadTool_RejectsPathTraversal(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "../../etc/passwd"})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsAbsolutePath(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "/etc/passwd"})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsMissingFile(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "does-not-exist.txt"})
	assert.False(t, result.Success)
	assert.Equal(t, "File not found", result.Output)
}

func TestFileReadTool_RejectsDirectory(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: "subdir"})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsBlankInput(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: ""})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsTemplateInjectionMarkers(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	for _, input := range []string{"${evil}", "{{evil}}", "$(evil)", "#{evil}"} {
		result := tool.Run(workflow.ExecutionInput{Content: input})
		assert.False(t, result.Success, "expected rejection for %q", input)
	}
}

func TestFileReadTool_RejectsWindowsReservedNames(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	for _, input := range []string{"CON", "con.txt", "COM1", "lpt1.log"} {
		result := tool.Run(workflow.ExecutionInput{Content: input})
		assert.False(t, result.Success, "expected rejection for %q", input)
	}
}

func TestFileReadTool_RejectsMixedSeparators(t *testing.T) {
	tool, _ := newTestFileReadTool(t)
	result := tool.Run(workflow.ExecutionInput{Content: `subdir/nested\txt`})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))

	tool, err := NewFileReadTool(FileReadConfig{BaseDir: dir, MaxSizeBytes: 10})
	require.NoError(t, err)

	result := tool.Run(workflow.ExecutionInput{Content: "big.txt"})
	assert.False(t, result.Success)
}

func TestFileReadTool_RejectsSymlinkByDefault(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")))

	tool, err := NewFileReadTool(FileReadConfig{BaseDir: dir})
	require.NoError(t, err)

	result := tool.Run(workflow.ExecutionInput{Content: "link.txt"})
	assert.False(t, result.Success)
}
