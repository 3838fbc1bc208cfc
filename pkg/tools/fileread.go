package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// FileReadConfig configures FileReadTool's security boundary.
type FileReadConfig struct {
	BaseDir       string
	AllowSymlinks bool
	MaxSizeBytes  int64
	MaxPathLength int
}

// FileReadTool reads a file inside a configured base directory. The real
// path of BaseDir is resolved once at construction and becomes the security
// boundary every request is checked against.
type FileReadTool struct {
	cfg     FileReadConfig
	baseDir string // resolved real path
}

var (
	reservedDeviceNames = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`)
	templateInjection   = []string{"${", "#{", "%{", "$(", "`", "{{", "{%", "<%", "[%", "[[", "]]", "}}"}
	forbiddenChars      = regexp.MustCompile(`[<>:"|?*]`)
	encodedTraversal    = []string{
		"%2e%2e", "%252e%252e", "\\u002e\\u002e", "\\x2e\\x2e",
		"%c0%ae%c0%ae", "%e0%80%ae", "..%2f", "..%5c",
	}
	systemPathFragments = []string{"/system32/", "/windows/", "/etc/", "/usr/", "/var/", "/bin/", "/sbin/"}
	threeOrMoreDots     = regexp.MustCompile(`\.{3,}`)
	uriScheme           = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.\-]*://|^[a-z][a-z0-9+.\-]*:[a-zA-Z]`)
)

// NewFileReadTool resolves cfg.BaseDir's real path and returns a FileReadTool
// bound to it.
func NewFileReadTool(cfg FileReadConfig) (*FileReadTool, error) {
	real, err := filepath.EvalSymlinks(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving file-read base directory: %w", err)
	}
	if cfg.MaxPathLength == 0 {
		cfg.MaxPathLength = 4096
	}
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = 10 * 1024 * 1024
	}
	return &FileReadTool{cfg: cfg, baseDir: real}, nil
}

func (t *FileReadTool) Name() string { return "file_read" }

func (t *FileReadTool) Description() string {
	return "Reads the contents of a file located within the configured sandboxed base directory. Input is a relative path."
}

func (t *FileReadTool) Run(input workflow.ExecutionInput) workflow.ExecutionResult {
	path := input.Content

	if err := validateInput(path, t.cfg.MaxPathLength); err != nil {
		return failure(err.Error())
	}
	if err := scanForbiddenPatterns(path); err != nil {
		return failure(err.Error())
	}
	if err := validateStructure(path); err != nil {
		return failure(err.Error())
	}

	resolved := filepath.Join(t.baseDir, path)

	info, err := os.Lstat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return failure("File not found")
		}
		return failure("unable to stat file: " + err.Error())
	}
	if info.Mode()&os.ModeSymlink != 0 && !t.cfg.AllowSymlinks {
		return failure("symlinks are not permitted")
	}

	real, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return failure("File not found")
	}
	rel, err := filepath.Rel(t.baseDir, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return failure("escapes base directory")
	}

	realInfo, err := os.Stat(real)
	if err != nil {
		return failure("File not found")
	}
	if realInfo.IsDir() {
		return failure("path is a directory")
	}
	if realInfo.Size() > t.cfg.MaxSizeBytes {
		return failure(fmt.Sprintf("file size %d exceeds maximum %d bytes", realInfo.Size(), t.cfg.MaxSizeBytes))
	}

	content, err := readBounded(real, realInfo.Size(), t.cfg.MaxSizeBytes)
	if err != nil {
		return failure("read error: " + err.Error())
	}

	return workflow.ExecutionResult{Success: true, Output: string(content)}
}

func validateInput(path string, maxLen int) error {
	if path == "" || strings.TrimSpace(path) == "" {
		return fmt.Errorf("path must not be blank")
	}
	if len(path) > maxLen {
		return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
	}
	for _, r := range path {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("path contains control characters")
		}
	}
	if normalized := norm.NFC.String(path); normalized != path {
		return fmt.Errorf("path is not Unicode-NFC-normalized")
	}
	return nil
}

func scanForbiddenPatterns(path string) error {
	lower := strings.ToLower(path)

	if strings.HasPrefix(path, "/") || isDriveAbsolute(path) {
		return fmt.Errorf("absolute paths are not permitted")
	}
	if strings.HasPrefix(path, `\\`) {
		return fmt.Errorf("UNC paths are not permitted")
	}
	if uriScheme.MatchString(path) {
		return fmt.Errorf("URI-scheme paths are not permitted")
	}
	if threeOrMoreDots.MatchString(path) {
		return fmt.Errorf("path contains a suspicious run of dots")
	}
	for _, part := range splitOnEitherSeparator(path) {
		if part == ".." {
			return fmt.Errorf("path traversal (..) is not permitted")
		}
		if reservedDeviceNames.MatchString(part) {
			return fmt.Errorf("path component %q is a reserved device name", part)
		}
	}
	if forbiddenChars.MatchString(path) {
		return fmt.Errorf("path contains forbidden characters")
	}
	for _, b := range []byte(path) {
		if b <= 0x1F || (b >= 0x7F && b <= 0x9F) {
			return fmt.Errorf("path contains a disallowed control byte")
		}
	}
	for _, marker := range templateInjection {
		if strings.Contains(path, marker) {
			return fmt.Errorf("path contains a template-injection marker")
		}
	}
	for _, marker := range encodedTraversal {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("path contains an encoded traversal sequence")
		}
	}
	if containsZeroWidthOrBidi(path) {
		return fmt.Errorf("path contains zero-width or bidirectional override characters")
	}
	if strings.Contains(path, "/") && strings.Contains(path, `\`) {
		return fmt.Errorf("path mixes separators")
	}
	for _, frag := range systemPathFragments {
		if strings.Contains(lower, frag) {
			return fmt.Errorf("path references a system directory")
		}
	}
	return nil
}

func isDriveAbsolute(path string) bool {
	return len(path) >= 2 && path[1] == ':' && ((path[0] >= 'a' && path[0] <= 'z') || (path[0] >= 'A' && path[0] <= 'Z'))
}

func splitOnEitherSeparator(path string) []string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	return strings.Split(normalized, "/")
}

func containsZeroWidthOrBidi(path string) bool {
	for _, r := range path {
		switch {
		case r >= 0x200B && r <= 0x200D:
			return true
		case r == 0xFEFF, r == 0x2060:
			return true
		case r >= 0x202D && r <= 0x202E:
			return true
		case r >= 0x2066 && r <= 0x2069:
			return true
		}
		if cat := unicode.In(r, unicode.Cf, unicode.Cc); cat && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

func validateStructure(path string) error {
	parts := splitOnEitherSeparator(path)
	if len(parts) > 10 {
		return fmt.Errorf("path has too many components")
	}
	separators := strings.Count(path, "/") + strings.Count(path, `\`)
	if separators > 100 {
		return fmt.Errorf("path has too many separators")
	}
	return nil
}

// readBounded reads a file in chunks sized by its total size, aborting if
// the running total would exceed maxSize.
func readBounded(path string, size, maxSize int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if size < 1024*1024 {
		return io.ReadAll(io.LimitReader(f, maxSize+1))
	}

	bufSize := chunkSizeFor(size)
	buf := make([]byte, bufSize)
	var out []byte
	var total int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > maxSize {
				return nil, fmt.Errorf("file exceeds maximum size while reading")
			}
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func chunkSizeFor(size int64) int {
	switch {
	case size < 2*1024*1024:
		return 1 * 1024
	case size < 4*1024*1024:
		return 4 * 1024
	case size < 8*1024*1024:
		return 8 * 1024
	default:
		return 16 * 1024
	}
}

func failure(msg string) workflow.ExecutionResult {
	return workflow.ExecutionResult{Success: false, Output: msg}
}
