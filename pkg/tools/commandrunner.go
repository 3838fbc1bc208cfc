package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

// CommandRunnerConfig configures CommandRunnerTool.
type CommandRunnerConfig struct {
	Timeout         time.Duration
	AllowedCommands []string // empty = allow all not on the built-in blocklist
}

// builtinBlocklist is always enforced regardless of whitelist configuration.
var builtinBlocklist = map[string]struct{}{
	"rm": {}, "del": {}, "format": {}, "fdisk": {}, "mkfs": {}, "dd": {},
	"shutdown": {}, "reboot": {}, "halt": {}, "poweroff": {}, "su": {},
	"sudo": {}, "runas": {}, "net": {}, "sc": {}, "service": {}, "kill": {},
	"killall": {}, "taskkill": {}, "wmic": {},
}

// CommandRunnerTool executes a whitelisted command via a direct process
// spawn — no shell is ever invoked.
type CommandRunnerTool struct {
	cfg     CommandRunnerConfig
	allowed map[string]struct{}
}

// NewCommandRunnerTool returns a CommandRunnerTool bound to cfg.
func NewCommandRunnerTool(cfg CommandRunnerConfig) *CommandRunnerTool {
	var allowed map[string]struct{}
	if len(cfg.AllowedCommands) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedCommands))
		for _, c := range cfg.AllowedCommands {
			allowed[c] = struct{}{}
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CommandRunnerTool{cfg: cfg, allowed: allowed}
}

func (t *CommandRunnerTool) Name() string { return "command_runner" }

func (t *CommandRunnerTool) Description() string {
	return "Runs a single whitelisted shell command (no shell interpretation) and returns its combined stdout/stderr."
}

func (t *CommandRunnerTool) Run(input workflow.ExecutionInput) workflow.ExecutionResult {
	raw := input.Content
	if len(raw) > 8192 {
		return failure("command exceeds maximum length of 8192 characters")
	}

	tokens, err := tokenize(raw)
	if err != nil {
		return failure(err.Error())
	}
	if len(tokens) == 0 {
		return failure("command must not be blank")
	}
	if len(tokens) > 100 {
		return failure("command has too many tokens")
	}
	for _, tok := range tokens {
		if len(tok) > 2048 {
			return failure("a command token exceeds maximum length of 2048 characters")
		}
		if strings.ContainsAny(tok, "\x00\n\r") {
			return failure("command tokens must not contain null bytes or newlines")
		}
	}

	executable := tokens[0]
	if strings.Contains(executable, "..") {
		return failure("executable must not contain '..'")
	}

	// Whitelist rejection fires before the built-in blocklist check.
	if t.allowed != nil {
		if _, ok := t.allowed[executable]; !ok {
			return failure(fmt.Sprintf("Dangerous command blocked: %s", executable))
		}
	}
	if _, blocked := builtinBlocklist[executable]; blocked {
		return failure(fmt.Sprintf("Dangerous command blocked: %s", executable))
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, executable, tokens[1:]...)
	combined, runErr := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return failure(fmt.Sprintf("Command timed out after %ds", int(t.cfg.Timeout.Seconds())))
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return failure("failed to execute command: " + runErr.Error())
	}

	return workflow.ExecutionResult{
		Success: exitCode == 0,
		Output:  fmt.Sprintf("ExitCode=%d\n%s", exitCode, string(combined)),
		Metadata: map[string]any{
			"exitCode": exitCode,
			"command":  raw,
		},
	}
}

// tokenize splits raw into tokens recognizing double-quoted, single-quoted,
// and bare whitespace-delimited forms. No shell metacharacter handling is
// performed beyond quote-stripping.
func tokenize(raw string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false
	var quote rune

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			flush()
		default:
			inToken = true
			current.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command")
	}
	flush()
	return tokens, nil
}
