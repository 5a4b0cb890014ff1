// Package validation guards the values assetforge hands to external
// processes: compiler command lines and URLs passed to the OS browser opener.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AllowedCommands are the external tools assetforge may execute.
var AllowedCommands = map[string]bool{
	"sass":    true,
	"sassc":   true,
	"postcss": true,
	"npx":     true,
}

var shellMeta = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}

const loadPathFlag = "--load-path="

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	if value, ok := strings.CutPrefix(arg, loadPathFlag); ok {
		return ValidateLoadPath(value)
	}

	if err := rejectShellMeta(arg); err != nil {
		return err
	}

	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") {
		return fmt.Errorf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateLoadPath checks a stylesheet load path. Load paths are only read
// by the compiler, so they may point at siblings of the project root.
func ValidateLoadPath(p string) error {
	if p == "" {
		return fmt.Errorf("load path cannot be empty")
	}
	if err := rejectShellMeta(p); err != nil {
		return err
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("absolute load path not allowed: %s", p)
	}
	return nil
}

func rejectShellMeta(s string) error {
	for _, char := range shellMeta {
		if strings.Contains(s, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}
	return nil
}

// ValidateCommand validates a command name against an allowlist
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if !allowedCommands[filepath.Base(command)] {
		return fmt.Errorf("command '%s' is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return fmt.Errorf("invalid command '%s': %w", command, err)
	}

	return nil
}

// ValidateCommandLine validates a command and all of its arguments.
func ValidateCommandLine(command string, args []string) error {
	if err := ValidateCommand(command, AllowedCommands); err != nil {
		return err
	}
	for _, arg := range args {
		if err := ValidateArgument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}
