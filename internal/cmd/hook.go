package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// runHook runs the hook command in dir for the given slash-separated file
// path, relative to dir.
func runHook(cmd *cobra.Command, hook, file, dir string) error {
	expanded := expandHook(hook, filepath.FromSlash(file), dir)

	exitCode, err := runCommand(cmd, expanded, dir)
	if err != nil {
		return fmt.Errorf("hook for %s: %w", file, err)
	}

	if exitCode != 0 {
		return fmt.Errorf("%w: %s exited with %d", errHookFailed, file, exitCode)
	}

	return nil
}

func expandHook(hook, file, dir string) string {
	expanded := strings.ReplaceAll(hook, "{}", shellQuote(file))
	expanded = strings.ReplaceAll(expanded, "{dir}", shellQuote(dir))

	return expanded
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func runCommand(cmd *cobra.Command, command, dir string) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return -1, err
	}

	runner, err := interp.New(interp.Dir(dir), interp.StdIO(os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	if err != nil {
		return -1, err
	}

	err = runner.Run(cmd.Context(), file)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return int(status), nil
		}

		return -1, err
	}

	return 0, nil
}

var errHookFailed = fmt.Errorf("hook failed")
