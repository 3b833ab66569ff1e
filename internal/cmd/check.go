package cmd

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

//go:embed help/check.md
var checkHelp string

func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct
		Use:     "check [flags] [dir]",
		Aliases: []string{"c"},
		Short:   "Fail when files contain unescaped template-sensitive blocks",
		Long:    checkHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkRun(cmd, opts)
		},

		DisableAutoGenTag: true,
	}
}

func checkRun(cmd *cobra.Command, opts *options) error {
	report, err := walk(opts, true)

	for _, file := range report.Changed() {
		fmt.Fprintln(cmd.OutOrStdout(), file.Path)
	}

	if err != nil {
		return err
	}

	if changed := report.Changed(); len(changed) > 0 {
		return fmt.Errorf("%w: %d file(s)", errUnescaped, len(changed))
	}

	return nil
}

var errUnescaped = errors.New("unescaped template blocks found")
