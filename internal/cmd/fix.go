package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezerfernandes/rawfence/internal/walker"
)

func fixRun(cmd *cobra.Command, opts *options) error {
	report, err := walk(opts, false)

	if opts.cfg.KeepGoing {
		for _, file := range report.Failed() {
			warn(cmd.ErrOrStderr(), "%v", file.Err)
		}
	}

	if err != nil {
		return err
	}

	if len(opts.cfg.Hook) == 0 {
		return nil
	}

	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}

	for _, file := range report.Changed() {
		if err := runHook(cmd, opts.cfg.Hook, file.Path, dir); err != nil {
			return err
		}
	}

	return nil
}

func walk(opts *options, dryRun bool) (*walker.Report, error) {
	w, err := opts.cfg.Walker(walker.DirFS(opts.dir))
	if err != nil {
		return new(walker.Report), err
	}

	w.DryRun = dryRun
	w.Status = opts.status

	return w.Walk()
}
