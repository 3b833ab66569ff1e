package cmd

import (
	_ "embed"
	"fmt"
	"io/fs"
	"unicode/utf8"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/ezerfernandes/rawfence/internal/walker"
)

//go:embed help/list.md
var listHelp string

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct
		Use:     "list [flags] [dir]",
		Aliases: []string{"ls"},
		Short:   "List template-sensitive code blocks",
		Long:    listHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRun(cmd, opts)
		},

		DisableAutoGenTag: true,
	}
}

func listRun(cmd *cobra.Command, opts *options) error {
	fsys := walker.DirFS(opts.dir)

	w, err := opts.cfg.Walker(fsys)
	if err != nil {
		return err
	}

	files, err := w.Files()
	if err != nil {
		return err
	}

	tbl := table.New("File", "Lines", "Lang", "State").WithWriter(cmd.OutOrStdout())

	for _, name := range files {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}

		if !utf8.Valid(source) {
			warn(cmd.ErrOrStderr(), "%s: %v", name, walker.ErrInvalidEncoding)

			continue
		}

		findings, err := w.Rewriter.Inspect(source)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		for _, finding := range findings {
			block := finding.Block
			tbl.AddRow(name, fmt.Sprintf("%d-%d", block.StartLine, block.EndLine), block.Lang, finding.State)
		}
	}

	tbl.Print()

	return nil
}
