// Package cmd implements the rawfence command line.
package cmd

import (
	_ "embed"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ezerfernandes/rawfence/internal/config"
)

//go:embed help/root.md
var rootHelp string

const defaultDir = "."

type options struct {
	configFile string
	viper      *viper.Viper
	cfg        *config.Config
	dir        string
	status     statusFunc
}

func newOptions() *options {
	return &options{viper: viper.New(), dir: defaultDir} //nolint:exhaustruct
}

// Execute runs the rawfence command line and exits the process with a
// non-zero status on failure.
func Execute(args []string, stdout, stderr io.Writer) {
	if err := run(args, stdout, stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := rootCmd(newOptions())

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.Execute()
}

func rootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{ //nolint:exhaustruct
		Use:   "rawfence [flags] [dir]",
		Short: "Escape template delimiters in Markdown code blocks",
		Long:  rootHelp,
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return fixRun(cmd, opts)
		},

		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	flags := root.PersistentFlags()

	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default .rawfence.yaml in the directory or the working directory)")
	flags.String("ext", "", "extension of the files to process (default \".md\")")
	flags.String("open", "", "raw region open marker (default \"{% raw %}\")")
	flags.String("close", "", "raw region close marker (default \"{% endraw %}\")")
	flags.StringSlice("trigger", nil, "sequence making a block template-sensitive, repeatable (default {{,}})")
	flags.StringSlice("exclude", nil, "glob of paths to skip, repeatable")
	flags.StringSlice("lang", nil, "glob of block languages to wrap, repeatable (default all)")
	flags.String("parser", "", "block finder: fences or commonmark (default \"fences\")")
	flags.String("hook", "", "shell command run for every rewritten file, {} is the file")
	flags.Bool("keep-going", false, "report failing files and continue with the others")
	flags.BoolP("quiet", "q", false, "suppress status messages")

	bindFlags(opts.viper, flags.Lookup, map[string]string{
		"ext":        config.KeyExtension,
		"open":       config.KeyOpen,
		"close":      config.KeyClose,
		"trigger":    config.KeyTriggers,
		"exclude":    config.KeyExclude,
		"lang":       config.KeyLang,
		"parser":     config.KeyParser,
		"hook":       config.KeyHook,
		"keep-going": config.KeyKeepGoing,
		"quiet":      config.KeyQuiet,
	})

	root.AddCommand(checkCmd(opts), listCmd(opts))

	return root
}

func (o *options) load(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		o.dir = args[0]
	}

	cfg, err := config.Load(o.viper, o.dir, o.configFile)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.createStatus(cmd.ErrOrStderr())

	return nil
}
