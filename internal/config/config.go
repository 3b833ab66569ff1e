// Package config resolves rawfence settings from defaults, an optional
// .rawfence config file, RAWFENCE_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"

	"github.com/ezerfernandes/rawfence/internal/mdcode"
	"github.com/ezerfernandes/rawfence/internal/raw"
	"github.com/ezerfernandes/rawfence/internal/walker"
)

// Config keys, shared by the config file, the environment and the flags.
const (
	KeyExtension = "extension"
	KeyOpen      = "open"
	KeyClose     = "close"
	KeyTriggers  = "triggers"
	KeyExclude   = "exclude"
	KeyLang      = "lang"
	KeyParser    = "parser"
	KeyHook      = "hook"
	KeyQuiet     = "quiet"
	KeyKeepGoing = "keep_going"
)

const (
	ParserFences     = "fences"
	ParserCommonMark = "commonmark"

	configName = ".rawfence"
	envPrefix  = "RAWFENCE"
)

// Config holds the resolved settings.
type Config struct {
	Extension string   `mapstructure:"extension"`
	Open      string   `mapstructure:"open"`
	Close     string   `mapstructure:"close"`
	Triggers  []string `mapstructure:"triggers"`
	Exclude   []string `mapstructure:"exclude"`
	Lang      []string `mapstructure:"lang"`
	Parser    string   `mapstructure:"parser"`
	Hook      string   `mapstructure:"hook"`
	Quiet     bool     `mapstructure:"quiet"`
	KeepGoing bool     `mapstructure:"keep_going"`
	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyExtension, walker.DefaultExtension)
	v.SetDefault(KeyOpen, raw.Liquid.Open)
	v.SetDefault(KeyClose, raw.Liquid.Close)
	v.SetDefault(KeyTriggers, raw.DefaultTriggers())
	v.SetDefault(KeyExclude, []string{})
	v.SetDefault(KeyLang, []string{})
	v.SetDefault(KeyParser, ParserFences)
	v.SetDefault(KeyHook, "")
	v.SetDefault(KeyQuiet, false)
	v.SetDefault(KeyKeepGoing, false)
}

// Load reads the configuration into a Config. When file is empty, a
// .rawfence.{yaml,yml,json,toml} file is looked up in root and then in the
// working directory; a missing file is not an error. An explicit file must
// exist.
func Load(v *viper.Viper, root, file string) (*Config, error) {
	SetDefaults(v)

	if len(file) != 0 {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(root)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if len(file) != 0 || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be checked by the components
// built from them.
func (c *Config) Validate() error {
	if len(c.Extension) == 0 {
		return fmt.Errorf("%w: extension must not be empty", ErrInvalid)
	}

	if _, err := c.Finder(); err != nil {
		return err
	}

	rewriter, err := c.Rewriter()
	if err != nil {
		return err
	}

	if err := rewriter.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	_, err = walker.CompileExcludes(c.Exclude)

	return err
}

// Finder returns the block finder selected by the parser setting.
func (c *Config) Finder() (mdcode.Finder, error) {
	switch strings.ToLower(c.Parser) {
	case ParserFences, "":
		return mdcode.Fences, nil
	case ParserCommonMark:
		return mdcode.CommonMark, nil
	default:
		return nil, fmt.Errorf("%w: unknown parser %q (want %s or %s)", ErrInvalid, c.Parser, ParserFences, ParserCommonMark)
	}
}

// Rewriter builds the raw.Rewriter described by the settings.
func (c *Config) Rewriter() (*raw.Rewriter, error) {
	find, err := c.Finder()
	if err != nil {
		return nil, err
	}

	filter, err := langFilter(c.Lang)
	if err != nil {
		return nil, err
	}

	return &raw.Rewriter{
		Markers:  raw.Markers{Open: c.Open, Close: c.Close},
		Triggers: c.Triggers,
		Find:     find,
		Filter:   filter,
	}, nil
}

// Walker builds a walker.Walker over fsys. Status is left unset.
func (c *Config) Walker(fsys walker.FS) (*walker.Walker, error) {
	rewriter, err := c.Rewriter()
	if err != nil {
		return nil, err
	}

	excludes, err := walker.CompileExcludes(c.Exclude)
	if err != nil {
		return nil, err
	}

	return &walker.Walker{
		FS:        fsys,
		Extension: c.Extension,
		Exclude:   excludes,
		Rewriter:  rewriter,
		KeepGoing: c.KeepGoing,
	}, nil
}

func langFilter(patterns []string) (func(*mdcode.Block) bool, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: lang %q: %w", ErrInvalid, pattern, err)
		}

		globs = append(globs, g)
	}

	return func(block *mdcode.Block) bool {
		for _, g := range globs {
			if g.Match(block.Lang) {
				return true
			}
		}

		return false
	}, nil
}

// ErrInvalid is returned for settings that cannot be used.
var ErrInvalid = errors.New("invalid configuration")
