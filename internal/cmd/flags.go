package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func bindFlags(v *viper.Viper, lookup func(name string) *pflag.Flag, keys map[string]string) {
	for name, key := range keys {
		cobra.CheckErr(v.BindPFlag(key, lookup(name)))
	}
}
