package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/njchilds90/gotaylor/internal/config"
	"github.com/njchilds90/gotaylor/internal/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taylor-server",
	Short: "Forward-mode derivatives of any order over JSON",
	Long: `taylor-server evaluates JSON expression trees on Taylor towers and
returns derivatives of any order at a point, either over HTTP (serve) or
for a single request read from a file or stdin (eval).`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: error, warn, info, debug")
	rootCmd.PersistentFlags().Int("max-order", 16, "maximum tower order a request may build")
	rootCmd.PersistentFlags().Int("max-exponent", 256, "maximum exponent a pow node may use")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("max_order", rootCmd.PersistentFlags().Lookup("max-order"))
	viper.BindPFlag("max_exponent", rootCmd.PersistentFlags().Lookup("max-exponent"))

	rootCmd.AddCommand(serveCmd, evalCmd)
}

// loadConfig resolves flags, env and file, then applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := log.SetLevel(level); err != nil {
		return nil, err
	}
	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug("using config file", "path", f)
	}
	return cfg, nil
}
