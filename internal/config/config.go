// Package config loads pantry settings through viper.
//
// Precedence, highest first: command-line flags, PANTRY_* environment
// variables, a config file, built-in defaults. The config file is either the
// one named by --config or the first .pantry.yaml found in the working
// directory or the home directory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood in config files, flags, and the environment.
const (
	KeyDB                  = "db"
	KeyDir                 = "dir"
	KeyRetainInstructions  = "retain_instructions"
	KeyMissingInstructions = "missing_instructions"
	KeyWatchDebounce       = "watch.debounce"
	KeyWatchLogFile        = "watch.log_file"
	KeyServeAddr           = "serve.addr"
)

// Built-in defaults.
const (
	DefaultDB            = "pantry.db"
	DefaultDir           = "./dump"
	DefaultWatchDebounce = 250 * time.Millisecond
	DefaultServeAddr     = ":8080"
)

// Init wires up viper: defaults, the config file (explicit path or search),
// and PANTRY_-prefixed environment variables. A missing config file is fine
// unless the user named one explicitly; a malformed one is always an error.
func Init(cfgFile string) error {
	viper.SetDefault(KeyDB, DefaultDB)
	viper.SetDefault(KeyDir, DefaultDir)
	viper.SetDefault(KeyRetainInstructions, false)
	viper.SetDefault(KeyMissingInstructions, "empty")
	viper.SetDefault(KeyWatchDebounce, DefaultWatchDebounce)
	viper.SetDefault(KeyWatchLogFile, "")
	viper.SetDefault(KeyServeAddr, DefaultServeAddr)

	viper.SetEnvPrefix("PANTRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		return nil
	}

	viper.SetConfigName(".pantry")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}
