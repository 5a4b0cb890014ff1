// Package cmd provides the assetforge command-line interface.
//
// Configuration is resolved once per invocation, with clear precedence:
//
//  1. Command-line flags (--path, --log-level, ...) - highest priority
//  2. ASSETFORGE_<SECTION>_<OPTION> environment variables
//  3. The configuration file: --config, else ASSETFORGE_CONFIG_FILE, else
//     .assetforge.yml in the working directory
//  4. Built-in defaults - lowest priority
//
// The result is validated and handed by pointer to every component.
package cmd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/assetforge/internal/config"
	builderrors "github.com/conneroisu/assetforge/internal/errors"
	"github.com/conneroisu/assetforge/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSETFORGE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetforge",
	Short: "Build, watch and serve front-end assets",
	Long: `assetforge compiles stylesheets, bundles scripts, optimizes images and
renders a component style guide, then keeps everything fresh with a
live-reloading dev server.

Quick Start:
  assetforge run                        Build assets, watch and serve
  assetforge run build                  Rebuild the style guide from scratch
  assetforge run styleguide             Build, watch and serve the style guide
  assetforge run --path mysite.local    Proxy a local site instead of serving files
  assetforge tasks                      List every task graph`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .assetforge.yml, can also use ASSETFORGE_CONFIG_FILE env var)")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
}

// newViper builds a viper instance with defaults, the configuration file and
// environment overrides. An explicitly named file must exist; the implicit
// .assetforge.yml is optional.
func newViper(file, envFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	explicit := true
	switch {
	case file != "":
		v.SetConfigFile(file)
	case envFile != "":
		v.SetConfigFile(envFile)
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".assetforge")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			cfgErr := builderrors.NewConfigError(builderrors.ErrCodeConfigInvalid, "reading configuration file")
			cfgErr.Cause = err
			return nil, cfgErr
		}
	}
	return v, nil
}

// bindFlags routes the command's flags into v. --path always feeds the proxy
// target; passing it explicitly also switches the server to proxy mode.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"path":       "server.proxy_target",
	}
	for name, key := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	if f := flags.Lookup("path"); f != nil && f.Changed {
		v.Set("server.mode", config.ModeProxy)
	}
	return nil
}

// loadConfig resolves the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := newViper(cfgFile, os.Getenv(EnvPrefix+"_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: out,
	}), nil
}
