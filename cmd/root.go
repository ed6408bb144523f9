package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/gerritnav/internal/config"
	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/presentation"
)

var version = "dev"

// app carries what every subcommand needs once flags and config are
// resolved.
type app struct {
	v          *viper.Viper
	cfgFile    string
	configPath string
	cfg        config.Config
	closeLog   func()
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "gerritnav",
		Short: "Resolve and build Gerrit review UI URLs",
		Long: `gerritnav maps Gerrit review UI URLs to view states and back.

It resolves a URL to the page it opens (change, diff, edit, search or
dashboard), follows the UI's legacy redirects, looks up the repository of
bare change URLs, and builds canonical URLs from view states.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: .gerritnav/config.yaml, then ~/.config/gerritnav/config.yaml)")
	flags.String("base-path", "", "path prefix the UI is served under, e.g. /gerrit")
	flags.Bool("logged-in", false, "resolve as a signed-in user")
	flags.StringP("output", "o", "", "output format: json or yaml")
	flags.Bool("debug", false, "enable debug logging")

	_ = a.v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = a.v.BindPFlag("logged_in", flags.Lookup("logged-in"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))

	root.AddCommand(
		newParseCmd(a),
		newURLCmd(a),
		newFollowCmd(a),
		newLookupCmd(a),
		newHistoryCmd(a),
		newPinCmd(a),
	)
	return root
}

// load resolves the config file, reads it and sets up logging.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	a.configPath = a.resolveConfigPath()
	a.v.SetConfigFile(a.configPath)

	cfg, err := config.Load(a.v)
	if errors.Is(err, fs.ErrNotExist) && a.cfgFile == "" {
		// No config anywhere: create the default one and continue from it.
		if writeErr := config.WriteDefaultConfig(a.configPath); writeErr == nil {
			cfg, err = config.Load(a.v)
		} else {
			cfg, err = config.Decode(a.v)
		}
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Debug || os.Getenv("GERRITNAV_DEBUG") != "" {
		logPath := cfg.LogPath
		if logPath == "" {
			logPath = filepath.Join(filepath.Dir(a.configPath), "debug.log")
		}
		closeLog, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing log: %w", err)
		}
		a.closeLog = closeLog
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			log.SetMinLevel(level)
		}
		log.Info(log.CatConfig, "Loaded config", "path", a.configPath, "command", cmd.Name())
	}
	return nil
}

// resolveConfigPath applies the lookup order:
// 1. --config
// 2. .gerritnav/config.yaml (current directory)
// 3. ~/.config/gerritnav/config.yaml (user config)
func (a *app) resolveConfigPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	local := filepath.Join(".gerritnav", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return local
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return local
	}
	return filepath.Join(home, ".config", "gerritnav", "config.yaml")
}

// reload re-reads the config file, keeping the previous config on error.
func (a *app) reload() (config.Config, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return a.cfg, err
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *app) formatter(cmd *cobra.Command) (*presentation.Formatter, error) {
	return presentation.NewFormatter(cmd.OutOrStdout(), a.cfg.Output)
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}
