package cmd

import (
	"os"

	"github.com/spaghettifunk/texstream/engine"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spf13/cobra"
)

var (
	configDir string
	logLevel  string
	assetsDir string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "texstream",
	Short: "Scene texture streaming",
	Long: `texstream loads the textures of a scene description, degrading from
compressed mip chains to raw images, and bakes mip chains from images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		core.LogError("command failed: %s", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding texstream.toml and .env")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	RootCmd.PersistentFlags().StringVar(&assetsDir, "assets", "", "override assets.dir")
}

// loadConfig applies the command line overrides on top of the file and
// environment configuration.
func loadConfig() (*engine.Config, error) {
	cfg, err := engine.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if assetsDir != "" {
		cfg.Assets.Dir = assetsDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := core.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)
	return cfg, nil
}
