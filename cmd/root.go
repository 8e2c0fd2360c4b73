package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnoswap-labs/degoto/transform"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	debug   bool

	logger = zap.NewNop()

	// settings holds DEGOTO_* environment variables and bound flags.
	settings = newSettings()
)

var rootCmd = &cobra.Command{
	Use:              "degoto [paths...]",
	Short:            "degoto - rewrites Go functions that use goto into structured code",
	TraverseChildren: true, // Prioritize subcommands
	SilenceUsage:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// no subcommand
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		// degoto [path1 path2 ...] behaves like the run subcommand
		runCmd.Run(runCmd, args)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", transform.DefaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Abort after this long")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log every eliminated jump")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	config.EncoderConfig.TimeKey = ""
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("degoto")
	v.AutomaticEnv()
	return v
}

// applyOverrides layers environment variables and command-line flags over
// the config file. Zero values leave the file's setting alone.
func applyOverrides(c *transform.Config, v *viper.Viper) {
	if n := v.GetInt("max_rounds"); n > 0 {
		c.MaxRounds = n
	}
	if s := v.GetString("flag_prefix"); s != "" {
		c.FlagPrefix = s
	}
	if n := v.GetInt("verify_depth"); n > 0 {
		c.VerifyDepth = n
	}
	if v.GetBool("no_verify") {
		c.Verify = false
	}
	if s := v.GetString("cache_dir"); s != "" {
		c.CacheDir = s
	}
}

// newEngine loads the config file, applies overrides and builds an engine.
// configure, if set, has the last word.
func newEngine(configure func(*transform.Config)) (*transform.Engine, error) {
	config, err := transform.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(&config, settings)
	if configure != nil {
		configure(&config)
	}
	return transform.New(config, cfgFile, logger)
}
