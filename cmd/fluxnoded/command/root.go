package command

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MotoAcidic/fluxd/config"
	"github.com/MotoAcidic/fluxd/internal/version"
	"github.com/MotoAcidic/fluxd/registry"
	"github.com/MotoAcidic/fluxd/rpcapi"
	"github.com/MotoAcidic/fluxd/store"
)

// CliConfig is the top-level flag/file/env configuration, squashing in the
// registry's own Config next to the two flags that only make sense from the
// command line.
type CliConfig struct {
	Config       config.Config `mapstructure:",squash"`
	ConfigFile   string        `mapstructure:"config-file"`
	FixturePath  string        `mapstructure:"fixture"`
}

func NewDefaultCliConfig() *CliConfig {
	return &CliConfig{
		Config: *config.NewDefaultConfig(),
	}
}

var (
	cliConfig *CliConfig
	datadir   *string
	showVer   *bool
)

func init() {
	cliConfig = NewDefaultCliConfig()

	cobra.OnInitialize(initConfig)

	datadir = rootCmd.PersistentFlags().StringP("datadir", "d", cliConfig.Config.DataDir, "Base configuration directory")
	rootCmd.PersistentFlags().String("config-file", "fluxnoded", "Name of the config file (without extension), looked up in datadir")
	rootCmd.PersistentFlags().StringP("service-listen", "s", cliConfig.Config.ServiceAddr, "HTTP query API listen IP:Port")
	rootCmd.PersistentFlags().String("log", cliConfig.Config.LogLevel, "Log level (debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("log-file", cliConfig.Config.LogFile, "Additional file to tee logs to")
	rootCmd.PersistentFlags().Bool("no-service", cliConfig.Config.NoService, "Disable the HTTP query API")
	rootCmd.PersistentFlags().String("fixture", "", "Path to a JSON block fixture, used instead of a live chain engine")

	showVer = rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version and exit")
}

func initConfig() {
	viper.AddConfigPath(*datadir)
	configName, _ := rootCmd.PersistentFlags().GetString("config-file")
	viper.SetConfigName(configName)

	viper.BindPFlags(rootCmd.PersistentFlags())

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "no config file loaded, using cli flags and defaults:", err)
	}

	if err := viper.Unmarshal(cliConfig); err != nil {
		fmt.Fprintln(os.Stderr, "failed to unmarshal config, using cli flags and defaults:", err)
	}

	cliConfig.Config.SetDataDir(*datadir)
}

var rootCmd = &cobra.Command{
	Use:   "fluxnoded",
	Short: "Fluxnode registry state machine daemon",
	Long:  "Fluxnoded tracks node collateral lifecycle and payment order for a Flux-style proof-of-work chain.",
	Run: func(cmd *cobra.Command, args []string) {
		if *showVer {
			fmt.Println(version.Version)
			return
		}
		runDaemon()
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runDaemon() {
	logger := cliConfig.Config.Logger()

	if err := cliConfig.Config.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	if cliConfig.FixturePath == "" {
		logger.Fatal("no chain driver configured: pass --fixture until a live chain engine is wired in")
	}
	driver, err := LoadFixtureDriver(cliConfig.FixturePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load fixture")
	}

	st, err := store.NewBadgerStore(cliConfig.Config.DatabaseDir, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open registry store")
	}
	defer st.Close()

	reg := registry.New(cliConfig.Config.Params(), st, driver, logger)

	if err := reg.Rebuild(1); err != nil {
		logger.WithError(err).Fatal("initial rebuild failed")
	}
	logger.WithField("tip", reg.TipHeight()).Info("registry caught up to fixture tip")

	if !cliConfig.Config.NoService {
		svc := rpcapi.NewService(cliConfig.Config.ServiceAddr, reg, logger)
		go svc.Serve()
	}

	select {}
}

func colorForTracker(kind registry.TrackerKind) func(format string, a ...interface{}) string {
	switch kind {
	case registry.InConfirmed:
		return color.GreenString
	case registry.InDoS:
		return color.RedString
	case registry.InStart:
		return color.YellowString
	default:
		return fmt.Sprintf
	}
}
