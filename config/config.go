// Package config holds the Fluxnode registry daemon's runtime
// configuration: economic parameter tables, storage and service
// addresses, and logging, loaded from file, flags and environment and
// validated before use.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	validator "github.com/go-playground/validator/v10"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/MotoAcidic/fluxd/registry"
)

// Default configuration values.
const (
	DefaultLogLevel    = "info"
	DefaultServiceAddr = "127.0.0.1:16127"
	DefaultBadgerDir   = "registry_db"
	DefaultLogFile     = ""

	DefaultStartExpiration   = 60
	DefaultDoSRemove         = 720
	DefaultConfirmExpiration = 120
	DefaultPaymentsStart     = 0
)

// TierRow is one row of the collateral classification table, loaded
// verbatim into a registry.TierRange.
type TierRow struct {
	MinHeight uint32 `mapstructure:"min-height"`
	MaxHeight uint32 `mapstructure:"max-height"`
	Amount    int64  `mapstructure:"amount" validate:"required,gt=0"`
	Tier      string `mapstructure:"tier" validate:"required,oneof=CUMULUS NIMBUS STRATUS"`
}

// Config contains all the configuration properties of the registry daemon.
type Config struct {
	// DataDir is the top-level directory containing the registry database.
	DataDir string `mapstructure:"datadir"`

	// DatabaseDir is the directory containing the badger database files.
	// Defaults to a subdirectory of DataDir.
	DatabaseDir string `mapstructure:"db"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log" validate:"oneof=debug info warn error fatal panic"`

	// LogFile, if set, additionally writes logs to this path via lfshook.
	LogFile string `mapstructure:"log-file"`

	// ServiceAddr is the address:port of the HTTP query/administration API.
	ServiceAddr string `mapstructure:"service-listen"`

	// NoService disables the HTTP API entirely.
	NoService bool `mapstructure:"no-service"`

	// Tiers is the collateral classification table, validated for internal
	// consistency (a payment amount for every tier, no two tiers on the same
	// amount and height range) by Validate.
	Tiers []TierRow `mapstructure:"tiers" validate:"required,dive"`

	// StartExpiration is the number of blocks a Start-tx has to receive an
	// InitialConfirm before moving to the DoS tracker.
	StartExpiration uint32 `mapstructure:"start-expiration" validate:"gt=0"`

	// DoSRemove is the number of additional blocks a record spends in the
	// DoS tracker before being deleted outright.
	DoSRemove uint32 `mapstructure:"dos-remove" validate:"gt=0"`

	// ConfirmExpiration is the number of blocks a confirmed node can go
	// without a re-confirm before being evicted.
	ConfirmExpiration uint32 `mapstructure:"confirm-expiration" validate:"gt=0"`

	// PaymentsStart is the height at which payment selection begins.
	PaymentsStart uint32 `mapstructure:"payments-start"`

	// TierPayments maps a tier name to its configured payout amount.
	TierPayments map[string]int64 `mapstructure:"tier-payments" validate:"required"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values and an
// empty tier table; callers are expected to load the real economic
// parameters from file before calling Validate.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:           DefaultDataDir(),
		DatabaseDir:       DefaultDatabaseDir(),
		LogLevel:          DefaultLogLevel,
		LogFile:           DefaultLogFile,
		ServiceAddr:       DefaultServiceAddr,
		StartExpiration:   DefaultStartExpiration,
		DoSRemove:         DefaultDoSRemove,
		ConfirmExpiration: DefaultConfirmExpiration,
		PaymentsStart:     DefaultPaymentsStart,
		TierPayments:      map[string]int64{},
	}
}

// SetDataDir sets the top-level registry directory, and updates the
// database directory if it is currently set to the default value.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerDir)
	}
}

// Validate checks structural field constraints via go-playground/validator,
// then the cross-field invariants a struct tag cannot express: the tier
// table must name a payment amount for every tier it defines, and must not
// assign two different tiers to rows with the same MinHeight, MaxHeight and
// Amount. Rows whose height ranges only overlap are not compared.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, row := range c.Tiers {
		if _, ok := c.TierPayments[row.Tier]; !ok {
			return fmt.Errorf("config: tier %s has no configured payment amount", row.Tier)
		}
	}
	seen := make(map[string]string)
	for _, row := range c.Tiers {
		key := fmt.Sprintf("%d:%d:%d", row.MinHeight, row.MaxHeight, row.Amount)
		if prior, ok := seen[key]; ok && prior != row.Tier {
			return fmt.Errorf("config: amount %d at height range [%d,%d] is assigned to both %s and %s", row.Amount, row.MinHeight, row.MaxHeight, prior, row.Tier)
		}
		seen[key] = row.Tier
	}
	return nil
}

// tierByName maps the validated tier-name strings used in config files to
// their registry.Tier value.
func tierByName(name string) registry.Tier {
	switch name {
	case "CUMULUS":
		return registry.Cumulus
	case "NIMBUS":
		return registry.Nimbus
	case "STRATUS":
		return registry.Stratus
	default:
		return registry.Invalid
	}
}

// Params builds a registry.Params from the validated configuration.
func (c *Config) Params() registry.Params {
	rows := make([]registry.TierRange, 0, len(c.Tiers))
	for _, row := range c.Tiers {
		rows = append(rows, registry.TierRange{
			MinHeight: row.MinHeight,
			MaxHeight: row.MaxHeight,
			Amount:    row.Amount,
			Tier:      tierByName(row.Tier),
		})
	}
	payments := make(map[registry.Tier]int64, len(c.TierPayments))
	for name, amount := range c.TierPayments {
		payments[tierByName(name)] = amount
	}
	return registry.Params{
		Classifier:        registry.NewClassifier(rows),
		StartExpiration:   c.StartExpiration,
		DoSRemove:         c.DoSRemove,
		ConfirmExpiration: c.ConfirmExpiration,
		PaymentsStart:     c.PaymentsStart,
		TierPaymentAmount: payments,
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "fluxnoded".
// A LogFile additionally tees output to disk via lfshook.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			pathMap := lfshook.PathMap{
				logrus.DebugLevel: c.LogFile,
				logrus.InfoLevel:  c.LogFile,
				logrus.WarnLevel:  c.LogFile,
				logrus.ErrorLevel: c.LogFile,
				logrus.FatalLevel: c.LogFile,
			}
			c.logger.Hooks.Add(lfshook.NewHook(pathMap, new(prefixed.TextFormatter)))
		}
	}
	return c.logger.WithField("prefix", "fluxnoded")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerDir)
}

// DefaultDataDir returns the default top-level directory based on the
// underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Fluxnoded")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Fluxnoded")
	default:
		return filepath.Join(home, ".fluxnoded")
	}
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
