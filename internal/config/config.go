package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHost           = "192.168.68.56"
	DefaultPort           = 8888
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = time.Second
	DefaultSilenceTimeout = 30 * time.Second
	DefaultRetryCooldown  = 3 * time.Second
	DefaultStatusInterval = 2 * time.Second
	DefaultHistoryDir     = "/var/lib/weldctl/welds"
	DefaultHistoryMax     = 15
	DefaultSettingsDB     = "/var/lib/weldctl/settings.db"
	DefaultResistance     = 0.0015
	DefaultLogLevel       = "info"
	DefaultMetricsAddr    = ":9110"

	// Silence watchdog bounds accepted by Validate
	MinSilenceTimeout = 5 * time.Second
	MaxSilenceTimeout = 30 * time.Second

	defaultEnvPrefix  = "WELDCTL"
	defaultConfigName = "weldctl"
	defaultConfigDir  = "/etc"
)

type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	SilenceTimeout time.Duration `mapstructure:"silence_timeout"`
	RetryCooldown  time.Duration `mapstructure:"retry_cooldown"`
	StatusInterval time.Duration `mapstructure:"status_interval"`
	HistoryDir     string        `mapstructure:"history_dir"`
	HistoryMax     int           `mapstructure:"history_max"`
	SettingsDB     string        `mapstructure:"settings_db"`
	ResistanceOhms float64       `mapstructure:"resistance_ohms"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFile        string        `mapstructure:"log_file"`
	Metrics        bool          `mapstructure:"metrics"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
}

// Address returns host:port of the welder link.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads configuration from defaults, the config file, WELDCTL_*
// environment variables and command line flags, in increasing priority.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if configPath == "" {
		configPath, _ = fs.GetString("config")
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks ranges the link and history depend on.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Host == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "host is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errFactory.WithData(errors.ErrInvalidPort, c.Port)
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout": c.ConnectTimeout,
		"read_timeout":    c.ReadTimeout,
		"retry_cooldown":  c.RetryCooldown,
	} {
		if d <= 0 {
			return errFactory.WithData(errors.ErrInvalidTimeout, name+" must be positive")
		}
	}
	if c.StatusInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.StatusInterval.String())
	}
	if c.SilenceTimeout < MinSilenceTimeout || c.SilenceTimeout > MaxSilenceTimeout {
		return errFactory.WithData(errors.ErrInvalidTimeout, "silence_timeout must be between 5s and 30s")
	}
	if c.ReadTimeout >= c.SilenceTimeout {
		return errFactory.WithData(errors.ErrInvalidTimeout, "read_timeout must be shorter than silence_timeout")
	}
	if c.HistoryDir == "" || c.HistoryMax <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "history_dir and a positive history_max are required")
	}
	if c.SettingsDB == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "settings_db is empty")
	}
	if c.ResistanceOhms <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "resistance_ohms must be positive")
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("connect_timeout", DefaultConnectTimeout)
	v.SetDefault("read_timeout", DefaultReadTimeout)
	v.SetDefault("silence_timeout", DefaultSilenceTimeout)
	v.SetDefault("retry_cooldown", DefaultRetryCooldown)
	v.SetDefault("status_interval", DefaultStatusInterval)
	v.SetDefault("history_dir", DefaultHistoryDir)
	v.SetDefault("history_max", DefaultHistoryMax)
	v.SetDefault("settings_db", DefaultSettingsDB)
	v.SetDefault("resistance_ohms", DefaultResistance)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("metrics", false)
	v.SetDefault("metrics_addr", DefaultMetricsAddr)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("weldctl", pflag.ContinueOnError)
	fs.String("config", "", "Path to the TOML config file")
	fs.String("host", DefaultHost, "Welder controller host")
	fs.Int("port", DefaultPort, "Welder controller TCP port")
	fs.Duration("silence-timeout", DefaultSilenceTimeout, "Reconnect after this long without data (5s-30s)")
	fs.Duration("retry-cooldown", DefaultRetryCooldown, "Wait between reconnect attempts")
	fs.String("history-dir", DefaultHistoryDir, "Directory for weld history records")
	fs.String("settings-db", DefaultSettingsDB, "Path to the settings database")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("log-file", "", "Optional rotating log file")
	fs.Bool("metrics", false, "Expose Prometheus metrics")
	fs.String("metrics-addr", DefaultMetricsAddr, "Listen address for the metrics endpoint")
	return fs
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return bindErr
}
