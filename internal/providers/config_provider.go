package providers

import (
	"fmt"
	"path/filepath"
	"rsd/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultFetchTimeout = 5 * time.Second
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "RSD_LOG_LEVEL")
	viper.BindEnv("storage.dir", "RSD_STORAGE_DIR")
	viper.BindEnv("lock.enabled", "RSD_LOCK_ENABLED")
	viper.BindEnv("lock.key", "RSD_LOCK_KEY")
	viper.BindEnv("notifier.mode", "RSD_NOTIFIER_MODE")
	viper.BindEnv("cache.enabled", "RSD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "RSD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	applyDefaults(&conf)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "RegionStatusDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func applyDefaults(conf *structures.Config) {
	if conf.Poller.DefaultInterval <= 0 {
		conf.Poller.DefaultInterval = defaultPollInterval
	}
	if conf.Poller.FetchTimeout <= 0 {
		conf.Poller.FetchTimeout = defaultFetchTimeout
	}
	for i := range conf.Sources {
		if conf.Sources[i].Interval <= 0 {
			conf.Sources[i].Interval = conf.Poller.DefaultInterval
		}
	}
	if conf.Storage.GCInterval <= 0 {
		conf.Storage.GCInterval = 10 * time.Minute
	}
	if conf.Notifier.Mode == "" {
		conf.Notifier.Mode = "auto"
	}
	if conf.Lock.Key == "" {
		conf.Lock.Key = "rsd:poller"
	}
	if conf.Lock.TTL <= 0 {
		conf.Lock.TTL = 30 * time.Second
	}
	if conf.Lock.RenewInterval <= 0 {
		conf.Lock.RenewInterval = conf.Lock.TTL / 3
	}
	if conf.Lock.RetryInterval <= 0 {
		conf.Lock.RetryInterval = 5 * time.Second
	}
	if conf.Gateway.PingInterval <= 0 {
		conf.Gateway.PingInterval = 30 * time.Second
	}
	if conf.Gateway.WriteTimeout <= 0 {
		conf.Gateway.WriteTimeout = 10 * time.Second
	}
	if conf.Gateway.SendBuffer <= 0 {
		conf.Gateway.SendBuffer = 64
	}
	if conf.Gateway.EventBuffer <= 0 {
		conf.Gateway.EventBuffer = 256
	}
}
