package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type SourceConfig struct {
	Provider string        `yaml:"provider" validate:"required"`
	Region   string        `yaml:"region" validate:"required"`
	Interval time.Duration `yaml:"interval"`
	URL      string        `yaml:"url"`
}

type StorageConfig struct {
	Dir             string        `yaml:"dir"`
	InMemory        bool          `yaml:"inMemory"`
	SyncWrites      bool          `yaml:"syncWrites"`
	HistoryLimit    int           `yaml:"historyLimit"`
	HistoryMaxLimit int           `yaml:"historyMaxLimit"`
	GCInterval      time.Duration `yaml:"gcInterval"`
}

type PollerConfig struct {
	DefaultInterval time.Duration `yaml:"defaultInterval"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
}

type LockConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Key           string        `yaml:"key"`
	TTL           time.Duration `yaml:"ttl"`
	RenewInterval time.Duration `yaml:"renewInterval"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

type NotifierConfig struct {
	Mode string `yaml:"mode" validate:"in:auto,feed,direct"`
}

type GatewayConfig struct {
	PingInterval time.Duration `yaml:"pingInterval"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	SendBuffer   int           `yaml:"sendBuffer"`
	EventBuffer  int           `yaml:"eventBuffer"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Sources   []SourceConfig `yaml:"sources" validate:"required"`
	WebServer Server         `yaml:"webServer"`
	Storage   StorageConfig  `yaml:"storage"`
	Poller    PollerConfig   `yaml:"poller"`
	Lock      LockConfig     `yaml:"lock"`
	Notifier  NotifierConfig `yaml:"notifier"`
	Gateway   GatewayConfig  `yaml:"gateway"`
	Logger    LoggerConfig   `yaml:"logger"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
