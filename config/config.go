package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// SysConfig holds process-level settings.
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

// RemoteConfig points at the redis-backed remote document store.
type RemoteConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// SyncConfig controls the background synchronization cycle.
type SyncConfig struct {
	// Interval is a cron spec for the periodic full sync, e.g. "@every 5m".
	Interval string `yaml:"interval" json:"interval"`
	// DebounceMs is the search debounce window in milliseconds.
	DebounceMs int `yaml:"debounce_ms" json:"debounce_ms"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Web      WebConfig    `yaml:"web" json:"web"`
	Logger   LogConfig    `yaml:"logger" json:"logger"`
	Database DBConfig     `yaml:"database" json:"database"`
	Remote   RemoteConfig `yaml:"remote" json:"remote"`
	Sync     SyncConfig   `yaml:"sync" json:"sync"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "smartstock",
		Location: "Asia/Shanghai",
		Workdir:  "/var/smartstock",
		Debug:    true,
	},
	Web: WebConfig{
		Host: "0.0.0.0",
		Port: 1980,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/smartstock/smartstock.log",
	},
	Database: DBConfig{
		Type: "sqlite",
		Host: "127.0.0.1",
		Port: 5432,
		Name: "smartstock",
		User: "postgres",
	},
	Remote: RemoteConfig{
		Addr: "127.0.0.1:6379",
	},
	Sync: SyncConfig{
		Interval:   "@every 5m",
		DebounceMs: 300,
	},
}

func setEnvValue(name string, f func(v string)) {
	if value := os.Getenv(name); value != "" {
		f(value)
	}
}

// LoadConfig reads the YAML configuration file when it exists and applies
// SMARTSTOCK_* environment overrides on top. A missing file yields defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				zap.S().Errorf("config file %s unreadable, using defaults: %v", cfile, err)
				*cfg = *DefaultAppConfig
			}
		}
	}

	setEnvValue("SMARTSTOCK_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("SMARTSTOCK_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = cast.ToBool(v) })
	setEnvValue("SMARTSTOCK_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue("SMARTSTOCK_WEB_PORT", func(v string) { cfg.Web.Port = cast.ToInt(v) })
	setEnvValue("SMARTSTOCK_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("SMARTSTOCK_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("SMARTSTOCK_DB_PORT", func(v string) { cfg.Database.Port = cast.ToInt(v) })
	setEnvValue("SMARTSTOCK_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("SMARTSTOCK_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("SMARTSTOCK_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("SMARTSTOCK_REMOTE_ADDR", func(v string) { cfg.Remote.Addr = v })
	setEnvValue("SMARTSTOCK_REMOTE_PWD", func(v string) { cfg.Remote.Password = v })
	setEnvValue("SMARTSTOCK_REMOTE_DB", func(v string) { cfg.Remote.DB = cast.ToInt(v) })
	setEnvValue("SMARTSTOCK_SYNC_INTERVAL", func(v string) { cfg.Sync.Interval = v })

	return cfg
}

// InitDirs makes sure the working directory layout exists.
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "logs"), 0755)
}
