// Package wsconfig is the configuration surface: a yaml file overridable by
// cobra flags, never environment variables.
package wsconfig

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pepnova/wsengine/internal/wslog"
)

// Config is the recognised option set. Zero value is not directly usable;
// call Load or Default.
type Config struct {
	ListenAddr            string   `yaml:"listen_addr"`
	HandlerRootDirectory  string   `yaml:"handler_root_directory"`
	AllowHixie75          bool     `yaml:"allow_hixie75"`
	SecurePorts           []int    `yaml:"secure_ports"`
	TLSEnabled            bool     `yaml:"tls_enabled"`
	TLSCertFile           string   `yaml:"tls_cert_file"`
	TLSKeyFile            string   `yaml:"tls_key_file"`
	LogLevel              wslog.Level `yaml:"log_level"`
	LogFile               string   `yaml:"log_file"`
	MetricsAddr           string   `yaml:"metrics_addr"`

	// PingIntervalSeconds, when non-zero, starts a PingWatchdog on every
	// connection that auto-pings at most once per this many seconds.
	PingIntervalSeconds int `yaml:"ping_interval_seconds"`
}

// PingInterval returns PingIntervalSeconds as a time.Duration, or zero if
// the watchdog is disabled.
func (c Config) PingInterval() time.Duration {
	if c.PingIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

// Default returns the configuration's zero-config starting point.
func Default() Config {
	return Config{
		ListenAddr:   ":8080",
		AllowHixie75: false,
		LogLevel:     wslog.LevelInfo,
	}
}

// Load reads a yaml document from path over top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "wsconfig: reading %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "wsconfig: parsing %s", path)
	}
	return cfg, nil
}

// IsSecurePort reports whether port is in the configured secure_ports set.
func (c Config) IsSecurePort(port int) bool {
	for _, p := range c.SecurePorts {
		if p == port {
			return true
		}
	}
	return false
}
