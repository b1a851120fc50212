// File: lowlevel/server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/momentics/ticknet/api"
	"github.com/momentics/ticknet/transport/tcp"
)

// Config holds all server-side configuration parameters.
type Config struct {
	Port           int           `yaml:"port"`             // TCP port bound on all interfaces
	Backlog        int           `yaml:"backlog"`          // listen(2) backlog
	ReadBufferSize int           `yaml:"read_buffer_size"` // bytes read per connection per poll
	MaxFrameSize   int           `yaml:"max_frame_size"`   // bound on an unterminated inbound message
	MaxConnections int           `yaml:"max_connections"`  // 0 = unlimited
	AcceptTimeout  time.Duration `yaml:"accept_timeout"`   // accept budget per tick
	AcceptMax      int           `yaml:"accept_max"`       // accepts per tick, -1 = unlimited
	TickInterval   time.Duration `yaml:"tick_interval"`    // period of facade.Host.Run
	LogLevel       string        `yaml:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           9000,
		Backlog:        tcp.DefaultBacklog,
		ReadBufferSize: tcp.DefaultReadSize,
		MaxFrameSize:   tcp.DefaultMaxFrameSize,
		MaxConnections: 0,
		AcceptTimeout:  0,
		AcceptMax:      api.Unlimited,
		TickInterval:   25 * time.Millisecond,
		LogLevel:       "info",
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return errors.Wrapf(api.ErrInvalidPort, "port %d", c.Port)
	case c.Backlog <= 0:
		return errors.Errorf("backlog must be positive, got %d", c.Backlog)
	case c.ReadBufferSize <= 0:
		return errors.Errorf("read_buffer_size must be positive, got %d", c.ReadBufferSize)
	case c.MaxFrameSize <= 0:
		return errors.Errorf("max_frame_size must be positive, got %d", c.MaxFrameSize)
	case c.MaxConnections < 0:
		return errors.Errorf("max_connections must be >= 0, got %d", c.MaxConnections)
	case c.AcceptTimeout < 0:
		return errors.Errorf("accept_timeout must be >= 0, got %s", c.AcceptTimeout)
	case c.AcceptMax < api.Unlimited:
		return errors.Errorf("accept_max must be >= -1, got %d", c.AcceptMax)
	case c.TickInterval <= 0:
		return errors.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
// Durations are written as Go duration strings ("25ms").
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
