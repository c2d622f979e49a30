package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is a deployment-specific configuration overlay. Values set in a
// profile override the environment; zero values leave the environment value
// in place.
type Profile struct {
	Name             string  `yaml:"name" json:"name"`
	BindAddr         string  `yaml:"bind_addr,omitempty" json:"bind_addr,omitempty"`
	NodeStreamURL    string  `yaml:"node_stream_url,omitempty" json:"node_stream_url,omitempty"`
	ProtocolVersion  string  `yaml:"protocol_version,omitempty" json:"protocol_version,omitempty"`
	Store            Store   `yaml:"store" json:"store"`
	Redis            Redis   `yaml:"redis" json:"redis"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps,omitempty" json:"rate_limit_rps,omitempty"`
	RateLimitBurst   int     `yaml:"rate_limit_burst,omitempty" json:"rate_limit_burst,omitempty"`
	ReplayLimit      int     `yaml:"replay_limit,omitempty" json:"replay_limit,omitempty"`
	SubscriberBuffer int     `yaml:"subscriber_buffer,omitempty" json:"subscriber_buffer,omitempty"`
	LogLevel         string  `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// Store selects the event log backend.
type Store struct {
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// Redis configures the optional pub/sub mirror.
type Redis struct {
	Addr     string `yaml:"addr,omitempty" json:"addr,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
}

// LoadProfile loads a profile YAML by name. It searches the profiles
// directory for profile_<name>.yaml.
func LoadProfile(profilesDir, name string) (*Profile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}

	if profile.Name == "" {
		profile.Name = name
	}

	return &profile, nil
}

// Apply overlays the profile onto cfg, field by field.
func (p *Profile) Apply(cfg *Config) {
	if p.BindAddr != "" {
		cfg.BindAddr = p.BindAddr
	}
	if p.NodeStreamURL != "" {
		cfg.NodeStreamURL = p.NodeStreamURL
	}
	if p.ProtocolVersion != "" {
		cfg.ProtocolVersion = p.ProtocolVersion
	}
	if p.Store.Driver != "" {
		cfg.StoreDriver = p.Store.Driver
	}
	if p.Store.DSN != "" {
		cfg.StoreDSN = p.Store.DSN
	}
	if p.Redis.Addr != "" {
		cfg.RedisAddr = p.Redis.Addr
	}
	if p.Redis.Password != "" {
		cfg.RedisPassword = p.Redis.Password
	}
	if p.Redis.Channel != "" {
		cfg.RedisChannel = p.Redis.Channel
	}
	if p.Redis.DB != 0 {
		cfg.RedisDB = p.Redis.DB
	}
	if p.RateLimitRPS != 0 {
		cfg.RateLimitRPS = p.RateLimitRPS
	}
	if p.RateLimitBurst != 0 {
		cfg.RateLimitBurst = p.RateLimitBurst
	}
	if p.ReplayLimit != 0 {
		cfg.ReplayLimit = p.ReplayLimit
	}
	if p.SubscriberBuffer != 0 {
		cfg.SubscriberBuffer = p.SubscriberBuffer
	}
	if p.LogLevel != "" {
		cfg.LogLevel = p.LogLevel
	}
}
