package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeProfile is a named deployment profile loaded from YAML. Profile
// values override environment defaults where set.
type NodeProfile struct {
	Name  string `yaml:"name" json:"name"`
	Port  string `yaml:"port,omitempty" json:"port,omitempty"`
	Store struct {
		Kind       string `yaml:"kind,omitempty" json:"kind,omitempty"`
		DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
		SQLitePath string `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
	} `yaml:"store" json:"store"`
	Rate struct {
		RPS   float64 `yaml:"rps,omitempty" json:"rps,omitempty"`
		Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"`
	} `yaml:"rate" json:"rate"`
	Auth struct {
		TokenSecret string `yaml:"token_secret,omitempty" json:"token_secret,omitempty"`
	} `yaml:"auth" json:"auth"`
}

// LoadProfile loads a node profile from a YAML file.
func LoadProfile(path string) (*NodeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}

	var profile NodeProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("profile %q: missing name", path)
	}
	return &profile, nil
}

// Apply overlays non-empty profile values onto a Config.
func (p *NodeProfile) Apply(cfg *Config) {
	if p.Port != "" {
		cfg.Port = p.Port
	}
	if p.Store.Kind != "" {
		cfg.StoreKind = p.Store.Kind
	}
	if p.Store.DSN != "" {
		cfg.DatabaseURL = p.Store.DSN
	}
	if p.Store.SQLitePath != "" {
		cfg.SQLitePath = p.Store.SQLitePath
	}
	if p.Rate.RPS > 0 {
		cfg.RateRPS = p.Rate.RPS
	}
	if p.Rate.Burst > 0 {
		cfg.RateBurst = p.Rate.Burst
	}
	if p.Auth.TokenSecret != "" {
		cfg.TokenSecret = p.Auth.TokenSecret
	}
}
