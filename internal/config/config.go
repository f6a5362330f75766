// Package config holds the update checker settings and the environment
// snapshot consulted on each check.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Built-in settings used when no config file overrides them.
const (
	DefaultDistribution  = "moldflow"
	DefaultModulePath    = "github.com/moldflow/mfupdate"
	DefaultRegistryURL   = "https://pypi.org"
	DefaultTimeout       = 2 * time.Second
	DefaultOptOutEnv     = "MOLDFLOW_API_NO_UPDATE_CHECK"
	DefaultVirtualEnvEnv = "VIRTUAL_ENV"
)

var validate = validator.New()

// Config describes where to look for releases and how to read the
// environment.
type Config struct {
	Distribution  string        `yaml:"distribution" validate:"required"`
	ModulePath    string        `yaml:"module_path" validate:"required"`
	RegistryURL   string        `yaml:"registry_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	OptOutEnv     string        `yaml:"opt_out_env" validate:"required"`
	VirtualEnvEnv string        `yaml:"virtual_env_env" validate:"required"`
	// DescriptorDir overrides the directory holding version.json.
	DescriptorDir string `yaml:"descriptor_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Distribution:  DefaultDistribution,
		ModulePath:    DefaultModulePath,
		RegistryURL:   DefaultRegistryURL,
		Timeout:       DefaultTimeout,
		OptOutEnv:     DefaultOptOutEnv,
		VirtualEnvEnv: DefaultVirtualEnvEnv,
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every required field is set and well formed.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: field %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Env is a read-only snapshot of the two environment signals.
type Env struct {
	OptOut     string
	VirtualEnv string
}

// ReadEnv snapshots the opt-out switch and the virtualenv indicator named by
// cfg. A nil lookup reads the process environment.
func ReadEnv(cfg Config, lookup LookupFunc) Env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	optOut, _ := lookup(cfg.OptOutEnv)
	venv, _ := lookup(cfg.VirtualEnvEnv)
	return Env{OptOut: optOut, VirtualEnv: venv}
}

// Disabled reports whether the opt-out switch holds any non-empty value.
func (e Env) Disabled() bool {
	return e.OptOut != ""
}

// InVirtualEnv reports whether the virtualenv indicator is set and non-empty.
func (e Env) InVirtualEnv() bool {
	return e.VirtualEnv != ""
}
