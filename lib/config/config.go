// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thevirtualbrain/tvb-hpc/lib/compress"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "TVB_HPC_CONFIG"

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Profile selects how the simulation engine treats its storage. The
// launch binary hands the configured profile to the engine; the default
// is ProfileHPC.
type Profile string

const (
	// ProfileWeb is the controller-side profile.
	ProfileWeb Profile = "web"
	// ProfileHPC marks a run on a compute node: the engine writes into
	// the plaintext working directory and never touches a database.
	ProfileHPC Profile = "hpc"
)

// Config is the complete tvb-hpc configuration.
type Config struct {
	Environment Environment      `yaml:"environment"`
	Profile     Profile          `yaml:"profile"`
	Paths       PathsConfig      `yaml:"paths"`
	Controller  ControllerConfig `yaml:"controller"`
	Encryption  EncryptionConfig `yaml:"encryption"`
	Engine      EngineConfig     `yaml:"engine"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the per-environment sections.
type Overrides struct {
	Paths      *PathsConfig      `yaml:"paths,omitempty"`
	Controller *ControllerConfig `yaml:"controller,omitempty"`
	Encryption *EncryptionConfig `yaml:"encryption,omitempty"`
	Engine     *EngineConfig     `yaml:"engine,omitempty"`
}

// PathsConfig configures the node's filesystem layout.
type PathsConfig struct {
	// Home is the HPC home folder mount. The token file and the
	// encryption folders live under it by default.
	Home string `yaml:"home"`

	// TokenFile holds the controller bearer token.
	TokenFile string `yaml:"token_file"`

	// PlainDir is the plaintext working directory of the launch.
	PlainDir string `yaml:"plain_dir"`

	// CryptDataDir holds one folder of encrypted artifacts per
	// simulator identifier.
	CryptDataDir string `yaml:"crypt_data_dir"`

	// CryptPassDir holds one folder per simulator identifier with the
	// downloaded passphrase file.
	CryptPassDir string `yaml:"crypt_pass_dir"`

	// OutputFolder is the folder name, under the encrypted data folder,
	// that receives encrypted results.
	OutputFolder string `yaml:"output_folder"`
}

// ControllerConfig configures calls to the controlling web server.
type ControllerConfig struct {
	// Timeout bounds each request. Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`
}

// EncryptionConfig configures artifact sealing.
type EncryptionConfig struct {
	// Compression is applied before encryption: zstd, lz4 or none.
	Compression string `yaml:"compression"`
}

// EngineConfig configures the external simulation engine.
type EngineConfig struct {
	// Binary is the engine executable. Relative names are looked up
	// in PATH.
	Binary string `yaml:"binary"`

	// Args are prepended to the arguments the launcher passes.
	Args []string `yaml:"args,omitempty"`

	// GracePeriod is how long a cancelled engine has between SIGTERM
	// and SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home := "/root/.tvb-hpc"
	return &Config{
		Environment: Production,
		Profile:     ProfileHPC,
		Paths: PathsConfig{
			Home:         home,
			TokenFile:    "${TVB_HPC_HOME}/.token",
			PlainDir:     "/root/plain",
			CryptDataDir: "${TVB_HPC_HOME}/crypt/data",
			CryptPassDir: "${TVB_HPC_HOME}/crypt/pass",
			OutputFolder: "output",
		},
		Controller: ControllerConfig{
			Timeout: 30 * time.Second,
		},
		Encryption: EncryptionConfig{
			Compression: compress.Zstd.String(),
		},
		Engine: EngineConfig{
			Binary:      "tvb-simulator",
			GracePeriod: 10 * time.Second,
		},
	}
}

// Load reads the file named by path, or by TVB_HPC_CONFIG when path is
// empty. With neither, Default is expanded and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path over the defaults, applies the
// environment section, expands variables and validates.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if paths := overrides.Paths; paths != nil {
		setIfNonEmpty(&c.Paths.Home, paths.Home)
		setIfNonEmpty(&c.Paths.TokenFile, paths.TokenFile)
		setIfNonEmpty(&c.Paths.PlainDir, paths.PlainDir)
		setIfNonEmpty(&c.Paths.CryptDataDir, paths.CryptDataDir)
		setIfNonEmpty(&c.Paths.CryptPassDir, paths.CryptPassDir)
		setIfNonEmpty(&c.Paths.OutputFolder, paths.OutputFolder)
	}
	if controller := overrides.Controller; controller != nil && controller.Timeout != 0 {
		c.Controller.Timeout = controller.Timeout
	}
	if encryption := overrides.Encryption; encryption != nil {
		setIfNonEmpty(&c.Encryption.Compression, encryption.Compression)
	}
	if engine := overrides.Engine; engine != nil {
		setIfNonEmpty(&c.Engine.Binary, engine.Binary)
		if engine.Args != nil {
			c.Engine.Args = engine.Args
		}
		if engine.GracePeriod != 0 {
			c.Engine.GracePeriod = engine.GracePeriod
		}
	}
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Paths.Home = expandVars(c.Paths.Home, vars)
	vars["TVB_HPC_HOME"] = c.Paths.Home

	c.Paths.TokenFile = expandVars(c.Paths.TokenFile, vars)
	c.Paths.PlainDir = expandVars(c.Paths.PlainDir, vars)
	c.Paths.CryptDataDir = expandVars(c.Paths.CryptDataDir, vars)
	c.Paths.CryptPassDir = expandVars(c.Paths.CryptPassDir, vars)
	c.Engine.Binary = expandVars(c.Engine.Binary, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	switch c.Profile {
	case ProfileWeb, ProfileHPC:
	default:
		errs = append(errs, fmt.Errorf("invalid profile: %q", c.Profile))
	}

	for name, value := range map[string]string{
		"paths.token_file":     c.Paths.TokenFile,
		"paths.plain_dir":      c.Paths.PlainDir,
		"paths.crypt_data_dir": c.Paths.CryptDataDir,
		"paths.crypt_pass_dir": c.Paths.CryptPassDir,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		} else if !filepath.IsAbs(value) {
			errs = append(errs, fmt.Errorf("%s must be absolute, got %q", name, value))
		}
	}

	if c.Paths.OutputFolder == "" || filepath.Base(c.Paths.OutputFolder) != c.Paths.OutputFolder {
		errs = append(errs, fmt.Errorf("paths.output_folder must be a single folder name, got %q", c.Paths.OutputFolder))
	}
	if c.Controller.Timeout < 0 {
		errs = append(errs, fmt.Errorf("controller.timeout must not be negative"))
	}
	if _, err := compress.ParseTag(c.Encryption.Compression); err != nil {
		errs = append(errs, fmt.Errorf("encryption.compression: %w", err))
	}
	if c.Engine.Binary == "" {
		errs = append(errs, fmt.Errorf("engine.binary is required"))
	}
	if c.Engine.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("engine.grace_period must not be negative"))
	}

	return errors.Join(errs...)
}
