package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultEnvDir       = ".devenv"
	DefaultBackendHost  = "127.0.0.1"
	DefaultBackendPort  = 8010
	DefaultFrontendHost = "127.0.0.1"
	DefaultFrontendPort = 8501
	DefaultHealthPath   = "/health"
)

// DevConfig is the launcher configuration loaded from dev.toml.
type DevConfig struct {
	EnvDir     string       `toml:"env_dir"`
	BackendURL string       `toml:"backend_url"`
	HealthPath string       `toml:"health_path"`
	Backend    TargetConfig `toml:"backend"`
	Frontend   TargetConfig `toml:"frontend"`
}

// TargetConfig describes one launchable process.
type TargetConfig struct {
	EnvDir      string            `toml:"env_dir"`
	Dir         string            `toml:"dir"`
	Host        string            `toml:"host"`
	Port        int               `toml:"port"`
	Command     []string          `toml:"command"`
	Install     [][]string        `toml:"install"`
	Env         map[string]string `toml:"env"`
	Interactive bool              `toml:"interactive"`
}

// DefaultDevConfig builds both binaries into the env dir and runs them from there.
func DefaultDevConfig() DevConfig {
	return DevConfig{
		EnvDir:     DefaultEnvDir,
		HealthPath: DefaultHealthPath,
		Backend: TargetConfig{
			Host:    DefaultBackendHost,
			Port:    DefaultBackendPort,
			Command: []string{"briefctl"},
			Install: [][]string{
				{"go", "mod", "download"},
				{"go", "build", "-o", DefaultEnvDir + "/bin/briefctl", "./cmd/briefctl"},
			},
		},
		Frontend: TargetConfig{
			Host:    DefaultFrontendHost,
			Port:    DefaultFrontendPort,
			Command: []string{"interviewctl"},
			Install: [][]string{
				{"go", "mod", "download"},
				{"go", "build", "-o", DefaultEnvDir + "/bin/interviewctl", "./cmd/interviewctl"},
			},
			Interactive: true,
		},
	}
}

// LoadDevConfig reads path and fills unset fields from DefaultDevConfig.
func LoadDevConfig(path string) (DevConfig, error) {
	var cfg DevConfig
	if err := loadToml(path, &cfg); err != nil {
		return DevConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateDevConfig(cfg); err != nil {
		return DevConfig{}, err
	}
	return cfg, nil
}

// WithDefaults fills zero-valued fields. Install lists are only defaulted
// when the target command is also unset.
func (c DevConfig) WithDefaults() DevConfig {
	def := DefaultDevConfig()
	if strings.TrimSpace(c.EnvDir) == "" {
		c.EnvDir = def.EnvDir
	}
	if strings.TrimSpace(c.HealthPath) == "" {
		c.HealthPath = def.HealthPath
	}
	c.Backend = c.Backend.withDefaults(def.Backend)
	c.Frontend = c.Frontend.withDefaults(def.Frontend)
	return c
}

func (t TargetConfig) withDefaults(def TargetConfig) TargetConfig {
	if strings.TrimSpace(t.Host) == "" {
		t.Host = def.Host
	}
	if t.Port == 0 {
		t.Port = def.Port
	}
	if len(t.Command) == 0 {
		t.Command = def.Command
		if t.Install == nil {
			t.Install = def.Install
		}
		if !t.Interactive {
			t.Interactive = def.Interactive
		}
	}
	return t
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDevConfig(cfg DevConfig) error {
	if strings.TrimSpace(cfg.EnvDir) == "" {
		return fmt.Errorf("dev config missing env_dir")
	}
	if !strings.HasPrefix(cfg.HealthPath, "/") {
		return fmt.Errorf("dev config health_path must start with /")
	}
	if err := ValidateTarget(cfg.Backend); err != nil {
		return fmt.Errorf("backend invalid: %w", err)
	}
	if err := ValidateTarget(cfg.Frontend); err != nil {
		return fmt.Errorf("frontend invalid: %w", err)
	}
	return nil
}

func ValidateTarget(cfg TargetConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return fmt.Errorf("command is required")
	}
	for i, step := range cfg.Install {
		if len(step) == 0 || strings.TrimSpace(step[0]) == "" {
			return fmt.Errorf("install[%d] is empty", i)
		}
	}
	return nil
}
