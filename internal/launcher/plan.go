package launcher

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/briefctl/internal/config"
)

const (
	NameBackend  = "backend"
	NameFrontend = "frontend"
)

var (
	ErrNoCommand   = errors.New("launcher: target has no command")
	ErrInvalidPort = errors.New("launcher: port out of range")
)

// Target is one launchable process.
type Target struct {
	Name        string
	EnvDir      string
	Dir         string
	Host        string
	Port        int
	Command     []string
	Install     [][]string
	Env         map[string]string
	Interactive bool
}

// Addr is host:port.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Plan binds both targets to a shared environment directory.
type Plan struct {
	EnvDir     string
	BackendURL string
	HealthPath string
	Backend    Target
	Frontend   Target
}

// PlanFromConfig converts a loaded dev.toml into a launch plan.
func PlanFromConfig(cfg config.DevConfig) Plan {
	return Plan{
		EnvDir:     cfg.EnvDir,
		BackendURL: cfg.BackendURL,
		HealthPath: cfg.HealthPath,
		Backend:    targetFromConfig(NameBackend, cfg.Backend),
		Frontend:   targetFromConfig(NameFrontend, cfg.Frontend),
	}
}

func targetFromConfig(name string, cfg config.TargetConfig) Target {
	return Target{
		Name:        name,
		EnvDir:      cfg.EnvDir,
		Dir:         cfg.Dir,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Command:     cfg.Command,
		Install:     cfg.Install,
		Env:         cfg.Env,
		Interactive: cfg.Interactive,
	}
}

// ResolvedBackendURL is the explicit backend url or one derived from the backend target.
func (p Plan) ResolvedBackendURL() string {
	if u := strings.TrimRight(strings.TrimSpace(p.BackendURL), "/"); u != "" {
		return u
	}
	return "http://" + p.Backend.Addr()
}

// EnvDirFor is the environment directory used by t. A relative directory
// is taken relative to the target's working directory.
func (p Plan) EnvDirFor(t Target) string {
	dir := p.EnvDir
	if strings.TrimSpace(t.EnvDir) != "" {
		dir = t.EnvDir
	}
	if dir == "" || filepath.IsAbs(dir) || strings.TrimSpace(t.Dir) == "" {
		return dir
	}
	return filepath.Join(t.Dir, dir)
}

func validateTarget(t Target) error {
	if len(t.Command) == 0 || strings.TrimSpace(t.Command[0]) == "" {
		return fmt.Errorf("%w: %s", ErrNoCommand, t.Name)
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("%w: %s port=%d", ErrInvalidPort, t.Name, t.Port)
	}
	return nil
}
