package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/briefctl/internal/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const binDir = "bin"

var (
	ErrEnvDirNotDir     = errors.New("launcher: env path exists and is not a directory")
	ErrBackendUnhealthy = errors.New("launcher: backend never became healthy")
)

// InstallError reports the first failing install step.
type InstallError struct {
	Step   []string
	Code   int32
	Stderr string
	Err    error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("install step %q failed (exit %d)", strings.Join(e.Step, " "), e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *InstallError) ExitStatus() int32 {
	return e.Code
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Launcher runs targets through pluggable process backends.
type Launcher struct {
	runner   tools.CommandRunner
	executor tools.ProcessExecutor
	client   *http.Client
	backoff  BackoffConfig
	environ  func() []string
	logger   zerolog.Logger
	rng      *rand.Rand
}

type Option func(*Launcher)

func WithRunner(r tools.CommandRunner) Option {
	return func(l *Launcher) { l.runner = r }
}

func WithExecutor(e tools.ProcessExecutor) Option {
	return func(l *Launcher) { l.executor = e }
}

func WithHTTPClient(c *http.Client) Option {
	return func(l *Launcher) { l.client = c }
}

func WithBackoff(cfg BackoffConfig) Option {
	return func(l *Launcher) { l.backoff = cfg }
}

// WithEnviron replaces os.Environ as the base process environment.
func WithEnviron(fn func() []string) Option {
	return func(l *Launcher) { l.environ = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

func New(opts ...Option) *Launcher {
	l := &Launcher{
		runner:   tools.ExecRunner{},
		executor: tools.OSExecutor{},
		client:   &http.Client{Timeout: 2 * time.Second},
		backoff:  DefaultBackoff(),
		environ:  os.Environ,
		logger:   log.Logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Prepare creates envDir and its bin directory when missing. created is
// true only for the call that made the directory.
func Prepare(envDir string) (bool, error) {
	info, err := os.Stat(envDir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("%w: %s", ErrEnvDirNotDir, envDir)
		}
		if err := os.MkdirAll(filepath.Join(envDir, binDir), 0o755); err != nil {
			return false, err
		}
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}
	if err := os.MkdirAll(filepath.Join(envDir, binDir), 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// Install runs every step in order. The first failure aborts.
func (l *Launcher) Install(ctx context.Context, envDir, dir string, env []string, steps [][]string) error {
	for i, step := range steps {
		if len(step) == 0 {
			return fmt.Errorf("install step %d is empty", i)
		}
		name := resolveCommand(envDir, step[0])
		l.logger.Info().Str("step", strings.Join(step, " ")).Msg("install")
		_, stderr, code, err := l.runner.Run(ctx, dir, env, name, step[1:]...)
		if err != nil {
			return &InstallError{Step: step, Code: code, Stderr: string(stderr), Err: err}
		}
	}
	return nil
}

// Environment returns the base environment plus the target's assignments.
// Target Env entries win over derived values.
func (l *Launcher) Environment(plan Plan, target Target) []string {
	assign := map[string]string{}
	switch target.Name {
	case NameBackend:
		assign["BRIEFCTL_ADDR"] = target.Addr()
	case NameFrontend:
		assign["BACKEND_URL"] = plan.ResolvedBackendURL()
		assign["FRONTEND_PORT"] = strconv.Itoa(target.Port)
	}
	base := l.environ()
	if envDir := plan.EnvDirFor(target); envDir != "" {
		if abs, err := filepath.Abs(filepath.Join(envDir, binDir)); err == nil {
			path := lookupEnv(base, "PATH")
			if path != "" {
				path = abs + string(os.PathListSeparator) + path
			} else {
				path = abs
			}
			assign["PATH"] = path
		}
	}
	for k, v := range target.Env {
		assign[k] = v
	}
	return MergeEnv(base, assign)
}

// Launch prepares target and runs its command in the foreground until it exits.
func (l *Launcher) Launch(ctx context.Context, plan Plan, target Target) (int32, error) {
	spec, err := l.stage(ctx, plan, target)
	if err != nil {
		return tools.ExitCode(err), err
	}
	err = l.run(ctx, spec)
	return tools.ExitCode(err), err
}

// Up stages both targets, runs the backend, waits for its health endpoint,
// then runs the frontend. When either process exits the other is cancelled.
func (l *Launcher) Up(ctx context.Context, plan Plan) error {
	backend, err := l.stage(ctx, plan, plan.Backend)
	if err != nil {
		return err
	}
	frontend, err := l.stage(ctx, plan, plan.Frontend)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := l.run(gctx, backend)
		if err != nil && gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		healthURL := plan.ResolvedBackendURL() + plan.HealthPath
		if err := l.WaitHealthy(gctx, healthURL); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		err := l.run(gctx, frontend)
		if err != nil && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// WaitHealthy polls url until it answers 2xx or the attempt budget runs out.
func (l *Launcher) WaitHealthy(ctx context.Context, url string) error {
	attempts := l.backoff.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = l.checkHealth(ctx, url)
		if lastErr == nil {
			l.logger.Info().Str("url", url).Int("attempt", attempt).Msg("backend healthy")
			return nil
		}
		if attempt == attempts {
			break
		}
		delay := NextBackoffDelay(l.backoff, attempt, l.rng)
		l.logger.Debug().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("backend not ready")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrBackendUnhealthy, attempts, lastErr)
}

func (l *Launcher) checkHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (l *Launcher) stage(ctx context.Context, plan Plan, target Target) (tools.ProcessSpec, error) {
	if err := validateTarget(target); err != nil {
		return tools.ProcessSpec{}, err
	}
	envDir := plan.EnvDirFor(target)
	created, err := Prepare(envDir)
	if err != nil {
		return tools.ProcessSpec{}, fmt.Errorf("%s: prepare env: %w", target.Name, err)
	}
	if created {
		l.logger.Info().Str("target", target.Name).Str("env_dir", envDir).Msg("environment created")
	} else {
		l.logger.Debug().Str("target", target.Name).Str("env_dir", envDir).Msg("environment exists")
	}

	env := l.Environment(plan, target)
	if err := l.Install(ctx, envDir, target.Dir, env, target.Install); err != nil {
		return tools.ProcessSpec{}, fmt.Errorf("%s: %w", target.Name, err)
	}

	spec := tools.ProcessSpec{
		Name: target.Name,
		Path: resolveCommand(envDir, target.Command[0]),
		Args: target.Command[1:],
		Env:  env,
		Dir:  target.Dir,
	}
	if !target.Interactive {
		spec.Stdin = bytes.NewReader(nil)
	}
	return spec, nil
}

func (l *Launcher) run(ctx context.Context, spec tools.ProcessSpec) error {
	l.logger.Info().Str("target", spec.Name).Str("path", spec.Path).Strs("args", spec.Args).Msg("launching")
	if err := l.executor.Exec(ctx, spec); err != nil {
		return fmt.Errorf("%s: %w", spec.Name, err)
	}
	l.logger.Info().Str("target", spec.Name).Msg("exited")
	return nil
}

// resolveCommand prefers a binary installed under <envDir>/bin.
func resolveCommand(envDir, name string) string {
	if envDir == "" || filepath.IsAbs(name) {
		return name
	}
	candidate := filepath.Join(envDir, binDir, name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
		return candidate
	}
	return name
}

// MergeEnv overrides keys already present in base and appends the rest in key order.
func MergeEnv(base []string, assign map[string]string) []string {
	out := make([]string, 0, len(base)+len(assign))
	seen := make(map[string]bool, len(assign))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := assign[key]; ok {
			if !seen[key] {
				out = append(out, key+"="+v)
				seen[key] = true
			}
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(assign))
	for k := range assign {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+assign[k])
	}
	return out
}

func lookupEnv(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(env[i], "=")
		if ok && k == key {
			return v
		}
	}
	return ""
}
