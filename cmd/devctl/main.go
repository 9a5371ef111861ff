package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/briefctl/internal/config"
	"github.com/danmuck/briefctl/internal/launcher"
	"github.com/danmuck/briefctl/internal/observability"
	"github.com/danmuck/briefctl/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "dev.toml"

func main() {
	observability.InitLogger("devctl")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root := newRootCmd(launcher.New())
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("devctl failed")
		code := tools.ExitCode(err)
		if code == 0 {
			code = 1
		}
		os.Exit(int(code))
	}
}

type options struct {
	configPath string
}

func newRootCmd(l *launcher.Launcher) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "devctl",
		Short:         "Prepare and launch the briefctl backend and interview frontend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "launcher config (dev.toml)")

	root.AddCommand(
		newTargetCmd(l, opts, launcher.NameBackend, "Prepare, install and run the backend on its port"),
		newTargetCmd(l, opts, launcher.NameFrontend, "Prepare, install and run the frontend against BACKEND_URL"),
		newUpCmd(l, opts),
		newPrepareCmd(opts),
		newConfigCmd(),
	)
	return root
}

func newTargetCmd(l *launcher.Launcher, opts *options, name string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := loadPlan(cmd, opts)
			if err != nil {
				return err
			}
			target := plan.Backend
			if name == launcher.NameFrontend {
				target = plan.Frontend
			}
			_, err = l.Launch(cmd.Context(), plan, target)
			return err
		},
	}
}

func newUpCmd(l *launcher.Launcher, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run the backend, wait for /health, then run the frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := loadPlan(cmd, opts)
			if err != nil {
				return err
			}
			return l.Up(cmd.Context(), plan)
		},
	}
}

func newPrepareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Create the environment directories without installing or launching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := loadPlan(cmd, opts)
			if err != nil {
				return err
			}
			var dirs []string
			seen := map[string]bool{}
			for _, t := range []launcher.Target{plan.Backend, plan.Frontend} {
				dir := plan.EnvDirFor(t)
				if dir == "" || seen[dir] {
					continue
				}
				seen[dir] = true
				dirs = append(dirs, dir)
			}
			for _, dir := range dirs {
				created, err := launcher.Prepare(dir)
				if err != nil {
					return err
				}
				state := "exists"
				if created {
					state = "created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, dir)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var (
		kind     string
		output   string
		validate bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate a config template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := output
			if target == "" {
				switch kind {
				case "dev":
					target = defaultConfigPath
				case "backend":
					target = "cmd/briefctl/config.toml"
				default:
					return fmt.Errorf("unknown kind: %s", kind)
				}
			}
			if validate {
				if kind != "dev" {
					return fmt.Errorf("validation supports kind dev only")
				}
				if _, err := config.LoadDevConfig(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Validated %s config at %s\n", kind, target)
				return nil
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s config template to %s\n", kind, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "dev", "config kind: dev|backend")
	cmd.Flags().StringVarP(&output, "output", "o", "", "template path (defaults per kind)")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate an existing config instead of writing")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// loadPlan reads the config file. A missing default file falls back to built-in defaults.
func loadPlan(cmd *cobra.Command, opts *options) (launcher.Plan, error) {
	cfg, err := config.LoadDevConfig(opts.configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			log.Warn().Str("path", opts.configPath).Msg("launcher config not found, using defaults")
			return launcher.PlanFromConfig(config.DefaultDevConfig()), nil
		}
		return launcher.Plan{}, err
	}
	log.Info().Str("path", opts.configPath).Msg("loaded launcher config")
	return launcher.PlanFromConfig(cfg), nil
}
