package main

import (
	"fmt"
	"os"

	"github.com/danmuck/briefctl/internal/observability"
	"github.com/danmuck/briefctl/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("briefctl", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to a briefctl TOML config")
	addr := flags.String("addr", "", "listen address (overrides config and BRIEFCTL_ADDR)")
	_ = flags.Parse(os.Args[1:])

	observability.InitLogger("briefctl")
	gin.SetMode(gin.ReleaseMode)

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "briefctl: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	svc, err := server.NewService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "briefctl: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		log.Error().Err(err).Msg("briefctl stopped")
		os.Exit(1)
	}
}
