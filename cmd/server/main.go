package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kashguard/go-htss-wallet/internal/api"
	"github.com/kashguard/go-htss-wallet/internal/api/router"
	"github.com/kashguard/go-htss-wallet/internal/config"
	"github.com/kashguard/go-htss-wallet/internal/util"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "htss-wallet",
		Short: "Hierarchical threshold signature coordinator",
	}
	rootCmd.AddCommand(newServerCmd(), newEnvCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// newServerCmd 启动 HTTP 服务
func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTSS coordinator server",
		Run: func(cmd *cobra.Command, args []string) {
			initLogger()
			cfg := config.DefaultServiceConfigFromEnv()

			s, err := api.NewServer(cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize server")
			}
			router.Init(s)

			go func() {
				if err := s.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to shut down gracefully")
			}
		},
	}
}

// newEnvCmd 打印当前解析出的配置
func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the resolved service configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.DefaultServiceConfigFromEnv()
			b, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to marshal config")
			}
			fmt.Println(string(b))
		},
	}
}

func initLogger() {
	level, err := zerolog.ParseLevel(util.GetEnv("LOGGER_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if util.GetEnvAsInt("LOGGER_PRETTY_PRINT_CONSOLE", 0) == 1 {
		log.Logger = log.Output(zerolog.NewConsoleWriter())
	}
}
