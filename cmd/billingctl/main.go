// Command billingctl runs operator tasks against the billing backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Operator tools for the speech-gen billing backend",
	Long: `Operator tools for the speech-gen billing backend.

Configuration is read from the environment, optionally seeded from a .env
file in the working directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(tierCmd)
	rootCmd.AddCommand(paymentsCmd)
}

// loadConfig reads configuration and installs the process logger.
func loadConfig() *config.Config {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logger.New(os.Stderr, cfg.AppEnv, cfg.LogLevel))
	return cfg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
