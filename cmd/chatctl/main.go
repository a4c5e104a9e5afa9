package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Terminal console for the support chat",
	Long: `chatctl talks to the support chat service over its websocket and REST API.

Available subcommands:
  console - join a conversation and chat interactively
  history - print the message history of a conversation
  token   - issue a development bearer token`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("CHAT_URL", "http://localhost:8080"), "Chat service base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CHAT_TOKEN"), "Bearer token (or set CHAT_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Dial and request timeout")

	rootCmd.AddCommand(consoleCmd, historyCmd, tokenCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
