package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"support_chat/internal/domain"
)

var (
	historyPage  int
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history <chatId>",
	Short: "Print the message history of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyPage, "page", 1, "Page, 1 is the newest")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Messages per page")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/chats/messages/%s?page=%d&limit=%d",
		strings.TrimRight(serverURL, "/"), url.PathEscape(args[0]), historyPage, historyLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("fetch history: %s: %s", resp.Status, body.Error)
	}

	var page domain.MessagePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, m := range page.Messages {
		printMessage(out, m)
	}
	if page.HasMore {
		fmt.Fprintf(out, "-- older messages: --page %d\n", page.Page+1)
	}
	return nil
}
