package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"support_chat/internal/chatclient"
	"support_chat/internal/domain"
)

var consoleCmd = &cobra.Command{
	Use:   "console <chatId>",
	Short: "Join a conversation and chat interactively",
	Long: `Joins the conversation room and sends every input line as a message.
Incoming messages, typing indicators and errors are printed as they arrive.`,
	Args: cobra.ExactArgs(1),
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	chatID := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	client, err := chatclient.Dial(dialCtx, strings.TrimRight(serverURL, "/")+"/ws/chat", token)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.JoinChat(chatID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tracker := chatclient.NewTypingTracker(chatclient.DefaultTypingTimeout)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return printEvents(ctx, out, client, tracker)
	})
	g.Go(func() error {
		err := readInput(ctx, cmd.InOrStdin(), client, chatID)
		// ввод закончился (EOF) - закрываем соединение, printEvents завершится сам
		client.Close()
		return err
	})

	return g.Wait()
}

// readInput читает stdin в отдельной горутине, чтобы Ctrl+C не ждал ввода
func readInput(ctx context.Context, in io.Reader, client *chatclient.Client, chatID string) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := client.SendMessage(domain.SendMessagePayload{ChatID: chatID, Content: line}); err != nil {
				return err
			}
		}
	}
}

func printEvents(ctx context.Context, out io.Writer, client *chatclient.Client, tracker *chatclient.TypingTracker) error {
	for {
		select {
		case <-ctx.Done():
			client.Close()
			return nil
		case ev, ok := <-client.Events():
			if !ok {
				return nil
			}
			switch {
			case ev.Message != nil:
				printMessage(out, ev.Message)
			case ev.Typing != nil:
				tracker.Apply(*ev.Typing)
				if active := tracker.Active(ev.Typing.ChatID); len(active) > 0 {
					fmt.Fprintf(out, "   %s typing...\n", strings.Join(active, ", "))
				}
			case ev.Error != nil:
				fmt.Fprintf(out, "!! %s: %s (%s)\n", ev.Error.Event, ev.Error.Message, ev.Error.Code)
			case ev.AuthError != nil:
				fmt.Fprintf(out, "!! not authenticated: %s\n", ev.AuthError.Message)
			}
		}
	}
}

func printMessage(out io.Writer, m *domain.ChatMessage) {
	fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.SenderID, m.Content)
}
