package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/habitloop/habit-api/internal/config"
	"github.com/habitloop/habit-api/internal/telegram"
)

// NewNotifyCmd creates the notify command
func NewNotifyCmd() *cobra.Command {
	var chatID int64
	var text string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test Telegram message",
		Long:  "Send a test message through the configured Telegram bot to verify delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.TelegramBotToken == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN is not configured")
			}

			client, err := telegram.NewClient(cfg.TelegramBotToken, false)
			if err != nil {
				return fmt.Errorf("failed to create telegram client: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), telegram.DefaultSendTimeout)
			defer cancel()
			if err := client.SendMessage(ctx, chatID, text); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}

			fmt.Printf("Message delivered to chat %d\n", chatID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Telegram chat id to send to")
	cmd.Flags().StringVar(&text, "text", "Test reminder from habit-api", "Message text")
	_ = cmd.MarkFlagRequired("chat-id")

	return cmd
}
