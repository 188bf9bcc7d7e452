package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"intake_bot/internal/config"
	"intake_bot/internal/infrastructure"
)

const defaultTestMessage = "WhatsApp Bot Test\n\nThis is a test message from your intake bot. If you received this, your configuration is working correctly!"

var (
	sendPhone    string
	sendGraphURL string
)

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Check the Cloud API settings and optionally send a test message",
	Long: `Verifies that the WhatsApp Cloud API credentials are configured. With
--phone it also sends a message (the argument, or a built-in test text) to
that number.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		message := defaultTestMessage
		if len(args) == 1 {
			message = args[0]
		}
		return runSend(cmd.Context(), cmd.OutOrStdout(), cfg, sendPhone, message)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendPhone, "phone", "", "recipient number with country code")
	sendCmd.Flags().StringVar(&sendGraphURL, "graph-url", "", "override the Graph API host")
}

var errCloudAPINotConfigured = errors.New("WhatsApp Cloud API is not configured: set INTAKE_WHATSAPP_ACCESS_TOKEN and INTAKE_WHATSAPP_PHONE_NUMBER_ID")

func runSend(ctx context.Context, out io.Writer, cfg *config.Config, phone, message string) error {
	wa := cfg.WhatsApp
	if !wa.CloudAPIConfigured() {
		return errCloudAPINotConfigured
	}

	fmt.Fprintln(out, "WhatsApp Cloud API is configured")
	fmt.Fprintf(out, "  Phone Number ID: %s\n", maskID(wa.PhoneNumberID))
	fmt.Fprintf(out, "  API Version:     %s\n", wa.APIVersion)

	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if phone == "" {
		fmt.Fprintln(out, "To send a test message, pass --phone=+1234567890")
		return nil
	}

	log := infrastructure.NewLogger(cfg.Log.Level, cfg.Log.Format)
	client := infrastructure.NewCloudAPIClient(wa.AccessToken, wa.PhoneNumberID, wa.APIVersion, log)
	if sendGraphURL != "" {
		client.WithBaseURL(strings.TrimRight(sendGraphURL, "/"))
	}
	if cfg.Replies.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Replies.SendTimeout)
		defer cancel()
	}

	if err := client.SendMessage(ctx, phone, message); err != nil {
		return err
	}
	fmt.Fprintf(out, "Message sent to %s\n", phone)
	return nil
}

// maskID keeps the first ten characters of an identifier
func maskID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10] + "..."
}
