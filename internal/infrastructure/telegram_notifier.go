package infrastructure

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"intake_bot/internal/entities"
)

// telegramBot is the subset of *tgbotapi.BotAPI the notifier uses
type telegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StatusFunc renders the reply for the admin /status command
type StatusFunc func(ctx context.Context) (string, error)

// TelegramNotifier posts new intake forms to an admin chat and answers
// /start and /status from that chat
type TelegramNotifier struct {
	bot         telegramBot
	adminChatID int64
	botName     string
	status      StatusFunc
	log         zerolog.Logger
}

// NewTelegramNotifier connects to the Bot API. It returns nil, nil when token is empty.
func NewTelegramNotifier(token string, adminChatID int64, log zerolog.Logger) (*TelegramNotifier, error) {
	if token == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram token: %w", err)
	}

	n := newTelegramNotifier(bot, adminChatID, log)
	n.botName = bot.Self.UserName
	return n, nil
}

func newTelegramNotifier(bot telegramBot, adminChatID int64, log zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:         bot,
		adminChatID: adminChatID,
		log:         log.With().Str("component", "telegram").Logger(),
	}
}

func (n *TelegramNotifier) BotName() string {
	return n.botName
}

// SetStatusFunc installs the /status renderer
func (n *TelegramNotifier) SetStatusFunc(fn StatusFunc) {
	n.status = fn
}

// NotifyForm sends a short summary of a stored form to the admin chat
func (n *TelegramNotifier) NotifyForm(ctx context.Context, form entities.IntakeForm) error {
	if n.adminChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(n.adminChatID, FormatFormSummary(form))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram notify form %d: %w", form.ID, err)
	}
	return nil
}

// FormatFormSummary renders the admin notification text
func FormatFormSummary(form entities.IntakeForm) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New intake form #%d\n", form.ID)

	rows := []struct{ label, value string }{
		{"Name", form.Name},
		{"Project", form.Project},
		{"Phone", form.Phone},
		{"Email", form.Email},
		{"School", form.School},
		{"Teacher", form.Teacher},
		{"Grade", form.Grade},
		{"Subject", form.Subject},
	}
	for _, r := range rows {
		if r.value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", r.label, r.value)
		}
	}
	if form.GroupName != "" {
		fmt.Fprintf(&sb, "Group: %s\n", form.GroupName)
	} else if form.GroupID != "" {
		fmt.Fprintf(&sb, "Group: %s\n", form.GroupID)
	}
	fmt.Fprintf(&sb, "Confidence: %.0f%%", form.Confidence*100)
	return sb.String()
}

// Run polls for admin commands until ctx is done
func (n *TelegramNotifier) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.bot.GetUpdatesChan(u)
	defer n.bot.StopReceivingUpdates()

	n.log.Info().Str("bot", n.botName).Msg("polling for admin commands")

	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("stopped polling")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			n.handleUpdate(ctx, update)
		}
	}
}

func (n *TelegramNotifier) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	if n.adminChatID != 0 && chatID != n.adminChatID {
		n.log.Warn().Int64("chat_id", chatID).Msg("command from non-admin chat ignored")
		return
	}

	var text string
	switch update.Message.Command() {
	case "start":
		text = fmt.Sprintf("Intake bot ready. This chat id is %d. Send /status for today's numbers.", chatID)
	case "status":
		if n.status == nil {
			text = "Status is not available."
			break
		}
		s, err := n.status(ctx)
		if err != nil {
			n.log.Error().Err(err).Msg("status command failed")
			text = "Could not load status, try again later."
			break
		}
		text = s
	default:
		return
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		n.log.Error().Err(err).Msg("reply to command failed")
	}
}
