package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"intake_bot/internal/entities"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient is a linked-device session (whatsmeow) used as an
// alternative to the Cloud API webhook
type WhatsAppClient struct {
	Client *whatsmeow.Client
	log    zerolog.Logger

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(ctx context.Context, dbPath string, log zerolog.Logger) (*WhatsAppClient, error) {
	log = log.With().Str("component", "whatsapp").Logger()

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", waLog.Zerolog(log.With().Str("module", "store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Zerolog(log.With().Str("module", "client").Logger()))

	return &WhatsAppClient{Client: client, log: log}, nil
}

// Connect logs in with the stored session, or starts QR pairing when there is none
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return err
		}
		w.log.Info().Str("phone", w.GetPhoneNumber()).Msg("connected with existing session")
		return nil
	}

	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == whatsmeow.QRChannelEventCode {
			w.qrLock.Lock()
			w.qrCode = evt.Code
			w.qrLock.Unlock()
			w.log.Info().Msg("new pairing QR code available")
			continue
		}

		w.qrLock.Lock()
		w.qrCode = ""
		w.qrLock.Unlock()
		w.log.Info().Str("event", evt.Event).Msg("login event")
	}
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// IsConnected returns true if client is connected and logged in
func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) GetPhoneNumber() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.ID.User
}

func (w *WhatsAppClient) GetName() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.PushName
}

// Logout drops the session on the server and disconnects. Call Connect
// afterwards to start a fresh pairing.
func (w *WhatsAppClient) Logout(ctx context.Context) error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(ctx); err != nil {
		return err
	}
	w.Client.Disconnect()
	return nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// SendMessage accepts a bare phone number or a full JID (groups end in @g.us)
func (w *WhatsAppClient) SendMessage(ctx context.Context, to string, content string) error {
	jid, err := toJID(to)
	if err != nil {
		return err
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(content),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", jid, err)
	}
	return nil
}

func toJID(to string) (types.JID, error) {
	if !strings.Contains(to, "@") {
		to = strings.TrimPrefix(to, "+") + "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	return jid, nil
}

// ToMessage converts a whatsmeow message event into a domain message.
// ok is false for the bot's own messages and for status broadcasts.
func ToMessage(evt *events.Message) (msg entities.Message, ok bool) {
	if evt == nil || evt.Info.IsFromMe || evt.Info.Chat.Server == types.BroadcastServer {
		return entities.Message{}, false
	}

	msg = entities.Message{
		ID:        string(evt.Info.ID),
		From:      evt.Info.Sender.User,
		FromName:  evt.Info.PushName,
		Platform:  "whatsapp",
		Timestamp: evt.Info.Timestamp,
	}
	if evt.Info.IsGroup {
		msg.GroupID = evt.Info.Chat.String()
	}

	m := evt.Message
	switch {
	case m.GetConversation() != "":
		msg.Type, msg.Content = entities.MessageTypeText, m.GetConversation()
	case m.GetExtendedTextMessage() != nil:
		msg.Type, msg.Content = entities.MessageTypeText, m.GetExtendedTextMessage().GetText()
	case m.GetImageMessage() != nil:
		msg.Type = entities.MessageTypeImage
		msg.Content = captionOr(m.GetImageMessage().GetCaption(), msg.Type)
	case m.GetVideoMessage() != nil:
		msg.Type = entities.MessageTypeVideo
		msg.Content = captionOr(m.GetVideoMessage().GetCaption(), msg.Type)
	case m.GetDocumentMessage() != nil:
		msg.Type = entities.MessageTypeDocument
		msg.Content = captionOr(m.GetDocumentMessage().GetCaption(), msg.Type)
	case m.GetAudioMessage() != nil:
		msg.Type, msg.Content = entities.MessageTypeAudio, "["+entities.MessageTypeAudio+"]"
	case m.GetStickerMessage() != nil:
		msg.Type = entities.MessageTypeSticker
	case m.GetReactionMessage() != nil:
		msg.Type, msg.Content = entities.MessageTypeReaction, m.GetReactionMessage().GetText()
	default:
		msg.Type = "unknown"
	}
	return msg, true
}

// captionOr falls back to a "[kind]" placeholder for media sent without a caption
func captionOr(caption, kind string) string {
	if caption != "" {
		return caption
	}
	return "[" + kind + "]"
}
