package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"intake_bot/internal/entities"
	"intake_bot/internal/infrastructure"
	"intake_bot/internal/intake"
	"intake_bot/internal/interfaces"
	"intake_bot/internal/repository"
)

// Outcome says what happened to one incoming message
type Outcome string

const (
	OutcomeChat         Outcome = "chat"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeIncomplete   Outcome = "incomplete"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeStored       Outcome = "stored"
	OutcomeSkippedGroup Outcome = "skipped_group"
	OutcomeEmpty        Outcome = "empty"
)

type IntakeServiceConfig struct {
	Forms     interfaces.IntakeFormStore
	Logs      interfaces.MessageLogStore
	Groups    interfaces.GroupStore
	Responses interfaces.BotResponseStore

	// Messenger and Notifier are optional
	Messenger interfaces.Messenger
	Notifier  interfaces.Notifier

	Locks        *infrastructure.SenderLocks
	Limiter      *infrastructure.MessageRateLimiter
	ReplyTimeout time.Duration
}

// IntakeService turns incoming chat messages into stored intake forms
type IntakeService struct {
	cfg IntakeServiceConfig
	log zerolog.Logger
	now func() time.Time
}

func NewIntakeService(cfg IntakeServiceConfig, log zerolog.Logger) *IntakeService {
	if cfg.Locks == nil {
		cfg.Locks = infrastructure.NewSenderLocks()
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 10 * time.Second
	}
	return &IntakeService{
		cfg: cfg,
		log: log.With().Str("component", "intake").Logger(),
		now: time.Now,
	}
}

// HandleMessage classifies msg, stores it when it is a complete form, replies
// to the sender and writes an audit log entry. Messages without any text
// content are dropped before logging. Messages from the same sender are
// handled one at a time.
func (s *IntakeService) HandleMessage(ctx context.Context, msg entities.Message) (Outcome, error) {
	if strings.TrimSpace(msg.Content) == "" {
		infrastructure.MessagesProcessed.WithLabelValues(string(OutcomeEmpty)).Inc()
		s.log.Debug().Str("message_id", msg.ID).Str("type", msg.Type).Msg("message without content skipped")
		return OutcomeEmpty, nil
	}

	unlock := s.cfg.Locks.Lock(msg.From)
	defer unlock()

	start := s.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = start
	}

	entry := &entities.MessageLog{
		MessageID:  msg.ID,
		FromNumber: msg.From,
		FromName:   msg.FromName,
		Timestamp:  msg.Timestamp,
		IsGroup:    msg.IsGroup(),
		GroupID:    msg.GroupID,
		GroupName:  msg.GroupName,
		Content:    msg.Content,
	}

	outcome, err := s.process(ctx, msg, entry)

	if logErr := s.cfg.Logs.Create(ctx, entry); logErr != nil {
		s.log.Error().Err(logErr).Str("message_id", msg.ID).Msg("failed to write message log")
		err = errors.Join(err, logErr)
	}

	infrastructure.MessagesProcessed.WithLabelValues(string(outcome)).Inc()
	infrastructure.MessageDuration.Observe(s.now().Sub(start).Seconds())

	s.log.Debug().
		Str("message_id", msg.ID).
		Str("from", msg.From).
		Str("group_id", msg.GroupID).
		Str("outcome", string(outcome)).
		Msg("message handled")

	return outcome, err
}

func (s *IntakeService) process(ctx context.Context, msg entities.Message, entry *entities.MessageLog) (Outcome, error) {
	if msg.Type != entities.MessageTypeText {
		entry.MessageType = logTypeFor(msg.Type)
		return OutcomeIgnored, nil
	}

	result := intake.Extract(msg.Content)
	if !result.IsForm {
		entry.MessageType = entities.LogTypeChat
		return OutcomeChat, nil
	}

	entry.MessageType = entities.LogTypeIntakeForm
	entry.WasProcessed = true
	infrastructure.FormConfidence.Observe(result.Confidence)

	var group *entities.WhatsAppGroup
	if msg.IsGroup() {
		g, err := s.cfg.Groups.GetActive(ctx, msg.GroupID)
		if err != nil {
			entry.ProcessingNotes = "group lookup failed"
			return OutcomeIgnored, err
		}
		if g == nil {
			s.log.Info().Str("group_id", msg.GroupID).Msg("form from unregistered or inactive group skipped")
			entry.ProcessingNotes = "unregistered or inactive group"
			return OutcomeSkippedGroup, nil
		}
		group = g
		if msg.GroupName == "" {
			msg.GroupName = g.GroupName
			entry.GroupName = g.GroupName
		}
	}
	autoReply := group == nil || group.AutoReply

	missing := missingFields(result, group)
	if len(missing) > 0 {
		entry.ProcessingNotes = "missing: " + strings.Join(missing, ", ")
		if autoReply {
			s.reply(ctx, msg.From, entities.TriggerFormIncomplete, map[string]string{
				"missing_fields": strings.Join(missing, ", "),
			})
		}
		return OutcomeIncomplete, nil
	}

	exists, err := s.cfg.Forms.ExistsByMessageID(ctx, msg.ID)
	if err != nil {
		return OutcomeIgnored, err
	}
	if exists {
		entry.ProcessingNotes = "duplicate message"
		return OutcomeDuplicate, nil
	}

	form := buildForm(msg, result)
	if err := s.cfg.Forms.Create(ctx, &form); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			entry.ProcessingNotes = "duplicate message"
			return OutcomeDuplicate, nil
		}
		return OutcomeIgnored, fmt.Errorf("store form from %s: %w", msg.From, err)
	}

	entry.IntakeFormID = &form.ID
	infrastructure.FormsStored.Inc()
	s.log.Info().Int64("form_id", form.ID).Str("project", form.Project).Msg("intake form stored")

	if group != nil {
		if err := s.cfg.Groups.RecordForm(ctx, group.GroupID, s.now()); err != nil {
			s.log.Warn().Err(err).Str("group_id", group.GroupID).Msg("failed to update group counters")
		}
	}

	if autoReply {
		s.reply(ctx, msg.From, entities.TriggerFormReceived, map[string]string{
			"name":    form.Name,
			"project": form.Project,
			"school":  orNA(form.School),
			"teacher": orNA(form.Teacher),
		})
	}

	if s.cfg.Notifier != nil {
		if err := s.cfg.Notifier.NotifyForm(ctx, form); err != nil {
			s.log.Warn().Err(err).Int64("form_id", form.ID).Msg("admin notification failed")
		}
	}

	return OutcomeStored, nil
}

// missingFields lists required keys without a value. Groups that require all
// fields check the whole schema.
func missingFields(result intake.Result, group *entities.WhatsAppGroup) []string {
	keys := result.MissingRequired
	if group != nil && group.RequireAllFields {
		keys = nil
		for _, k := range intake.Schema {
			if result.Get(k) == "" {
				keys = append(keys, k)
			}
		}
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, string(k))
	}
	return out
}

func buildForm(msg entities.Message, result intake.Result) entities.IntakeForm {
	n := intake.Normalize(result, msg.From)
	return entities.IntakeForm{
		Name:             n.Name,
		Phone:            n.Phone,
		Email:            n.Email,
		Project:          n.Project,
		Notes:            n.Notes,
		School:           n.School,
		Teacher:          n.Teacher,
		Grade:            n.Grade,
		Subject:          n.Subject,
		LessonTitles:     n.LessonTitles,
		LessonReferences: n.LessonReferences,
		MessageID:        msg.ID,
		From:             msg.From,
		SentAt:           msg.Timestamp,
		GroupID:          msg.GroupID,
		GroupName:        msg.GroupName,
		Status:           entities.FormStatusNew,
		RawMessage:       msg.Content,
		Confidence:       result.Confidence,
	}
}

func logTypeFor(messageType string) string {
	switch messageType {
	case entities.MessageTypeImage, entities.MessageTypeVideo, entities.MessageTypeAudio,
		entities.MessageTypeDocument, entities.MessageTypeSticker:
		return entities.LogTypeMedia
	case entities.MessageTypeReaction:
		return entities.LogTypeReaction
	}
	return entities.LogTypeUnknown
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// reply renders the template for trigger and sends it. Failures are logged only.
func (s *IntakeService) reply(ctx context.Context, to, trigger string, values map[string]string) {
	if s.cfg.Messenger == nil {
		return
	}
	if s.cfg.Limiter != nil && !s.cfg.Limiter.Allow(to) {
		s.log.Warn().Str("to", to).Str("trigger", trigger).Msg("reply rate limited")
		infrastructure.RepliesSent.WithLabelValues(trigger, "rate_limited").Inc()
		return
	}

	text, err := s.RenderReply(ctx, trigger, values)
	if err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("load reply template")
		infrastructure.RepliesSent.WithLabelValues(trigger, "error").Inc()
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()
	if err := s.cfg.Messenger.SendMessage(sendCtx, to, text); err != nil {
		s.log.Error().Err(err).Str("to", to).Str("trigger", trigger).Msg("reply failed")
		infrastructure.RepliesSent.WithLabelValues(trigger, "error").Inc()
		return
	}
	infrastructure.RepliesSent.WithLabelValues(trigger, "sent").Inc()
}

// RenderReply fills the active template for trigger, falling back to the built-in text
func (s *IntakeService) RenderReply(ctx context.Context, trigger string, values map[string]string) (string, error) {
	resp, err := s.cfg.Responses.GetActive(ctx, trigger)
	if err != nil {
		return "", err
	}
	if resp == nil {
		resp = &entities.BotResponse{Trigger: trigger, MessageTemplate: entities.DefaultResponses[trigger]}
	}
	return resp.Format(values), nil
}
