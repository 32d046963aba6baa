package communication

import (
	"context"
	"fmt"
	"log/slog"

	"axiapac.com/attendance/attendance/model"
	"github.com/slack-go/slack"
)

const DefaultReaction = "white_check_mark"

type Slack struct {
	client  *slack.Client
	options SlackOption
	log     *slog.Logger
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
	// Reaction added to a Slack message once its summary is recomputed.
	Reaction string
	// APIURL overrides https://slack.com/api/.
	APIURL string
	Logger *slog.Logger
}

func NewSlack(token string, options SlackOption) *Slack {
	var opts []slack.Option
	if options.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(options.APIURL))
	}
	if options.Reaction == "" {
		options.Reaction = DefaultReaction
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Slack{client: slack.New(token, opts...), options: options, log: logger}
}

func (s *Slack) postMessage(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.InfoChannelID, message)
}

func (s *Slack) Error(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.ErrorChannelID, message)
}

// Recomputed acknowledges Slack messages with a reaction. Events from other
// sources are left alone.
func (s *Slack) Recomputed(ctx context.Context, trigger *model.Event, _ *model.DailySummary) {
	if trigger.Source != model.SourceSlack || trigger.Channel == "" || trigger.Reference == "" {
		return
	}
	ref := slack.NewRefToMessage(trigger.Channel, trigger.Reference)
	if err := s.client.AddReactionContext(ctx, s.options.Reaction, ref); err != nil {
		s.log.Warn("failed to add reaction", "eventId", trigger.EventID, "error", err)
	}
}

func (s *Slack) RecomputeFailed(ctx context.Context, trigger *model.Event, err error) {
	message := fmt.Sprintf("Attendance summary for %s on %s was not updated after event %s (%s): %v",
		trigger.EmployeeKey, trigger.Date, trigger.EventID, trigger.Keyword, err)
	if postErr := s.Error(ctx, message); postErr != nil {
		s.log.Warn("failed to report recompute failure", "eventId", trigger.EventID, "error", postErr)
	}
}
